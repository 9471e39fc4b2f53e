// Package chunk 将长文本拆分为有界片段，供输入长度受限的模型消费。
// 纯函数：同一输入与配置恒产出同一片段序列。
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"subtrans/pkg/contract"
)

const (
	// DefaultMax 为缺省片段上限（字符）。
	DefaultMax = 500
	// BoundaryTolerance 为句界回查的前瞻容差：允许在窗口末端之后
	// 至多 50 字符内命中句界（此时片段略超上限）。
	BoundaryTolerance = 50
)

// 句界标记，按优先级排列。
var markers = []string{". ", "! ", "? ", "\n"}

// Split 以 max 为窗口遍历 text，尽量在句界处切分。
// 约束：
//  1. 片段两端去除空白，空片段丢弃；Offset 为去空白后的源文本字节偏移；
//  2. 片段长度 ≤ max + BoundaryTolerance；无句界时在 max 处硬切；
//  3. 不修改输入；短于 max 的文本恰好产出一个片段；
//  4. 长度 ≤ max 的片段重切分（同一 max）得到其自身；
//     经容差命中句界的片段长于 max，重切分会再分为两段。
func Split(text string, max int) []contract.Chunk {
	if max <= 0 {
		max = DefaultMax
	}
	var chunks []contract.Chunk
	pos := 0
	for pos < len(text) {
		end := pos + max
		if end >= len(text) {
			end = len(text)
		} else if b := boundaryBefore(text, pos, end); b >= 0 {
			end = b + 1 // 保留句界标记首字符（句点等）
		} else {
			// 硬切：回退到 rune 起点，避免拆散多字节字符。
			for end > pos && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == pos {
				end = pos + max
			}
		}
		seg := text[pos:end]
		if c := strings.TrimSpace(seg); c != "" {
			lead := strings.IndexFunc(seg, func(r rune) bool { return !unicode.IsSpace(r) })
			chunks = append(chunks, contract.Chunk{Text: c, Offset: pos + lead})
		}
		pos = end
	}
	return chunks
}

// boundaryBefore 返回 [pos,end) 内最后一个句界标记的起始下标；
// 窗口内无标记时在前瞻容差内（end..end+BoundaryTolerance）重查一次。
// 优先窗口内命中，保证常规片段不超过 max。
func boundaryBefore(text string, pos, end int) int {
	hi := end + BoundaryTolerance
	if hi > len(text) {
		hi = len(text)
	}
	for _, lim := range [2]int{end, hi} {
		for _, m := range markers {
			if i := strings.LastIndex(text[pos:lim], m); i >= 0 {
				return pos + i
			}
		}
	}
	return -1
}
