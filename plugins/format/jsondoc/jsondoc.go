// Package jsondoc 实现 JSON 文档处理器：任意深度下键为 "text" 的字符串值
// 即可译单元，以 JSON 指针按位置寻址；回写对原始字节做区间拼接，
// 未触及的键序、空白与数字表示逐字节保留。
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"subtrans/pkg/contract"
)

// TextKey 为承载可译文本的对象键。
const TextKey = "text"

// Processor 满足 contract.Processor。
type Processor struct{}

func New() *Processor { return &Processor{} }

func (*Processor) Exts() []string { return []string{".json"} }

func (*Processor) BatchSize() int { return 5 }

// seg 记录一个可译字符串值在原始字节流中的位置。
type seg struct {
	pointer    string
	text       string
	start, end int64 // 含引号的 token 字节区间
}

type document struct {
	fileID contract.FileID
	raw    []byte
	segs   []seg
	out    []string
}

// frame 为指针栈的一层：对象层记录当前键，数组层记录当前下标。
type frame struct {
	array   bool
	key     string
	keyNext bool
	index   int
}

// Parse 以流式 token 扫描定位所有 "text" 字符串值；
// 不反序列化整棵树，数字与键序因此不受重排影响。
func (*Processor) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := &document{fileID: fileID, raw: raw}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var stack []frame
	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("json format error: %w", err)
		}
		top := len(stack) - 1
		isKey := top >= 0 && !stack[top].array && stack[top].keyNext

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stepValue(stack)
				stack = append(stack, frame{keyNext: true})
			case '[':
				stepValue(stack)
				stack = append(stack, frame{array: true, index: -1})
			case '}', ']':
				stack = stack[:len(stack)-1]
			}
		case string:
			if isKey {
				stack[top].key = t
				stack[top].keyNext = false
				continue
			}
			stepValue(stack)
			if top >= 0 && !stack[top].array && stack[top].key == TextKey {
				end := dec.InputOffset()
				start := int64(bytes.IndexByte(raw[before:end], '"')) + before
				doc.segs = append(doc.segs, seg{
					pointer: pointerOf(stack),
					text:    t,
					start:   start,
					end:     end,
				})
			}
		default:
			stepValue(stack)
		}
	}
	return doc, nil
}

// stepValue 在消费一个值后推进所在层的游标。
func stepValue(stack []frame) {
	if len(stack) == 0 {
		return
	}
	top := len(stack) - 1
	if stack[top].array {
		stack[top].index++
	} else {
		stack[top].keyNext = true
	}
}

// pointerOf 由栈状态构造 RFC 6901 指针。
func pointerOf(stack []frame) string {
	var b strings.Builder
	for _, f := range stack {
		b.WriteByte('/')
		if f.array {
			b.WriteString(strconv.Itoa(f.index))
		} else {
			b.WriteString(escapePointer(f.key))
		}
	}
	return b.String()
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}

// Units 按文档序返回单元；Path 携带定位用的 JSON 指针。
func (d *document) Units() []contract.Unit {
	units := make([]contract.Unit, len(d.segs))
	for i, s := range d.segs {
		units[i] = contract.Unit{
			Index:  contract.Index(i),
			FileID: d.fileID,
			Text:   s.text,
			Path:   s.pointer,
		}
	}
	return units
}

// Reinject 按 Index 对位回写；数量或顺序不符即不变量违例。
func (d *document) Reinject(units []contract.Unit) error {
	if len(units) != len(d.segs) {
		return fmt.Errorf("json reinject: %w: %d units for %d segments",
			contract.ErrInvariantViolation, len(units), len(d.segs))
	}
	out := make([]string, len(d.segs))
	for i, u := range units {
		if int(u.Index) != i {
			return fmt.Errorf("json reinject: %w: unit %d out of order", contract.ErrInvariantViolation, u.Index)
		}
		out[i] = u.Output()
	}
	d.out = out
	return nil
}

// WriteTo 区间拼接：仅替换译文有变化的值 token，其余字节原样透传。
func (d *document) WriteTo(w io.Writer) error {
	if d.out == nil {
		_, err := w.Write(d.raw)
		return err
	}
	var prev int64
	for i, s := range d.segs {
		if d.out[i] == s.text {
			continue // 原文未变，保留原始转义形式
		}
		if _, err := w.Write(d.raw[prev:s.start]); err != nil {
			return err
		}
		enc, err := encodeString(d.out[i])
		if err != nil {
			return err
		}
		if _, err := w.Write(enc); err != nil {
			return err
		}
		prev = s.end
	}
	_, err := w.Write(d.raw[prev:])
	return err
}

// encodeString 编码 JSON 字符串字面量，不做 HTML 转义。
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var _ contract.Processor = (*Processor)(nil)
