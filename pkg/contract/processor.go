package contract

import (
	"context"
	"io"
)

// Processor: 格式处理器。将字节流解析为有序单元集合，并负责结构保持的回写。
// 约束：
//  1. Parse 不改变文本语义（仅 CRLF→LF 的最小必要归一）；
//  2. 单元数量与顺序在翻译期间不可变；
//  3. 非文本字段（时间轴、JSON 键、原始字节布局）原样保留；
//  4. 无内部并发、幂等。
type Processor interface {
	// Exts: 本处理器声明的扩展名（小写含点，如 ".srt"）。
	Exts() []string
	// BatchSize: 建议的提交批大小（单元越大批越小）。
	BatchSize() int
	Parse(ctx context.Context, fileID FileID, r io.Reader) (Document, error)
}

// Document: 单次翻译请求期间由 Processor 独占的文档。
// 约束：
//  1. Units 返回解析时建立的有序单元（调用方可改写 Translated 字段）；
//  2. Reinject 仅覆盖文本内容，按 Index/Path 对位回写；
//  3. WriteTo 序列化为与输入同格式的输出。
type Document interface {
	Units() []Unit
	Reinject(units []Unit) error
	WriteTo(w io.Writer) error
}
