// Package text 实现纯文本处理器：整文按句界切块，每块一个可译单元；
// 输出为译块按单空格重联（纯文本无结构可保，不承诺逐字节回放）。
package text

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"subtrans/internal/chunk"
	"subtrans/pkg/contract"
)

// Processor 满足 contract.Processor。
type Processor struct {
	maxChunk int
}

// New 构造文本处理器；maxChunk ≤ 0 时取缺省片段上限。
func New(maxChunk int) *Processor {
	if maxChunk <= 0 {
		maxChunk = chunk.DefaultMax
	}
	return &Processor{maxChunk: maxChunk}
}

func (*Processor) Exts() []string { return []string{".txt"} }

// BatchSize: 文本块长，批取小值。
func (*Processor) BatchSize() int { return 3 }

type document struct {
	fileID contract.FileID
	chunks []contract.Chunk
	out    []string
}

func (p *Processor) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, errors.New("text decode error: invalid UTF-8")
	}
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	return &document{fileID: fileID, chunks: chunk.Split(s, p.maxChunk)}, nil
}

func (d *document) Units() []contract.Unit {
	units := make([]contract.Unit, len(d.chunks))
	for i, c := range d.chunks {
		units[i] = contract.Unit{
			Index:  contract.Index(i),
			FileID: d.fileID,
			Text:   c.Text,
		}
	}
	return units
}

// Reinject 按 Index 对位回写；数量或顺序不符即不变量违例。
func (d *document) Reinject(units []contract.Unit) error {
	if len(units) != len(d.chunks) {
		return fmt.Errorf("text reinject: %w: %d units for %d chunks",
			contract.ErrInvariantViolation, len(units), len(d.chunks))
	}
	out := make([]string, len(d.chunks))
	for i, u := range units {
		if int(u.Index) != i {
			return fmt.Errorf("text reinject: %w: unit %d out of order", contract.ErrInvariantViolation, u.Index)
		}
		out[i] = u.Output()
	}
	d.out = out
	return nil
}

// WriteTo 以单空格重联各块并以换行收尾。
func (d *document) WriteTo(w io.Writer) error {
	parts := d.out
	if parts == nil {
		parts = make([]string, len(d.chunks))
		for i, c := range d.chunks {
			parts[i] = c.Text
		}
	}
	if len(parts) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, strings.Join(parts, " ")); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

var _ contract.Processor = (*Processor)(nil)
