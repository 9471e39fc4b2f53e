// Package srt 实现 SRT 字幕格式处理器：每条 cue 一个可译单元；
// 序号与时间轴原样保留，回写仅覆盖文本字段。
package srt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"subtrans/pkg/contract"
)

// Processor 满足 contract.Processor。
type Processor struct{}

func New() *Processor { return &Processor{} }

func (*Processor) Exts() []string { return []string{".srt"} }

// BatchSize: cue 文本短，批可以稍大。
func (*Processor) BatchSize() int { return 5 }

var timeLineRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}`)

type cue struct {
	seq    string
	timing string
	text   string
}

type document struct {
	fileID contract.FileID
	cues   []cue
	out    []string // 回写后的文本；nil 表示未回写
}

// Parse 将 SRT 字节流解析为 cue 文档。
// 块结构：序号行、时间轴行、文本若干行，空行结束；CRLF→LF 归一。
func (*Processor) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Document, error) {
	br := bufio.NewReader(r)
	doc := &document{fileID: fileID}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seqLine, eof, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		if seqLine == "" { // 跳过多余空行
			continue
		}
		if _, err := strconv.Atoi(seqLine); err != nil {
			return nil, fmt.Errorf("srt format error: invalid sequence line: %q", seqLine)
		}
		timing, _, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if !timeLineRe.MatchString(timing) {
			return nil, fmt.Errorf("srt format error: invalid time line: %q", timing)
		}
		var texts []string
		for {
			line, e, err := readTrimmedLine(br)
			if err != nil {
				return nil, err
			}
			if line == "" || e {
				if e && line != "" {
					texts = append(texts, line)
				}
				break
			}
			texts = append(texts, line)
		}
		text := strings.Join(texts, "\n")
		if !utf8.ValidString(text) {
			return nil, errors.New("srt decode error: invalid UTF-8 in text block")
		}
		doc.cues = append(doc.cues, cue{seq: seqLine, timing: timing, text: text})
	}
	return doc, nil
}

// Units 返回每 cue 一个单元；Meta 保存需原样回写的序号/时间轴。
func (d *document) Units() []contract.Unit {
	units := make([]contract.Unit, len(d.cues))
	for i, c := range d.cues {
		units[i] = contract.Unit{
			Index:  contract.Index(i),
			FileID: d.fileID,
			Text:   c.text,
			Meta:   contract.Meta{"seq": c.seq, "time": c.timing},
		}
	}
	return units
}

// Reinject 按 Index 对位回写译文；数量或顺序不符即不变量违例。
func (d *document) Reinject(units []contract.Unit) error {
	if len(units) != len(d.cues) {
		return fmt.Errorf("srt reinject: %w: %d units for %d cues",
			contract.ErrInvariantViolation, len(units), len(d.cues))
	}
	out := make([]string, len(d.cues))
	for i, u := range units {
		if int(u.Index) != i {
			return fmt.Errorf("srt reinject: %w: unit %d out of order", contract.ErrInvariantViolation, u.Index)
		}
		out[i] = u.Output()
	}
	d.out = out
	return nil
}

// WriteTo 序列化：序号与时间轴逐字节保留，仅文本字段更新。
func (d *document) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, c := range d.cues {
		text := c.text
		if d.out != nil {
			text = d.out[i]
		}
		if _, err := fmt.Fprintf(bw, "%s\n%s\n%s\n\n", c.seq, c.timing, text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// readTrimmedLine 读取一行，归一 CRLF→LF，并去除结尾换行符；返回该行、是否 EOF。
func readTrimmedLine(br *bufio.Reader) (line string, eof bool, err error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			eof = true
		} else {
			return "", false, err
		}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	return s, eof && s == "", nil
}

var _ contract.Processor = (*Processor)(nil)
