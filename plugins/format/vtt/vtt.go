// Package vtt 实现 WebVTT 字幕格式处理器：每条 cue 一个可译单元；
// 头部块、cue 标识与时间轴（含设置）原样保留，回写仅覆盖文本。
package vtt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"subtrans/pkg/contract"
)

// Processor 满足 contract.Processor。
type Processor struct{}

func New() *Processor { return &Processor{} }

func (*Processor) Exts() []string { return []string{".vtt"} }

func (*Processor) BatchSize() int { return 5 }

// WebVTT 时间轴以点号分隔毫秒，小时段可省略；行尾可带 cue 设置。
var timeLineRe = regexp.MustCompile(`^(?:\d{2,}:)?\d{2}:\d{2}\.\d{3} --> (?:\d{2,}:)?\d{2}:\d{2}\.\d{3}`)

type cue struct {
	id     string // 可选标识行；空串表示无
	timing string // 含设置的完整时间轴行
	text   string
}

type document struct {
	fileID contract.FileID
	header []string // WEBVTT 行与其后至首个空行的元数据
	cues   []cue
	out    []string
}

// Parse 将 WebVTT 字节流解析为 cue 文档。
// 头部为 WEBVTT 行加任意元数据行，空行结束；其后按块读取 cue。
func (*Processor) Parse(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Document, error) {
	br := bufio.NewReader(r)
	doc := &document{fileID: fileID}

	first, eof, err := readTrimmedLine(br)
	if err != nil {
		return nil, err
	}
	first = strings.TrimPrefix(first, "\uFEFF")
	if !strings.HasPrefix(first, "WEBVTT") {
		return nil, fmt.Errorf("vtt format error: missing WEBVTT header: %q", first)
	}
	doc.header = append(doc.header, first)
	for !eof {
		line, e, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" || e {
			eof = e
			break
		}
		doc.header = append(doc.header, line)
	}

	for !eof {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, e, err := readTrimmedLine(br)
		if err != nil {
			return nil, err
		}
		if e {
			break
		}
		if line == "" {
			continue
		}
		// NOTE 注释块整体跳过
		if strings.HasPrefix(line, "NOTE") {
			for {
				l, e, err := readTrimmedLine(br)
				if err != nil {
					return nil, err
				}
				if l == "" || e {
					eof = e
					break
				}
			}
			continue
		}
		var c cue
		if timeLineRe.MatchString(line) {
			c.timing = line
		} else {
			c.id = line
			timing, _, err := readTrimmedLine(br)
			if err != nil {
				return nil, err
			}
			if !timeLineRe.MatchString(timing) {
				return nil, fmt.Errorf("vtt format error: invalid time line: %q", timing)
			}
			c.timing = timing
		}
		var texts []string
		for {
			l, e, err := readTrimmedLine(br)
			if err != nil {
				return nil, err
			}
			if l == "" || e {
				if e && l != "" {
					texts = append(texts, l)
				}
				eof = e
				break
			}
			texts = append(texts, l)
		}
		c.text = strings.Join(texts, "\n")
		if !utf8.ValidString(c.text) {
			return nil, errors.New("vtt decode error: invalid UTF-8 in text block")
		}
		doc.cues = append(doc.cues, c)
	}
	return doc, nil
}

func (d *document) Units() []contract.Unit {
	units := make([]contract.Unit, len(d.cues))
	for i, c := range d.cues {
		units[i] = contract.Unit{
			Index:  contract.Index(i),
			FileID: d.fileID,
			Text:   c.text,
			Meta:   contract.Meta{"id": c.id, "time": c.timing},
		}
	}
	return units
}

// Reinject 按 Index 对位回写译文；数量或顺序不符即不变量违例。
func (d *document) Reinject(units []contract.Unit) error {
	if len(units) != len(d.cues) {
		return fmt.Errorf("vtt reinject: %w: %d units for %d cues",
			contract.ErrInvariantViolation, len(units), len(d.cues))
	}
	out := make([]string, len(d.cues))
	for i, u := range units {
		if int(u.Index) != i {
			return fmt.Errorf("vtt reinject: %w: unit %d out of order", contract.ErrInvariantViolation, u.Index)
		}
		out[i] = u.Output()
	}
	d.out = out
	return nil
}

func (d *document) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, h := range d.header {
		if _, err := fmt.Fprintln(bw, h); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(bw); err != nil {
		return err
	}
	for i, c := range d.cues {
		text := c.text
		if d.out != nil {
			text = d.out[i]
		}
		if c.id != "" {
			if _, err := fmt.Fprintln(bw, c.id); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "%s\n%s\n\n", c.timing, text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

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
