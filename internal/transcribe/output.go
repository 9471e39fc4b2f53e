package transcribe

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"subtrans/pkg/contract"
)

// Formats 为受支持的产物格式（升序）。
var Formats = []string{"json", "srt", "txt", "vtt"}

// ValidFormat 报告格式是否受支持。
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Write 以给定格式序列化转写结果。
func Write(w io.Writer, tr contract.Transcript, format string) error {
	switch format {
	case "txt":
		return writeText(w, tr)
	case "srt":
		return writeSRT(w, tr.Segments)
	case "vtt":
		return writeVTT(w, tr.Segments)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(tr)
	default:
		return fmt.Errorf("%w: transcript format %q", contract.ErrFormatUnsupported, format)
	}
}

func writeText(w io.Writer, tr contract.Transcript) error {
	_, err := io.WriteString(w, strings.TrimSpace(tr.Text)+"\n")
	return err
}

func writeSRT(w io.Writer, segs []contract.Segment) error {
	bw := bufio.NewWriter(w)
	for i, s := range segs {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(s.Start), srtTimestamp(s.End), strings.TrimSpace(s.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeVTT(w io.Writer, segs []contract.Segment) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprint(bw, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, s := range segs {
		if _, err := fmt.Fprintf(bw, "%s --> %s\n%s\n\n",
			vttTimestamp(s.Start), vttTimestamp(s.End), strings.TrimSpace(s.Text)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// srtTimestamp 格式化秒为 HH:MM:SS,mmm。
func srtTimestamp(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// vttTimestamp 格式化秒为 HH:MM:SS.mmm。
func vttTimestamp(seconds float64) string {
	h, m, s, ms := splitTime(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func splitTime(seconds float64) (h, m, s, ms int) {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Round(seconds * 1000))
	ms = total % 1000
	sec := total / 1000
	return sec / 3600, sec % 3600 / 60, sec % 60, ms
}
