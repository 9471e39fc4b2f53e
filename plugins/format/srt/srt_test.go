package srt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"subtrans/pkg/contract"
)

const sample = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:03,600 --> 00:00:06,000
How are you
doing today?

3
00:00:06,100 --> 00:00:08,000
Fine, thanks.

`

func parse(t *testing.T, in string) contract.Document {
	t.Helper()
	doc, err := New().Parse(context.Background(), "a.srt", strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParseUnits(t *testing.T) {
	doc := parse(t, sample)
	units := doc.Units()
	if len(units) != 3 {
		t.Fatalf("units = %d, want 3", len(units))
	}
	if units[1].Text != "How are you\ndoing today?" {
		t.Errorf("units[1].Text = %q", units[1].Text)
	}
	if units[2].Meta["time"] != "00:00:06,100 --> 00:00:08,000" {
		t.Errorf("units[2] time = %q", units[2].Meta["time"])
	}
	if units[0].Meta["seq"] != "1" || units[2].Meta["seq"] != "3" {
		t.Errorf("seq meta mismatch")
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	doc := parse(t, sample)
	units := doc.Units()
	// 恒等回写：未译单元保留原文
	if err := doc.Reinject(units); err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.String() != sample {
		t.Errorf("round trip mismatch:\n got: %q\nwant: %q", buf.String(), sample)
	}
}

func TestTranslatedReinject(t *testing.T) {
	doc := parse(t, sample)
	units := doc.Units()
	for i := range units {
		units[i].Translated = strings.ToUpper(units[i].Text)
	}
	if err := doc.Reinject(units); err != nil {
		t.Fatalf("Reinject: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "HELLO THERE.") || !strings.Contains(out, "HOW ARE YOU\nDOING TODAY?") {
		t.Errorf("translations not injected:\n%s", out)
	}
	// 时间轴与序号逐字节不变
	if !strings.Contains(out, "00:00:03,600 --> 00:00:06,000") {
		t.Errorf("timing lost:\n%s", out)
	}
	if !strings.HasPrefix(out, "1\n") {
		t.Errorf("sequence lost:\n%s", out)
	}
}

func TestReinjectCountMismatch(t *testing.T) {
	doc := parse(t, sample)
	units := doc.Units()
	if err := doc.Reinject(units[:1]); err == nil {
		t.Fatal("want invariant violation on count mismatch")
	}
}

func TestParseRejectsBadTiming(t *testing.T) {
	in := "1\nnot a time line\ntext\n\n"
	if _, err := New().Parse(context.Background(), "a.srt", strings.NewReader(in)); err == nil {
		t.Fatal("want parse error")
	}
}

func TestParseCRLF(t *testing.T) {
	in := strings.ReplaceAll(sample, "\n", "\r\n")
	doc := parse(t, in)
	if n := len(doc.Units()); n != 3 {
		t.Fatalf("units = %d, want 3", n)
	}
}
