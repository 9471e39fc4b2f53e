package vtt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"subtrans/pkg/contract"
)

const sample = `WEBVTT

1
00:00:01.000 --> 00:00:03.500
Hello there.

00:00:03.600 --> 00:00:06.000 align:start
How are you
doing today?

`

func parse(t *testing.T, in string) contract.Document {
	t.Helper()
	doc, err := New().Parse(context.Background(), "a.vtt", strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParseUnits(t *testing.T) {
	doc := parse(t, sample)
	units := doc.Units()
	if len(units) != 2 {
		t.Fatalf("units = %d, want 2", len(units))
	}
	if units[0].Meta["id"] != "1" {
		t.Errorf("units[0] id = %q", units[0].Meta["id"])
	}
	if units[1].Meta["id"] != "" {
		t.Errorf("units[1] id = %q, want empty", units[1].Meta["id"])
	}
	if units[1].Meta["time"] != "00:00:03.600 --> 00:00:06.000 align:start" {
		t.Errorf("units[1] time = %q", units[1].Meta["time"])
	}
	if units[1].Text != "How are you\ndoing today?" {
		t.Errorf("units[1].Text = %q", units[1].Text)
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	doc := parse(t, sample)
	if err := doc.Reinject(doc.Units()); err != nil {
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
	if !strings.Contains(out, "HELLO THERE.") {
		t.Errorf("translations not injected:\n%s", out)
	}
	if !strings.HasPrefix(out, "WEBVTT\n") {
		t.Errorf("header lost:\n%s", out)
	}
	if !strings.Contains(out, "00:00:03.600 --> 00:00:06.000 align:start") {
		t.Errorf("timing settings lost:\n%s", out)
	}
}

func TestNoteBlockSkipped(t *testing.T) {
	in := "WEBVTT\n\nNOTE internal remark\nspanning lines\n\n00:00:01.000 --> 00:00:02.000\nText.\n\n"
	doc := parse(t, in)
	if n := len(doc.Units()); n != 1 {
		t.Fatalf("units = %d, want 1", n)
	}
}

func TestParseStripsBOM(t *testing.T) {
	in := "\uFEFF" + "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nText.\n\n"
	doc := parse(t, in)
	if n := len(doc.Units()); n != 1 {
		t.Fatalf("units = %d, want 1", n)
	}
}

func TestMissingHeaderRejected(t *testing.T) {
	in := "1\n00:00:01.000 --> 00:00:02.000\nText.\n\n"
	if _, err := New().Parse(context.Background(), "a.vtt", strings.NewReader(in)); err == nil {
		t.Fatal("want header error")
	}
}

func TestHourlessTiming(t *testing.T) {
	in := "WEBVTT\n\n00:01.000 --> 00:02.000\nShort form.\n\n"
	doc := parse(t, in)
	units := doc.Units()
	if len(units) != 1 || units[0].Text != "Short form." {
		t.Fatalf("units = %+v", units)
	}
}
