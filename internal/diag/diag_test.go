package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"subtrans/pkg/contract"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{contract.ErrInterrupted, CodeCancel},
		{fmt.Errorf("wrap: %w", contract.ErrLanguageUnsupported), CodeValidation},
		{contract.ErrFormatUnsupported, CodeValidation},
		{fmt.Errorf("oom: %w", contract.ErrResourceExhausted), CodeResource},
		{contract.ErrDiskSpace, CodeResource},
		{contract.ErrBackendLoad, CodeBackend},
		{errors.New("mystery"), CodeUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cid", "warn", &buf)
	l.Info("manager", "should be filtered", nil)
	l.Warn("manager", string(CodeResource), "demoted", nil)
	l.Error("backend", string(CodeBackend), "load failed", "a.srt")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2: %q", len(lines), buf.String())
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Comp != "backend" || ev.Code != string(CodeBackend) || ev.FileID != "a.srt" || ev.CorrID != "cid" {
		t.Errorf("event mismatch: %+v", ev)
	}
}

func TestDebugGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cid", "info", &buf)
	l.Debugf("manager", "filtered at info", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug must be filtered at info: %q", buf.String())
	}

	l = NewLogger("cid", "debug", &buf)
	l.Debugf("manager", "device probe", map[string]string{"cuda": "true"})
	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Level != "debug" || ev.KV["cuda"] != "true" {
		t.Errorf("debug event mismatch: %+v", ev)
	}
}

func TestTimerFinish(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cid", "info", &buf)
	tm := l.StartWith("processor", "parse", "a.srt")
	tm.Finish("parse", 42)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Stage != "finish" || ev.Count != 42 {
		t.Errorf("finish event mismatch: %+v", ev)
	}
}

func TestNilTimerSafe(t *testing.T) {
	var tm *Timer
	tm.Finish("noop", 0) // 不应 panic
}
