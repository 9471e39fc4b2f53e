package diag

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Logger 为最小结构化日志器：单行 JSON 输出；支持级别过滤。
// 进度展示不走日志（由 CLI 层的进度条承担）。
type Logger struct {
	corrID string
	level  Level
	w      io.Writer
	mu     sync.Mutex
}

// NewLogger 以给定相关ID与级别构造日志器；w 为 nil 时写 stderr。
func NewLogger(corrID, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{corrID: corrID, level: parseLevel(level), w: w}
}

// Event 为标准事件结构。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"ts"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|finish|error
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	FileID string            `json:"file_id,omitempty"`
	Msg    string            `json:"msg"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (l *Logger) log(lv Level, ev Event) {
	if l == nil || lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(b, '\n'))
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// Info 记录单发 info 事件（无计时）。
func (l *Logger) Info(comp, msg string, kv map[string]string) {
	l.log(Info, Event{Comp: comp, Stage: "info", Msg: msg, KV: kv})
}

// Warn 记录 warn 事件（如降级、单元级失败）。
func (l *Logger) Warn(comp, code, msg string, kv map[string]string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", Code: code, Msg: msg, KV: kv})
}

// Error 记录 error 事件（不过滤）。
func (l *Logger) Error(comp, code, msg, fileID string) {
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, Msg: msg, FileID: fileID})
}

// Debugf 输出调试级别事件（仅在 level=debug 时生效）。
func (l *Logger) Debugf(comp, msg string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "debug", Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Msg: msg})
}
