// Package interrupt 提供两段式取消令牌。
// 第一次请求进入缓停：流水线在批边界停手并落盘已完成部分；
// 第二次请求硬取消关联 context，阻塞中的调用立即返回。
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Stage 为令牌状态。
type Stage int

const (
	// Running 正常运行。
	Running Stage = iota
	// Stopping 缓停：批边界退出。
	Stopping
	// Aborted 硬取消：context 已撤销。
	Aborted
)

// Token 持有取消状态；并发安全。
type Token struct {
	mu     sync.Mutex
	stage  Stage
	cancel context.CancelFunc
}

// New 派生受令牌控制的 context。
func New(parent context.Context) (*Token, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Token{cancel: cancel}, ctx
}

// Request 推进一级取消并返回新状态：
// Running→Stopping，Stopping→Aborted（撤销 context），之后幂等。
func (t *Token) Request() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.stage {
	case Running:
		t.stage = Stopping
	case Stopping:
		t.stage = Aborted
		t.cancel()
	}
	return t.stage
}

// Stage 返回当前状态。
func (t *Token) Stage() Stage {
	if t == nil {
		return Running
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// Stopping 报告是否已请求停止（含硬取消）。
func (t *Token) Stopping() bool { return t.Stage() != Running }

// Notify 将 SIGINT/SIGTERM 绑定到令牌；返回解绑函数。
// 每收到一次信号推进一级。
func (t *Token) Notify() (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				t.Request()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
