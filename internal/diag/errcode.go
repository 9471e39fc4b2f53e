package diag

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"subtrans/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志汇总与回退策略判定，与退出码解耦。
type Code string

const (
	CodeUnknown    Code = "unknown"
	CodeValidation Code = "validation" // 语言/格式等请求校验错误
	CodeResource   Code = "resource"   // 显存耗尽/磁盘不足
	CodeBackend    Code = "backend"    // 后端加载/就绪错误
	CodeCancel     Code = "cancel"
	CodeNetwork    Code = "network"
	CodeIO         Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, contract.ErrInterrupted) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrLanguageUnsupported) || errors.Is(err, contract.ErrFormatUnsupported) {
		return CodeValidation
	}
	if errors.Is(err, contract.ErrResourceExhausted) || errors.Is(err, contract.ErrDiskSpace) {
		return CodeResource
	}
	if errors.Is(err, contract.ErrBackendLoad) || errors.Is(err, contract.ErrBackendNotReady) {
		return CodeBackend
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return CodeNetwork
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
