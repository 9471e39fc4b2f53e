package contract

import "errors"

// 最小错误分类（用于上层回退/降级策略判定）。
var (
	// ErrLanguageUnsupported: 目标语言不在受支持集合内（请求校验错误，先于一切模型工作）。
	ErrLanguageUnsupported = errors.New("language unsupported")
	// ErrFormatUnsupported: 文件扩展名无对应格式处理器（请求校验错误）。
	ErrFormatUnsupported = errors.New("format unsupported")
	// ErrResourceExhausted: 加速器显存耗尽。触发降级到 CPU 并重试一次。
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrDiskSpace: 模型下载前磁盘空间不足。
	ErrDiskSpace = errors.New("insufficient disk space")
	// ErrBackendLoad: 后端加载失败。触发回退到次级后端；两者皆败才是终态错误。
	ErrBackendLoad = errors.New("backend load failed")
	// ErrBackendNotReady: 在未就绪后端上调用翻译（调用方时序违例）。
	ErrBackendNotReady = errors.New("backend not ready")
	// ErrInterrupted: 协作式取消。返回部分/空结果与明确的取消状态，而非堆栈。
	ErrInterrupted = errors.New("interrupted")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
