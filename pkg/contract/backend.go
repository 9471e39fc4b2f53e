package contract

import "context"

// Backend: 翻译引擎的统一能力面。调用方永不依据具体实现分支。
// 约束：
//  1. Load 幂等；设备在首次 Load 时选定；
//  2. Prepare 触发惰性下载/初始化，使批量阶段的进度展示不被下载时间干扰；
//  3. TranslateBatch 保证输出与输入等长且顺序一致；空输入项产出空输出项且不触发模型；
//  4. 同步实现、无内部并发；应尊重 ctx 取消；
//  5. Release 释放已占用的执行资源（降级或会话结束时调用）。
type Backend interface {
	Name() string
	Spec() BackendSpec
	Load(ctx context.Context, device Device) error
	Loaded() bool
	Prepare(ctx context.Context, target Lang) error
	Translate(ctx context.Context, text string, target Lang) (string, error)
	TranslateBatch(ctx context.Context, texts []string, target Lang) ([]string, error)
	Release(ctx context.Context) error
	Handle() Handle
}

// BackendSpec: 后端静态描述（模型变体与资源阈值），供 Manager 预检。
// RequiredDiskGB/RequiredMemGB 按档位给出；缓存命中时跳过磁盘预检。
type BackendSpec struct {
	Kind           string
	Model          string
	RequiredDiskGB float64
	RequiredMemGB  float64
}
