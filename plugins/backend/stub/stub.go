// Package stub 提供离线调试/测试用后端：按给定变换回显输入，不做任何网络调用。
package stub

import (
	"context"
	"strings"

	"subtrans/pkg/contract"
)

// Backend 满足 contract.Backend。变换为 nil 时为恒等回显。
// 计数器暴露给测试用于断言“空输入不触发模型”等性质。
type Backend struct {
	transform func(string) string
	device    contract.Device
	loaded    bool

	LoadCalls  int
	BatchCalls int
}

// New 构造回显后端。
func New(transform func(string) string) *Backend {
	if transform == nil {
		transform = func(s string) string { return s }
	}
	return &Backend{transform: transform}
}

func (b *Backend) Name() string { return "stub" }

func (b *Backend) Spec() contract.BackendSpec {
	return contract.BackendSpec{Kind: "stub", Model: "stub"}
}

func (b *Backend) Loaded() bool { return b.loaded }

func (b *Backend) Handle() contract.Handle {
	return contract.Handle{Kind: "stub", Device: b.device, Loaded: b.loaded}
}

func (b *Backend) Load(_ context.Context, device contract.Device) error {
	b.LoadCalls++
	b.device = device
	b.loaded = true
	return nil
}

func (b *Backend) Prepare(context.Context, contract.Lang) error {
	if !b.loaded {
		return contract.ErrBackendNotReady
	}
	return nil
}

func (b *Backend) Translate(ctx context.Context, text string, target contract.Lang) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	out, err := b.TranslateBatch(ctx, []string{text}, target)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

func (b *Backend) TranslateBatch(_ context.Context, texts []string, _ contract.Lang) ([]string, error) {
	if !b.loaded {
		return nil, contract.ErrBackendNotReady
	}
	out := make([]string, len(texts))
	invoked := false
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		invoked = true
		out[i] = b.transform(t)
	}
	if invoked {
		b.BatchCalls++
	}
	return out, nil
}

func (b *Backend) Release(context.Context) error {
	b.loaded = false
	b.device = ""
	return nil
}

var _ contract.Backend = (*Backend)(nil)
