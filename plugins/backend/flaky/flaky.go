// Package flaky 提供故障注入后端：按预置序列先失败后成功，
// 用于演练 Manager 的回退与显存降级路径。仅用于测试。
package flaky

import (
	"context"
	"strings"

	"subtrans/pkg/contract"
)

// Backend 依次消费注入的错误；序列耗尽后行为等同恒等回显。
type Backend struct {
	name      string
	loadErrs  []error
	batchErrs []error

	device contract.Device
	loaded bool

	LoadAttempts int
	BatchCalls   int
}

// New 构造故障注入后端。
// loadErrs 依次在 Load 时返回；batchErrs 依次在 TranslateBatch 时返回。
func New(name string, loadErrs, batchErrs []error) *Backend {
	return &Backend{name: name, loadErrs: loadErrs, batchErrs: batchErrs}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) Spec() contract.BackendSpec {
	return contract.BackendSpec{Kind: b.name, Model: b.name}
}

func (b *Backend) Loaded() bool { return b.loaded }

func (b *Backend) Handle() contract.Handle {
	return contract.Handle{Kind: b.name, Device: b.device, Loaded: b.loaded}
}

func (b *Backend) Load(_ context.Context, device contract.Device) error {
	b.LoadAttempts++
	if len(b.loadErrs) > 0 {
		err := b.loadErrs[0]
		b.loadErrs = b.loadErrs[1:]
		if err != nil {
			return err
		}
	}
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
	b.BatchCalls++
	if len(b.batchErrs) > 0 {
		err := b.batchErrs[0]
		b.batchErrs = b.batchErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([]string, len(texts))
	copy(out, texts)
	return out, nil
}

func (b *Backend) Release(context.Context) error {
	b.loaded = false
	b.device = ""
	return nil
}

var _ contract.Backend = (*Backend)(nil)
