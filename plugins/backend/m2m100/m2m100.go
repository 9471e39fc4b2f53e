// Package m2m100 实现次级翻译后端：M2M100（低资源回退）。
// 主后端加载失败时由 Manager 启用；能力面与主后端完全一致。
package m2m100

import (
	"context"
	"fmt"
	"strings"

	"subtrans/internal/infer"
	"subtrans/pkg/contract"
)

const (
	model      = "facebook/m2m100_1.2B"
	sourceCode = "en"
)

// M2M100 直接使用 ISO 639-1 短码。
var langCodes = map[contract.Lang]string{
	"fr": "fr", "es": "es", "de": "de", "it": "it",
	"pt": "pt", "nl": "nl", "pl": "pl", "ru": "ru",
}

// Backend 满足 contract.Backend。
type Backend struct {
	client *infer.Client
	maxLen int

	device contract.Device
	loaded bool
}

// New 构造回退后端（无档位区分）。
func New(client *infer.Client, maxLen int) *Backend {
	return &Backend{client: client, maxLen: maxLen}
}

func (b *Backend) Name() string { return "m2m100" }

func (b *Backend) Spec() contract.BackendSpec {
	return contract.BackendSpec{Kind: "m2m100", Model: model, RequiredDiskGB: 5, RequiredMemGB: 6}
}

func (b *Backend) Loaded() bool { return b.loaded }

func (b *Backend) Handle() contract.Handle {
	return contract.Handle{Kind: "m2m100", Device: b.device, Loaded: b.loaded}
}

// Load 请求守护进程加载模型。幂等。
func (b *Backend) Load(ctx context.Context, device contract.Device) error {
	granted, err := b.client.Load(ctx, model, device)
	if err != nil {
		return fmt.Errorf("m2m100 load %s: %w", model, err)
	}
	b.device = granted
	b.loaded = true
	return nil
}

// Prepare 校验目标语言并确保模型就绪。
func (b *Backend) Prepare(ctx context.Context, target contract.Lang) error {
	if _, ok := langCodes[target]; !ok {
		return fmt.Errorf("m2m100: %w: %q", contract.ErrLanguageUnsupported, target)
	}
	if !b.loaded {
		return contract.ErrBackendNotReady
	}
	return b.Load(ctx, b.device)
}

// Translate 翻译单段文本。空白输入直接返回空串。
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

// TranslateBatch 批量翻译；契约与主后端一致（等长、保序、空项短路）。
func (b *Backend) TranslateBatch(ctx context.Context, texts []string, target contract.Lang) ([]string, error) {
	code, ok := langCodes[target]
	if !ok {
		return nil, fmt.Errorf("m2m100: %w: %q", contract.ErrLanguageUnsupported, target)
	}
	if !b.loaded {
		return nil, contract.ErrBackendNotReady
	}
	out := make([]string, len(texts))
	idx := make([]int, 0, len(texts))
	payload := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		payload = append(payload, t)
	}
	if len(payload) == 0 {
		return out, nil
	}
	translated, err := b.client.Translate(ctx, infer.TranslateRequest{
		Model:     model,
		Texts:     payload,
		Source:    sourceCode,
		Target:    code,
		MaxLength: b.maxLen,
	})
	if err != nil {
		return nil, fmt.Errorf("m2m100 translate: %w", err)
	}
	for i, t := range translated {
		out[idx[i]] = t
	}
	return out, nil
}

// Release 卸载模型并释放执行资源。
func (b *Backend) Release(ctx context.Context) error {
	if !b.loaded {
		return nil
	}
	b.loaded = false
	b.device = ""
	if err := b.client.Unload(ctx, model); err != nil {
		return fmt.Errorf("m2m100 unload: %w", err)
	}
	return nil
}

var _ contract.Backend = (*Backend)(nil)
