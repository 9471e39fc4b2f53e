// Package marian 实现内存受限场景的翻译后端：MarianMT（Helsinki-NLP opus-mt）。
// 每个目标语言一个独立小模型（约 300MB），构造时即按目标语言选定权重；
// 仅在显存/磁盘吃紧且质量要求可放宽时选用。
package marian

import (
	"context"
	"fmt"
	"strings"

	"subtrans/internal/infer"
	"subtrans/pkg/contract"
)

const sourceCode = "en"

// 目标语言到 opus-mt 权重名的映射（语向固定为 en→目标语言）。
var models = map[contract.Lang]string{
	"fr": "Helsinki-NLP/opus-mt-en-fr",
	"es": "Helsinki-NLP/opus-mt-en-es",
	"de": "Helsinki-NLP/opus-mt-en-de",
	"it": "Helsinki-NLP/opus-mt-en-it",
	"pt": "Helsinki-NLP/opus-mt-en-pt",
	"nl": "Helsinki-NLP/opus-mt-en-nl",
	"pl": "Helsinki-NLP/opus-mt-en-pl",
	"ru": "Helsinki-NLP/opus-mt-en-ru",
}

// Backend 满足 contract.Backend。目标语言在构造时固定。
type Backend struct {
	client *infer.Client
	target contract.Lang
	model  string
	maxLen int

	device contract.Device
	loaded bool
}

// New 按目标语言构造后端；不支持的语言返回 ErrLanguageUnsupported。
func New(client *infer.Client, target contract.Lang, maxLen int) (*Backend, error) {
	model, ok := models[target]
	if !ok {
		return nil, fmt.Errorf("marian: %w: %q", contract.ErrLanguageUnsupported, target)
	}
	return &Backend{client: client, target: target, model: model, maxLen: maxLen}, nil
}

func (b *Backend) Name() string { return "marian" }

func (b *Backend) Spec() contract.BackendSpec {
	return contract.BackendSpec{Kind: "marian", Model: b.model, RequiredDiskGB: 1, RequiredMemGB: 2}
}

func (b *Backend) Loaded() bool { return b.loaded }

func (b *Backend) Handle() contract.Handle {
	return contract.Handle{Kind: "marian", Device: b.device, Loaded: b.loaded}
}

// Load 请求守护进程加载模型。幂等。
func (b *Backend) Load(ctx context.Context, device contract.Device) error {
	granted, err := b.client.Load(ctx, b.model, device)
	if err != nil {
		return fmt.Errorf("marian load %s: %w", b.model, err)
	}
	b.device = granted
	b.loaded = true
	return nil
}

// Prepare 校验目标语言与构造时选定的语向一致并确保模型就绪。
func (b *Backend) Prepare(ctx context.Context, target contract.Lang) error {
	if target != b.target {
		return fmt.Errorf("marian: %w: %q (model bound to %q)", contract.ErrLanguageUnsupported, target, b.target)
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
	if target != b.target {
		return nil, fmt.Errorf("marian: %w: %q (model bound to %q)", contract.ErrLanguageUnsupported, target, b.target)
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
		Model:     b.model,
		Texts:     payload,
		Source:    sourceCode,
		Target:    string(b.target),
		MaxLength: b.maxLen,
	})
	if err != nil {
		return nil, fmt.Errorf("marian translate: %w", err)
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
	if err := b.client.Unload(ctx, b.model); err != nil {
		return fmt.Errorf("marian unload: %w", err)
	}
	return nil
}

var _ contract.Backend = (*Backend)(nil)
