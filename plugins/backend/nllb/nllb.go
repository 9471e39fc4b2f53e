// Package nllb 实现主翻译后端：NLLB-200（宽覆盖、质量优先）。
// 档位 standard 使用 1.3B 变体，large 使用 3.3B 变体（更高磁盘/显存阈值）。
package nllb

import (
	"context"
	"fmt"
	"strings"

	"subtrans/internal/infer"
	"subtrans/pkg/contract"
)

const (
	modelStandard = "facebook/nllb-200-1.3B"
	modelLarge    = "facebook/nllb-200-3.3B"

	// SourceCode 为源语言（英语）的 FLORES-200 记号。
	SourceCode = "eng_Latn"
)

// NLLB 专用语言记号（FLORES-200 码）。
var langCodes = map[contract.Lang]string{
	"fr": "fra_Latn",
	"es": "spa_Latn",
	"de": "deu_Latn",
	"it": "ita_Latn",
	"pt": "por_Latn",
	"nl": "nld_Latn",
	"pl": "pol_Latn",
	"ru": "rus_Cyrl",
}

// Code 返回目标语言的 FLORES-200 记号（回译等反向调用使用）。
func Code(l contract.Lang) (string, bool) {
	c, ok := langCodes[l]
	return c, ok
}

// Backend 满足 contract.Backend。同步实现，单会话内由 Manager 串行驱动。
type Backend struct {
	client *infer.Client
	spec   contract.BackendSpec
	maxLen int

	device contract.Device
	loaded bool
}

// New 按档位构造后端。
func New(client *infer.Client, tier contract.Tier, maxLen int) *Backend {
	spec := contract.BackendSpec{
		Kind:           "nllb",
		Model:          modelStandard,
		RequiredDiskGB: 8,
		RequiredMemGB:  6,
	}
	if tier == contract.TierLarge {
		spec.Model = modelLarge
		spec.RequiredDiskGB = 20
		spec.RequiredMemGB = 12
	}
	return &Backend{client: client, spec: spec, maxLen: maxLen}
}

func (b *Backend) Name() string { return b.spec.Kind }

func (b *Backend) Spec() contract.BackendSpec { return b.spec }

func (b *Backend) Loaded() bool { return b.loaded }

// Handle 返回句柄快照（仅供展示/日志）。
func (b *Backend) Handle() contract.Handle {
	return contract.Handle{Kind: b.spec.Kind, Device: b.device, Loaded: b.loaded}
}

// Load 请求守护进程加载模型。幂等；设备以守护进程实际授予为准。
func (b *Backend) Load(ctx context.Context, device contract.Device) error {
	granted, err := b.client.Load(ctx, b.spec.Model, device)
	if err != nil {
		return fmt.Errorf("nllb load %s: %w", b.spec.Model, err)
	}
	b.device = granted
	b.loaded = true
	return nil
}

// Prepare 确保目标语言可译且模型已就绪（触发任何待完成的下载/初始化），
// 使批量阶段的进度展示不被下载时间干扰。
func (b *Backend) Prepare(ctx context.Context, target contract.Lang) error {
	if _, ok := langCodes[target]; !ok {
		return fmt.Errorf("nllb: %w: %q", contract.ErrLanguageUnsupported, target)
	}
	if !b.loaded {
		return contract.ErrBackendNotReady
	}
	return b.Load(ctx, b.device)
}

// Translate 翻译单段文本。空白输入直接返回空串，不触发模型。
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

// TranslateBatch 批量翻译。
// 保证：输出与输入等长且顺序一致；空输入项产出空输出项且不进入请求。
func (b *Backend) TranslateBatch(ctx context.Context, texts []string, target contract.Lang) ([]string, error) {
	code, ok := langCodes[target]
	if !ok {
		return nil, fmt.Errorf("nllb: %w: %q", contract.ErrLanguageUnsupported, target)
	}
	if !b.loaded {
		return nil, contract.ErrBackendNotReady
	}
	out := make([]string, len(texts))
	// 压缩空项：保留原位置，仅提交非空文本。
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
		Model:     b.spec.Model,
		Texts:     payload,
		Source:    SourceCode,
		Target:    code,
		MaxLength: b.maxLen,
	})
	if err != nil {
		return nil, fmt.Errorf("nllb translate: %w", err)
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
	if err := b.client.Unload(ctx, b.spec.Model); err != nil {
		return fmt.Errorf("nllb unload: %w", err)
	}
	return nil
}

var _ contract.Backend = (*Backend)(nil)
