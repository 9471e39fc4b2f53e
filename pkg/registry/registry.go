// Package registry 是插件工厂注册表（显式、零反射）。
// 扩展名与后端种类的映射集中于此；核心流程经由本包取得实现。
package registry

import (
	"fmt"
	"sort"
	"strings"

	"subtrans/internal/infer"
	"subtrans/pkg/contract"
	bm2m "subtrans/plugins/backend/m2m100"
	bmarian "subtrans/plugins/backend/marian"
	bnllb "subtrans/plugins/backend/nllb"
	fjson "subtrans/plugins/format/jsondoc"
	fsrt "subtrans/plugins/format/srt"
	ftext "subtrans/plugins/format/text"
	fvtt "subtrans/plugins/format/vtt"
)

// ProcessorOptions 为处理器构造参数。
type ProcessorOptions struct {
	// ChunkSize 为纯文本切块上限；≤0 取缺省。
	ChunkSize int
}

// NewProcessor 工厂签名。
type NewProcessor func(opts ProcessorOptions) contract.Processor

// Processor 为扩展名→工厂注册表。
var Processor = map[string]NewProcessor{
	".srt":  func(ProcessorOptions) contract.Processor { return fsrt.New() },
	".vtt":  func(ProcessorOptions) contract.Processor { return fvtt.New() },
	".json": func(ProcessorOptions) contract.Processor { return fjson.New() },
	".txt":  func(opts ProcessorOptions) contract.Processor { return ftext.New(opts.ChunkSize) },
}

// ProcessorFor 按扩展名（不区分大小写）取处理器。
func ProcessorFor(ext string, opts ProcessorOptions) (contract.Processor, error) {
	factory, ok := Processor[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contract.ErrFormatUnsupported, ext)
	}
	return factory(opts), nil
}

// Exts 返回全部受支持扩展名（升序，稳定）。
func Exts() []string {
	exts := make([]string, 0, len(Processor))
	for ext := range Processor {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// BackendOptions 为后端构造参数。
type BackendOptions struct {
	Client    *infer.Client
	Tier      contract.Tier
	MaxLength int
	// Target 仅 marian 使用：其权重按目标语言在构造时选定。
	Target contract.Lang
}

// NewBackend 工厂签名。
type NewBackend func(opts BackendOptions) (contract.Backend, error)

// Backend 为种类→工厂注册表。
var Backend = map[string]NewBackend{
	// nllb: 主后端（NLLB-200，按档位选变体）
	"nllb": func(opts BackendOptions) (contract.Backend, error) {
		return bnllb.New(opts.Client, opts.Tier, opts.MaxLength), nil
	},
	// m2m100: 备用后端（固定 1.2B 变体）
	"m2m100": func(opts BackendOptions) (contract.Backend, error) {
		return bm2m.New(opts.Client, opts.MaxLength), nil
	},
	// marian: 内存受限场景的每语言小模型
	"marian": func(opts BackendOptions) (contract.Backend, error) {
		return bmarian.New(opts.Client, opts.Target, opts.MaxLength)
	},
}

// BackendFor 按种类取后端。
func BackendFor(kind string, opts BackendOptions) (contract.Backend, error) {
	factory, ok := Backend[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", contract.ErrBackendLoad, kind)
	}
	return factory(opts)
}
