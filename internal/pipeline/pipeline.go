// Package pipeline 编排单文件与目录级翻译：
// 解析 → 缓存查询 → 批量翻译 → 质量校验 → 回写。
// 同步执行、无内部并发；中断在批边界生效，已完成部分照常落盘。
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subtrans/internal/cache"
	"subtrans/internal/diag"
	"subtrans/internal/interrupt"
	"subtrans/internal/language"
	"subtrans/internal/validate"
	"subtrans/pkg/contract"
	"subtrans/pkg/registry"
)

// Translator 为流水线依赖的翻译会话面；manager.Manager 满足。
type Translator interface {
	Prepare(ctx context.Context, target contract.Lang) error
	TranslateBatch(ctx context.Context, texts []string, target contract.Lang) ([]string, error)
}

// Progress 为批进度挂接点（CLI 进度条实现）；nil 时静默。
type Progress interface {
	FileStart(name string, units int)
	Advance(n int)
	FileFinish(ok bool)
}

// Options 为流水线配置。
type Options struct {
	Target contract.Lang
	// BatchSize >0 时覆盖处理器的建议批大小。
	BatchSize int
	// TextBatchSize >0 时对纯文本处理器单独覆盖（片段更大，批更小）。
	TextBatchSize int
	// ChunkSize 为纯文本切块上限；≤0 取缺省。
	ChunkSize int
	// OutDir 非空时输出改写到该目录（仍用 <stem>_<lang><ext> 命名）。
	OutDir string
	// CacheModel 为缓存键的模型维度；Cache 为 nil 时关闭缓存。
	CacheModel string
	Cache      *cache.Store
	// Validator 为 nil 时跳过质量校验。
	Validator *validate.Validator
	// Token 为 nil 时不可中断（测试用）。
	Token    *interrupt.Token
	Log      *diag.Logger
	Progress Progress
}

// Pipeline 持有一次会话的编排状态。
type Pipeline struct {
	tr   Translator
	opts Options
}

func New(tr Translator, opts Options) *Pipeline {
	return &Pipeline{tr: tr, opts: opts}
}

// FileResult 汇总单文件处理结果。
type FileResult struct {
	FileID     contract.FileID
	Output     string
	Units      int
	Translated int
	FromCache  int
	Failed     int
	Issues     []contract.Issue
	// Stopped: 因缓停在批边界提前结束（已完成部分已落盘）。
	Stopped bool
	// Err: 文件级失败（解析/写出等）；目录驱动记录后继续下一文件。
	Err error
}

// OutputPath 推导输出路径：<stem>_<lang><ext>，与输入同目录。
func OutputPath(inPath string, target contract.Lang) string {
	ext := filepath.Ext(inPath)
	stem := strings.TrimSuffix(filepath.Base(inPath), ext)
	return filepath.Join(filepath.Dir(inPath), stem+"_"+string(target)+ext)
}

// outputPath 应用可选的输出目录改写。
func (p *Pipeline) outputPath(inPath string) string {
	out := OutputPath(inPath, p.opts.Target)
	if p.opts.OutDir != "" {
		out = filepath.Join(p.opts.OutDir, filepath.Base(out))
	}
	return out
}

// TranslateFile 翻译单个文件到 outPath。
// 批失败降级：逐单元重试，仍失败的单元保留原文并计入 Failed，继续后续批次；
// 取消类错误立即上抛，不写输出。
func (p *Pipeline) TranslateFile(ctx context.Context, inPath, outPath string) (FileResult, error) {
	res := FileResult{FileID: contract.NormalizeFileID(inPath), Output: outPath}

	proc, err := registry.ProcessorFor(filepath.Ext(inPath), registry.ProcessorOptions{ChunkSize: p.opts.ChunkSize})
	if err != nil {
		return res, err
	}
	f, err := os.Open(inPath)
	if err != nil {
		return res, fmt.Errorf("open input: %w", err)
	}
	doc, err := proc.Parse(ctx, res.FileID, f)
	cerr := f.Close()
	if err != nil {
		return res, fmt.Errorf("parse %s: %w", inPath, err)
	}
	if cerr != nil {
		return res, cerr
	}

	units := doc.Units()
	res.Units = len(units)
	t := p.opts.Log.StartWith("pipeline", "translate file", string(res.FileID))

	if len(units) > 0 {
		// 下载/初始化在进度展示前完成，避免首批计时失真。
		if err := p.tr.Prepare(ctx, p.opts.Target); err != nil {
			return res, err
		}
	}

	batchSize := p.opts.BatchSize
	if strings.EqualFold(filepath.Ext(inPath), ".txt") && p.opts.TextBatchSize > 0 {
		batchSize = p.opts.TextBatchSize
	}
	if batchSize <= 0 {
		batchSize = proc.BatchSize()
	}
	if p.opts.Progress != nil {
		p.opts.Progress.FileStart(filepath.Base(inPath), len(units))
		defer func() { p.opts.Progress.FileFinish(res.Err == nil) }()
	}

	for lo := 0; lo < len(units); lo += batchSize {
		if p.opts.Token.Stopping() {
			res.Stopped = true
			break
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: %v", contract.ErrInterrupted, err)
		}
		hi := lo + batchSize
		if hi > len(units) {
			hi = len(units)
		}
		if err := p.translateBatch(ctx, units[lo:hi], &res); err != nil {
			return res, err
		}
		if p.opts.Progress != nil {
			p.opts.Progress.Advance(hi - lo)
		}
	}

	if err := doc.Reinject(units); err != nil {
		return res, err
	}
	if err := writeAtomic(outPath, doc); err != nil {
		return res, err
	}
	t.Finish("file done", int64(res.Translated))
	return res, nil
}

// writeAtomic 同目录临时文件 + rename，避免中断留下半成品输出。
func writeAtomic(outPath string, doc contract.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".tmp*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := doc.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), outPath)
}

// translateBatch 处理一个批：缓存命中直接回填，未命中集中提交。
func (p *Pipeline) translateBatch(ctx context.Context, batch []contract.Unit, res *FileResult) error {
	missIdx := make([]int, 0, len(batch))
	missTexts := make([]string, 0, len(batch))
	for i := range batch {
		if hit, ok := p.cacheGet(ctx, batch[i].Text); ok {
			batch[i].Translated = hit
			res.FromCache++
			res.Translated++
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, batch[i].Text)
	}
	if len(missIdx) == 0 {
		return nil
	}

	translated, err := p.tr.TranslateBatch(ctx, missTexts, p.opts.Target)
	if err != nil {
		if diag.Classify(err) == diag.CodeCancel {
			return err
		}
		// 降级：逐单元重试本批，仅仍失败的单元保留原文。
		p.opts.Log.Warn("pipeline", string(diag.Classify(err)),
			fmt.Sprintf("batch failed, retrying %d units individually: %v", len(missIdx), err),
			map[string]string{"file_id": string(res.FileID)})
		return p.retryUnits(ctx, batch, missIdx, res)
	}
	for i, out := range translated {
		u := &batch[missIdx[i]]
		u.Translated = out
		res.Translated++
		p.cachePut(ctx, u.Text, out)
		p.validateUnit(ctx, u, res)
	}
	return nil
}

// retryUnits 对失败批中的每个单元单独重试一次；
// 仍失败的单元保留原文并计入 Failed，取消类错误立即上抛。
func (p *Pipeline) retryUnits(ctx context.Context, batch []contract.Unit, missIdx []int, res *FileResult) error {
	for _, i := range missIdx {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", contract.ErrInterrupted, err)
		}
		u := &batch[i]
		out, err := p.tr.TranslateBatch(ctx, []string{u.Text}, p.opts.Target)
		if err != nil {
			if diag.Classify(err) == diag.CodeCancel {
				return err
			}
			res.Failed++
			p.opts.Log.Warn("pipeline", string(diag.Classify(err)),
				fmt.Sprintf("unit %d failed, keeping source text: %v", u.Index, err),
				map[string]string{"file_id": string(res.FileID)})
			continue
		}
		u.Translated = out[0]
		res.Translated++
		p.cachePut(ctx, u.Text, out[0])
		p.validateUnit(ctx, u, res)
	}
	return nil
}

func (p *Pipeline) cacheGet(ctx context.Context, text string) (string, bool) {
	if p.opts.Cache == nil {
		return "", false
	}
	hit, ok, err := p.opts.Cache.Get(ctx, p.opts.CacheModel, string(p.opts.Target), text)
	if err != nil {
		p.opts.Log.Warn("pipeline", string(diag.CodeIO), fmt.Sprintf("cache lookup: %v", err), nil)
		return "", false
	}
	return hit, ok
}

func (p *Pipeline) cachePut(ctx context.Context, text, translated string) {
	if p.opts.Cache == nil {
		return
	}
	if err := p.opts.Cache.Put(ctx, p.opts.CacheModel, string(p.opts.Target), text, translated); err != nil {
		p.opts.Log.Warn("pipeline", string(diag.CodeIO), fmt.Sprintf("cache store: %v", err), nil)
	}
}

// validateUnit 跑质量启发式；问题只记录，不回滚译文。
func (p *Pipeline) validateUnit(ctx context.Context, u *contract.Unit, res *FileResult) {
	if p.opts.Validator == nil {
		return
	}
	issues, err := p.opts.Validator.Validate(ctx, u.Text, u.Translated, p.opts.Target)
	if err != nil {
		p.opts.Log.Warn("pipeline", string(diag.Classify(err)), fmt.Sprintf("validation skipped: %v", err), nil)
		return
	}
	for _, is := range issues {
		p.opts.Log.Warn("pipeline", string(is.Kind),
			fmt.Sprintf("unit %d: %s", u.Index, is.Detail),
			map[string]string{"file_id": string(u.FileID)})
	}
	res.Issues = append(res.Issues, issues...)
}

// Run 处理输入集合：文件原样接受，目录取其中受支持的条目（不递归）。
// 单文件失败记录后继续；缓停在当前文件完成后生效。
func (p *Pipeline) Run(ctx context.Context, inputs []string) ([]FileResult, error) {
	files, err := p.expand(inputs)
	if err != nil {
		return nil, err
	}
	var results []FileResult
	for _, in := range files {
		if p.opts.Token.Stopping() {
			break
		}
		out := p.outputPath(in)
		res, err := p.TranslateFile(ctx, in, out)
		if err != nil {
			if diag.Classify(err) == diag.CodeCancel {
				return results, err
			}
			res.Err = err
			p.opts.Log.Error("pipeline", string(diag.Classify(err)), err.Error(), string(res.FileID))
		}
		results = append(results, res)
	}
	return results, nil
}

// expand 展开输入列表；目录内跳过已有译文后缀的文件与已存在的输出。
func (p *Pipeline) expand(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		fi, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !fi.IsDir() {
			files = append(files, in)
			continue
		}
		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, fmt.Errorf("read dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			ext := strings.ToLower(filepath.Ext(name))
			if _, ok := registry.Processor[ext]; !ok {
				continue
			}
			if isTranslatedName(name) {
				continue
			}
			full := filepath.Join(in, name)
			if _, err := os.Stat(p.outputPath(full)); err == nil {
				p.opts.Log.Info("pipeline", "output exists, skipping "+name, nil)
				continue
			}
			files = append(files, full)
		}
	}
	return files, nil
}

// isTranslatedName 报告文件名是否已带 _<lang> 译文后缀。
func isTranslatedName(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, code := range language.Codes() {
		if strings.HasSuffix(stem, "_"+code) {
			return true
		}
	}
	return false
}
