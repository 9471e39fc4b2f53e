// Package validate 对译文做启发式质量校验：长度比、句数比、
// 回译相似度与目标语言惯用模式。结果仅供参考，永不阻断交付。
package validate

import (
	"context"
	"fmt"
	"strings"

	"subtrans/pkg/contract"
)

// 阈值。比值越界即产出问题条目。
const (
	lengthRatioLow  = 0.5
	lengthRatioHigh = 2.0
	sentRatioLow    = 0.7
	sentRatioHigh   = 1.3
	similarityFloor = 0.5
)

// BackTranslator 将目标语言文本译回源语言，供相似度比对。
type BackTranslator func(ctx context.Context, text string) (string, error)

// Validator 校验器。Back 为 nil 时跳过回译检查。
type Validator struct {
	Back BackTranslator
}

// 法语常见功能词与缩合形式；长文本全部缺失时译文可疑。
var frenchPatterns = []string{
	"n'", "l'", "d'", "qu'",
	"ne", "pas", "plus",
	"le", "la", "les",
	"un", "une", "des",
}

// Validate 校验单段译文并返回问题清单；无问题返回 nil。
// 回译失败返回错误（调用方降级为仅本地检查）。
func (v *Validator) Validate(ctx context.Context, source, translated string, target contract.Lang) ([]contract.Issue, error) {
	var issues []contract.Issue

	srcWords := len(strings.Fields(source))
	transWords := len(strings.Fields(translated))
	if srcWords > 0 {
		ratio := float64(transWords) / float64(srcWords)
		if ratio < lengthRatioLow || ratio > lengthRatioHigh {
			issues = append(issues, contract.Issue{
				Kind:   contract.IssueLengthRatio,
				Detail: fmt.Sprintf("unusual translation length ratio: %.2f", ratio),
			})
		}
	}

	srcSents := sentences(source)
	transSents := sentences(translated)
	if len(srcSents) > 0 {
		ratio := float64(len(transSents)) / float64(len(srcSents))
		if ratio < sentRatioLow || ratio > sentRatioHigh {
			issues = append(issues, contract.Issue{
				Kind:   contract.IssueSentenceRatio,
				Detail: fmt.Sprintf("unusual sentence count ratio: %.2f", ratio),
			})
		}
	}

	if v != nil && v.Back != nil {
		n := len(srcSents)
		if len(transSents) < n {
			n = len(transSents)
		}
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return issues, err
			}
			back, err := v.Back(ctx, transSents[i])
			if err != nil {
				return issues, fmt.Errorf("back-translation: %w", err)
			}
			if sim := Jaccard(srcSents[i], back); sim < similarityFloor {
				issues = append(issues, contract.Issue{
					Kind: contract.IssueLowSimilarity,
					Detail: fmt.Sprintf("low similarity in sentence %d: %.2f (original: %q, back-translated: %q)",
						i+1, sim, srcSents[i], back),
				})
			}
		}
	}

	if target == "fr" {
		if missing := missingFrenchPatterns(translated); len(missing) == len(frenchPatterns) {
			issues = append(issues, contract.Issue{
				Kind:   contract.IssuePattern,
				Detail: "missing common French patterns: " + strings.Join(missing, ", "),
			})
		}
	}
	return issues, nil
}

// sentences 以句点切句并去除空白项。
func sentences(text string) []string {
	parts := strings.Split(text, ".")
	out := parts[:0:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Jaccard 计算两段文本小写词集的交并比。双空集记 0。
func Jaccard(a, b string) float64 {
	as := wordSet(a)
	bs := wordSet(b)
	if len(as) == 0 && len(bs) == 0 {
		return 0
	}
	shared := 0
	for w := range as {
		if _, ok := bs[w]; ok {
			shared++
		}
	}
	union := len(as) + len(bs) - shared
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

// missingFrenchPatterns 返回译文中未出现的法语惯用模式。
func missingFrenchPatterns(translated string) []string {
	lower := strings.ToLower(translated)
	var missing []string
	for _, p := range frenchPatterns {
		if !strings.Contains(lower, p) {
			missing = append(missing, p)
		}
	}
	return missing
}
