// Package language 维护受支持目标语言集合与展示名。
// 集合固定：不在集合内的短码属请求校验错误，不进入流水线。
package language

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"subtrans/pkg/contract"
)

// 受支持目标语言（ISO 639-1 短码）。源语言固定为英语。
var supported = map[contract.Lang]struct{}{
	"fr": {},
	"es": {},
	"de": {},
	"it": {},
	"pt": {},
	"nl": {},
	"pl": {},
	"ru": {},
}

// Source 为固定源语言短码。
const Source contract.Lang = "en"

// Validate 归一并校验目标语言短码。
// 不支持的短码返回 ErrLanguageUnsupported（请求校验错误，而非流水线错误）。
func Validate(code string) (contract.Lang, error) {
	lang := contract.Lang(strings.ToLower(strings.TrimSpace(code)))
	if lang == "" {
		return "", fmt.Errorf("%w: empty code", contract.ErrLanguageUnsupported)
	}
	if _, ok := supported[lang]; !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", contract.ErrLanguageUnsupported, code, strings.Join(Codes(), ", "))
	}
	return lang, nil
}

// Codes 返回受支持短码（字典序，稳定输出）。
func Codes() []string {
	out := make([]string, 0, len(supported))
	for l := range supported {
		out = append(out, string(l))
	}
	sort.Strings(out)
	return out
}

// DisplayName 返回语言的英文展示名（如 "fr" → "French"）。
// 未知短码原样大写返回，不报错（仅用于展示）。
func DisplayName(lang contract.Lang) string {
	tag, err := language.Parse(string(lang))
	if err != nil {
		return strings.ToUpper(string(lang))
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(string(lang))
}
