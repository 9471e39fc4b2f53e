package registry

import (
	"errors"
	"sort"
	"testing"

	"subtrans/pkg/contract"
)

func TestProcessorFor(t *testing.T) {
	for _, ext := range []string{".srt", ".vtt", ".json", ".txt"} {
		p, err := ProcessorFor(ext, ProcessorOptions{})
		if err != nil {
			t.Fatalf("ProcessorFor(%q): %v", ext, err)
		}
		found := false
		for _, e := range p.Exts() {
			if e == ext {
				found = true
			}
		}
		if !found {
			t.Errorf("processor for %q does not declare it", ext)
		}
	}
}

func TestProcessorForCaseInsensitive(t *testing.T) {
	if _, err := ProcessorFor(".SRT", ProcessorOptions{}); err != nil {
		t.Fatalf("uppercase ext: %v", err)
	}
}

func TestUnknownExtRejected(t *testing.T) {
	_, err := ProcessorFor(".docx", ProcessorOptions{})
	if !errors.Is(err, contract.ErrFormatUnsupported) {
		t.Fatalf("err = %v, want format unsupported", err)
	}
}

func TestExtsSorted(t *testing.T) {
	exts := Exts()
	if !sort.StringsAreSorted(exts) {
		t.Fatalf("Exts not sorted: %v", exts)
	}
	if len(exts) != len(Processor) {
		t.Fatalf("Exts = %v", exts)
	}
}

func TestBackendFor(t *testing.T) {
	for kind, wantModelPrefix := range map[string]string{
		"nllb":   "facebook/nllb-200",
		"m2m100": "facebook/m2m100",
		"marian": "Helsinki-NLP/opus-mt-en-",
	} {
		b, err := BackendFor(kind, BackendOptions{Tier: contract.TierStandard, MaxLength: 200, Target: "fr"})
		if err != nil {
			t.Fatalf("BackendFor(%q): %v", kind, err)
		}
		if got := b.Spec().Model; len(got) < len(wantModelPrefix) || got[:len(wantModelPrefix)] != wantModelPrefix {
			t.Errorf("%s model = %q", kind, got)
		}
	}
	if _, err := BackendFor("opus", BackendOptions{}); err == nil {
		t.Fatal("unknown backend must fail")
	}
}

func TestMarianBoundToTarget(t *testing.T) {
	b, err := BackendFor("marian", BackendOptions{Target: "de"})
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Spec().Model; got != "Helsinki-NLP/opus-mt-en-de" {
		t.Fatalf("marian model = %q", got)
	}
	// 权重按目标语言选定：缺失或不支持的目标语言在构造期失败
	if _, err := BackendFor("marian", BackendOptions{}); !errors.Is(err, contract.ErrLanguageUnsupported) {
		t.Fatalf("err = %v, want language unsupported", err)
	}
}

func TestTierSelectsVariant(t *testing.T) {
	std, _ := BackendFor("nllb", BackendOptions{Tier: contract.TierStandard})
	lrg, _ := BackendFor("nllb", BackendOptions{Tier: contract.TierLarge})
	if std.Spec().Model == lrg.Spec().Model {
		t.Fatal("tiers must select distinct model variants")
	}
	if lrg.Spec().RequiredDiskGB <= std.Spec().RequiredDiskGB {
		t.Fatal("large tier must require more disk")
	}
}
