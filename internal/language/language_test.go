package language

import (
	"errors"
	"testing"

	"subtrans/pkg/contract"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		in   string
		want contract.Lang
		err  bool
	}{
		{"fr", "fr", false},
		{" FR ", "fr", false},
		{"ru", "ru", false},
		{"", "", true},
		{"xx", "", true},
		{"en", "", true}, // 源语言不是合法目标
		{"french", "", true},
	}
	for _, c := range cases {
		got, err := Validate(c.in)
		if c.err {
			if err == nil {
				t.Errorf("Validate(%q): want error, got %q", c.in, got)
			} else if !errors.Is(err, contract.ErrLanguageUnsupported) {
				t.Errorf("Validate(%q): error not ErrLanguageUnsupported: %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Validate(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Validate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCodesStable(t *testing.T) {
	a := Codes()
	b := Codes()
	if len(a) != 8 {
		t.Fatalf("Codes len = %d, want 8", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Codes not stable: %v vs %v", a, b)
		}
	}
	for i := 1; i < len(a); i++ {
		if a[i-1] >= a[i] {
			t.Fatalf("Codes not sorted: %v", a)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("fr"); got != "French" {
		t.Errorf("DisplayName(fr) = %q", got)
	}
	if got := DisplayName("pt"); got != "Portuguese" {
		t.Errorf("DisplayName(pt) = %q", got)
	}
}
