package contract

import "testing"

func TestUnitOutput(t *testing.T) {
	cases := []struct {
		name string
		unit Unit
		want string
	}{
		{"translated", Unit{Text: "hello", Translated: "bonjour"}, "bonjour"},
		{"untranslated keeps source", Unit{Text: "hello"}, "hello"},
		{"empty both", Unit{}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.unit.Output(); got != c.want {
				t.Fatalf("Output() = %q, want %q", got, c.want)
			}
		})
	}
}

func TestNormalizeFileID(t *testing.T) {
	cases := []struct {
		in   string
		want FileID
	}{
		{"a/b/c.srt", "a/b/c.srt"},
		{`a\b\c.srt`, "a/b/c.srt"},
		{"a//b/./c.srt", "a/b/c.srt"},
		{"a/b/../c.srt", "a/c.srt"},
		{"/abs/path.vtt", "/abs/path.vtt"},
		{"./rel.txt", "rel.txt"},
	}
	for _, c := range cases {
		if got := NormalizeFileID(c.in); got != c.want {
			t.Fatalf("NormalizeFileID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
