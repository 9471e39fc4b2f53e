package chunk

import (
	"strings"
	"testing"

	"subtrans/pkg/contract"
)

const sample = "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs! " +
	"How vexingly quick daft zebras jump? Sphinx of black quartz, judge my vow. " +
	"The five boxing wizards jump quickly. Jackdaws love my big sphinx of quartz."

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func texts(chunks []contract.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestSplitShortText(t *testing.T) {
	got := Split("Hello world.", 100)
	if len(got) != 1 || got[0].Text != "Hello world." || got[0].Offset != 0 {
		t.Fatalf("Split short = %+v", got)
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("", 100); got != nil {
		t.Fatalf("Split(\"\") = %+v, want nil", got)
	}
	if got := Split("   \n  ", 100); got != nil {
		t.Fatalf("Split(whitespace) = %+v, want nil", got)
	}
}

func TestSplitJoinReconstructs(t *testing.T) {
	for _, max := range []int{40, 60, 100, 500} {
		joined := strings.Join(texts(Split(sample, max)), " ")
		if normalize(joined) != normalize(sample) {
			t.Errorf("max=%d: join mismatch\n got: %q\nwant: %q", max, normalize(joined), normalize(sample))
		}
	}
}

func TestSplitLengthBound(t *testing.T) {
	for _, max := range []int{30, 50, 80} {
		for _, c := range Split(sample, max) {
			if len(c.Text) > max+BoundaryTolerance {
				t.Errorf("max=%d: chunk len %d exceeds bound: %q", max, len(c.Text), c.Text)
			}
		}
	}
}

func TestSplitOffsetsAddressSource(t *testing.T) {
	for _, max := range []int{40, 80, 120} {
		for i, c := range Split(sample, max) {
			if got := sample[c.Offset : c.Offset+len(c.Text)]; got != c.Text {
				t.Errorf("max=%d chunk %d: offset %d addresses %q, want %q", max, i, c.Offset, got, c.Text)
			}
		}
	}
}

func TestSplitIdempotent(t *testing.T) {
	for _, max := range []int{50, 80, 120} {
		for _, c := range Split(sample, max) {
			if len(c.Text) > max {
				continue // 容差区片段不满足恒等，见 TestSplitToleranceChunkResplits
			}
			again := Split(c.Text, max)
			if len(again) != 1 || again[0].Text != c.Text {
				t.Errorf("max=%d: re-split not identity: %q -> %+v", max, c.Text, again)
			}
		}
	}
}

func TestSplitToleranceChunkResplits(t *testing.T) {
	// 句界仅在前瞻容差区命中：片段长于 max，重切分在 max 处硬切为两段。
	text := strings.Repeat("a", 58) + ". tail words here."
	chunks := Split(text, 50)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v, want 2", chunks)
	}
	first := chunks[0].Text
	if want := strings.Repeat("a", 58) + "."; first != want {
		t.Fatalf("first chunk = %q, want %q", first, want)
	}
	again := Split(first, 50)
	if len(again) != 2 {
		t.Fatalf("re-split = %+v, want 2 chunks", again)
	}
	if again[0].Text != strings.Repeat("a", 50) {
		t.Errorf("re-split hard cut mismatch: %q", again[0].Text)
	}
}

func TestSplitNoBoundaryHardCut(t *testing.T) {
	text := strings.Repeat("a", 250)
	chunks := Split(text, 100)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0].Text != strings.Repeat("a", 100) || chunks[2].Text != strings.Repeat("a", 50) {
		t.Fatalf("hard cut mismatch: lens %d/%d/%d", len(chunks[0].Text), len(chunks[1].Text), len(chunks[2].Text))
	}
	if chunks[1].Offset != 100 || chunks[2].Offset != 200 {
		t.Fatalf("offsets = %d/%d/%d", chunks[0].Offset, chunks[1].Offset, chunks[2].Offset)
	}
}

func TestSplitDeterministic(t *testing.T) {
	a := Split(sample, 64)
	b := Split(sample, 64)
	if len(a) != len(b) {
		t.Fatal("length differs between runs")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSplitMultibyteHardCut(t *testing.T) {
	text := strings.Repeat("é", 100) // 2 字节 rune，无句界
	for _, c := range Split(text, 33) {
		if !strings.HasPrefix(c.Text, "é") {
			t.Fatalf("rune split corrupted chunk: %q", c.Text)
		}
		for _, r := range c.Text {
			if r != 'é' {
				t.Fatalf("unexpected rune %q in %q", r, c.Text)
			}
		}
	}
}
