package cache

import (
	"context"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if _, ok, err := s.Get(ctx, "nllb", "fr", "Hello."); err != nil || ok {
		t.Fatalf("miss expected, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "nllb", "fr", "Hello.", "Bonjour."); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, "nllb", "fr", "Hello.")
	if err != nil || !ok || got != "Bonjour." {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestKeyDiscriminates(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Put(ctx, "nllb", "fr", "Hello.", "Bonjour."); err != nil {
		t.Fatal(err)
	}
	// 同原文不同目标语言或模型不得命中
	if _, ok, _ := s.Get(ctx, "nllb", "de", "Hello."); ok {
		t.Error("target not part of key")
	}
	if _, ok, _ := s.Get(ctx, "m2m100", "fr", "Hello."); ok {
		t.Error("model not part of key")
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Put(ctx, "nllb", "fr", "Hello.", "Salut."); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "nllb", "fr", "Hello.", "Bonjour."); err != nil {
		t.Fatal(err)
	}
	got, ok, _ := s.Get(ctx, "nllb", "fr", "Hello.")
	if !ok || got != "Bonjour." {
		t.Fatalf("Get = %q ok=%v", got, ok)
	}
}

func TestStatsAndClear(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, txt := range []string{"a", "b", "c"} {
		if err := s.Put(ctx, "nllb", "fr", txt, txt+"!"); err != nil {
			t.Fatal(err)
		}
	}
	st, err := s.Stats(ctx)
	if err != nil || st.Entries != 3 {
		t.Fatalf("Stats = %+v err=%v", st, err)
	}
	n, err := s.Clear(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Clear = %d err=%v", n, err)
	}
	st, _ = s.Stats(ctx)
	if st.Entries != 0 {
		t.Fatalf("Entries after clear = %d", st.Entries)
	}
}

func TestNilStoreSafe(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if _, ok, err := s.Get(ctx, "m", "fr", "x"); ok || err != nil {
		t.Fatal("nil Get should be a silent miss")
	}
	if err := s.Put(ctx, "m", "fr", "x", "y"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
