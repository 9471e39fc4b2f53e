package infer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"subtrans/pkg/contract"
)

func TestTranslateRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req TranslateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		out := make([]string, len(req.Texts))
		for i, s := range req.Texts {
			out[i] = "[" + req.Target + "] " + s
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"translations": out})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	got, err := c.Translate(context.Background(), TranslateRequest{
		Model: "m", Texts: []string{"a", "b"}, Source: "eng_Latn", Target: "fra_Latn",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got) != 2 || got[0] != "[fra_Latn] a" {
		t.Fatalf("got %q", got)
	}
}

func TestTranslateLengthInvariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"translations": []string{"only one"}})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Translate(context.Background(), TranslateRequest{Model: "m", Texts: []string{"a", "b"}})
	if !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("want ErrInvariantViolation, got %v", err)
	}
}

func TestOOMMapsToResourceExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"oom","message":"CUDA out of memory"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	_, err := c.Translate(context.Background(), TranslateRequest{Model: "m", Texts: []string{"a"}})
	if !errors.Is(err, contract.ErrResourceExhausted) {
		t.Fatalf("want ErrResourceExhausted, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != "oom" {
		t.Fatalf("status error not surfaced: %v", err)
	}
}

func TestModelCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/have/cached" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	ok, err := c.ModelCached(context.Background(), "have")
	if err != nil || !ok {
		t.Fatalf("cached: ok=%v err=%v", ok, err)
	}
	ok, err = c.ModelCached(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("missing: ok=%v err=%v", ok, err)
	}
}

func TestLoadGrantsDevice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loadReq
		_ = json.NewDecoder(r.Body).Decode(&req)
		// 守护进程可拒绝 cuda 改授 cpu
		_ = json.NewEncoder(w).Encode(loadResp{Loaded: true, Device: "cpu"})
	}))
	defer srv.Close()

	c := New(srv.URL, 0)
	dev, err := c.Load(context.Background(), "m", contract.DeviceCUDA)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dev != contract.DeviceCPU {
		t.Fatalf("granted device = %s", dev)
	}
}
