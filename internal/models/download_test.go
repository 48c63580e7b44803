package models

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProgressWriter(t *testing.T) {
	var dst, progress bytes.Buffer
	pw := &progressWriter{
		writer: &dst,
		out:    &progress,
		total:  100,
		label:  "test",
	}

	n, err := pw.Write(make([]byte, 50))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 50 {
		t.Errorf("Write() n = %d, want 50", n)
	}
	if pw.written != 50 {
		t.Errorf("written = %d, want 50", pw.written)
	}
	if !strings.Contains(progress.String(), "(50%)") {
		t.Errorf("progress output = %q, want percentage", progress.String())
	}
}

func TestCatalogMatchesSelectorNames(t *testing.T) {
	for name, r := range catalog {
		if r.Name != name {
			t.Errorf("catalog[%q].Name = %q", name, r.Name)
		}
	}
	for _, name := range asrCandidates {
		if _, ok := Lookup(name); !ok {
			t.Errorf("ASR candidate %q is not downloadable", name)
		}
	}
}

func TestRecommendedLLM(t *testing.T) {
	r, ok := RecommendedLLM(16)
	if !ok || r.Name != "qwen2.5-1.5b-q4_k_m.gguf" {
		t.Errorf("RecommendedLLM(16) = %+v, %v", r, ok)
	}
	// 72b is not in the catalog, so the first downloadable fallback wins
	r, ok = RecommendedLLM(1024)
	if !ok || r.Name != "qwen2.5-1.5b-q4_k_m.gguf" {
		t.Errorf("RecommendedLLM(1024) = %+v, %v", r, ok)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("model-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	var out bytes.Buffer
	r := Remote{Name: "ggml-tiny.bin", URL: srv.URL + "/ggml-tiny.bin"}
	if err := Download(context.Background(), srv.Client(), dir, r, &out); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "ggml-tiny.bin"))
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != "model-bytes" {
		t.Errorf("downloaded content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "ggml-tiny.bin.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	// the selector can now find it
	if _, err := NewSelector(dir).ASR(Auto); err != nil {
		t.Errorf("ASR() after download error = %v", err)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	r := Remote{Name: "ggml-base.bin", URL: srv.URL}
	err := Download(context.Background(), srv.Client(), dir, r, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("Download() error = %v, want HTTP 404", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ggml-base.bin")); !os.IsNotExist(err) {
		t.Error("failed download must not leave a model file")
	}
}

func TestDownloadSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ggml-base.bin")

	r := Remote{Name: "ggml-base.bin", URL: "http://127.0.0.1:1/unreachable"}
	var out bytes.Buffer
	if err := Download(context.Background(), nil, dir, r, &out); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("output = %q, want already exists notice", out.String())
	}
}

func TestRunInteractiveDownloadInvalidChoice(t *testing.T) {
	err := RunInteractiveDownload(context.Background(), t.TempDir(), 16, strings.NewReader("9\n"), &bytes.Buffer{})
	if err == nil {
		t.Fatal("RunInteractiveDownload() should reject an unknown choice")
	}
}
