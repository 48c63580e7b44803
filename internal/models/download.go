package models

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Remote describes where a model file can be fetched from. Files are stored
// under Name so the selector finds them.
type Remote struct {
	Name   string
	URL    string
	SizeMB int
}

const whisperBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// catalog lists downloadable models by the file name the selector expects.
var catalog = map[string]Remote{
	"ggml-tiny.bin":   {Name: "ggml-tiny.bin", URL: whisperBase + "ggml-tiny.bin", SizeMB: 75},
	"ggml-base.bin":   {Name: "ggml-base.bin", URL: whisperBase + "ggml-base.bin", SizeMB: 142},
	"ggml-small.bin":  {Name: "ggml-small.bin", URL: whisperBase + "ggml-small.bin", SizeMB: 466},
	"ggml-medium.bin": {Name: "ggml-medium.bin", URL: whisperBase + "ggml-medium.bin", SizeMB: 1533},
	"qwen2.5-0.5b-q4_k_m.gguf": {
		Name:   "qwen2.5-0.5b-q4_k_m.gguf",
		URL:    "https://huggingface.co/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q4_k_m.gguf",
		SizeMB: 491,
	},
	"qwen2.5-1.5b-q4_k_m.gguf": {
		Name:   "qwen2.5-1.5b-q4_k_m.gguf",
		URL:    "https://huggingface.co/Qwen/Qwen2.5-1.5B-Instruct-GGUF/resolve/main/qwen2.5-1.5b-instruct-q4_k_m.gguf",
		SizeMB: 1117,
	},
	"qwen2.5-3b-q4_k_m.gguf": {
		Name:   "qwen2.5-3b-q4_k_m.gguf",
		URL:    "https://huggingface.co/Qwen/Qwen2.5-3B-Instruct-GGUF/resolve/main/qwen2.5-3b-instruct-q4_k_m.gguf",
		SizeMB: 2104,
	},
	"qwen3-4b-q4_k_m.gguf": {
		Name:   "qwen3-4b-q4_k_m.gguf",
		URL:    "https://huggingface.co/Qwen/Qwen3-4B-GGUF/resolve/main/Qwen3-4B-Q4_K_M.gguf",
		SizeMB: 2497,
	},
	"qwen2.5-7b-q4_k_m.gguf": {
		Name:   "qwen2.5-7b-q4_k_m.gguf",
		URL:    "https://huggingface.co/bartowski/Qwen2.5-7B-Instruct-GGUF/resolve/main/Qwen2.5-7B-Instruct-Q4_K_M.gguf",
		SizeMB: 4683,
	},
	"qwen3-8b-q4_k_m.gguf": {
		Name:   "qwen3-8b-q4_k_m.gguf",
		URL:    "https://huggingface.co/Qwen/Qwen3-8B-GGUF/resolve/main/Qwen3-8B-Q4_K_M.gguf",
		SizeMB: 5027,
	},
}

// Lookup returns the download location for a model file name.
func Lookup(name string) (Remote, bool) {
	r, ok := catalog[name]
	return r, ok
}

// RecommendedLLM returns the downloadable refinement model for memGB: the
// preferred tier if it is in the catalog, else the first downloadable
// fallback candidate.
func RecommendedLLM(memGB uint64) (Remote, bool) {
	for _, name := range LLMCandidates(memGB) {
		if r, ok := catalog[name]; ok {
			return r, true
		}
	}
	return Remote{}, false
}

// Download fetches r into dir, printing progress to out. An existing
// non-empty file is left untouched.
func Download(ctx context.Context, client *http.Client, dir string, r Remote, out io.Writer) error {
	if client == nil {
		client = http.DefaultClient
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("models: create models dir: %w", err)
	}

	destPath := filepath.Join(dir, r.Name)
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Fprintf(out, "  Model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return nil
	}

	fmt.Fprintf(out, "  Downloading %s...\n", r.Name)
	fmt.Fprintf(out, "  URL: %s\n", r.URL)
	fmt.Fprintf(out, "  Destination: %s\n", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return fmt.Errorf("models: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("models: download %s: %w", r.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download %s: HTTP %d", r.Name, resp.StatusCode)
	}

	// Write to temp file first, then rename
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("models: create temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		out:    out,
		total:  resp.ContentLength,
		label:  r.Name,
	}

	written, err := io.Copy(pw, resp.Body)
	_ = f.Close()
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: write model file: %w", err)
	}

	fmt.Fprintf(out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("models: move model file: %w", err)
	}
	return nil
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}

// RunInteractiveDownload prompts on in/out for which models to fetch into
// dir. memGB picks the recommended refinement model.
func RunInteractiveDownload(ctx context.Context, dir string, memGB uint64, in io.Reader, out io.Writer) error {
	asr := catalog["ggml-small.bin"]
	llm, haveLLM := RecommendedLLM(memGB)

	fmt.Fprintln(out, "=== Model Download ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Models will be downloaded to: %s\n", dir)
	fmt.Fprintf(out, "Host memory: %d GB\n", memGB)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Which models would you like to download?")
	fmt.Fprintf(out, "  [1] Whisper (%s, ~%d MB) - speech recognition\n", asr.Name, asr.SizeMB)
	if haveLLM {
		fmt.Fprintf(out, "  [2] Refinement (%s, ~%d MB) - recommended for this host\n", llm.Name, llm.SizeMB)
	} else {
		fmt.Fprintf(out, "  [2] Refinement - no downloadable model for %d GB, place a .gguf in %s\n", memGB, dir)
	}
	fmt.Fprintln(out, "  [3] Both")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Choice [1/2/3]: ")

	choice, _ := bufio.NewReader(in).ReadString('\n')
	choice = strings.TrimSpace(choice)
	fmt.Fprintln(out)

	var todo []Remote
	switch choice {
	case "1":
		todo = []Remote{asr}
	case "2", "3":
		if !haveLLM {
			return fmt.Errorf("models: no downloadable refinement model for %d GB", memGB)
		}
		if choice == "3" {
			todo = append(todo, asr)
		}
		todo = append(todo, llm)
	default:
		return fmt.Errorf("invalid choice: %q (expected 1, 2, or 3)", choice)
	}

	for i, r := range todo {
		fmt.Fprintf(out, "[%d/%d] %s:\n", i+1, len(todo), r.Name)
		if err := Download(ctx, nil, dir, r, out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Models downloaded successfully!")
	return nil
}
