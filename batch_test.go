package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func batchOptions() fetchOptions {
	return fetchOptions{
		Method:    "GET",
		Timeout:   5 * time.Second,
		MaxSize:   defaultMaxSize,
		UserAgent: defaultUA,
	}
}

func TestSavePath(t *testing.T) {
	tests := []struct {
		path  string
		index int
		multi bool
		want  string
	}{
		{"page.html", 0, false, "page.html"},
		{"page.html", 0, true, "page_0.html"},
		{"page.html", 1, true, "page_1.html"},
		{"archive.tar.gz", 2, true, "archive.tar_2.gz"},
		{"noext", 0, true, "noext_0"},
		{"dir/page.html", 3, true, "dir/page_3.html"},
	}
	for _, tt := range tests {
		if got := savePath(tt.path, tt.index, tt.multi); got != tt.want {
			t.Errorf("savePath(%q, %d, %v) = %q, want %q", tt.path, tt.index, tt.multi, got, tt.want)
		}
	}
}

func TestRunBatch_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok " + r.URL.Path))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/a", srv.URL + "/missing", srv.URL + "/b"}
	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), urls, batchOptions(), renderOptions{}, "", &out)
	code := b.flush(false, &out, &errOut)

	if code != 2 {
		t.Errorf("exit code = %d, want 2 for partial failure", code)
	}
	if len(b.results) != 2 {
		t.Fatalf("results = %d, want 2", len(b.results))
	}
	if len(b.errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(b.errors))
	}

	stderr := errOut.String()
	if !strings.Contains(stderr, "Error fetching "+srv.URL+"/missing: ") {
		t.Errorf("stderr %q missing per-URL error line", stderr)
	}
	if !strings.Contains(out.String(), strings.Repeat("=", resultDividerWidth)) {
		t.Errorf("stdout should separate results with a divider:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "ok /a") || !strings.Contains(out.String(), "ok /b") {
		t.Errorf("stdout missing successful results:\n%s", out.String())
	}
}

func TestRunBatch_AllFail(t *testing.T) {
	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), []string{"ftp://bad", "notaurl"}, batchOptions(), renderOptions{}, "", &out)
	code := b.flush(false, &out, &errOut)

	if code != 1 {
		t.Errorf("exit code = %d, want 1 when every URL fails", code)
	}
	if out.Len() != 0 {
		t.Errorf("stdout should be empty, got %q", out.String())
	}
	if got := strings.Count(errOut.String(), "Error fetching "); got != 2 {
		t.Errorf("stderr error lines = %d, want 2:\n%s", got, errOut.String())
	}
}

func TestRunBatch_AllSucceed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("fine"))
	}))
	defer srv.Close()

	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), []string{srv.URL}, batchOptions(), renderOptions{}, "", &out)
	if code := b.flush(false, &out, &errOut); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if errOut.Len() != 0 {
		t.Errorf("stderr should be empty, got %q", errOut.String())
	}
	if strings.Contains(out.String(), strings.Repeat("=", resultDividerWidth)) {
		t.Error("single result should not be followed by a divider")
	}
}

func TestRunBatch_SaveMultipleIndexed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload for " + r.URL.Path))
	}))
	defer srv.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "page.html")
	urls := []string{srv.URL + "/one", srv.URL + "/two"}

	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), urls, batchOptions(), renderOptions{}, target, &out)
	if code := b.flush(false, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}
	if b.saved != 2 {
		t.Fatalf("saved = %d, want 2", b.saved)
	}

	for i, want := range []string{"payload for /one", "payload for /two"} {
		path := filepath.Join(dir, "page_"+string(rune('0'+i))+".html")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", path, data, want)
		}
		if !strings.Contains(out.String(), "Saved to: "+path) {
			t.Errorf("stdout missing save confirmation for %s:\n%s", path, out.String())
		}
	}
}

func TestRunBatch_SaveSingleKeepsName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw bytes"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "out.bin")
	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), []string{srv.URL}, batchOptions(), renderOptions{}, target, &out)
	if code := b.flush(false, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected file at unmodified path: %v", err)
	}
}

func TestRunBatch_SaveCountsAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	target := filepath.Join(t.TempDir(), "a.txt")
	var out, errOut bytes.Buffer
	urls := []string{srv.URL, "notaurl"}
	b := runBatch(context.Background(), urls, batchOptions(), renderOptions{}, target, &out)
	if code := b.flush(false, &out, &errOut); code != 2 {
		t.Errorf("exit code = %d, want 2 (one save succeeded, one fetch failed)", code)
	}
}

func TestRunBatch_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	b := runBatch(ctx, []string{"http://example.invalid/", "http://example.invalid/2"}, batchOptions(), renderOptions{}, "", &out)
	if len(b.results) != 0 || len(b.errors) != 0 {
		t.Errorf("cancelled batch should record nothing, got %d results, %d errors", len(b.results), len(b.errors))
	}
}

func TestFlush_JSONArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("body " + r.URL.Path))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/1", srv.URL + "/2"}
	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), urls, batchOptions(), renderOptions{AsJSON: true}, "", &out)
	if code := b.flush(true, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	got := strings.TrimSpace(out.String())
	if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "]") {
		t.Errorf("multiple results should emit a JSON array, got:\n%s", got)
	}
	if !strings.Contains(got, `"body /1"`) || !strings.Contains(got, `"body /2"`) {
		t.Errorf("array missing payload text:\n%s", got)
	}
}

func TestFlush_JSONSingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("solo"))
	}))
	defer srv.Close()

	var out, errOut bytes.Buffer
	b := runBatch(context.Background(), []string{srv.URL}, batchOptions(), renderOptions{AsJSON: true}, "", &out)
	if code := b.flush(true, &out, &errOut); code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	got := strings.TrimSpace(out.String())
	if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
		t.Errorf("single result should emit a JSON object, got:\n%s", got)
	}
}
