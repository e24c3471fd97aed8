package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive-contents"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sub", "archive.tar.gz")
	d := New(5*time.Second, 4)

	var lastDownloaded, lastTotal int64
	err := d.Fetch(context.Background(), srv.URL, dest, func(downloaded, total int64) {
		lastDownloaded, lastTotal = downloaded, total
	})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "archive-contents" {
		t.Errorf("content = %q", data)
	}
	if lastDownloaded != int64(len("archive-contents")) {
		t.Errorf("lastDownloaded = %d", lastDownloaded)
	}
	if lastTotal != int64(len("archive-contents")) {
		t.Errorf("lastTotal = %d", lastTotal)
	}
}

func TestFetch_NonTwoXXFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := New(5*time.Second, 4)
	err := d.Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), nil)
	if err == nil {
		t.Fatal("expected DownloadFailed on 404")
	}
}

func TestFetchResume_FullDownloadWhenNoExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			t.Errorf("unexpected Range header on fresh download: %q", r.Header.Get("Range"))
		}
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.bin")
	d := New(5*time.Second, 4)
	if err := d.FetchResume(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("FetchResume() failed: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "0123456789" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchResume_ResumesPartialFile(t *testing.T) {
	full := "0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng := r.Header.Get("Range")
		if rng != "bytes=5-" {
			t.Fatalf("Range header = %q, want bytes=5-", rng)
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 5-9/%d", len(full)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(full[5:]))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "archive.bin")
	if err := os.WriteFile(dest, []byte(full[:5]), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	d := New(5*time.Second, 4)
	var lastTotal int64
	err := d.FetchResume(context.Background(), srv.URL, dest, func(downloaded, total int64) {
		lastTotal = total
	})
	if err != nil {
		t.Fatalf("FetchResume() failed: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != full {
		t.Errorf("content = %q, want %q", data, full)
	}
	if lastTotal != int64(len(full)) {
		t.Errorf("lastTotal = %d, want %d", lastTotal, len(full))
	}
}

func TestFetchMany_AllSucceed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	tmp := t.TempDir()
	pairs := []FetchPair{
		{URL: srv.URL, Dest: filepath.Join(tmp, "a")},
		{URL: srv.URL, Dest: filepath.Join(tmp, "b")},
		{URL: srv.URL, Dest: filepath.Join(tmp, "c")},
	}

	d := New(5*time.Second, 2)
	if err := d.FetchMany(context.Background(), pairs); err != nil {
		t.Fatalf("FetchMany() failed: %v", err)
	}
	for _, p := range pairs {
		if data, err := os.ReadFile(p.Dest); err != nil || string(data) != "data" {
			t.Errorf("dest %s content = %q, err = %v", p.Dest, data, err)
		}
	}
}

func TestFetchMany_PropagatesFirstFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tmp := t.TempDir()
	pairs := []FetchPair{{URL: srv.URL, Dest: filepath.Join(tmp, "a")}}

	d := New(5*time.Second, 2)
	if err := d.FetchMany(context.Background(), pairs); err == nil {
		t.Fatal("expected propagated failure")
	}
}

func TestTotalSizeFromContentRange(t *testing.T) {
	tests := []struct {
		header string
		want   int64
	}{
		{"bytes 5-9/10", 10},
		{"bytes 5-9/*", -1},
		{"", -1},
		{"malformed", -1},
	}
	for _, tt := range tests {
		if got := totalSizeFromContentRange(tt.header); got != tt.want {
			t.Errorf("totalSizeFromContentRange(%q) = %d, want %d", tt.header, got, tt.want)
		}
	}
}
