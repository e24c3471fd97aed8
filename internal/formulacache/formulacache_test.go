package formulacache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brewkeg/brewkeg/internal/formula"
)

func TestPutGet(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "formulae"), 0)

	f := &formula.Formula{Name: "wget", Version: "1.24.5"}
	if err := c.Put(f); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, ok := c.Get("wget")
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if got.Version != "1.24.5" {
		t.Errorf("Get().Version = %q", got.Version)
	}
}

func TestGet_Miss(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "formulae"), 0)
	if _, ok := c.Get("never-cached"); ok {
		t.Error("Get() hit for uncached name, want miss")
	}
}

func TestGet_CorruptEntryIsMiss(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "formulae")
	c := New(dir, 0)
	f := &formula.Formula{Name: "wget", Version: "1.0"}
	if err := c.Put(f); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	corruptPath := c.path("wget")
	if err := os.WriteFile(corruptPath, []byte("not json"), 0644); err != nil {
		t.Fatalf("corrupt write failed: %v", err)
	}

	if _, ok := c.Get("wget"); ok {
		t.Error("Get() hit for corrupt entry, want miss")
	}
}

func TestGet_ExpiredByTTL(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "formulae"), 1*time.Millisecond)
	f := &formula.Formula{Name: "wget", Version: "1.0"}
	if err := c.Put(f); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("wget"); ok {
		t.Error("Get() hit for expired entry, want miss")
	}
}

func TestUpdateFormulae(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "formulae"), 0)
	f := &formula.Formula{Name: "wget", Version: "1.0"}
	if err := c.Put(f); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	called := false
	err := c.UpdateFormulae(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateFormulae() failed: %v", err)
	}
	if !called {
		t.Error("UpdateFormulae() did not invoke updateAll")
	}
	if _, ok := c.Get("wget"); ok {
		t.Error("Get() hit after UpdateFormulae(), want cache cleared")
	}
}

func TestUpdateFormulae_PropagatesUpdateAllError(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "formulae"), 0)
	wantErr := errors.New("tap update failed")
	err := c.UpdateFormulae(func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("UpdateFormulae() error = %v, want %v", err, wantErr)
	}
}
