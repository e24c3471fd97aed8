package tap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	gitobject "github.com/go-git/go-git/v5/plumbing/object"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"homebrew/core", "https://github.com/Homebrew/homebrew-core.git"},
		{"myorg/stuff", "https://github.com/myorg/homebrew-stuff.git"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveURL(tt.name)
			if err != nil {
				t.Fatalf("resolveURL(%q) failed: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("resolveURL(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestResolveURL_InvalidName(t *testing.T) {
	if _, err := resolveURL("noSlash"); err == nil {
		t.Error("expected error for name without a slash")
	}
}

// newLocalBareRepo creates a local git repo with one commit, suitable as a
// clone source for Add/Update tests without network access.
func newLocalBareRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() failed: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() failed: %v", err)
	}
	formulaDir := filepath.Join(dir, "Formula")
	if err := os.MkdirAll(formulaDir, 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(formulaDir, "wget.rb"), []byte("class Wget < Formula\nend\n"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := wt.Add("Formula/wget.rb"); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &gitobject.Signature{Name: "test", Email: "test@example.com"},
	})
	if err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	return dir
}

func TestAddAndFindFormula(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sourceDir := newLocalBareRepo(t, filepath.Join(root, "source"))

	s, err := Open(filepath.Join(root, "taps"), filepath.Join(root, "taps.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	tp, err := s.Add(ctx, "myorg/stuff", "file://"+sourceDir)
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if tp.Name != "myorg/stuff" {
		t.Errorf("Name = %q", tp.Name)
	}

	if _, err := s.Add(ctx, "myorg/stuff", "file://"+sourceDir); err == nil {
		t.Error("expected error re-adding existing tap")
	}

	path, err := s.FindFormula(ctx, "wget")
	if err != nil {
		t.Fatalf("FindFormula() failed: %v", err)
	}
	if filepath.Base(path) != "wget.rb" {
		t.Errorf("FindFormula() = %q", path)
	}

	if _, err := s.FindFormula(ctx, "does-not-exist"); err == nil {
		t.Error("expected PackageNotFound for missing formula")
	}

	taps, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(taps) != 1 || taps[0].Name != "myorg/stuff" {
		t.Errorf("List() = %+v", taps)
	}

	if err := s.Remove(ctx, "myorg/stuff"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	taps, _ = s.List(ctx)
	if len(taps) != 0 {
		t.Errorf("List() after Remove = %+v, want empty", taps)
	}
}

func TestImportExternal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	external := filepath.Join(root, "external")
	tapPath := filepath.Join(external, "myorg", "homebrew-extra")
	if err := os.MkdirAll(tapPath, 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}

	s, err := Open(filepath.Join(root, "taps"), filepath.Join(root, "taps.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if err := s.ImportExternal(ctx, external); err != nil {
		t.Fatalf("ImportExternal() failed: %v", err)
	}

	taps, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(taps) != 1 || taps[0].Name != "myorg/extra" {
		t.Fatalf("List() = %+v, want myorg/extra", taps)
	}

	// Idempotent: a second import leaves the existing entry untouched.
	if err := s.ImportExternal(ctx, external); err != nil {
		t.Fatalf("ImportExternal() second call failed: %v", err)
	}
	taps, _ = s.List(ctx)
	if len(taps) != 1 {
		t.Errorf("List() after re-import = %d taps, want 1", len(taps))
	}
}
