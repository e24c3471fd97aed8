package searchindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFormula(t *testing.T, tapPath, name, body string) {
	t.Helper()
	dir := filepath.Join(tapPath, "Formula")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".rb"), []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

func TestRebuildAndSearch(t *testing.T) {
	tapPath := t.TempDir()
	writeFormula(t, tapPath, "wget", `
class Wget < Formula
  desc "Internet file retriever"
  version "1.21.4"
  url "https://example.com/wget-1.21.4.tar.gz"
  sha256 "abc"
end
`)
	writeFormula(t, tapPath, "curl", `
class Curl < Formula
  desc "Command line tool for transferring data"
  version "8.4.0"
  url "https://example.com/curl-8.4.0.tar.gz"
  sha256 "def"
end
`)
	writeFormula(t, tapPath, "broken", `not a formula at all {{{`)

	idx, err := Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer idx.Close()

	taps := []TapSource{{Name: "homebrew/core", Path: tapPath}}
	if err := idx.Rebuild(context.Background(), taps); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "wget", Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 || results[0].Name != "wget" {
		t.Fatalf("Search(wget) = %+v, want one hit named wget", results)
	}
	if results[0].Tap != "homebrew/core" {
		t.Errorf("Tap = %q, want homebrew/core", results[0].Tap)
	}

	if _, err := idx.Search(context.Background(), "retriever", Options{}); err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	withDesc, err := idx.Search(context.Background(), "retriever", Options{Description: true})
	if err != nil {
		t.Fatalf("Search() with description failed: %v", err)
	}
	if len(withDesc) != 1 || withDesc[0].Name != "wget" {
		t.Errorf("Search(retriever, description) = %+v, want one hit named wget", withDesc)
	}
}

func TestSearch_FuzzyMatchesTypo(t *testing.T) {
	tapPath := t.TempDir()
	writeFormula(t, tapPath, "postgresql", `
class Postgresql < Formula
  desc "Object-relational database system"
  version "17.0"
  url "https://example.com/postgresql-17.0.tar.gz"
  sha256 "abc"
end
`)

	idx, err := Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer idx.Close()

	if err := idx.Rebuild(context.Background(), []TapSource{{Name: "homebrew/core", Path: tapPath}}); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "postgrsql", Options{Fuzzy: true, Limit: 5})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search(fuzzy) = %+v, want one hit", results)
	}
}

func TestRebuild_SkipsMissingFormulaDir(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer idx.Close()

	taps := []TapSource{{Name: "empty/tap", Path: t.TempDir()}}
	if err := idx.Rebuild(context.Background(), taps); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}

	results, err := idx.Search(context.Background(), "anything", Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty index = %+v, want none", results)
	}
}

func TestRebuild_IsIdempotent(t *testing.T) {
	tapPath := t.TempDir()
	writeFormula(t, tapPath, "wget", `
class Wget < Formula
  desc "Internet file retriever"
  version "1.21.4"
  url "https://example.com/wget-1.21.4.tar.gz"
  sha256 "abc"
end
`)

	idx, err := Open(filepath.Join(t.TempDir(), "index"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer idx.Close()

	taps := []TapSource{{Name: "homebrew/core", Path: tapPath}}
	for i := 0; i < 2; i++ {
		if err := idx.Rebuild(context.Background(), taps); err != nil {
			t.Fatalf("Rebuild() iteration %d failed: %v", i, err)
		}
	}

	results, err := idx.Search(context.Background(), "wget", Options{})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Search() after double rebuild = %+v, want exactly one hit", results)
	}
}
