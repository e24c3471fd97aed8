package formula

import (
	"errors"
	"strings"
	"testing"

	"github.com/brewkeg/brewkeg/internal/brewerr"
)

const wgetFormula = `class Wget < Formula
  desc "Internet file retriever"
  homepage "https://www.gnu.org/software/wget/"
  url "https://ftp.gnu.org/gnu/wget/wget-1.24.5.tar.gz"
  sha256 "fc2cac21ac5d8fb66a9ee25eb4cabe9d98b4dd2d9aaa2ab52f7bdfc5d7a2a99c"

  depends_on "pkg-config" => :build
  depends_on "openssl@3"

  def install
    system "./configure", "--prefix=#{prefix}"
    system "make", "install"
  end

  test do
    system "#{bin}/wget", "--version"
  end

  bottle do
    sha256 cellar: :any, arm64_sequoia: "1111111111111111111111111111111111111111111111111111111111111111"
    sha256 cellar: :any, sonoma: "2222222222222222222222222222222222222222222222222222222222222222"
    sha256 x86_64_linux: "3333333333333333333333333333333333333333333333333333333333333333"
  end
end
`

func TestParse_Wget(t *testing.T) {
	f, err := Parse("wget.rb", wgetFormula)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if f.Name != "wget" {
		t.Errorf("Name = %q, want wget", f.Name)
	}
	if f.Description != "Internet file retriever" {
		t.Errorf("Description = %q", f.Description)
	}
	if f.Version != "1.24.5" {
		t.Errorf("Version = %q, want 1.24.5 (derived from URL)", f.Version)
	}
	if len(f.Sources) != 1 || f.Sources[0].URL != "https://ftp.gnu.org/gnu/wget/wget-1.24.5.tar.gz" {
		t.Errorf("Sources = %+v", f.Sources)
	}
	if len(f.Sources[0].SHA256) != 64 {
		t.Errorf("Sources[0].SHA256 = %q, want 64 hex chars", f.Sources[0].SHA256)
	}
	if len(f.Dependencies) != 1 || f.Dependencies[0].Name != "openssl@3" {
		t.Errorf("Dependencies = %+v", f.Dependencies)
	}
	if len(f.BuildDependencies) != 1 || f.BuildDependencies[0].Name != "pkg-config" {
		t.Errorf("BuildDependencies = %+v", f.BuildDependencies)
	}
	if !strings.Contains(f.InstallScript, "configure") {
		t.Errorf("InstallScript = %q", f.InstallScript)
	}
	if !strings.Contains(f.TestScript, "--version") {
		t.Errorf("TestScript = %q", f.TestScript)
	}
	if len(f.BinaryPackages) != 3 {
		t.Fatalf("BinaryPackages = %d, want 3", len(f.BinaryPackages))
	}
	wantURL := "https://ghcr.io/v2/homebrew/core/wget/blobs/sha256:" + f.BinaryPackages[0].SHA256
	if f.BinaryPackages[0].URL != wantURL {
		t.Errorf("BinaryPackages[0].URL = %q, want %q", f.BinaryPackages[0].URL, wantURL)
	}
}

func TestParse_MissingClassHeader(t *testing.T) {
	_, err := Parse("bad.rb", "desc \"no class here\"\n")
	if err == nil {
		t.Fatal("expected error for missing class header")
	}
	if !errors.Is(err, brewerr.ErrFormulaParse) {
		t.Errorf("expected FormulaParse error, got %v", err)
	}
}

func TestParse_VersionedName(t *testing.T) {
	src := `class OpensslAT3 < Formula
  url "https://example.com/openssl-3.1.0.tar.gz"
end
`
	f, err := Parse("openssl@3.rb", src)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if f.Name != "openssl@3" {
		t.Errorf("Name = %q, want openssl@3", f.Name)
	}
}

func TestParse_NoURLNoBottle(t *testing.T) {
	src := `class Empty < Formula
  desc "nothing installable"
end
`
	f, err := Parse("empty.rb", src)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if f.HasInstallableSource() {
		t.Errorf("expected HasInstallableSource() = false")
	}
}

func TestParse_VersionDirectiveWins(t *testing.T) {
	src := `class Foo < Formula
  url "https://example.com/foo/archive/v9.9.9.tar.gz"
  version "1.0.0-custom"
end
`
	f, err := Parse("foo.rb", src)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if f.Version != "1.0.0-custom" {
		t.Errorf("Version = %q, want explicit directive to win", f.Version)
	}
}

func TestParse_UnknownVersionFallback(t *testing.T) {
	src := `class Foo < Formula
  url "https://example.com/foo.tar.gz"
end
`
	f, err := Parse("foo.rb", src)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if f.Version != "unknown" {
		t.Errorf("Version = %q, want unknown", f.Version)
	}
}
