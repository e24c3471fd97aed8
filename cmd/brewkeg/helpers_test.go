package main

import (
	"errors"
	"testing"

	"github.com/brewkeg/brewkeg/internal/brewerr"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"package not found", brewerr.NewPackageNotFound("zlib"), ExitPackageNotFound},
		{"dependency resolution", brewerr.NewDependencyResolution("cycle"), ExitDependencyFailed},
		{"download failed", brewerr.NewDownloadFailed("http://x", errors.New("timeout")), ExitDownloadFailed},
		{"installation failed", brewerr.NewInstallationFailed("zlib", "1.0", errors.New("boom")), ExitInstallFailed},
		{"checksum mismatch", brewerr.NewChecksumMismatch("zlib", "a", "b"), ExitInstallFailed},
		{"tap error", brewerr.NewTapError("homebrew/core", errors.New("clone failed")), ExitTapFailed},
		{"unmapped error", errors.New("something else"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
