package installer

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"

	"github.com/brewkeg/brewkeg/internal/brewerr"
)

var (
	gzipMagic = []byte{0x1F, 0x8B}
	xzMagic   = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	lzipMagic = []byte{'L', 'Z', 'I', 'P'}
)

// detectArchiveKind identifies path's archive format by extension first,
// falling back to magic-byte sniffing when the extension is ambiguous or
// absent. Returns UnknownArchive if neither recognizes it.
func detectArchiveKind(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", brewerr.NewUnknownArchive(path)
	}

	switch {
	case strings.HasSuffix(path, ".gz"), strings.HasSuffix(path, ".tgz"):
		return "gzip", nil
	case strings.HasSuffix(path, ".xz"):
		return "xz", nil
	case strings.HasSuffix(path, ".lz"):
		return "lzip", nil
	case strings.HasSuffix(path, ".bz2"):
		return "bzip2", nil
	}

	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return "gzip", nil
	case bytes.HasPrefix(head, xzMagic):
		return "xz", nil
	case bytes.HasPrefix(head, lzipMagic):
		return "lzip", nil
	}
	return "", brewerr.NewUnknownArchive(path)
}

// extractArchive decompresses and untars archivePath into destDir,
// dispatching on detectArchiveKind.
func extractArchive(archivePath, destDir string) error {
	kind, err := detectArchiveKind(archivePath)
	if err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch kind {
	case "gzip":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return brewerr.NewUnknownArchive(archivePath)
		}
		defer gz.Close()
		r = gz
	case "xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			return brewerr.NewUnknownArchive(archivePath)
		}
		r = xr
	case "lzip":
		lr, err := lzip.NewReader(f)
		if err != nil {
			return brewerr.NewUnknownArchive(archivePath)
		}
		r = lr
	default:
		return brewerr.NewUnknownArchive(archivePath)
	}

	return untar(r, destDir)
}

func untar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

// findSourceRoot locates the build root inside an extracted archive: the
// single top-level subdirectory when there is exactly one, else the
// extraction directory itself.
func findSourceRoot(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", err
	}

	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	if len(entries) == 1 && dirs != nil {
		return filepath.Join(extractDir, dirs[0].Name()), nil
	}
	return extractDir, nil
}

// findBottleRoot locates the <name>/<version>/… subtree inside an
// extracted bottle archive. It looks for that exact path first, then
// falls back to the first two-level directory found (top-level dir
// containing at least one subdirectory), since not every bottle names
// its top two levels after the formula name and version exactly.
func findBottleRoot(extractDir, name, version string) (string, error) {
	exact := filepath.Join(extractDir, name, version)
	if fi, err := os.Stat(exact); err == nil && fi.IsDir() {
		return exact, nil
	}

	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		top := filepath.Join(extractDir, e.Name())
		subEntries, err := os.ReadDir(top)
		if err != nil {
			continue
		}
		for _, se := range subEntries {
			if se.IsDir() {
				return filepath.Join(top, se.Name()), nil
			}
		}
	}
	return "", brewerr.NewUnknownArchive(extractDir)
}
