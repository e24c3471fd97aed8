// Package installer implements the install state machine: try a
// platform binary package first, fall back to building from source, then
// link the result's binaries into the prefix. Recording the install in
// the package registry is left to the caller.
package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/brewkeg/brewkeg/internal/brewerr"
	"github.com/brewkeg/brewkeg/internal/config"
	"github.com/brewkeg/brewkeg/internal/download"
	"github.com/brewkeg/brewkeg/internal/formula"
	"github.com/brewkeg/brewkeg/internal/log"
)

// Installer drives TryBinary/TrySource/Link for a single Formula.
type Installer struct {
	cfg        *config.Config
	downloader *download.Downloader
	logger     log.Logger

	// Progress, when set, is forwarded to every download this Installer
	// performs. Left nil for non-interactive callers.
	Progress download.ProgressFunc
}

// New returns an Installer rooted at cfg's prefix/cellar layout.
func New(cfg *config.Config, downloader *download.Downloader) *Installer {
	return &Installer{cfg: cfg, downloader: downloader, logger: log.Default()}
}

// Result describes where a Formula ended up after a successful install.
type Result struct {
	Name        string
	Version     string
	InstallPath string
	FromSource  bool
}

// Install runs the state machine for f: TryBinary unless buildFromSource
// or no matching binary package exists, then TrySource, then Link.
// Fails with AlreadyInstalled when the cellar entry already exists and
// force is not set.
func (i *Installer) Install(ctx context.Context, f *formula.Formula, buildFromSource, force bool) (*Result, error) {
	installPath := i.cfg.CellarPath(f.Name, f.Version)
	if !force {
		if _, err := os.Stat(installPath); err == nil {
			return nil, brewerr.NewAlreadyInstalled(f.Name)
		}
	}

	if avail := availableBytes(i.cfg.Prefix); avail >= 0 && avail < lowDiskThreshold {
		i.logger.Warn("low disk space", "prefix", i.cfg.Prefix, "available_bytes", avail)
	}

	fromSource := buildFromSource
	if !fromSource {
		if err := i.tryBinary(ctx, f, installPath); err != nil {
			i.logger.Warn("binary install failed, falling back to source", "name", f.Name, "error", err)
			fromSource = true
		}
	}

	if fromSource {
		if err := i.trySource(ctx, f, installPath); err != nil {
			return nil, err
		}
	}

	if err := i.link(f.Name, installPath); err != nil {
		return nil, err
	}

	return &Result{Name: f.Name, Version: f.Version, InstallPath: installPath, FromSource: fromSource}, nil
}

// fetch downloads url to dest, retrying once via FetchResume (picking up
// from whatever partial bytes the first attempt left on disk) before
// surfacing the failure.
func (i *Installer) fetch(ctx context.Context, url, dest string) error {
	err := i.downloader.Fetch(ctx, url, dest, i.Progress)
	if err == nil {
		return nil
	}
	i.logger.Warn("download failed, retrying with resume", "url", url, "error", err)
	return i.downloader.FetchResume(ctx, url, dest, i.Progress)
}

// tryBinary selects the binary package matching the host platform/arch,
// fetches it, verifies its checksum, and extracts it into installPath.
func (i *Installer) tryBinary(ctx context.Context, f *formula.Formula, installPath string) error {
	pkg, ok := f.BinaryFor(HostPlatform(), HostArch())
	if !ok {
		return brewerr.NewInstallationFailed(f.Name, f.Version, fmt.Errorf("no binary package for %s/%s", HostPlatform(), HostArch()))
	}

	tmp, err := os.MkdirTemp("", "brewkeg-bin-*")
	if err != nil {
		return brewerr.NewInstallationFailed(f.Name, f.Version, err)
	}
	defer os.RemoveAll(tmp)

	archivePath := filepath.Join(tmp, "package.archive")
	if err := i.fetch(ctx, pkg.URL, archivePath); err != nil {
		return err
	}
	if err := verifyChecksum(archivePath, pkg.SHA256); err != nil {
		return err
	}

	extractDir := filepath.Join(tmp, "extracted")
	if err := extractArchive(archivePath, extractDir); err != nil {
		return err
	}

	srcRoot, err := findBottleRoot(extractDir, f.Name, f.Version)
	if err != nil {
		return brewerr.NewInstallationFailed(f.Name, f.Version, err)
	}

	if err := os.MkdirAll(filepath.Dir(installPath), 0755); err != nil {
		return brewerr.NewInstallationFailed(f.Name, f.Version, err)
	}
	os.RemoveAll(installPath)
	if err := copyTree(srcRoot, installPath); err != nil {
		return brewerr.NewInstallationFailed(f.Name, f.Version, err)
	}
	return nil
}

// trySource fetches the formula's primary source (a git clone for .git
// URLs, otherwise an archive), builds it via install_script's system
// invocations or the default configure/make/make-install chain, and
// leaves the result at installPath.
func (i *Installer) trySource(ctx context.Context, f *formula.Formula, installPath string) error {
	if len(f.Sources) == 0 {
		return brewerr.NewInstallationFailed(f.Name, f.Version, fmt.Errorf("no source available"))
	}
	src := f.Sources[0]

	tmp, err := os.MkdirTemp("", "brewkeg-src-*")
	if err != nil {
		return brewerr.NewInstallationFailed(f.Name, f.Version, err)
	}
	defer os.RemoveAll(tmp)

	buildRoot := filepath.Join(tmp, "build")

	if strings.HasSuffix(src.URL, ".git") {
		if _, err := git.PlainCloneContext(ctx, buildRoot, false, &git.CloneOptions{
			URL:   src.URL,
			Depth: 1,
		}); err != nil {
			return brewerr.NewDownloadFailed(src.URL, err)
		}
	} else {
		archivePath := filepath.Join(tmp, "source.archive")
		if err := i.fetch(ctx, src.URL, archivePath); err != nil {
			return err
		}
		if src.SHA256 != "" {
			if err := verifyChecksum(archivePath, src.SHA256); err != nil {
				return err
			}
		}

		extractDir := filepath.Join(tmp, "extracted")
		if err := extractArchive(archivePath, extractDir); err != nil {
			return err
		}
		root, err := findSourceRoot(extractDir)
		if err != nil {
			return brewerr.NewInstallationFailed(f.Name, f.Version, err)
		}
		buildRoot = root
	}

	if err := os.MkdirAll(installPath, 0755); err != nil {
		return brewerr.NewInstallationFailed(f.Name, f.Version, err)
	}

	if err := i.build(ctx, f, buildRoot, installPath); err != nil {
		return err
	}
	return nil
}

// build executes install_script's system "..." invocations in order when
// present, otherwise the default ./configure --prefix=<installPath>,
// make, make install chain (configure only run when the script exists).
func (i *Installer) build(ctx context.Context, f *formula.Formula, buildRoot, installPath string) error {
	env := append(os.Environ(),
		"PREFIX="+installPath,
		"HOMEBREW_PREFIX="+i.cfg.Prefix,
	)

	var commands [][]string
	if f.InstallScript != "" {
		for _, raw := range extractSystemCommands(f.InstallScript) {
			raw = strings.ReplaceAll(raw, "#{prefix}", installPath)
			raw = strings.ReplaceAll(raw, "#{version}", f.Version)
			if fields := strings.Fields(raw); len(fields) > 0 {
				commands = append(commands, fields)
			}
		}
	} else {
		commands = defaultBuildCommands(buildRoot, installPath)
	}

	for _, args := range commands {
		if len(args) == 0 {
			continue
		}
		cmd := exec.CommandContext(ctx, args[0], args[1:]...)
		cmd.Dir = buildRoot
		cmd.Env = env
		out, err := cmd.CombinedOutput()
		if err != nil {
			return brewerr.NewInstallationFailed(f.Name, f.Version, fmt.Errorf("%s: %w: %s", strings.Join(args, " "), err, out))
		}
	}
	return nil
}

// defaultBuildCommands runs ./configure (when present in buildRoot), make,
// and make install, each prefixed to installPath.
func defaultBuildCommands(buildRoot, installPath string) [][]string {
	var cmds [][]string
	if _, err := os.Stat(filepath.Join(buildRoot, "configure")); err == nil {
		cmds = append(cmds, []string{"./configure", "--prefix=" + installPath})
	}
	cmds = append(cmds, []string{"make"}, []string{"make", "install"})
	return cmds
}

// extractSystemCommands parses a Ruby install_script body for
// system "..." invocation lines, returning the first quoted token of
// each as a raw (unsplit) command string, in the order encountered.
// Multi-argument system calls are not interpreted in full: only their
// first quoted token is kept, so system "make", "install" yields "make".
func extractSystemCommands(script string) []string {
	var commands []string
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "system") {
			continue
		}
		if token := firstQuotedString(line); token != "" {
			commands = append(commands, token)
		}
	}
	return commands
}

// firstQuotedString returns the first double-quoted string literal on
// line, or "" if none is present.
func firstQuotedString(line string) string {
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return ""
	}
	rest := line[start+1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// link symlinks every regular file in <installPath>/bin into the
// prefix's bin directory, replacing any existing entry of the same name.
func (i *Installer) link(name, installPath string) error {
	binSrc := filepath.Join(installPath, "bin")
	entries, err := os.ReadDir(binSrc)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return brewerr.NewInstallationFailed(name, "", err)
	}

	if err := os.MkdirAll(i.cfg.BinDir(), 0755); err != nil {
		return brewerr.NewInstallationFailed(name, "", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(binSrc, e.Name())
		dst := filepath.Join(i.cfg.BinDir(), e.Name())
		os.Remove(dst)
		if err := os.Symlink(src, dst); err != nil {
			return brewerr.NewInstallationFailed(name, "", err)
		}
	}
	return nil
}

// Uninstall removes name's symlinks from the prefix's bin directory and
// deletes its cellar install directory.
func (i *Installer) Uninstall(name, installPath string) error {
	if installPath == "" {
		return brewerr.NewPathUnknown(name)
	}

	entries, err := os.ReadDir(i.cfg.BinDir())
	if err == nil {
		marker := "/Cellar/" + name + "/"
		for _, e := range entries {
			path := filepath.Join(i.cfg.BinDir(), e.Name())
			target, err := os.Readlink(path)
			if err != nil {
				continue
			}
			if strings.Contains(target, marker) {
				os.Remove(path)
			}
		}
	}

	if err := os.RemoveAll(installPath); err != nil {
		return brewerr.NewInstallationFailed(name, "", err)
	}
	return nil
}

func verifyChecksum(path, expected string) error {
	if expected == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return brewerr.NewInstallationFailed(filepath.Base(path), "", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return brewerr.NewInstallationFailed(filepath.Base(path), "", err)
	}
	actual := hex.EncodeToString(h.Sum(nil))
	if actual != expected {
		return brewerr.NewChecksumMismatch(path, expected, actual)
	}
	return nil
}
