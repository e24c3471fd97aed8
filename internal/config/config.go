// Package config resolves brewkeg's on-disk layout and environment-driven
// tunables: the install prefix (Cellar + bin), the data root (taps,
// registries, search index), and the cache root (formula cache, download
// cache). Every getter here falls back to a documented default on an
// invalid environment value instead of failing the process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// EnvPrefix overrides install-prefix detection outright.
	EnvPrefix = "BREWKEG_PREFIX"

	// EnvHome overrides the data root (taps/, packages.db, taps.db, search_index/).
	EnvHome = "BREWKEG_HOME"

	// EnvCacheDir overrides the cache root (formulae/, data/, cache.db).
	EnvCacheDir = "BREWKEG_CACHE_DIR"

	// EnvAPITimeout configures the HTTP client timeout for formula/API requests.
	EnvAPITimeout = "BREWKEG_API_TIMEOUT"

	// EnvDownloadTimeout configures the wall-clock timeout for archive downloads.
	EnvDownloadTimeout = "BREWKEG_DOWNLOAD_TIMEOUT"

	// EnvFormulaCacheTTL configures how long a cached formula record is trusted.
	EnvFormulaCacheTTL = "BREWKEG_FORMULA_CACHE_TTL"

	// EnvDownloadConcurrency bounds fetch_many's concurrent fan-out.
	EnvDownloadConcurrency = "BREWKEG_DOWNLOAD_CONCURRENCY"

	// DefaultAPITimeout is used when EnvAPITimeout is unset or invalid.
	DefaultAPITimeout = 30 * time.Second

	// DefaultDownloadTimeout matches spec's "wall-clock timeout (default 300s)".
	DefaultDownloadTimeout = 300 * time.Second

	// DefaultFormulaCacheTTL of zero means "no expiry" (cache invalidated
	// wholesale on tap update, per the data model).
	DefaultFormulaCacheTTL = 0 * time.Second

	// DefaultDownloadConcurrency bounds fetch_many when unset or invalid.
	DefaultDownloadConcurrency = 4
)

// fileOverrides is the shape of the optional TOML config file
// ($BREWKEG_HOME/config.toml, default ~/.brewkeg/config.toml): a lower-
// precedence source of the same tunables the BREWKEG_* env vars set.
// Every field is optional; an absent or unreadable file yields a zero
// value, which getDuration/GetDownloadConcurrency treat as "no override".
type fileOverrides struct {
	Prefix              string `toml:"prefix"`
	APITimeout          string `toml:"api_timeout"`
	DownloadTimeout     string `toml:"download_timeout"`
	FormulaCacheTTL     string `toml:"formula_cache_ttl"`
	DownloadConcurrency int    `toml:"download_concurrency"`
}

// configFilePath returns the TOML config file's location: $BREWKEG_HOME/
// config.toml when set, else ~/.brewkeg/config.toml.
func configFilePath() string {
	if home := os.Getenv(EnvHome); home != "" {
		return filepath.Join(home, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".brewkeg", "config.toml")
}

// loadedOverrides parses the config file. A missing file is silent
// (file-based config is entirely optional); a malformed file prints a
// warning to stderr and otherwise behaves as if absent. Re-read on every call rather than cached,
// since it's only ever consulted a handful of times per process.
func loadedOverrides() fileOverrides {
	var overrides fileOverrides
	path := configFilePath()
	if path == "" {
		return overrides
	}
	if _, err := toml.DecodeFile(path, &overrides); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: ignoring malformed config file %s: %v\n", path, err)
	}
	return overrides
}

// GetAPITimeout reads EnvAPITimeout (falling back to the config file,
// then the default), range-validated to [1s, 10m].
func GetAPITimeout() time.Duration {
	return getDuration(EnvAPITimeout, loadedOverrides().APITimeout, DefaultAPITimeout, 1*time.Second, 10*time.Minute)
}

// GetDownloadTimeout reads EnvDownloadTimeout (falling back to the config
// file, then the default), range-validated to [1s, 1h].
func GetDownloadTimeout() time.Duration {
	return getDuration(EnvDownloadTimeout, loadedOverrides().DownloadTimeout, DefaultDownloadTimeout, 1*time.Second, 1*time.Hour)
}

// GetFormulaCacheTTL reads EnvFormulaCacheTTL (falling back to the config
// file, then the default), range-validated to [0, 30d]. Zero means
// entries never expire on TTL alone (they still fall on tap update
// invalidation).
func GetFormulaCacheTTL() time.Duration {
	return getDuration(EnvFormulaCacheTTL, loadedOverrides().FormulaCacheTTL, DefaultFormulaCacheTTL, 0, 30*24*time.Hour)
}

// GetDownloadConcurrency reads EnvDownloadConcurrency (falling back to
// the config file, then the default), range-validated to [1, 32].
func GetDownloadConcurrency() int {
	def := DefaultDownloadConcurrency
	if fileN := loadedOverrides().DownloadConcurrency; fileN > 0 {
		def = fileN
	}

	envValue := os.Getenv(EnvDownloadConcurrency)
	if envValue == "" {
		return clampInt(def, 1, 32, EnvDownloadConcurrency)
	}
	n, err := strconv.Atoi(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %d\n", EnvDownloadConcurrency, envValue, def)
		return clampInt(def, 1, 32, EnvDownloadConcurrency)
	}
	return clampInt(n, 1, 32, EnvDownloadConcurrency)
}

func clampInt(n, min, max int, envName string) int {
	if n < min {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%d), using minimum %d\n", envName, n, min)
		return min
	}
	if n > max {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%d), using maximum %d\n", envName, n, max)
		return max
	}
	return n
}

// getDuration resolves envName, falling back to fileValue (itself a
// duration string from the TOML config file, possibly empty) and then
// def, range-validated to [min, max].
func getDuration(envName, fileValue string, def, min, max time.Duration) time.Duration {
	fallback := def
	if fileValue != "" {
		if d, err := time.ParseDuration(fileValue); err == nil {
			fallback = d
		}
	}

	envValue := os.Getenv(envName)
	if envValue == "" {
		return fallback
	}
	d, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n", envName, envValue, fallback)
		return fallback
	}
	if d < min {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n", envName, d, min)
		return min
	}
	if d > max {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n", envName, d, max)
		return max
	}
	return d
}

// ParseByteSize parses a human-readable byte size string into bytes.
// Accepts plain numbers, K/KB, M/MB, G/GB suffixes, case-insensitive.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	s = strings.ToUpper(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	var numStr, suffix string
	for i, c := range s {
		if c >= '0' && c <= '9' || c == '.' {
			numStr += string(c)
		} else {
			suffix = s[i:]
			break
		}
	}
	if numStr == "" {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number: %q", numStr)
	}

	var multiplier float64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("invalid size suffix: %q", suffix)
	}
	return int64(num * multiplier), nil
}

// DefaultHomeOverride can be set by the binary's main package (via
// ldflags) to change the default data-root directory for dev builds.
// EnvHome still takes precedence.
var DefaultHomeOverride string

// Config holds brewkeg's resolved on-disk layout.
type Config struct {
	Prefix string // install prefix; holds Cellar/ and bin/

	HomeDir       string // data root
	TapsDir       string // $HomeDir/taps
	PackagesDBPath string // $HomeDir/packages.db
	TapsDBPath    string // $HomeDir/taps.db
	SearchIndexDir string // $HomeDir/search_index

	CacheDir         string // cache root
	FormulaeCacheDir string // $CacheDir/formulae (<name>.json sidecars)
	DownloadCacheDir string // $CacheDir/data
	CacheDBPath      string // $CacheDir/cache.db
}

// ResolvePrefix implements the install-prefix detection order: env
// override; config-file prefix; macOS/aarch64 with /opt/homebrew/bin/brew
// present; else /usr/local if /usr/local/bin/brew exists; else
// /opt/homebrew if that brew exists; else /usr/local. exists is injected
// for testability (normally a stat-based check such as PathExists).
func ResolvePrefix(exists func(path string) bool) string {
	if p := os.Getenv(EnvPrefix); p != "" {
		return p
	}
	if p := loadedOverrides().Prefix; p != "" {
		return p
	}
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" && exists("/opt/homebrew/bin/brew") {
		return "/opt/homebrew"
	}
	if exists("/usr/local/bin/brew") {
		return "/usr/local"
	}
	if exists("/opt/homebrew/bin/brew") {
		return "/opt/homebrew"
	}
	return "/usr/local"
}

// PathExists is the production exists func for ResolvePrefix.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultConfig resolves HomeDir/CacheDir/Prefix from environment and host
// probes, deriving the rest of the layout from them.
func DefaultConfig() (*Config, error) {
	homeDir := os.Getenv(EnvHome)
	if homeDir == "" {
		if DefaultHomeOverride != "" {
			homeDir = DefaultHomeOverride
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			homeDir = filepath.Join(home, ".brewkeg")
		}
	}

	cacheDir := os.Getenv(EnvCacheDir)
	if cacheDir == "" {
		cacheDir = filepath.Join(homeDir, "cache")
	}

	prefix := ResolvePrefix(PathExists)

	return &Config{
		Prefix: prefix,

		HomeDir:        homeDir,
		TapsDir:        filepath.Join(homeDir, "taps"),
		PackagesDBPath: filepath.Join(homeDir, "packages.db"),
		TapsDBPath:     filepath.Join(homeDir, "taps.db"),
		SearchIndexDir: filepath.Join(homeDir, "search_index"),

		CacheDir:         cacheDir,
		FormulaeCacheDir: filepath.Join(cacheDir, "formulae"),
		DownloadCacheDir: filepath.Join(cacheDir, "data"),
		CacheDBPath:      filepath.Join(cacheDir, "cache.db"),
	}, nil
}

// EnsureDirectories creates every directory this Config names.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Prefix,
		filepath.Join(c.Prefix, "Cellar"),
		filepath.Join(c.Prefix, "bin"),
		c.HomeDir,
		c.TapsDir,
		c.SearchIndexDir,
		c.CacheDir,
		c.FormulaeCacheDir,
		c.DownloadCacheDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CellarPath returns <prefix>/Cellar/<name>/<version>.
func (c *Config) CellarPath(name, version string) string {
	return filepath.Join(c.Prefix, "Cellar", name, version)
}

// CellarNameDir returns <prefix>/Cellar/<name>.
func (c *Config) CellarNameDir(name string) string {
	return filepath.Join(c.Prefix, "Cellar", name)
}

// BinDir returns <prefix>/bin.
func (c *Config) BinDir() string {
	return filepath.Join(c.Prefix, "bin")
}
