package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/brewkeg/brewkeg/internal/brewerr"
	"github.com/brewkeg/brewkeg/internal/config"
	"github.com/brewkeg/brewkeg/internal/download"
	"github.com/brewkeg/brewkeg/internal/formula"
	"github.com/brewkeg/brewkeg/internal/formulacache"
	"github.com/brewkeg/brewkeg/internal/installer"
	"github.com/brewkeg/brewkeg/internal/packageregistry"
	"github.com/brewkeg/brewkeg/internal/resolver"
	"github.com/brewkeg/brewkeg/internal/searchindex"
	"github.com/brewkeg/brewkeg/internal/tap"
)

// application bundles every long-lived component command handlers share.
type application struct {
	cfg        *config.Config
	taps       *tap.Store
	cache      *formulacache.Cache
	registry   *packageregistry.Registry
	index      *searchindex.Index
	downloader *download.Downloader
	resolver   *resolver.Resolver
	installer  *installer.Installer
}

var app *application

// initApp wires every component from the resolved Config, run once in
// PersistentPreRunE before any command body executes.
func initApp() error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	taps, err := tap.Open(cfg.TapsDir, cfg.TapsDBPath)
	if err != nil {
		return fmt.Errorf("open tap registry: %w", err)
	}
	registry, err := packageregistry.Open(cfg.PackagesDBPath)
	if err != nil {
		return fmt.Errorf("open package registry: %w", err)
	}
	index, err := searchindex.Open(cfg.SearchIndexDir)
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}

	cache := formulacache.New(cfg.FormulaeCacheDir, config.GetFormulaCacheTTL())
	downloader := download.New(config.GetDownloadTimeout(), config.GetDownloadConcurrency())

	a := &application{
		cfg:        cfg,
		taps:       taps,
		cache:      cache,
		registry:   registry,
		index:      index,
		downloader: downloader,
		installer:  installer.New(cfg, downloader),
	}
	a.resolver = resolver.New(a.lookupFormula)
	app = a
	return nil
}

// closeApp releases every handle initApp opened.
func closeApp() {
	if app == nil {
		return
	}
	app.taps.Close()
	app.registry.Close()
	app.index.Close()
}

// lookupFormula satisfies resolver.Lookup: cache first, then the tap
// registry's recursive Formula/ scan, caching the parsed result.
func (a *application) lookupFormula(ctx context.Context, name string) (*formula.Formula, error) {
	if f, ok := a.cache.Get(name); ok {
		return f, nil
	}

	path, err := a.taps.FindFormula(ctx, name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, brewerr.NewFormulaParse(path, err.Error())
	}
	f, err := formula.Parse(path, string(src))
	if err != nil {
		return nil, err
	}
	if err := a.cache.Put(f); err != nil {
		return nil, fmt.Errorf("cache formula %s: %w", name, err)
	}
	return f, nil
}

// resolveUserFormula applies the alias table before lookup, falling
// back to the name as the user typed it if the aliased lookup fails.
func (a *application) resolveUserFormula(ctx context.Context, name string) (*formula.Formula, error) {
	aliased := resolveAlias(name)
	f, err := a.lookupFormula(ctx, aliased)
	if err == nil {
		return f, nil
	}
	if aliased == name {
		return nil, err
	}
	return a.lookupFormula(ctx, name)
}

// tapNameFor returns the name of whichever registered tap owns name's
// formula file, or "" if it can't be determined (FindFormula fails, or
// no registered tap's path contains the file).
func (a *application) tapNameFor(ctx context.Context, name string) string {
	path, err := a.taps.FindFormula(ctx, name)
	if err != nil {
		return ""
	}
	taps, err := a.taps.List(ctx)
	if err != nil {
		return ""
	}
	for _, t := range taps {
		if strings.HasPrefix(path, t.Path) {
			return t.Name
		}
	}
	return ""
}

// tapSources converts every registered tap into a searchindex.TapSource.
func (a *application) tapSources(ctx context.Context) ([]searchindex.TapSource, error) {
	taps, err := a.taps.List(ctx)
	if err != nil {
		return nil, err
	}
	sources := make([]searchindex.TapSource, 0, len(taps))
	for _, t := range taps {
		sources = append(sources, searchindex.TapSource{Name: t.Name, Path: t.Path})
	}
	return sources, nil
}

// exitCodeFor maps a brewkeg error kind to a process exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, brewerr.ErrPackageNotFound):
		return ExitPackageNotFound
	case errors.Is(err, brewerr.ErrDependencyResolution):
		return ExitDependencyFailed
	case errors.Is(err, brewerr.ErrDownloadFailed):
		return ExitDownloadFailed
	case errors.Is(err, brewerr.ErrInstallationFailed), errors.Is(err, brewerr.ErrChecksumMismatch):
		return ExitInstallFailed
	case errors.Is(err, brewerr.ErrTap):
		return ExitTapFailed
	default:
		return ExitGeneral
	}
}

func printInfo(a ...interface{}) {
	if !quietFlag {
		fmt.Println(a...)
	}
}

func printInfof(format string, a ...interface{}) {
	if !quietFlag {
		fmt.Printf(format, a...)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exitWithCode(ExitGeneral)
	}
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}
