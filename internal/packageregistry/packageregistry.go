// Package packageregistry implements the Package Registry: the durable
// record of what is installed, used to detect reinstalls, find
// dependents before an uninstall, and check for available updates.
package packageregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/brewkeg/brewkeg/internal/formula"
	"github.com/brewkeg/brewkeg/internal/kvstore"
	"github.com/brewkeg/brewkeg/internal/log"
)

// Entry is the durable record of one installed package. Version is the
// formula's catalog version at install time; InstalledVersion is the
// version actually present on disk, tracked separately so a future
// partial/failed upgrade can be told apart from a clean reinstall.
type Entry struct {
	Name             string    `json:"name"`
	Version          string    `json:"version"`
	InstalledVersion string    `json:"installed_version"`
	InstallPath      string    `json:"install_path"`
	Dependencies     []string  `json:"dependencies,omitempty"`
	SizeBytes        int64     `json:"size_bytes,omitempty"`
	InstalledAt      time.Time `json:"installed_at"`
	Description      string    `json:"description,omitempty"`
	Homepage         string    `json:"homepage,omitempty"`
}

// Registry is the name-keyed store of installed-package Entries.
type Registry struct {
	store  *kvstore.Store
	logger log.Logger
}

// Open opens (creating if absent) the registry database at path.
func Open(path string) (*Registry, error) {
	store, err := kvstore.Open(path, "packages")
	if err != nil {
		return nil, err
	}
	return &Registry{store: store, logger: log.Default()}, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error { return r.store.Close() }

// IsInstalled reports whether name has a registry entry.
func (r *Registry) IsInstalled(ctx context.Context, name string) (bool, error) {
	return r.store.Has(ctx, name)
}

// Get returns name's Entry and whether it was present.
func (r *Registry) Get(ctx context.Context, name string) (*Entry, bool, error) {
	raw, ok, err := r.store.Get(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("decode entry %s: %w", name, err)
	}
	return &e, true, nil
}

// MarkInstalled records f as installed at installPath, stamped with the
// current time.
func (r *Registry) MarkInstalled(ctx context.Context, f *formula.Formula, installPath string) error {
	deps := make([]string, 0, len(f.Dependencies))
	for _, d := range f.Dependencies {
		deps = append(deps, d.Name)
	}
	e := Entry{
		Name:             f.Name,
		Version:          f.Version,
		InstalledVersion: f.Version,
		InstallPath:      installPath,
		Dependencies:     deps,
		InstalledAt:      time.Now(),
		Description:      f.Description,
		Homepage:         f.Homepage,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry %s: %w", f.Name, err)
	}
	return r.store.Put(ctx, f.Name, raw)
}

// MarkUninstalled removes name's registry entry.
func (r *Registry) MarkUninstalled(ctx context.Context, name string) error {
	return r.store.Delete(ctx, name)
}

// List returns every Entry whose name carries prefixFilter (an empty
// filter matches all), sorted by name.
func (r *Registry) List(ctx context.Context, prefixFilter string) ([]Entry, error) {
	var entries []Entry
	err := r.store.Iterate(ctx, func(key string, value []byte) error {
		if prefixFilter != "" && !strings.HasPrefix(key, prefixFilter) {
			return nil
		}
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode entry %s: %w", key, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// FindDependents returns every installed Entry that names name as a
// direct dependency. Matching is exact name equality, not substring
// containment.
func (r *Registry) FindDependents(ctx context.Context, name string) ([]Entry, error) {
	var dependents []Entry
	err := r.store.Iterate(ctx, func(key string, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode entry %s: %w", key, err)
		}
		for _, dep := range e.Dependencies {
			if dep == name {
				dependents = append(dependents, e)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(dependents, func(i, j int) bool { return dependents[i].Name < dependents[j].Name })
	return dependents, nil
}

// Update describes one package whose installed version lags the
// version a freshly parsed Formula reports.
type Update struct {
	Name      string
	Installed string
	Available string
}

// CheckUpdates compares each installed package's recorded version (or,
// if names is non-empty, only those named) against the version latest
// returns for it, using semantic-version ordering. Formulae latest
// cannot resolve are skipped.
func (r *Registry) CheckUpdates(ctx context.Context, names []string, latest func(name string) (*formula.Formula, error)) ([]Update, error) {
	entries, err := r.List(ctx, "")
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var updates []Update
	for _, e := range entries {
		if len(names) > 0 && !wanted[e.Name] {
			continue
		}
		f, err := latest(e.Name)
		if err != nil {
			continue
		}
		newer, err := isNewer(f.Version, e.Version)
		if err != nil || !newer {
			continue
		}
		updates = append(updates, Update{Name: e.Name, Installed: e.Version, Available: f.Version})
	}
	return updates, nil
}

// isNewer reports whether candidate outranks installed under semantic
// versioning, falling back to a plain string comparison when either
// side fails to parse as semver (Homebrew formula versions are not
// always strict semver).
func isNewer(candidate, installed string) (bool, error) {
	cv, cErr := semver.NewVersion(candidate)
	iv, iErr := semver.NewVersion(installed)
	if cErr == nil && iErr == nil {
		return cv.GreaterThan(iv), nil
	}
	return candidate != installed && candidate > installed, nil
}
