// Package tap implements the Tap Store: local checkouts of formula
// repositories, registered in a durable name-keyed registry.
package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/google/go-github/v57/github"

	"github.com/brewkeg/brewkeg/internal/brewerr"
	"github.com/brewkeg/brewkeg/internal/kvstore"
	"github.com/brewkeg/brewkeg/internal/log"
)

var errNotOrgRepo = fmt.Errorf("tap name must be org/short")

// Tap is a local checkout of a formula repository.
type Tap struct {
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	Path      string     `json:"path"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Store owns the taps subtree and the durable tap registry.
type Store struct {
	tapsDir string
	reg     *kvstore.Store
	logger  log.Logger
	github  *github.Client
}

// Open opens the tap registry at dbPath, rooted at tapsDir.
func Open(tapsDir, dbPath string) (*Store, error) {
	reg, err := kvstore.Open(dbPath, "taps")
	if err != nil {
		return nil, err
	}
	return &Store{tapsDir: tapsDir, reg: reg, logger: log.Default(), github: newGitHubClient()}, nil
}

// Close releases the registry handle.
func (s *Store) Close() error { return s.reg.Close() }

// resolveURL composes the upstream clone URL for a bare name, normalizing
// the "homebrew" org to "Homebrew" per the upstream naming convention.
func resolveURL(name string) (string, error) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("tap name must be org/short, got %q", name)
	}
	org, repo := parts[0], parts[1]
	if strings.EqualFold(org, "homebrew") {
		org = "Homebrew"
	}
	return fmt.Sprintf("https://github.com/%s/homebrew-%s.git", org, repo), nil
}

func localPath(tapsDir, name string) string {
	return filepath.Join(tapsDir, strings.ReplaceAll(name, "/", "-"))
}

// Add resolves the clone URL (or uses the override), shallow-clones into
// the taps subtree, and registers the tap.
func (s *Store) Add(ctx context.Context, name string, url string) (*Tap, error) {
	if ok, err := s.reg.Has(ctx, name); err != nil {
		return nil, err
	} else if ok {
		return nil, brewerr.NewTapError(name, fmt.Errorf("tap already exists"))
	}

	if url == "" {
		if canonical, err := s.canonicalCloneURL(ctx, name); err == nil {
			url = canonical
		} else {
			s.logger.Debug("github lookup failed, falling back to constructed URL", "tap", name, "error", err)
			u, err := resolveURL(name)
			if err != nil {
				return nil, brewerr.NewTapError(name, err)
			}
			url = u
		}
	}

	path := localPath(s.tapsDir, name)
	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return nil, brewerr.NewTapError(name, fmt.Errorf("clone: %w", err))
	}

	now := time.Now()
	t := &Tap{Name: name, URL: url, Path: path, UpdatedAt: &now}
	if err := s.put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Remove deletes the on-disk checkout and the registry entry.
func (s *Store) Remove(ctx context.Context, name string) error {
	t, err := s.get(ctx, name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(t.Path); err != nil {
		return brewerr.NewTapError(name, fmt.Errorf("remove checkout: %w", err))
	}
	return s.reg.Delete(ctx, name)
}

// List returns all taps sorted by name.
func (s *Store) List(ctx context.Context) ([]*Tap, error) {
	var taps []*Tap
	err := s.reg.Iterate(ctx, func(key string, value []byte) error {
		var t Tap
		if err := json.Unmarshal(value, &t); err != nil {
			return nil
		}
		taps = append(taps, &t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(taps, func(i, j int) bool { return taps[i].Name < taps[j].Name })
	return taps, nil
}

// Update fast-forward pulls a single tap and refreshes its UpdatedAt.
func (s *Store) Update(ctx context.Context, name string) error {
	t, err := s.get(ctx, name)
	if err != nil {
		return err
	}
	repo, err := git.PlainOpen(t.Path)
	if err != nil {
		return brewerr.NewTapError(name, fmt.Errorf("open checkout: %w", err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return brewerr.NewTapError(name, fmt.Errorf("worktree: %w", err))
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Depth:      1,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return brewerr.NewTapError(name, fmt.Errorf("pull: %w", err))
	}

	now := time.Now()
	t.UpdatedAt = &now
	return s.put(ctx, t)
}

// UpdateAll fast-forward pulls every registered tap. Individual failures
// are logged and do not abort the bulk update.
func (s *Store) UpdateAll(ctx context.Context) error {
	taps, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range taps {
		if err := s.Update(ctx, t.Name); err != nil {
			s.logger.Warn("tap update failed", "tap", t.Name, "error", err)
		}
	}
	return nil
}

// FindFormula searches each tap's Formula/ subtree (flat, then sharded,
// then the legacy HomebrewFormula/ location) for a file whose stem equals
// name, returning the first hit.
func (s *Store) FindFormula(ctx context.Context, name string) (string, error) {
	taps, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range taps {
		flat := filepath.Join(t.Path, "Formula", name+".rb")
		if fileExists(flat) {
			return flat, nil
		}
		formulaDir := filepath.Join(t.Path, "Formula")
		if hit := findInDir(formulaDir, name); hit != "" {
			return hit, nil
		}
		legacy := filepath.Join(t.Path, "HomebrewFormula", name+".rb")
		if fileExists(legacy) {
			return legacy, nil
		}
	}
	return "", brewerr.NewPackageNotFound(name)
}

func findInDir(dir, name string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if hit := findInDir(p, name); hit != "" {
				return hit
			}
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if stem == name && strings.HasSuffix(e.Name(), ".rb") {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ImportExternal registers every <root>/<org>/<repo> two-level directory
// as a tap named org/short (short = repo with a leading "homebrew-"
// stripped). Existing entries are left untouched.
func (s *Store) ImportExternal(ctx context.Context, root string) error {
	orgs, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read external root: %w", err)
	}
	for _, orgEntry := range orgs {
		if !orgEntry.IsDir() {
			continue
		}
		orgPath := filepath.Join(root, orgEntry.Name())
		repos, err := os.ReadDir(orgPath)
		if err != nil {
			continue
		}
		for _, repoEntry := range repos {
			if !repoEntry.IsDir() {
				continue
			}
			short := strings.TrimPrefix(repoEntry.Name(), "homebrew-")
			name := orgEntry.Name() + "/" + short
			if ok, _ := s.reg.Has(ctx, name); ok {
				continue
			}
			path := filepath.Join(orgPath, repoEntry.Name())
			t := &Tap{Name: name, URL: "file://" + path, Path: path}
			if err := s.put(ctx, t); err != nil {
				s.logger.Warn("import external tap failed", "name", name, "error", err)
			}
		}
	}
	return nil
}

func (s *Store) get(ctx context.Context, name string) (*Tap, error) {
	val, ok, err := s.reg.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, brewerr.NewPackageNotFound(name)
	}
	var t Tap
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, brewerr.NewTapError(name, fmt.Errorf("corrupt registry entry: %w", err))
	}
	return &t, nil
}

func (s *Store) put(ctx context.Context, t *Tap) error {
	data, err := json.Marshal(t)
	if err != nil {
		return brewerr.NewTapError(t.Name, err)
	}
	return s.reg.Put(ctx, t.Name, data)
}
