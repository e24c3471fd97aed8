// Package resolver implements the dependency resolver: expanding a root
// Formula's dependency graph by name lookup and producing a topologically
// sorted install order.
package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/brewkeg/brewkeg/internal/brewerr"
	"github.com/brewkeg/brewkeg/internal/formula"
	"github.com/brewkeg/brewkeg/internal/log"
)

// Lookup retrieves a Formula by name, as backed by the Formula Cache/Parser.
type Lookup func(ctx context.Context, name string) (*formula.Formula, error)

// Resolver expands and orders a Formula's dependency graph.
type Resolver struct {
	lookup Lookup
	logger log.Logger
}

// New returns a Resolver that looks up dependency Formulae via lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, logger: log.Default()}
}

// Resolve returns, in topological order, every Formula that root depends
// on (directly or transitively), excluding root itself.
func (r *Resolver) Resolve(ctx context.Context, root *formula.Formula) ([]*formula.Formula, error) {
	expanded, err := r.expand(ctx, root)
	if err != nil {
		return nil, err
	}
	return topoSort(expanded)
}

// expand performs the BFS expansion phase: queue seeded from non-optional
// runtime deps plus all build deps, substitution fallback on lookup
// failure, symmetric conflict checks against the already-expanded set.
func (r *Resolver) expand(ctx context.Context, root *formula.Formula) ([]*formula.Formula, error) {
	seen := map[string]bool{}
	queue := root.AllRuntimeDeps()
	var resolved []*formula.Formula

	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]

		if seen[dep.Name] {
			continue
		}
		seen[dep.Name] = true

		depFormula, err := r.lookupWithFallback(ctx, dep.Name)
		if err != nil {
			r.logger.Warn("could not resolve dependency, skipping", "name", dep.Name, "error", err)
			continue
		}

		if err := checkConflicts(depFormula, resolved); err != nil {
			return nil, err
		}

		for _, sub := range depFormula.AllRuntimeDeps() {
			if !seen[sub.Name] {
				queue = append(queue, sub)
			}
		}

		resolved = append(resolved, depFormula)
	}
	return resolved, nil
}

// lookupWithFallback tries name as given, then each substitution in order,
// accepting the first that resolves.
func (r *Resolver) lookupWithFallback(ctx context.Context, name string) (*formula.Formula, error) {
	f, err := r.lookup(ctx, name)
	if err == nil {
		return f, nil
	}

	for _, variant := range substitutions(name) {
		if variant == name {
			continue
		}
		if f, err := r.lookup(ctx, variant); err == nil {
			r.logger.Info("resolved dependency via substitution", "from", name, "to", variant)
			return f, nil
		}
	}
	return nil, err
}

// substitutions produces the candidate name variants, in the fixed order
// the resolver tries them.
func substitutions(name string) []string {
	return []string{
		strings.ReplaceAll(name, "@", "at"),
		strings.ReplaceAll(name, "-", ""),
		strings.ReplaceAll(name, "_", "-"),
		strings.ReplaceAll(name, "-", "_"),
	}
}

// checkConflicts fails DependencyResolution if candidate conflicts
// (symmetrically) with anything already expanded.
func checkConflicts(candidate *formula.Formula, resolved []*formula.Formula) error {
	for _, r := range resolved {
		if candidate.Conflicts[r.Name] || r.Conflicts[candidate.Name] {
			return brewerr.NewDependencyResolution(candidate.Name + " conflicts with " + r.Name)
		}
	}
	return nil
}

// topoSort runs Kahn's algorithm over the graph induced by Dependencies
// plus BuildDependencies; edges to names outside formulae are ignored.
// Ties are broken by lexicographic name order.
func topoSort(formulae []*formula.Formula) ([]*formula.Formula, error) {
	byName := make(map[string]*formula.Formula, len(formulae))
	inDegree := make(map[string]int, len(formulae))
	dependents := make(map[string][]string, len(formulae))

	for _, f := range formulae {
		byName[f.Name] = f
		if _, ok := inDegree[f.Name]; !ok {
			inDegree[f.Name] = 0
		}
	}
	for _, f := range formulae {
		edges := append(append([]formula.Dependency{}, f.Dependencies...), f.BuildDependencies...)
		for _, dep := range edges {
			if _, ok := byName[dep.Name]; !ok {
				continue
			}
			dependents[dep.Name] = append(dependents[dep.Name], f.Name)
			inDegree[f.Name]++
		}
	}

	var ready []string
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var sorted []*formula.Formula
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		sorted = append(sorted, byName[name])

		var newlyReady []string
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		ready = mergeSorted(ready, newlyReady)
	}

	if len(sorted) != len(formulae) {
		return nil, brewerr.NewDependencyResolution("cycle")
	}
	return sorted, nil
}

// mergeSorted merges two already-sorted string slices, preserving order.
func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	merged := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
