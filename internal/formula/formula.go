// Package formula defines the parsed package record and the DSL parser
// that produces it from raw formula source text.
package formula

// Source is one upstream location a Formula's primary artifact can be
// fetched from. SHA256 may be empty only when URL is a VCS URL (ends ".git").
type Source struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256,omitempty"`
	Mirror string `json:"mirror,omitempty"`
}

// Dependency is a named requirement on another Formula.
type Dependency struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	BuildOnly bool   `json:"build_only,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
}

// BinaryPackage is a prebuilt archive targeted at one (platform, arch) pair.
type BinaryPackage struct {
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	URL      string `json:"url"`
	SHA256   string `json:"sha256"`
}

// Formula is the parsed record describing how to obtain, build, and
// install one package. Formulae are immutable once parsed.
type Formula struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Homepage    string `json:"homepage,omitempty"`
	License     string `json:"license,omitempty"`

	Sources []Source `json:"sources,omitempty"`

	Dependencies         []Dependency `json:"dependencies,omitempty"`
	BuildDependencies    []Dependency `json:"build_dependencies,omitempty"`
	OptionalDependencies []Dependency `json:"optional_dependencies,omitempty"`

	Conflicts map[string]bool `json:"conflicts,omitempty"`

	InstallScript string `json:"install_script,omitempty"`
	TestScript    string `json:"test_script,omitempty"`
	Caveats       string `json:"caveats,omitempty"`

	BinaryPackages []BinaryPackage `json:"binary_packages,omitempty"`
}

// HasInstallableSource reports whether the Formula can be installed by
// either strategy: at least one source URL or at least one binary package.
func (f *Formula) HasInstallableSource() bool {
	return len(f.Sources) > 0 || len(f.BinaryPackages) > 0
}

// BinaryFor returns the first binary package matching the given host
// platform and architecture, and whether one was found.
func (f *Formula) BinaryFor(platform, arch string) (BinaryPackage, bool) {
	for _, b := range f.BinaryPackages {
		if b.Platform == platform && b.Arch == arch {
			return b, true
		}
	}
	return BinaryPackage{}, false
}

// AllRuntimeDeps returns non-optional runtime dependencies together with
// all build dependencies, the seed set the resolver expands from.
func (f *Formula) AllRuntimeDeps() []Dependency {
	deps := make([]Dependency, 0, len(f.Dependencies)+len(f.BuildDependencies))
	for _, d := range f.Dependencies {
		if !d.Optional {
			deps = append(deps, d)
		}
	}
	deps = append(deps, f.BuildDependencies...)
	return deps
}
