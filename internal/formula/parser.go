package formula

import (
	"regexp"
	"strings"

	"github.com/brewkeg/brewkeg/internal/brewerr"
)

var (
	classHeaderRe = regexp.MustCompile(`class\s+(\w+)\s*<\s*Formula`)
	descRe        = regexp.MustCompile(`desc\s+"([^"]*)"`)
	homepageRe    = regexp.MustCompile(`homepage\s+"([^"]*)"`)
	urlRe         = regexp.MustCompile(`url\s+"([^"]*)"`)
	sha256Re      = regexp.MustCompile(`sha256\s+['"]([0-9a-fA-F]{64})['"]`)
	versionRe     = regexp.MustCompile(`version\s+"([^"]*)"`)
	revisionRe    = regexp.MustCompile(`revision\s+"?(\d+)"?`)
	dependsOnRe   = regexp.MustCompile(`depends_on\s+"([^"]+)"(\s*=>\s*:(\w+))?`)
	installDefRe  = regexp.MustCompile(`(?s)def\s+install\b(.*?)\nend\b`)
	testDoRe      = regexp.MustCompile(`(?s)test\s+do\b(.*?)\nend\b`)
	caveatsHeredocRe = regexp.MustCompile(`(?s)def\s+caveats\b.*?<<~?EOS\n(.*?)\nEOS`)
	caveatsStringRe  = regexp.MustCompile(`def\s+caveats\s*\n?\s*"([^"]*)"`)
	bottleDoRe    = regexp.MustCompile(`(?s)bottle\s+do\b(.*?)\nend\b`)
	bottleLineRe  = regexp.MustCompile(`sha256\s+(?:cellar:\s*:\w+\s*,\s*)?(\w+):\s*['"]([0-9a-fA-F]{64})['"]`)

	nameATSuffixRe = regexp.MustCompile(`AT(\d)(\d+)`)

	versionFromURLRes = []*regexp.Regexp{
		regexp.MustCompile(`/tags/v?(\d+(?:\.\d+)+)`),
		regexp.MustCompile(`download/v?(\d+(?:\.\d+)+)`),
		regexp.MustCompile(`[-_/]v?(\d+(?:\.\d+)+)`),
	}
)

// platformKeys maps a bottle tag to (platform, arch); keys absent from this
// map are skipped per the bottle platform table.
var platformKeys = map[string][2]string{
	"arm64_sequoia":  {"darwin", "aarch64"},
	"arm64_sonoma":   {"darwin", "aarch64"},
	"arm64_ventura":  {"darwin", "aarch64"},
	"arm64_monterey": {"darwin", "aarch64"},
	"sequoia":        {"darwin", "x86_64"},
	"sonoma":         {"darwin", "x86_64"},
	"ventura":        {"darwin", "x86_64"},
	"monterey":       {"darwin", "x86_64"},
	"big_sur":        {"darwin", "x86_64"},
	"x86_64_linux":   {"linux", "x86_64"},
	"aarch64_linux":  {"linux", "aarch64"},
}

// Parse produces a Formula from the raw text of a .rb formula file, or
// fails FormulaParse if the mandatory class header is absent.
func Parse(path string, src string) (*Formula, error) {
	m := classHeaderRe.FindStringSubmatch(src)
	if m == nil {
		return nil, brewerr.NewFormulaParse(path, "missing class header")
	}
	name := deriveName(m[1])

	f := &Formula{
		Name:      name,
		Conflicts: map[string]bool{},
	}

	if m := descRe.FindStringSubmatch(src); m != nil {
		f.Description = m[1]
	}
	if m := homepageRe.FindStringSubmatch(src); m != nil {
		f.Homepage = m[1]
	}

	bottleBlock := ""
	if m := bottleDoRe.FindStringSubmatch(src); m != nil {
		bottleBlock = m[1]
	}
	outsideBottle := src
	if bottleBlock != "" {
		outsideBottle = strings.Replace(src, bottleBlock, "", 1)
	}

	var srcURL, srcSHA string
	if m := urlRe.FindStringSubmatch(src); m != nil {
		srcURL = m[1]
	}
	if m := sha256Re.FindStringSubmatch(outsideBottle); m != nil {
		srcSHA = m[1]
	}
	if srcURL != "" {
		f.Sources = []Source{{URL: srcURL, SHA256: srcSHA}}
	}

	f.Version = deriveVersion(src, srcURL)

	for _, m := range dependsOnRe.FindAllStringSubmatch(src, -1) {
		dep := Dependency{Name: m[1], BuildOnly: m[3] == "build"}
		f.Dependencies = append(f.Dependencies, dep)
	}
	if len(f.Dependencies) > 0 {
		f.BuildDependencies = splitBuildDeps(&f.Dependencies)
	}

	if m := installDefRe.FindStringSubmatch(src); m != nil {
		f.InstallScript = strings.TrimSpace(m[1])
	}
	if m := testDoRe.FindStringSubmatch(src); m != nil {
		f.TestScript = strings.TrimSpace(m[1])
	}
	if m := caveatsHeredocRe.FindStringSubmatch(src); m != nil {
		f.Caveats = sanitizeCaveats(strings.TrimSpace(m[1]))
	} else if m := caveatsStringRe.FindStringSubmatch(src); m != nil {
		f.Caveats = sanitizeCaveats(m[1])
	}

	if bottleBlock != "" {
		f.BinaryPackages = parseBottleBlock(name, bottleBlock)
	}

	return f, nil
}

// splitBuildDeps partitions deps in place, returning the build-only subset
// and leaving the runtime subset (including optional) in *deps.
func splitBuildDeps(deps *[]Dependency) []Dependency {
	var runtime, build []Dependency
	for _, d := range *deps {
		if d.BuildOnly {
			build = append(build, d)
		} else {
			runtime = append(runtime, d)
		}
	}
	*deps = runtime
	return build
}

// deriveName case-folds the class identifier and rewrites an "ATMN" suffix
// into "@M.N" per the class-name decoder rule.
func deriveName(class string) string {
	lower := strings.ToLower(class)
	idx := strings.LastIndex(lower, "at")
	if idx < 0 {
		return lower
	}
	suffix := lower[idx+2:]
	if !isAllDigits(suffix) {
		return lower
	}
	lhs := lower[:idx]
	versioned := suffix
	if len(suffix) >= 2 {
		versioned = suffix[:1] + "." + suffix[1:]
	}
	return lhs + "@" + versioned
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// deriveVersion resolves version/revision directives, else falls back to
// patterns against the source URL, else "unknown".
func deriveVersion(src, url string) string {
	if m := versionRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	if m := revisionRe.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	if url != "" {
		for _, re := range versionFromURLRes {
			if m := re.FindStringSubmatch(url); m != nil {
				return m[1]
			}
		}
	}
	return "unknown"
}

// parseBottleBlock extracts binary packages from a bottle-do block body.
func parseBottleBlock(name, block string) []BinaryPackage {
	var pkgs []BinaryPackage
	for _, m := range bottleLineRe.FindAllStringSubmatch(block, -1) {
		key, hex := m[1], m[2]
		pa, ok := platformKeys[key]
		if !ok {
			continue
		}
		pkgs = append(pkgs, BinaryPackage{
			Platform: pa[0],
			Arch:     pa[1],
			URL:      bottleURL(name, hex),
			SHA256:   hex,
		})
	}
	return pkgs
}

// bottleURL synthesizes the ghcr.io blob URL for a bottle checksum.
func bottleURL(name, sha string) string {
	slashed := strings.ReplaceAll(name, "@", "/")
	return "https://ghcr.io/v2/homebrew/core/" + slashed + "/blobs/sha256:" + sha
}
