package tap

import (
	"context"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// newGitHubClient builds a go-github client, authenticated with
// BREWKEG_GITHUB_TOKEN when set to avoid the unauthenticated API's
// tighter rate limit.
func newGitHubClient() *github.Client {
	token := os.Getenv("BREWKEG_GITHUB_TOKEN")
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(context.Background(), ts))
}

// canonicalCloneURL asks the GitHub API for org/repo's current clone URL,
// following renames that a hand-built "homebrew-<short>" guess would miss.
// Callers fall back to resolveURL's deterministic construction on any
// error (offline, rate-limited, or the repo genuinely not existing).
func (s *Store) canonicalCloneURL(ctx context.Context, name string) (string, error) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 {
		return "", errNotOrgRepo
	}
	org, short := parts[0], parts[1]
	if strings.EqualFold(org, "homebrew") {
		org = "Homebrew"
	}
	repo, _, err := s.github.Repositories.Get(ctx, org, "homebrew-"+short)
	if err != nil {
		return "", err
	}
	return repo.GetCloneURL(), nil
}
