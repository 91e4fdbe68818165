// Package remote resolves the GitHub repository codecord releases are
// published from.
//
// The repository is resolved lazily on first access. Values set at build time
// via ldflags take precedence; otherwise CODECORD_REPO is read, either as
// "owner/repo" or as any GitHub URL. With neither, the URLs are empty and
// update checks are skipped.
package remote

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
)

// RepoEnv overrides the release repository for builds without ldflags.
const RepoEnv = "CODECORD_REPO"

// Set at build time via:
//
//	-X tools.zach/dev/codecord/internal/remote.ldOwner=...
//	-X tools.zach/dev/codecord/internal/remote.ldRepo=...
var (
	ldOwner string
	ldRepo  string
)

var (
	initOnce sync.Once
	owner    string
	repo     string
)

// githubRemoteRe extracts owner and repo from GitHub URLs in HTTPS or SSH form.
var githubRemoteRe = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)`)

// shortRe matches the "owner/repo" shorthand.
var shortRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)

func ensureInit() {
	initOnce.Do(func() {
		if ldOwner != "" && ldRepo != "" {
			owner, repo = ldOwner, ldRepo
			return
		}
		v := strings.TrimSpace(os.Getenv(RepoEnv))
		if v == "" {
			return
		}
		o, r, ok := parseRepo(v)
		if !ok {
			slog.Debug("remote: ignoring unrecognized repository", "env", RepoEnv, "value", v)
			return
		}
		owner, repo = o, r
	})
}

// parseRepo accepts "owner/repo" or a GitHub URL.
func parseRepo(s string) (owner, repo string, ok bool) {
	if m := githubRemoteRe.FindStringSubmatch(s); len(m) == 3 {
		return m[1], m[2], true
	}
	if m := shortRe.FindStringSubmatch(s); len(m) == 3 {
		return m[1], strings.TrimSuffix(m[2], ".git"), true
	}
	return "", "", false
}

// Owner returns the GitHub repository owner.
func Owner() string {
	ensureInit()
	return owner
}

// Repo returns the GitHub repository name.
func Repo() string {
	ensureInit()
	return repo
}

// RawURL returns the raw GitHub URL for a file on the main branch, or "" when
// the repository is unknown.
func RawURL(path string) string {
	ensureInit()
	if owner == "" || repo == "" {
		return ""
	}
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/main/" + path
}

// ReleasesURL returns the repository's latest release page, or "" when the
// repository is unknown.
func ReleasesURL() string {
	ensureInit()
	if owner == "" || repo == "" {
		return ""
	}
	return "https://github.com/" + owner + "/" + repo + "/releases/latest"
}
