// Package update checks for newer codecord releases via the release manifest.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"tools.zach/dev/codecord/internal/paths"
	"tools.zach/dev/codecord/internal/remote"
)

// manifestURL is replaced in tests.
var manifestURL = func() string { return remote.RawURL(paths.ReleaseManifest) }

// newClient returns the retrying client used for the manifest fetch.
func newClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil
	return c
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Result is the outcome of a version check.
type Result struct {
	// Current is the running version.
	Current string
	// Latest is the newest released version, or "" if unknown.
	Latest string
	// Available reports whether Latest is newer than Current.
	Available bool
}

// Check fetches the release manifest and compares it with current. A missing
// repository configuration is not an error; the result is simply empty.
func Check(ctx context.Context, current string) (Result, error) {
	res := Result{Current: current}
	url := manifestURL()
	if url == "" {
		return res, nil
	}
	latest, err := fetchLatest(ctx, url)
	if err != nil {
		return res, err
	}
	res.Latest = latest
	res.Available = latest != "" && latest != current && semverLess(current, latest)
	return res, nil
}

// LogCheck runs [Check] and logs a newer version. Failures are logged at
// debug; the daemon never depends on the result.
func LogCheck(ctx context.Context, current string) {
	res, err := Check(ctx, current)
	switch {
	case err != nil:
		slog.Debug("version check failed", "error", err)
	case res.Latest == "":
		slog.Debug("skipping version check: no release manifest")
	case res.Available:
		slog.Info("new version available", "current", current, "latest", res.Latest)
	}
}

// ///////////////////////////////////////////////
// Internal helpers
// ///////////////////////////////////////////////

// fetchLatest downloads the manifest and returns the version under the "."
// key, the latest stable release.
func fetchLatest(ctx context.Context, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := newClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest["."], nil
}

// semverLess reports whether a < b, comparing numerically. A pre-release is
// less than the same release ("0.1.0-dev" < "0.1.0"). Non-semver strings are
// never less.
func semverLess(a, b string) bool {
	pa := parseSemver(a)
	pb := parseSemver(b)
	if pa == nil || pb == nil {
		return false
	}
	for i := range 3 {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return hasPreRelease(a) && !hasPreRelease(b)
}

func hasPreRelease(s string) bool {
	return strings.Contains(strings.TrimPrefix(s, "v"), "-")
}

// parseSemver splits "v1.2.3" or "0.1.0-dev+abc" into [major, minor, patch].
// It returns nil for anything else.
func parseSemver(s string) []int {
	s = strings.TrimPrefix(s, "v")
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return nil
	}
	result := make([]int, 3)
	for i, p := range parts {
		if idx := strings.IndexAny(p, "-+"); idx >= 0 {
			p = p[:idx]
		}
		if p == "" {
			return nil
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil
			}
			n = n*10 + int(c-'0')
		}
		result[i] = n
	}
	return result
}
