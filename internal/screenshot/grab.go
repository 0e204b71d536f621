package screenshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/olgkv/linkchecker/internal/domain"
)

const (
	DefaultDir = "grab_link_screenshots"

	maxFilenameLen = 255
	filenameChars  = "-_.() abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type GrabResult struct {
	Saved  []string
	Failed []string
}

// Grab captures the resolved page of every reachable link into dir. Capture failures
// are logged and recorded; only an unusable dir is returned as an error.
func Grab(ctx context.Context, c Capturer, report domain.LinkReport, dir string, logger zerolog.Logger) (GrabResult, error) {
	var res GrabResult
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create screenshot dir: %w", err)
	}

	for _, target := range targets(report) {
		if ctx.Err() != nil {
			res.Failed = append(res.Failed, target)
			continue
		}
		png, err := c.Capture(ctx, target)
		if err == nil {
			path := filepath.Join(dir, CleanFilename(target)+".png")
			err = os.WriteFile(path, png, 0o644)
		}
		if err != nil {
			logger.Warn().Err(err).Str("url", target).Msg("failed to grab screenshot")
			res.Failed = append(res.Failed, target)
			continue
		}
		res.Saved = append(res.Saved, target)
	}
	logger.Info().Str("dir", dir).Int("saved", len(res.Saved)).Int("failed", len(res.Failed)).Msg("screenshots saved")
	return res, nil
}

func targets(report domain.LinkReport) []string {
	seen := make(map[string]struct{})
	var out []string
	for link := range report {
		final, ok := report.Final(link)
		if !ok || !final.OK {
			continue
		}
		t := final.ResolvedURL
		if t == "" {
			t = final.RequestedURL
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CleanFilename turns a URL into a file name: the scheme is dropped, spaces and dots
// become underscores, and anything outside a small ASCII whitelist is removed.
func CleanFilename(u string) string {
	if i := strings.LastIndex(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	u = strings.NewReplacer(" ", "_", ".", "_").Replace(u)

	var b strings.Builder
	for _, r := range norm.NFKD.String(u) {
		if r < 0x80 && strings.ContainsRune(filenameChars, r) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}
