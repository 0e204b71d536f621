package archive

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/metrics"
	"github.com/olgkv/linkchecker/internal/policy"
)

// Summary is the result of archiving one report.
type Summary struct {
	Archived []domain.ArchiveOutcome `json:"archived"`
	Failed   []domain.ArchiveOutcome `json:"not_archived"`
	Excluded []string                `json:"excluded"`
	Invalid  []string                `json:"invalid"`
}

// SubmitAll applies rules to the report and submits the resolved URL of every
// accepted link once. Submissions run one after another; a failure never stops the batch.
func SubmitAll(ctx context.Context, s Submitter, report domain.LinkReport, rules policy.Rules, m *metrics.Metrics, logger zerolog.Logger) Summary {
	sel := policy.Partition(report, rules)
	sum := Summary{Excluded: sel.Excluded, Invalid: sel.Invalid}

	seen := make(map[string]struct{}, len(sel.Accepted))
	targets := make([]string, 0, len(sel.Accepted))
	for _, link := range sel.Accepted {
		final, _ := report.Final(link)
		target := final.ResolvedURL
		if target == "" {
			target = final.RequestedURL
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		logger.Info().Str("url", target).Msg("archiving")
		out := s.Submit(ctx, target)
		m.ObserveArchive(out)
		if out.Archived {
			sum.Archived = append(sum.Archived, out)
		} else {
			sum.Failed = append(sum.Failed, out)
		}
	}

	for _, out := range sum.Archived {
		logger.Info().Str("url", out.URL).Msg("archived")
	}
	for _, out := range sum.Failed {
		logger.Warn().Str("url", out.URL).Str("reason", out.Reason).Msg("not archived")
	}
	for _, u := range sum.Excluded {
		logger.Info().Str("url", u).Msg("excluded")
	}
	for _, u := range sum.Invalid {
		logger.Info().Str("url", u).Msg("not a valid url")
	}
	return sum
}
