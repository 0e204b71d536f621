package archive

import (
	"context"
	"time"

	"github.com/olgkv/linkchecker/internal/domain"
)

// WithRetry retries failed submissions up to attempts times in total, doubling
// backoff between tries. Submissions rejected by an open breaker are not retried.
func WithRetry(s Submitter, attempts int, backoff time.Duration) Submitter {
	if attempts <= 1 {
		return s
	}
	return SubmitterFunc(func(ctx context.Context, target string) domain.ArchiveOutcome {
		delay := backoff
		var out domain.ArchiveOutcome
		for i := 0; i < attempts; i++ {
			out = s.Submit(ctx, target)
			if out.Archived || out.Reason == ReasonUnavailable || i == attempts-1 {
				return out
			}
			select {
			case <-ctx.Done():
				return out
			case <-time.After(delay):
			}
			delay *= 2
		}
		return out
	})
}
