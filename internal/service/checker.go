package service

import (
	"context"
	"net/url"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/metrics"
	"github.com/olgkv/linkchecker/internal/normalize"
)

const DefaultMaxWorkers = 16

// Resolver turns one normalized URL into its redirect chain.
type Resolver interface {
	Resolve(ctx context.Context, target *url.URL) []domain.LinkVerdict
}

type CheckerOptions struct {
	MaxWorkers int
}

// Checker fans a batch of URLs out to a Resolver.
type Checker struct {
	resolver Resolver
	workers  int
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	// flight shares resolutions of the same normalized URL between concurrent batches.
	// A shared resolution is detached from the caller that started it.
	flight singleflight.Group
}

func NewChecker(res Resolver, opts CheckerOptions, m *metrics.Metrics, logger zerolog.Logger) *Checker {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}
	return &Checker{
		resolver: res,
		workers:  workers,
		metrics:  m,
		logger:   logger.With().Str("component", "checker").Logger(),
	}
}

// CheckAll returns one chain per distinct input string. Inputs that normalize to the
// same URL are resolved once and each receives its own copy of the chain.
func (c *Checker) CheckAll(ctx context.Context, urls []string) domain.LinkReport {
	report := make(domain.LinkReport, len(urls))
	targets := make(map[string]*url.URL)
	aliases := make(map[string][]string)

	for _, raw := range urls {
		if _, seen := report[raw]; seen {
			continue
		}
		u, err := normalize.Normalize(raw)
		if err != nil {
			c.logger.Debug().Str("url", raw).Err(err).Msg("skipping malformed url")
			report[raw] = []domain.LinkVerdict{domain.MalformedURL(raw)}
			c.metrics.ObserveChain(report[raw], 0)
			continue
		}
		// placeholder keeps duplicates out until the chain arrives
		report[raw] = nil
		key := u.String()
		if _, ok := targets[key]; !ok {
			targets[key] = u
		}
		aliases[key] = append(aliases[key], raw)
	}

	keys := make([]string, 0, len(targets))
	for key := range targets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, key := range keys {
		g.Go(func() error {
			chain := c.resolve(ctx, targets[key])
			mu.Lock()
			for _, raw := range aliases[key] {
				report[raw] = slices.Clone(chain)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Info().
		Int("links", len(report)).
		Int("resolved", len(keys)).
		Int("broken", len(report.Broken())).
		Msg("batch checked")
	return report
}

// resolve waits for the shared resolution of u. A caller whose ctx ends first gets a
// transport failure; the resolution itself carries on for the other callers.
func (c *Checker) resolve(ctx context.Context, u *url.URL) []domain.LinkVerdict {
	key := u.String()
	if ctx.Err() != nil {
		return c.abandoned(key, ctx.Err())
	}

	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		start := time.Now()
		chain := c.resolver.Resolve(shared, u)
		if len(chain) == 0 {
			chain = []domain.LinkVerdict{domain.TransportFailure(key)}
		}
		c.metrics.ObserveChain(chain, time.Since(start))
		return chain, nil
	})

	select {
	case res := <-ch:
		return res.Val.([]domain.LinkVerdict)
	case <-ctx.Done():
		return c.abandoned(key, ctx.Err())
	}
}

func (c *Checker) abandoned(key string, err error) []domain.LinkVerdict {
	c.logger.Debug().Str("url", key).Err(err).Msg("check abandoned")
	chain := []domain.LinkVerdict{domain.TransportFailure(key)}
	c.metrics.ObserveChain(chain, 0)
	return chain
}
