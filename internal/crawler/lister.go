package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"hn-post-classifier/internal/metrics"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/internal/parser"
	"hn-post-classifier/pkg/logger"
)

// Fetcher is satisfied by HTTPClient.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

type ListerConfig struct {
	BaseURL     string
	Listing     string
	Concurrency int
}

// Lister walks the numbered pages of one listing.
type Lister struct {
	fetcher     Fetcher
	parser      *parser.Parser
	base        *url.URL
	listing     string
	concurrency int
	log         *logger.Logger
	metrics     *metrics.Metrics
}

func NewLister(f Fetcher, cfg ListerConfig, l *logger.Logger, m *metrics.Metrics) (*Lister, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if l == nil {
		l = logger.NewNop()
	}
	listing := cfg.Listing
	if listing == "" {
		listing = "newest"
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Lister{
		fetcher:     f,
		parser:      parser.New(),
		base:        base,
		listing:     listing,
		concurrency: concurrency,
		log:         l,
		metrics:     m,
	}, nil
}

// PageURL returns the address of page n (1-based).
func (l *Lister) PageURL(n int) string {
	u := l.base.JoinPath(l.listing)
	q := url.Values{}
	q.Set("p", fmt.Sprint(n))
	u.RawQuery = q.Encode()
	return u.String()
}

// Crawl fetches pages 1..pages with bounded concurrency and returns the
// posts in page order, first occurrence winning when a post shifts
// between pages. Failed pages are logged and skipped; Crawl fails only if
// every page failed, pages is not positive, or ctx is done.
func (l *Lister) Crawl(ctx context.Context, pages int) ([]models.Post, error) {
	if pages < 1 {
		return nil, fmt.Errorf("pages must be positive, got %d", pages)
	}
	perPage := make([][]models.Post, pages)
	failed := make([]error, pages)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i := range pages {
		g.Go(func() error {
			posts, err := l.page(gCtx, i+1)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				l.log.Warnf("listing page %d failed: %v", i+1, err)
				l.count("error")
				failed[i] = err
				return nil
			}
			l.count("ok")
			perPage[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var posts []models.Post
	seen := make(map[int64]struct{})
	ok := 0
	for i, batch := range perPage {
		if failed[i] == nil {
			ok++
		}
		for _, p := range batch {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			posts = append(posts, p)
		}
	}
	if ok == 0 {
		return nil, fmt.Errorf("all %d listing pages failed: %w", pages, failed[0])
	}
	if l.metrics != nil {
		l.metrics.IngestPosts.Add(float64(len(posts)))
	}
	l.log.Infof("collected %d posts from %d/%d %s pages", len(posts), ok, pages, l.listing)
	return posts, nil
}

func (l *Lister) page(ctx context.Context, n int) ([]models.Post, error) {
	start := time.Now()
	resp, err := l.fetcher.Fetch(ctx, l.PageURL(n))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	posts, err := l.parser.ParseListing(resp.Body, resp.ContentType, l.base)
	if err != nil {
		return nil, fmt.Errorf("parse page %d: %w", n, err)
	}
	l.log.Debugf("page %d: %d posts in %s", n, len(posts), time.Since(start))
	return posts, nil
}

func (l *Lister) count(status string) {
	if l.metrics != nil {
		l.metrics.IngestPages.WithLabelValues(status).Inc()
	}
}
