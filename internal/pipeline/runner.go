// Package pipeline wires the preparation stages together: fetch, normalize,
// bucket, undersample, encode, split and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/classifier"
	"hn-post-classifier/internal/labels"
	"hn-post-classifier/internal/metrics"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/internal/sampling"
	"hn-post-classifier/internal/splitter"
	"hn-post-classifier/internal/textprep"
	"hn-post-classifier/internal/tokenize"
	"hn-post-classifier/pkg/logger"
)

var ErrNoPosts = errors.New("no posts to prepare")

// PostSource yields the raw corpus.
type PostSource interface {
	FetchAll(ctx context.Context) ([]models.Post, error)
}

// PostSink persists ingested posts and reports how many were new.
type PostSink interface {
	Store(ctx context.Context, posts []models.Post) (int, error)
}

type Options struct {
	Split splitter.Options
	// Undersample overrides the automatic largest-band correction.
	Undersample     *sampling.Request
	SkipUndersample bool
	BlockSize       int
	VocabSize       int
}

type Runner struct {
	store   *cache.Store
	opts    Options
	norm    *textprep.Normalizer
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewRunner(store *cache.Store, opts Options, l *logger.Logger, m *metrics.Metrics) *Runner {
	if l == nil {
		l = logger.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Runner{
		store:   store,
		opts:    opts,
		norm:    textprep.NewNormalizer(l),
		log:     l,
		metrics: m,
	}
}

// Report summarizes one Prepare run.
type Report struct {
	Read        int                 `json:"read"`
	Before      map[models.Band]int `json:"before"`
	After       map[models.Band]int `json:"after"`
	RemovedBand models.Band         `json:"removedBand,omitempty"`
	Removed     int                 `json:"removed"`
	Splits      map[string]int      `json:"splits"`
	LabelNames  []string            `json:"labelNames"`
	Elapsed     time.Duration       `json:"elapsed"`
}

// Prepare runs the whole preparation and persists the three splits. Nothing
// is written to the cache unless every stage before it succeeded.
func (r *Runner) Prepare(ctx context.Context, src PostSource) (*Report, error) {
	start := time.Now()

	stage := time.Now()
	posts, err := src.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	r.metrics.ObserveStage("fetch", stage)
	r.metrics.RowsRead.Add(float64(len(posts)))
	if len(posts) == 0 {
		return nil, ErrNoPosts
	}

	stage = time.Now()
	r.norm.NormalizeTitles(posts)
	classifier.BucketPosts(posts)
	r.metrics.ObserveStage("transform", stage)

	report := &Report{Read: len(posts), Before: classifier.Distribution(posts)}
	r.metrics.SetBands("before", report.Before)
	for _, bc := range classifier.Sorted(report.Before) {
		r.log.Infof("band %s: %d posts", bc.Band, bc.Count)
	}

	stage = time.Now()
	posts, err = r.undersample(posts, report)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveStage("undersample", stage)
	report.After = classifier.Distribution(posts)
	r.metrics.SetBands("after", report.After)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = time.Now()
	ids := make([]int64, len(posts))
	texts := make([]string, len(posts))
	bands := make([]models.Band, len(posts))
	for i, p := range posts {
		ids[i], texts[i], bands[i] = p.ID, p.Title, p.Band
	}
	enc := labels.Encode(bands)
	report.LabelNames = enc.Names

	res, err := splitter.Split(ids, texts, enc, r.opts.Split)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveStage("split", stage)

	stage = time.Now()
	report.Splits = make(map[string]int, 3)
	if err := r.store.SaveSplits(res.Bundles()); err != nil {
		return nil, err
	}
	for _, b := range res.Bundles() {
		report.Splits[b.Name] = b.Len()
		r.metrics.SplitSize.WithLabelValues(b.Name).Set(float64(b.Len()))
	}
	r.metrics.ObserveStage("persist", stage)

	report.Elapsed = time.Since(start)
	r.log.Infof("prepared %d posts: train=%d val=%d test=%d in %s",
		len(posts), report.Splits[models.SplitTrain], report.Splits[models.SplitVal], report.Splits[models.SplitTest], report.Elapsed)
	return report, nil
}

func (r *Runner) undersample(posts []models.Post, report *Report) ([]models.Post, error) {
	if r.opts.SkipUndersample {
		return posts, nil
	}
	var req sampling.Request
	if r.opts.Undersample != nil {
		req = *r.opts.Undersample
	} else {
		band, n := sampling.TargetRemoval(report.Before)
		if n == 0 {
			r.log.Infof("bands already balanced, nothing to undersample")
			return posts, nil
		}
		req = sampling.Request{Band: band, N: n}
	}

	seed := r.opts.Split.Seed
	kept, removed, err := sampling.Undersample(posts, req, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return nil, fmt.Errorf("undersample: %w", err)
	}
	r.log.Infof("undersampled band %s: removed %d of %d posts", req.Band, removed, report.Before[req.Band])
	report.RemovedBand = req.Band
	report.Removed = removed
	r.metrics.RowsDropped.WithLabelValues(string(req.Band)).Add(float64(removed))
	return kept, nil
}

// Tokenize returns the tokenized dataset of split, building the vocabulary
// and the features cache when needed.
func (r *Runner) Tokenize(ctx context.Context, split string, overwrite bool) (*tokenize.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage := time.Now()
	vocab, err := tokenize.LoadOrBuildVocab(r.store, r.opts.VocabSize, r.log)
	if err != nil {
		return nil, err
	}
	ds, err := tokenize.Load(r.store, vocab, tokenize.Options{
		Split:     split,
		BlockSize: r.opts.BlockSize,
		Overwrite: overwrite,
	}, r.log)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveStage("tokenize", stage)
	r.metrics.TokenizedPosts.WithLabelValues(split).Add(float64(ds.Len()))
	return ds, nil
}

// Ingest stores posts from any source into sink.
func (r *Runner) Ingest(ctx context.Context, src PostSource, sink PostSink) (int, error) {
	posts, err := src.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch posts: %w", err)
	}
	r.metrics.RowsRead.Add(float64(len(posts)))
	inserted, err := sink.Store(ctx, posts)
	if err != nil {
		return 0, fmt.Errorf("store posts: %w", err)
	}
	r.metrics.InsertedPosts.Add(float64(inserted))
	r.log.Infof("stored %d new posts out of %d", inserted, len(posts))
	return inserted, nil
}
