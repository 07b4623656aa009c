package pipeline

import (
	"context"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/crawler"
	"hn-post-classifier/internal/ioformats"
	"hn-post-classifier/internal/labels"
	"hn-post-classifier/internal/models"
)

// SplitStats describes a persisted split.
type SplitStats struct {
	Name       string         `json:"name"`
	Rows       int            `json:"rows"`
	LabelNames []string       `json:"labelNames"`
	Bands      map[string]int `json:"bands"`
}

func Stats(store *cache.Store, split string) (*SplitStats, error) {
	b, err := store.LoadSplit(split)
	if err != nil {
		return nil, err
	}
	st := &SplitStats{Name: b.Name, Rows: b.Len(), LabelNames: b.LabelNames, Bands: map[string]int{}}
	for _, row := range b.Labels {
		name, err := labels.Decode(row, b.LabelNames)
		if err != nil {
			return nil, err
		}
		st.Bands[name]++
	}
	return st, nil
}

// FileSource reads posts from a CSV or NDJSON export.
type FileSource string

func (f FileSource) FetchAll(context.Context) ([]models.Post, error) {
	return ioformats.ReadPosts(string(f))
}

// ListingSource scrapes a number of listing pages.
type ListingSource struct {
	Lister *crawler.Lister
	Pages  int
}

func (s ListingSource) FetchAll(ctx context.Context) ([]models.Post, error) {
	return s.Lister.Crawl(ctx, s.Pages)
}
