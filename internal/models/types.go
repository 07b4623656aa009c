// Package models holds the post, split and encoding types shared across the pipeline.
package models

import "time"

// EmptyURL marks a post without a link (Ask HN, polls, NULL urls).
const EmptyURL = "empty"

// Band is an ordinal score bucket.
type Band string

const (
	BandLow      Band = "0-5"
	BandMid      Band = "5-25"
	BandHigh     Band = "25-50"
	BandOverflow Band = "50+"
)

type Post struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	URL       string    `json:"url" db:"url"`
	Score     int       `json:"score" db:"score"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Type      string    `json:"type,omitempty" db:"type"`
	Band      Band      `json:"scoreBand,omitempty" db:"-"`
}

// DomainParts is the registered-domain breakdown of a URL host.
type DomainParts struct {
	Subdomain string `json:"subdomain"`
	Domain    string `json:"domain"`
	Suffix    string `json:"suffix"`
}

// Split names.
const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
)

// SplitBundle is one persisted partition of the prepared corpus.
type SplitBundle struct {
	Name       string
	IDs        []int64
	Texts      []string
	Labels     [][]uint8
	LabelNames []string
}

func (b *SplitBundle) Len() int { return len(b.Texts) }

// Encoding is a tokenized text padded to a fixed length.
type Encoding struct {
	InputIDs      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
}
