// Package ioformats reads and writes post exports as CSV and newline-delimited JSON.
package ioformats

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hn-post-classifier/internal/models"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ReadPosts reads a posts export: CSV with a header naming at least
// id,title,url,score,timestamp, or NDJSON with one post object per line.
// If ext cannot be determined, tries CSV first then NDJSON.
func ReadPosts(path string) ([]models.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadPostsCSV(f)
	case ".ndjson", ".jsonl":
		return ReadPostsNDJSON(f)
	default:
		if posts, err := ReadPostsCSV(f); err == nil && len(posts) > 0 {
			return posts, nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return ReadPostsNDJSON(f)
	}
}

func ReadPostsCSV(r io.Reader) ([]models.Post, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty csv")
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"id", "title", "url", "score", "timestamp"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv must contain a %q header column", required)
		}
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]models.Post, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		id, err := strconv.ParseInt(get(row, "id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		score := 0
		if s := get(row, "score"); s != "" {
			if score, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: score: %w", line, err)
			}
		}
		ts, err := parseTimestamp(get(row, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, models.Post{
			ID:        id,
			Title:     get(row, "title"),
			URL:       orEmpty(get(row, "url")),
			Score:     score,
			Timestamp: ts,
			Type:      get(row, "type"),
		})
	}
	return out, nil
}

// ndjsonPost accepts both export rows ("timestamp") and HN API items
// ("time" in unix seconds).
type ndjsonPost struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	Score     int             `json:"score"`
	Timestamp json.RawMessage `json:"timestamp"`
	Time      int64           `json:"time"`
	Type      string          `json:"type"`
}

func ReadPostsNDJSON(r io.Reader) ([]models.Post, error) {
	var out []models.Post
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var p ndjsonPost
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var ts time.Time
		if p.Time != 0 {
			ts = time.Unix(p.Time, 0).UTC()
		}
		if len(p.Timestamp) > 0 && string(p.Timestamp) != "null" {
			var err error
			if ts, err = parseTimestamp(strings.Trim(string(p.Timestamp), `"`)); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		out = append(out, models.Post{
			ID:        p.ID,
			Title:     p.Title,
			URL:       orEmpty(p.URL),
			Score:     p.Score,
			Timestamp: ts,
			Type:      p.Type,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no posts found in ndjson")
	}
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func orEmpty(u string) string {
	if u == "" || u == "None" {
		return models.EmptyURL
	}
	return u
}

// WriteNDJSON writes any JSON-marshalable items as NDJSON to w.
func WriteNDJSON(w io.Writer, items []any) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// WritePosts writes posts as NDJSON in the shape ReadPostsNDJSON accepts.
func WritePosts(w io.Writer, posts []models.Post) error {
	items := make([]any, len(posts))
	for i, p := range posts {
		items[i] = p
	}
	return WriteNDJSON(w, items)
}
