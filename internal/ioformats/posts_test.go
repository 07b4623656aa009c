package ioformats

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/models"
)

const sampleCSV = `id,title,url,score,timestamp,type
1,Show HN: A thing,https://github.com/a/b,12,2020-04-01 10:00:00 UTC,story
2,Ask HN: Why?,,3,1585735200,story
`

func TestReadPostsCSV(t *testing.T) {
	posts, err := ReadPostsCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, int64(1), posts[0].ID)
	assert.Equal(t, "https://github.com/a/b", posts[0].URL)
	assert.Equal(t, 12, posts[0].Score)
	assert.Equal(t, time.Date(2020, 4, 1, 10, 0, 0, 0, time.UTC), posts[0].Timestamp)
	assert.Equal(t, models.EmptyURL, posts[1].URL)
	assert.Equal(t, time.Unix(1585735200, 0).UTC(), posts[1].Timestamp)
}

func TestReadPostsCSVMissingColumn(t *testing.T) {
	_, err := ReadPostsCSV(strings.NewReader("id,title\n1,x\n"))
	assert.Error(t, err)
}

func TestReadPostsNDJSON(t *testing.T) {
	in := `{"id": 8863, "title": "My YC app", "url": "http://www.getdropbox.com/u/2/screencast.html", "score": 111, "time": 1175714200, "type": "story"}

{"id": 9, "title": "Ask", "score": 2, "timestamp": "2021-01-02T03:04:05Z"}
`
	posts, err := ReadPostsNDJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, time.Unix(1175714200, 0).UTC(), posts[0].Timestamp)
	assert.Equal(t, 111, posts[0].Score)
	assert.Equal(t, models.EmptyURL, posts[1].URL)
	assert.Equal(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC), posts[1].Timestamp)
}

func TestWritePostsRoundTrip(t *testing.T) {
	want := []models.Post{
		{ID: 1, Title: "a", URL: "https://x.com", Score: 4, Timestamp: time.Date(2019, 5, 6, 7, 8, 9, 0, time.UTC), Type: "story"},
		{ID: 2, Title: "b", URL: models.EmptyURL, Score: 90, Timestamp: time.Date(2019, 5, 7, 0, 0, 0, 0, time.UTC), Type: "story"},
	}
	var buf bytes.Buffer
	require.NoError(t, WritePosts(&buf, want))

	dir := t.TempDir()
	path := filepath.Join(dir, "posts.export")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	got, err := ReadPosts(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadPostsByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "posts.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	posts, err := ReadPosts(path)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}
