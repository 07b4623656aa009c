package cache

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

func sampleBundle() *models.SplitBundle {
	return &models.SplitBundle{
		Name:       models.SplitTrain,
		IDs:        []int64{3, 1},
		Texts:      []string{"github :- show hn x", "empty :- ask hn y"},
		Labels:     [][]uint8{{1, 0}, {0, 1}},
		LabelNames: []string{"0-5", "50+"},
	}
}

func TestSplitRoundTrip(t *testing.T) {
	s := New(t.TempDir(), logger.NewNop())
	want := sampleBundle()

	require.NoError(t, s.SaveSplit(want))
	assert.FileExists(t, filepath.Join(s.Dir, "train.pkl"))

	got, err := s.LoadSplit(models.SplitTrain)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingSplit(t *testing.T) {
	s := New(t.TempDir(), logger.NewNop())
	_, err := s.LoadSplit(models.SplitVal)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LoadFeatures(s.FeaturesPath("wordpiece", 510, models.SplitVal))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSplitFailureIsReturned(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(filepath.Join(blocker, "cache"), logger.NewNop())
	assert.Error(t, s.SaveSplit(sampleBundle()))
}

func threeSplits() []*models.SplitBundle {
	var out []*models.SplitBundle
	for _, name := range []string{models.SplitTrain, models.SplitVal, models.SplitTest} {
		b := sampleBundle()
		b.Name = name
		out = append(out, b)
	}
	return out
}

func TestSaveSplitsWritesAll(t *testing.T) {
	s := New(t.TempDir(), logger.NewNop())
	require.NoError(t, s.SaveSplits(threeSplits()))

	for _, name := range []string{"train.pkl", "val.pkl", "test.pkl"} {
		assert.FileExists(t, filepath.Join(s.Dir, name))
	}
}

func TestSaveSplitsLeavesNoPartialRun(t *testing.T) {
	s := New(t.TempDir(), logger.NewNop())

	// a non-empty directory where test.pkl should go makes its rename fail
	// after train and val are already in place
	blocker := filepath.Join(s.Dir, "test.pkl")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0o755))

	err := s.SaveSplits(threeSplits())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save split test")

	assert.NoFileExists(t, filepath.Join(s.Dir, "train.pkl"))
	assert.NoFileExists(t, filepath.Join(s.Dir, "val.pkl"))
	assert.DirExists(t, blocker)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestFeaturesPath(t *testing.T) {
	s := New("/tmp/cache", nil)
	assert.Equal(t, filepath.Join("/tmp/cache", "distilbert_510_train"), s.FeaturesPath("distilbert", 510, "train"))
	assert.Equal(t, filepath.Join("/tmp/cache", "test.pkl"), s.SplitPath("test"))
}

func TestFeaturesOverwriteIsAtomic(t *testing.T) {
	s := New(t.TempDir(), logger.NewNop())
	path := s.FeaturesPath("wordpiece", 8, models.SplitTest)

	first := []models.Encoding{{InputIDs: []int64{2, 5, 3, 0}, AttentionMask: []int64{1, 1, 1, 0}}}
	require.NoError(t, s.SaveFeatures(path, first))

	// a failing writer must leave the previous entry intact
	err := WriteAtomic(path, func(w io.Writer) error { return errors.New("boom") })
	require.Error(t, err)

	got, err := s.LoadFeatures(path)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := []models.Encoding{{InputIDs: []int64{2, 3}, AttentionMask: []int64{1, 1}}}
	require.NoError(t, s.SaveFeatures(path, second))
	got, err = s.LoadFeatures(path)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
