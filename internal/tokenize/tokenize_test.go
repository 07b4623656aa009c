package tokenize

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

func TestBuildVocabAndEncode(t *testing.T) {
	v := BuildVocab([]string{"github :- go go rust", "empty :- ask hn go"}, 0)
	assert.Equal(t, []string{PadToken, UnkToken, ClsToken, SepToken, "go", ":-", "ask", "empty", "github", "hn", "rust"}, v.tokens)

	enc := v.Encode("github :- go zig", 8)
	assert.Equal(t, []int64{2, 8, 5, 4, 1, 3, 0, 0}, enc.InputIDs)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 0, 0}, enc.AttentionMask)
	assert.Equal(t, []string{ClsToken, "github", ":-", "go", UnkToken, SepToken}, v.Decode(enc.InputIDs))
}

func TestEncodeTruncates(t *testing.T) {
	v := BuildVocab([]string{"a b c d e f"}, 0)
	enc := v.Encode("a b c d e f", 4)
	require.Len(t, enc.InputIDs, 4)
	assert.Equal(t, int64(clsID), enc.InputIDs[0])
	assert.Equal(t, int64(sepID), enc.InputIDs[3])
	assert.Equal(t, []int64{1, 1, 1, 1}, enc.AttentionMask)
}

func TestBuildVocabMaxSize(t *testing.T) {
	v := BuildVocab([]string{"a a a b b c"}, 6)
	assert.Equal(t, 6, v.Size())
	assert.Equal(t, []string{"a", "b"}, v.tokens[4:])
}

func TestVocabRoundTrip(t *testing.T) {
	v := BuildVocab([]string{"x y z"}, 0)
	var buf bytes.Buffer
	_, err := v.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadVocab(&buf)
	require.NoError(t, err)
	assert.Equal(t, v.tokens, got.tokens)

	_, err = ReadVocab(strings.NewReader("x\ny\n"))
	assert.Error(t, err)
}

func TestEffectiveBlockSize(t *testing.T) {
	v := BuildVocab(nil, 0)
	assert.Equal(t, 510, EffectiveBlockSize(v, 512))
}

func seedStore(t *testing.T) *cache.Store {
	t.Helper()
	s := cache.New(t.TempDir(), logger.NewNop())
	require.NoError(t, s.SaveSplit(&models.SplitBundle{
		Name:       models.SplitTrain,
		IDs:        []int64{1, 2, 3},
		Texts:      []string{"github :- show hn", "empty :- ask hn", "nytimes :- news"},
		Labels:     [][]uint8{{1, 0}, {0, 1}, {1, 0}},
		LabelNames: []string{"0-5", "50+"},
	}))
	return s
}

func TestLoadBuildsThenReusesCache(t *testing.T) {
	s := seedStore(t)
	v, err := LoadOrBuildVocab(s, 100, logger.NewNop())
	require.NoError(t, err)
	assert.FileExists(t, s.Path(VocabFile))

	opts := Options{Split: models.SplitTrain, BlockSize: 10}
	ds, err := Load(s, v, opts, logger.NewNop())
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"0-5", "50+"}, ds.LabelNames())

	ids, mask, label := ds.Item(1)
	assert.Len(t, ids, 8)
	assert.Len(t, mask, 8)
	assert.Equal(t, []uint8{0, 1}, label)

	path := s.FeaturesPath("wordvocab", 8, models.SplitTrain)
	assert.FileExists(t, path)

	// a poisoned cache entry proves the second load reads it instead of re-tokenizing
	poisoned := []models.Encoding{{InputIDs: []int64{9}}, {InputIDs: []int64{9}}, {InputIDs: []int64{9}}}
	require.NoError(t, s.SaveFeatures(path, poisoned))
	ds, err = Load(s, v, opts, logger.NewNop())
	require.NoError(t, err)
	ids, _, _ = ds.Item(0)
	assert.Equal(t, []int64{9}, ids)

	opts.Overwrite = true
	ds, err = Load(s, v, opts, logger.NewNop())
	require.NoError(t, err)
	ids, _, _ = ds.Item(0)
	assert.Len(t, ids, 8)
}

func TestLoadRejectsStaleCache(t *testing.T) {
	s := seedStore(t)
	v := BuildVocab(nil, 0)
	path := s.FeaturesPath(v.Name(), 8, models.SplitTrain)
	require.NoError(t, s.SaveFeatures(path, []models.Encoding{{InputIDs: []int64{1}}}))

	_, err := Load(s, v, Options{Split: models.SplitTrain, BlockSize: 10}, nil)
	assert.Error(t, err)
}

func TestLoadMissingSplit(t *testing.T) {
	s := cache.New(t.TempDir(), nil)
	_, err := Load(s, BuildVocab(nil, 0), Options{Split: models.SplitTest, BlockSize: 512}, nil)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	_, err = LoadOrBuildVocab(s, 10, nil)
	assert.ErrorIs(t, err, cache.ErrNotFound)
	_, statErr := os.Stat(s.Path(VocabFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExport(t *testing.T) {
	s := seedStore(t)
	v := BuildVocab(nil, 0)
	ds, err := Load(s, v, Options{Split: models.SplitTrain, BlockSize: 6}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ds.Export(&buf))

	sc := bufio.NewScanner(&buf)
	rows := 0
	for sc.Scan() {
		var row exportRow
		require.NoError(t, json.Unmarshal(sc.Bytes(), &row))
		assert.Len(t, row.InputIDs, 4)
		assert.Len(t, row.Label, 2)
		rows++
	}
	assert.Equal(t, 3, rows)
}
