// Package tokenize turns cached split bundles into fixed-length model inputs
// and serves them to an external trainer.
package tokenize

import (
	"errors"
	"fmt"
	"io"
	"os"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/ioformats"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

// Tokenizer encodes one text into padded input ids and attention mask.
type Tokenizer interface {
	Name() string
	MaxLen() int
	MaxLenSingleSentence() int
	Encode(text string, maxLen int) models.Encoding
}

const progressEvery = 10000

// EffectiveBlockSize removes the room a tokenizer reserves for special
// tokens from the requested block size.
func EffectiveBlockSize(tok Tokenizer, blockSize int) int {
	return blockSize - (tok.MaxLen() - tok.MaxLenSingleSentence())
}

type Options struct {
	Split     string
	BlockSize int
	Overwrite bool
}

// Dataset is an indexable view over one tokenized split.
type Dataset struct {
	split    string
	features []models.Encoding
	labels   [][]uint8
	names    []string
}

// Load returns the tokenized dataset of a split. The features cache is
// reused unless opts.Overwrite is set, in which case it is rebuilt and
// swapped in atomically.
func Load(store *cache.Store, tok Tokenizer, opts Options, log *logger.Logger) (*Dataset, error) {
	if log == nil {
		log = logger.NewNop()
	}
	bundle, err := store.LoadSplit(opts.Split)
	if err != nil {
		return nil, err
	}
	block := EffectiveBlockSize(tok, opts.BlockSize)
	if block < 2 {
		return nil, fmt.Errorf("block size %d leaves %d positions for %s", opts.BlockSize, block, tok.Name())
	}
	path := store.FeaturesPath(tok.Name(), block, opts.Split)

	var features []models.Encoding
	if store.Exists(path) && !opts.Overwrite {
		log.Infof("loading features from cached file %s", path)
		features, err = store.LoadFeatures(path)
		if err != nil {
			return nil, err
		}
		if len(features) != bundle.Len() {
			return nil, fmt.Errorf("cached features %s hold %d rows, split has %d: rerun with overwrite", path, len(features), bundle.Len())
		}
	} else {
		log.Infof("creating tokenized posts from %s split", opts.Split)
		features = make([]models.Encoding, bundle.Len())
		for i, text := range bundle.Texts {
			features[i] = tok.Encode(text, block)
			if (i+1)%progressEvery == 0 {
				log.Debugf("tokenized %d/%d posts", i+1, bundle.Len())
			}
		}
		log.Infof("saving tokenized posts into cache file at %s", path)
		if err := store.SaveFeatures(path, features); err != nil {
			return nil, err
		}
	}

	return &Dataset{
		split:    opts.Split,
		features: features,
		labels:   bundle.Labels,
		names:    bundle.LabelNames,
	}, nil
}

func (d *Dataset) Split() string        { return d.split }
func (d *Dataset) Len() int             { return len(d.features) }
func (d *Dataset) LabelNames() []string { return d.names }

// Item returns the input ids, attention mask and one-hot label of row i.
func (d *Dataset) Item(i int) (inputIDs, attentionMask []int64, label []uint8) {
	f := d.features[i]
	return f.InputIDs, f.AttentionMask, d.labels[i]
}

type exportRow struct {
	InputIDs      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
	Label         []int   `json:"label"`
}

// Export writes every row as NDJSON for trainers outside this process.
func (d *Dataset) Export(w io.Writer) error {
	items := make([]any, d.Len())
	for i := range items {
		ids, mask, label := d.Item(i)
		l := make([]int, len(label))
		for j, v := range label {
			l[j] = int(v)
		}
		items[i] = exportRow{InputIDs: ids, AttentionMask: mask, Label: l}
	}
	return ioformats.WriteNDJSON(w, items)
}

// LoadOrBuildVocab reads the vocabulary from the cache directory, building
// it from the train split on first use.
func LoadOrBuildVocab(store *cache.Store, maxSize int, log *logger.Logger) (*WordVocab, error) {
	path := store.Path(VocabFile)
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		return ReadVocab(f)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	train, err := store.LoadSplit(models.SplitTrain)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	v := BuildVocab(train.Texts, maxSize)
	if err := cache.WriteAtomic(path, func(w io.Writer) error {
		_, err := v.WriteTo(w)
		return err
	}); err != nil {
		return nil, fmt.Errorf("save vocabulary: %w", err)
	}
	if log != nil {
		log.Infof("built vocabulary of %d tokens at %s", v.Size(), path)
	}
	return v, nil
}
