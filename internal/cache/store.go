// Package cache persists prepared splits and their tokenized features.
package cache

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"hn-post-classifier/internal/models"
	"hn-post-classifier/pkg/logger"
)

// ErrNotFound reports a cache entry that has not been written yet.
var ErrNotFound = errors.New("cache entry not found")

const DefaultDir = "classifier/cache"

const splitExt = ".pkl"

type Store struct {
	Dir string
	log *logger.Logger
}

func New(dir string, l *logger.Logger) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Store{Dir: dir, log: l}
}

func (s *Store) SplitPath(split string) string {
	return filepath.Join(s.Dir, split+splitExt)
}

// FeaturesPath names the tokenized cache of a split: {model}_{block}_{split}.
func (s *Store) FeaturesPath(model string, blockSize int, split string) string {
	return filepath.Join(s.Dir, model+"_"+strconv.Itoa(blockSize)+"_"+split)
}

// Path resolves a file name inside the cache directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveSplit writes the bundle as one gob blob. Downstream steps cannot run
// without it, so failures are returned after logging.
func (s *Store) SaveSplit(b *models.SplitBundle) error {
	return s.SaveSplits([]*models.SplitBundle{b})
}

// SaveSplits writes every bundle to a temp file before renaming any into
// place. If a rename fails, the splits already renamed are removed so the
// cache never holds splits from two different runs.
func (s *Store) SaveSplits(bundles []*models.SplitBundle) error {
	staged := make([]string, 0, len(bundles))
	discard := func(tmps []string) {
		for _, tmp := range tmps {
			os.Remove(tmp)
		}
	}
	for _, b := range bundles {
		tmp, err := stage(s.SplitPath(b.Name), func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(b)
		})
		if err != nil {
			discard(staged)
			s.log.Errorf("could not save %s split to %s, re-run the split step: %v", b.Name, s.SplitPath(b.Name), err)
			return fmt.Errorf("save split %s: %w", b.Name, err)
		}
		staged = append(staged, tmp)
	}

	for i, b := range bundles {
		path := s.SplitPath(b.Name)
		if err := os.Rename(staged[i], path); err != nil {
			discard(staged[i:])
			for _, done := range bundles[:i] {
				os.Remove(s.SplitPath(done.Name))
			}
			s.log.Errorf("could not save %s split to %s, re-run the split step: %v", b.Name, path, err)
			return fmt.Errorf("save split %s: %w", b.Name, err)
		}
	}
	for _, b := range bundles {
		s.log.Infof("saved %s split (%d rows) to %s", b.Name, b.Len(), s.SplitPath(b.Name))
	}
	return nil
}

func (s *Store) LoadSplit(split string) (*models.SplitBundle, error) {
	var b models.SplitBundle
	if err := readGob(s.SplitPath(split), &b); err != nil {
		return nil, fmt.Errorf("load split %s: %w", split, err)
	}
	return &b, nil
}

func (s *Store) SaveFeatures(path string, feats []models.Encoding) error {
	err := WriteAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(feats)
	})
	if err != nil {
		return fmt.Errorf("save features %s: %w", path, err)
	}
	return nil
}

func (s *Store) LoadFeatures(path string) ([]models.Encoding, error) {
	var feats []models.Encoding
	if err := readGob(path, &feats); err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	return feats, nil
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteAtomic writes to a temp file next to path and renames it into
// place, so readers never observe a partial entry.
func WriteAtomic(path string, write func(io.Writer) error) error {
	tmp, err := stage(path, write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// stage writes a synced temp file next to path and returns its name. The
// temp file is removed on failure.
func stage(path string, write func(io.Writer) error) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = write(w); err != nil {
		return "", err
	}
	if err = w.Flush(); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
