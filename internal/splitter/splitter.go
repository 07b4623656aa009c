// Package splitter partitions an encoded corpus into stratified
// train/validation/test bundles.
package splitter

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"hn-post-classifier/internal/labels"
	"hn-post-classifier/internal/models"
)

// ErrStratify is returned when a stratified split cannot keep every class.
var ErrStratify = errors.New("stratified split impossible")

const (
	DefaultTestFraction = 0.1
	DefaultValFraction  = 0.1
	DefaultSeed         = 42
)

type Options struct {
	TestFraction float64 `yaml:"test_fraction" env:"SPLIT_TEST_FRACTION"`
	ValFraction  float64 `yaml:"val_fraction" env:"SPLIT_VAL_FRACTION"`
	Seed         uint64  `yaml:"seed" env:"SPLIT_SEED"`
}

func DefaultOptions() Options {
	return Options{TestFraction: DefaultTestFraction, ValFraction: DefaultValFraction, Seed: DefaultSeed}
}

type Result struct {
	Train models.SplitBundle
	Val   models.SplitBundle
	Test  models.SplitBundle
}

// Bundles returns the three splits in train, val, test order.
func (r *Result) Bundles() []*models.SplitBundle {
	return []*models.SplitBundle{&r.Train, &r.Val, &r.Test}
}

// HeldOutSize is the number of rows a fraction of n holds out.
func HeldOutSize(n int, fraction float64) int {
	return int(math.Round(fraction * float64(n)))
}

// Sizes returns the test and validation sizes for a corpus of n rows. The
// validation size is taken from the whole corpus, round(val × (1-test) × n),
// not from the rounded remainder, so it can differ by one from
// round(val × (n - test)).
func Sizes(n int, opts Options) (test, val int) {
	return HeldOutSize(n, opts.TestFraction), HeldOutSize(n, opts.ValFraction*(1-opts.TestFraction))
}

// Split first holds out TestFraction of the corpus, then ValFraction of
// what remains, sized by Sizes. Both stages stratify on the one-hot label
// row and use a generator seeded with opts.Seed.
func Split(ids []int64, texts []string, enc labels.Encoding, opts Options) (Result, error) {
	if len(ids) != len(texts) || len(texts) != len(enc.Matrix) {
		return Result{}, fmt.Errorf("ids=%d texts=%d labels=%d: length mismatch", len(ids), len(texts), len(enc.Matrix))
	}
	classes := make([]int, len(enc.Matrix))
	for i, row := range enc.Matrix {
		classes[i] = labels.Index(row)
		if classes[i] < 0 {
			return Result{}, fmt.Errorf("row %d: %w", i, labels.ErrMalformedRow)
		}
	}

	for _, f := range []float64{opts.TestFraction, opts.ValFraction} {
		if f <= 0 || f >= 1 || math.IsNaN(f) {
			return Result{}, fmt.Errorf("fraction %v outside (0, 1): %w", f, ErrStratify)
		}
	}
	nTest, nVal := Sizes(len(classes), opts)

	all := make([]int, len(classes))
	for i := range all {
		all[i] = i
	}
	pool, test, err := holdOut(all, classes, nTest, opts.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("test split: %w", err)
	}
	train, val, err := holdOut(pool, classes, nVal, opts.Seed)
	if err != nil {
		return Result{}, fmt.Errorf("validation split: %w", err)
	}

	return Result{
		Train: bundle(models.SplitTrain, train, ids, texts, enc),
		Val:   bundle(models.SplitVal, val, ids, texts, enc),
		Test:  bundle(models.SplitTest, test, ids, texts, enc),
	}, nil
}

// holdOut partitions rows (positions into classes) into kept and nHeld
// held-out rows, preserving class proportions.
func holdOut(rows, classes []int, nHeld int, seed uint64) (kept, held []int, err error) {
	byClass := map[int][]int{}
	for _, r := range rows {
		byClass[classes[r]] = append(byClass[classes[r]], r)
	}
	order := make([]int, 0, len(byClass))
	for c, members := range byClass {
		if len(members) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d member(s), need at least 2: %w", c, len(members), ErrStratify)
		}
		order = append(order, c)
	}
	sort.Ints(order)

	n := len(rows)
	if nHeld < len(order) || n-nHeld < len(order) {
		return nil, nil, fmt.Errorf("%d held / %d kept rows cannot cover %d classes: %w", nHeld, n-nHeld, len(order), ErrStratify)
	}

	counts := make([]int, len(order))
	for i, c := range order {
		counts[i] = len(byClass[c])
	}
	quota := apportion(counts, n, nHeld)

	rng := rand.New(rand.NewPCG(seed, seed))
	kept = make([]int, 0, n-nHeld)
	held = make([]int, 0, nHeld)
	for i, c := range order {
		members := byClass[c]
		rng.Shuffle(len(members), func(a, b int) { members[a], members[b] = members[b], members[a] })
		held = append(held, members[:quota[i]]...)
		kept = append(kept, members[quota[i]:]...)
	}
	rng.Shuffle(len(kept), func(a, b int) { kept[a], kept[b] = kept[b], kept[a] })
	rng.Shuffle(len(held), func(a, b int) { held[a], held[b] = held[b], held[a] })
	return kept, held, nil
}

// apportion splits total across classes proportionally to counts using
// largest remainders. Ties go to the earlier class.
func apportion(counts []int, n, total int) []int {
	quota := make([]int, len(counts))
	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(counts))
	assigned := 0
	for i, c := range counts {
		exact := float64(total) * float64(c) / float64(n)
		quota[i] = int(math.Floor(exact))
		assigned += quota[i]
		rems[i] = rem{i, exact - float64(quota[i])}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for i := 0; assigned < total; i = (i + 1) % len(rems) {
		if quota[rems[i].idx] < counts[rems[i].idx] {
			quota[rems[i].idx]++
			assigned++
		}
	}
	return quota
}

func bundle(name string, rows []int, ids []int64, texts []string, enc labels.Encoding) models.SplitBundle {
	b := models.SplitBundle{
		Name:       name,
		IDs:        make([]int64, len(rows)),
		Texts:      make([]string, len(rows)),
		Labels:     make([][]uint8, len(rows)),
		LabelNames: append([]string(nil), enc.Names...),
	}
	for i, r := range rows {
		b.IDs[i] = ids[r]
		b.Texts[i] = texts[r]
		b.Labels[i] = enc.Matrix[r]
	}
	return b
}
