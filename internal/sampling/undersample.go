// Package sampling corrects class imbalance by undersampling the largest band.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"hn-post-classifier/internal/classifier"
	"hn-post-classifier/internal/models"
)

var (
	ErrUnknownBand     = errors.New("band not found in corpus")
	ErrSampleTooLarge  = errors.New("cannot remove more rows than the band holds")
	ErrInvalidFraction = errors.New("fraction must be within [0, 1]")
	ErrNoAmount        = errors.New("one of n or fraction is required")
)

// Request selects rows to drop from one band. N wins over Fraction when
// both are set.
type Request struct {
	Band     models.Band
	N        int
	Fraction float64
}

// TargetRemoval returns the largest band and how many of its rows must go
// so that it shrinks to the mean size of the remaining bands. Only the
// largest band is corrected.
func TargetRemoval(counts map[models.Band]int) (models.Band, int) {
	sorted := classifier.Sorted(counts)
	if len(sorted) == 0 {
		return "", 0
	}
	top := sorted[0]
	if len(sorted) < 2 {
		return top.Band, 0
	}
	rest := 0
	for _, bc := range sorted[1:] {
		rest += bc.Count
	}
	mean := rest / (len(sorted) - 1)
	if top.Count <= mean {
		return top.Band, 0
	}
	return top.Band, top.Count - mean
}

// Resolve turns req into an absolute row count for a band of size count.
func (req Request) Resolve(count int) (int, error) {
	switch {
	case req.N < 0:
		return 0, fmt.Errorf("n=%d is negative: %w", req.N, ErrNoAmount)
	case req.N > 0:
		if req.N > count {
			return 0, fmt.Errorf("n=%d, band %s has %d rows: %w", req.N, req.Band, count, ErrSampleTooLarge)
		}
		return req.N, nil
	case req.Fraction < 0 || req.Fraction > 1 || math.IsNaN(req.Fraction):
		return 0, fmt.Errorf("fraction=%v: %w", req.Fraction, ErrInvalidFraction)
	case req.Fraction > 0:
		return int(math.RoundToEven(req.Fraction * float64(count))), nil
	default:
		return 0, ErrNoAmount
	}
}

// Undersample drops uniformly sampled rows of req.Band without replacement.
// Survivors keep their input order. Validation happens before anything is
// removed; posts itself is never modified.
func Undersample(posts []models.Post, req Request, rng *rand.Rand) ([]models.Post, int, error) {
	var members []int
	for i, p := range posts {
		if p.Band == req.Band {
			members = append(members, i)
		}
	}
	if len(members) == 0 {
		return nil, 0, fmt.Errorf("class name %q: %w", req.Band, ErrUnknownBand)
	}
	n, err := req.Resolve(len(members))
	if err != nil {
		return nil, 0, err
	}

	// partial fisher-yates: the first n slots are the sample
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(members)-i)
		members[i], members[j] = members[j], members[i]
	}
	drop := make(map[int]struct{}, n)
	for _, idx := range members[:n] {
		drop[idx] = struct{}{}
	}

	kept := make([]models.Post, 0, len(posts)-n)
	for i, p := range posts {
		if _, ok := drop[i]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return kept, n, nil
}
