package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hn-post-classifier/internal/models"
)

func TestBucketBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  models.Band
	}{
		{-3, models.BandLow},
		{0, models.BandLow},
		{5, models.BandLow},
		{6, models.BandMid},
		{25, models.BandMid},
		{26, models.BandHigh},
		{50, models.BandHigh},
		{51, models.BandOverflow},
		{4000, models.BandOverflow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.score), "score %d", tt.score)
	}
}

func TestBucketAlwaysKnownBand(t *testing.T) {
	known := map[models.Band]bool{}
	for _, b := range Bands() {
		known[b] = true
	}
	for s := -100; s <= 1000; s++ {
		if !known[Bucket(s)] {
			t.Fatalf("score %d mapped to unknown band %q", s, Bucket(s))
		}
	}
}

func TestDistributionAndSorted(t *testing.T) {
	posts := []models.Post{{Score: 1}, {Score: 2}, {Score: 30}, {Score: 100}, {Score: 3}}
	BucketPosts(posts)
	counts := Distribution(posts)
	assert.Equal(t, map[models.Band]int{models.BandLow: 3, models.BandHigh: 1, models.BandOverflow: 1}, counts)

	sorted := Sorted(counts)
	assert.Equal(t, []BandCount{
		{models.BandLow, 3},
		{models.BandHigh, 1},
		{models.BandOverflow, 1},
	}, sorted)
}
