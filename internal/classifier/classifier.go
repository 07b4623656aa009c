// Package classifier maps post scores onto ordinal score bands.
package classifier

import (
	"sort"

	"hn-post-classifier/internal/models"
)

// Inclusive upper score bounds of the first three bands.
const (
	lowMax  = 5
	midMax  = 25
	highMax = 50
)

// Bands returns all bands in ordinal order.
func Bands() []models.Band {
	return []models.Band{models.BandLow, models.BandMid, models.BandHigh, models.BandOverflow}
}

// Bucket maps a score onto its band. Boundary scores belong to the lower band.
func Bucket(score int) models.Band {
	switch {
	case score <= lowMax:
		return models.BandLow
	case score <= midMax:
		return models.BandMid
	case score <= highMax:
		return models.BandHigh
	default:
		return models.BandOverflow
	}
}

// BucketPosts sets Band on every post.
func BucketPosts(posts []models.Post) {
	for i := range posts {
		posts[i].Band = Bucket(posts[i].Score)
	}
}

// Distribution counts posts per band. Bands with no posts are omitted.
func Distribution(posts []models.Post) map[models.Band]int {
	counts := map[models.Band]int{}
	for _, p := range posts {
		counts[p.Band]++
	}
	return counts
}

type BandCount struct {
	Band  models.Band `json:"band"`
	Count int         `json:"count"`
}

// Sorted returns counts largest first, ties broken by band name.
func Sorted(counts map[models.Band]int) []BandCount {
	list := make([]BandCount, 0, len(counts))
	for b, c := range counts {
		list = append(list, BandCount{b, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count == list[j].Count {
			return list[i].Band < list[j].Band
		}
		return list[i].Count > list[j].Count
	})
	return list
}
