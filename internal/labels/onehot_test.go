package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hn-post-classifier/internal/models"
)

func TestEncodeOrderingAndRoundTrip(t *testing.T) {
	bands := []models.Band{models.BandOverflow, models.BandLow, models.BandMid, models.BandHigh, models.BandLow}
	enc := Encode(bands)

	assert.Equal(t, []string{"0-5", "25-50", "5-25", "50+"}, enc.Names)
	require.Len(t, enc.Matrix, len(bands))
	assert.Equal(t, []uint8{0, 0, 0, 1}, enc.Matrix[0])
	assert.Equal(t, []uint8{1, 0, 0, 0}, enc.Matrix[1])

	for i, row := range enc.Matrix {
		got, err := Decode(row, enc.Names)
		require.NoError(t, err)
		assert.Equal(t, string(bands[i]), got)
	}
}

func TestEncodeOrderingDependsOnlyOnDistinctValues(t *testing.T) {
	a := Encode([]string{"b", "a", "c"})
	b := Encode([]string{"c", "c", "a", "b", "a"})
	assert.Equal(t, a.Names, b.Names)
}

func TestEncodeWithKeepsWidthWhenLabelAbsent(t *testing.T) {
	names := []string{"0-5", "25-50", "5-25", "50+"}
	enc, err := EncodeWith([]string{"50+"}, names)
	require.NoError(t, err)
	assert.Equal(t, [][]uint8{{0, 0, 0, 1}}, enc.Matrix)

	_, err = EncodeWith([]string{"100+"}, names)
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestDecodeMalformed(t *testing.T) {
	names := []string{"a", "b"}
	for _, row := range [][]uint8{{0, 0}, {1, 1}, {2, 0}, {1}} {
		_, err := Decode(row, names)
		assert.ErrorIs(t, err, ErrMalformedRow, "%v", row)
	}
	assert.Equal(t, 1, Index([]uint8{0, 1}))
	assert.Equal(t, -1, Index([]uint8{0, 0}))
}
