// Package labels one-hot encodes band labels against a fixed column order.
package labels

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownLabel = errors.New("label not in column ordering")
	ErrMalformedRow = errors.New("row is not one-hot")
)

// Encoding is a dense one-hot matrix plus its column names.
type Encoding struct {
	Names  []string
	Matrix [][]uint8
}

// Encode discovers the column ordering from the distinct labels (sorted
// alphabetically) and encodes every label against it.
func Encode[L ~string](values []L) Encoding {
	seen := map[string]struct{}{}
	for _, v := range values {
		seen[string(v)] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	enc, _ := EncodeWith(values, names)
	return enc
}

// EncodeWith encodes values against an ordering captured earlier.
func EncodeWith[L ~string](values []L, names []string) (Encoding, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	matrix := make([][]uint8, len(values))
	for r, v := range values {
		col, ok := index[string(v)]
		if !ok {
			return Encoding{}, fmt.Errorf("%q: %w", v, ErrUnknownLabel)
		}
		row := make([]uint8, len(names))
		row[col] = 1
		matrix[r] = row
	}
	return Encoding{Names: append([]string(nil), names...), Matrix: matrix}, nil
}

// Decode maps a one-hot row back to its label.
func Decode(row []uint8, names []string) (string, error) {
	if len(row) != len(names) {
		return "", fmt.Errorf("row width %d, %d names: %w", len(row), len(names), ErrMalformedRow)
	}
	hot := -1
	for i, v := range row {
		switch v {
		case 0:
		case 1:
			if hot != -1 {
				return "", fmt.Errorf("columns %d and %d both set: %w", hot, i, ErrMalformedRow)
			}
			hot = i
		default:
			return "", fmt.Errorf("column %d holds %d: %w", i, v, ErrMalformedRow)
		}
	}
	if hot == -1 {
		return "", fmt.Errorf("no column set: %w", ErrMalformedRow)
	}
	return names[hot], nil
}

// Index returns the position of the set column of a valid one-hot row.
func Index(row []uint8) int {
	for i, v := range row {
		if v == 1 {
			return i
		}
	}
	return -1
}
