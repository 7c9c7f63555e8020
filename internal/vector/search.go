package vector

import (
	"math"
	"sort"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
)

// Hit is a scored row of the store.
type Hit struct {
	Index int
	Score float64 // inner product; cosine similarity for unit vectors
}

// Search scores query against every row by inner product and returns the best k hits in
// descending score order. Equal scores keep row order, so results are reproducible.
// k <= 0 or an empty store yields an empty result; k larger than the store yields every row.
func (s *Store) Search(query []float32, k int) ([]Hit, error) {
	n := s.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}
	if len(query) != s.dimensions {
		return nil, &DimensionMismatchError{Expected: s.dimensions, Actual: len(query)}
	}

	hits := make([]Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = Hit{Index: i, Score: utils.Dot(query, s.Vector(i))}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return ranksBefore(hits[a].Score, hits[b].Score)
	})
	if k > n {
		k = n
	}
	return hits[:k:k], nil
}

// ranksBefore orders by descending score with NaN last.
func ranksBefore(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}
