// Package vector holds the vector store shared by ingestion and retrieval: the on-disk format,
// its integrity checks, and brute-force similarity search over the loaded rows.
package vector

import (
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
)

// Store is an immutable, row-aligned set of embeddings and catalog records: row i of the
// vector matrix describes metadata[i]. It is safe for concurrent readers without locking.
type Store struct {
	dimensions int
	data       []float32 // len(metadata) rows of dimensions floats
	metadata   []models.CatalogRecord
	manifest   *Manifest
}

// NewStore copies vectors and metadata into a new store after checking that they line up
// and that every vector has the given dimension. An empty store is valid.
func NewStore(dimensions int, vectors [][]float32, metadata []models.CatalogRecord) (*Store, error) {
	if len(vectors) != len(metadata) {
		return nil, integrityf("%d vectors for %d metadata records", len(vectors), len(metadata))
	}
	if dimensions < 0 || (dimensions == 0 && len(vectors) > 0) {
		return nil, integrityf("invalid dimension %d", dimensions)
	}
	data := make([]float32, 0, len(vectors)*dimensions)
	for _, v := range vectors {
		if len(v) != dimensions {
			return nil, &DimensionMismatchError{Expected: dimensions, Actual: len(v)}
		}
		data = append(data, v...)
	}
	meta := make([]models.CatalogRecord, len(metadata))
	copy(meta, metadata)
	return &Store{dimensions: dimensions, data: data, metadata: meta}, nil
}

// Len returns the number of rows.
func (s *Store) Len() int {
	return len(s.metadata)
}

// Dimensions returns the vector dimension D.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Vector returns row i. The slice aliases store memory and must not be modified.
func (s *Store) Vector(i int) []float32 {
	return s.data[i*s.dimensions : (i+1)*s.dimensions : (i+1)*s.dimensions]
}

// Record returns the metadata of row i.
func (s *Store) Record(i int) models.CatalogRecord {
	return s.metadata[i]
}

// Manifest returns the manifest the store was loaded with, or nil for a store built in memory.
func (s *Store) Manifest() *Manifest {
	return s.manifest
}

// Validate re-checks the alignment invariant.
func (s *Store) Validate() error {
	if s == nil {
		return integrityf("nil store")
	}
	if len(s.data) != len(s.metadata)*s.dimensions {
		return integrityf("%d floats for %d rows of dimension %d", len(s.data), len(s.metadata), s.dimensions)
	}
	if s.manifest != nil && (s.manifest.Count != len(s.metadata) || s.manifest.Dimensions != s.dimensions) {
		return integrityf("manifest describes %dx%d, store holds %dx%d",
			s.manifest.Count, s.manifest.Dimensions, len(s.metadata), s.dimensions)
	}
	return nil
}
