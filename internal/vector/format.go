package vector

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
)

// Artifact file names inside a store directory.
const (
	VectorsFile  = "vectors.bin"
	MetadataFile = "metadata.json"
	ManifestFile = "manifest.json"
)

// vectors.bin layout, little-endian: uint32 dimension, uint32 row count, then rows*dimension
// float32 values in row order.
const vectorsHeaderSize = 8

// Manifest describes one ingestion snapshot and pins the checksums of its artifacts, so a
// store whose files come from different runs is detected at load time.
type Manifest struct {
	SnapshotID     string    `json:"snapshot_id"`
	Count          int       `json:"count"`
	Dimensions     int       `json:"dimensions"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	VectorsSHA256  string    `json:"vectors_sha256"`
	MetadataSHA256 string    `json:"metadata_sha256"`
}

func encodeVectors(dimensions int, data []float32) []byte {
	rows := 0
	if dimensions > 0 {
		rows = len(data) / dimensions
	}
	out := make([]byte, vectorsHeaderSize+len(data)*4)
	binary.LittleEndian.PutUint32(out[0:4], uint32(dimensions))
	binary.LittleEndian.PutUint32(out[4:8], uint32(rows))
	for i, v := range data {
		off := vectorsHeaderSize + i*4
		binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v))
	}
	return out
}

// decodeVectors parses vectors.bin, rejecting truncated or oversized payloads.
func decodeVectors(b []byte) (dimensions, rows int, data []float32, err error) {
	if len(b) < vectorsHeaderSize {
		return 0, 0, nil, integrityf("%s: %d bytes is shorter than the header", VectorsFile, len(b))
	}
	dimensions = int(binary.LittleEndian.Uint32(b[0:4]))
	rows = int(binary.LittleEndian.Uint32(b[4:8]))
	body := b[vectorsHeaderSize:]
	if want := uint64(rows) * uint64(dimensions) * 4; uint64(len(body)) != want {
		return 0, 0, nil, integrityf("%s: header says %dx%d (%d bytes), payload has %d bytes",
			VectorsFile, rows, dimensions, want, len(body))
	}
	data = make([]float32, rows*dimensions)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4 : i*4+4]))
	}
	return dimensions, rows, data, nil
}

func encodeMetadata(records []models.CatalogRecord) ([]byte, error) {
	if records == nil {
		records = []models.CatalogRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
