package vector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/google/uuid"
)

// Save writes s to dir as a new snapshot, replacing any previous one wholesale. All artifacts
// are first written to temporary files in dir; if anything fails before they are renamed into
// place, the temporary files are removed and the previous snapshot is left untouched. The
// manifest is renamed last. Save assumes it is the only writer of dir.
func Save(dir string, s *Store, embeddingModel string) (*Manifest, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	vectorsBytes := encodeVectors(s.dimensions, s.data)
	metadataBytes, err := encodeMetadata(s.metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	m := &Manifest{
		SnapshotID:     uuid.NewString(),
		Count:          s.Len(),
		Dimensions:     s.dimensions,
		EmbeddingModel: embeddingModel,
		CreatedAt:      time.Now().UTC(),
		VectorsSHA256:  checksum(vectorsBytes),
		MetadataSHA256: checksum(metadataBytes),
	}
	if err := writeSnapshot(dir, vectorsBytes, metadataBytes, m); err != nil {
		return nil, err
	}
	return m, nil
}

func writeSnapshot(dir string, vectorsBytes, metadataBytes []byte, m *Manifest) error {
	manifestBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	artifacts := []struct {
		name    string
		content []byte
	}{
		{VectorsFile, vectorsBytes},
		{MetadataFile, metadataBytes},
		{ManifestFile, append(manifestBytes, '\n')},
	}
	temps := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}
	for _, a := range artifacts {
		tmp, err := writeTemp(dir, a.name, a.content)
		if err != nil {
			cleanup()
			return fmt.Errorf("write %s: %w", a.name, err)
		}
		temps = append(temps, tmp)
	}
	for i, a := range artifacts {
		if err := os.Rename(temps[i], filepath.Join(dir, a.name)); err != nil {
			cleanup()
			return fmt.Errorf("replace %s: %w", a.name, err)
		}
	}
	return nil
}

func writeTemp(dir, name string, content []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Load reads the snapshot in dir. Missing or unreadable artifacts yield ErrStorageUnavailable;
// any disagreement between the artifacts yields ErrIntegrity. No partially loaded store is
// ever returned.
func Load(dir string) (*Store, error) {
	manifestBytes, err := readArtifact(dir, ManifestFile)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return nil, integrityf("%s: %v", ManifestFile, err)
	}

	vectorsBytes, err := readArtifact(dir, VectorsFile)
	if err != nil {
		return nil, err
	}
	if got := checksum(vectorsBytes); got != m.VectorsSHA256 {
		return nil, integrityf("%s checksum %s does not match manifest %s", VectorsFile, got, m.VectorsSHA256)
	}
	metadataBytes, err := readArtifact(dir, MetadataFile)
	if err != nil {
		return nil, err
	}
	if got := checksum(metadataBytes); got != m.MetadataSHA256 {
		return nil, integrityf("%s checksum %s does not match manifest %s", MetadataFile, got, m.MetadataSHA256)
	}

	dimensions, rows, data, err := decodeVectors(vectorsBytes)
	if err != nil {
		return nil, err
	}
	var metadata []models.CatalogRecord
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, integrityf("%s: %v", MetadataFile, err)
	}
	if rows != len(metadata) {
		return nil, integrityf("%d vectors for %d metadata records", rows, len(metadata))
	}
	if rows > 0 && dimensions == 0 {
		return nil, integrityf("invalid dimension 0 for %d rows", rows)
	}
	if metadata == nil {
		metadata = []models.CatalogRecord{}
	}

	s := &Store{dimensions: dimensions, data: data, metadata: metadata, manifest: &m}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func readArtifact(dir, name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, unavailable(name+" not found in "+dir, err)
		}
		return nil, unavailable("read "+name, err)
	}
	return b, nil
}
