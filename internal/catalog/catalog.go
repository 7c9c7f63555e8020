// Package catalog reads and validates the raw assessment catalog produced by the crawler.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
)

// Load reads the catalog at path. The reader is picked by file extension (.json or .xlsx).
// Records are returned in file order and validated.
func Load(path string) ([]models.CatalogRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var records []models.CatalogRecord
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		records, err = decodeJSON(content)
	case ".xlsx":
		records, err = decodeExcel(content)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (supported: .json, .xlsx)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := Validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

// Validate checks that every record has a name and at least one test-type code.
func Validate(records []models.CatalogRecord) error {
	for i, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("catalog record %d: name is empty", i)
		}
		if len(r.TestType) == 0 {
			return fmt.Errorf("catalog record %d (%s): test_type is empty", i, r.Name)
		}
	}
	return nil
}

// CompositeText is the text that gets embedded for a record: name, then description,
// then the test-type codes. Changing it invalidates every stored vector.
func CompositeText(r models.CatalogRecord) string {
	return fmt.Sprintf("%s. %s. Test Type: %s", r.Name, r.Description, utils.JoinCodes(r.TestType))
}

// CompositeTexts applies CompositeText to each record, preserving order.
func CompositeTexts(records []models.CatalogRecord) []string {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = CompositeText(r)
	}
	return texts
}
