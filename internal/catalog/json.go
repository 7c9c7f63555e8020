package catalog

import (
	"encoding/json"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
)

func decodeJSON(content []byte) ([]models.CatalogRecord, error) {
	records := []models.CatalogRecord{}
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, err
	}
	return records, nil
}
