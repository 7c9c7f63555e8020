package catalog

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/xuri/excelize/v2"
)

// decodeExcel reads the first sheet. The header row names the columns; name, url,
// description and test_type are required, duration, adaptive_support and remote_support optional.
func decodeExcel(content []byte) ([]models.CatalogRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	records := []models.CatalogRecord{}
	if len(rows) == 0 {
		return records, nil
	}

	col := make(map[string]int)
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "url", "description", "test_type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q in header", required)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		r := models.CatalogRecord{
			Name:            cell(row, "name"),
			URL:             cell(row, "url"),
			Description:     cell(row, "description"),
			TestType:        splitCodes(cell(row, "test_type")),
			AdaptiveSupport: cell(row, "adaptive_support"),
			RemoteSupport:   cell(row, "remote_support"),
		}
		if d := cell(row, "duration"); d != "" {
			minutes, err := strconv.Atoi(d)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid duration %q", n+2, d)
			}
			r.Duration = &minutes
		}
		records = append(records, r)
	}
	return records, nil
}

// splitCodes accepts codes separated by spaces, commas or semicolons.
func splitCodes(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
