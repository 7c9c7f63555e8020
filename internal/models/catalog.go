// Package models defines the catalog record and recommendation data structures.
package models

// CatalogRecord is one assessment as produced by the catalog crawler.
// Records are immutable input to ingestion and are persisted verbatim as store metadata.
type CatalogRecord struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	TestType        []string `json:"test_type"`
	Duration        *int     `json:"duration"`
	AdaptiveSupport string   `json:"adaptive_support,omitempty"`
	RemoteSupport   string   `json:"remote_support,omitempty"`
}

// CatalogPage is one page of the loaded catalog, optionally filtered by a lexical query.
type CatalogPage struct {
	Query       string          `json:"query,omitempty"`
	Total       int             `json:"total"`
	Offset      int             `json:"offset"`
	Limit       int             `json:"limit"`
	Assessments []CatalogRecord `json:"assessments"`
}
