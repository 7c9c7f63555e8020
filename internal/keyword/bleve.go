package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldTestType    = "test_type"
)

// CatalogIndex is an in-memory Bleve index over catalog records. It is built once from a
// store's metadata and never persisted.
type CatalogIndex struct {
	index bleve.Index
	size  int
}

// NewCatalogIndex indexes records by row position.
func NewCatalogIndex(records []models.CatalogRecord) (*CatalogIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "java" matches "Java 8" exactly.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldName, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldDescription, textFieldMapping)
	codesFieldMapping := bleve.NewTextFieldMapping()
	codesFieldMapping.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt(fieldTestType, codesFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}

	batch := index.NewBatch()
	for i, r := range records {
		doc := map[string]interface{}{
			fieldName:        r.Name,
			fieldDescription: r.Description,
			fieldTestType:    r.TestType,
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index record %d: %w", i, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}
	return &CatalogIndex{index: index, size: len(records)}, nil
}

// Search runs query over name, description and test-type codes and returns up to limit
// hits, best first. Equal scores keep catalog order. A code query such as "K" matches the
// test_type field exactly.
func (c *CatalogIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}
	nameBoost := 1.0
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		if opts.NameBoost > 0 {
			nameBoost = opts.NameBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	name := c.fieldQuery(query, fieldName, fuzzy, fuzziness)
	name.SetBoost(nameBoost)
	q := bleve.NewDisjunctionQuery(
		name,
		c.fieldQuery(query, fieldDescription, fuzzy, fuzziness),
		codesQuery(query),
	)

	req := bleve.NewSearchRequestOptions(q, c.size, 0, false)
	results, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		row, err := strconv.Atoi(h.ID)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Row: row, Score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Row < hits[j].Row
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// fieldQuery matches query terms against one analyzed field, either as a match query or
// as a disjunction of per-term fuzzy queries.
func (c *CatalogIndex) fieldQuery(query, field string, fuzzy bool, fuzziness int) blevequery.BoostableQuery {
	terms := tokenizeQuery(query)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// codesQuery matches single-token upper-cased terms against the exact test-type codes.
func codesQuery(query string) blevequery.Query {
	fields := strings.Fields(query)
	queries := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		tq := bleve.NewTermQuery(strings.ToUpper(f))
		tq.SetField(fieldTestType)
		queries = append(queries, tq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// DocCount returns the number of indexed records.
func (c *CatalogIndex) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Close releases the index.
func (c *CatalogIndex) Close() error {
	return c.index.Close()
}
