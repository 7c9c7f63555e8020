// Package keyword provides lexical lookup over the loaded assessment catalog.
package keyword

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// NameBoost multiplies the score contribution from matches in the assessment name.
	// Values > 1 make name matches rank higher (e.g. 3.0). Use 1.0 for no boost.
	NameBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when FuzzyEnabled is true.
	Fuzziness int
}

// Hit is a single keyword search hit. Row is the catalog position of the record.
type Hit struct {
	Row   int
	Score float64
}
