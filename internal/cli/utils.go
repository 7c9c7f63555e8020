// Package cli renders recommendation results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteRecommendations writes ranked results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteRecommendations(w io.Writer, jobDescription string, response *models.RecommendationResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	writeRecommendationsText(w, jobDescription, response)
	return nil
}

func writeRecommendationsText(w io.Writer, jobDescription string, response *models.RecommendationResponse) {
	fmt.Fprintf(w, "\n%d recommendations in %dms for %q\n\n",
		len(response.Recommendations), response.QueryTime, TruncateWords(jobDescription, 12))
	for i, r := range response.Recommendations {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%2d. %s | Score: %.4f\n", i+1, r.Name, r.Score)
		fmt.Fprintf(w, "    Test Type: %s\n", utils.JoinCodes(r.TestType))
		if r.URL != "" {
			fmt.Fprintf(w, "    %s\n", r.URL)
		}
	}
	fmt.Fprintln(w)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
