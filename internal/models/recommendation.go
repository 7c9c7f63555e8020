package models

import (
	"fmt"
	"strings"
)

// DefaultTopK is used when a request does not specify top_k.
const DefaultTopK = 10

// QueryResult is a single ranked recommendation.
// Score is the cosine similarity between the query and the record, unmodified.
type QueryResult struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	TestType []string `json:"test_type"`
	Score    float64  `json:"score"`
}

// RecommendationRequest is the body of a recommend call.
// TopK is a pointer so that an absent value can be told apart from an explicit 0.
type RecommendationRequest struct {
	JobDescription string `json:"job_description"`
	TopK           *int   `json:"top_k,omitempty"`
}

// Validate rejects a blank job description and fills in the default top_k.
// Non-positive top_k values are kept as-is; the engine answers them with an empty list.
func (r *RecommendationRequest) Validate(defaultTopK int) error {
	if strings.TrimSpace(r.JobDescription) == "" {
		return fmt.Errorf("job_description cannot be empty")
	}
	if r.TopK == nil {
		if defaultTopK <= 0 {
			defaultTopK = DefaultTopK
		}
		k := defaultTopK
		r.TopK = &k
	}
	return nil
}

// K returns the requested top_k, or DefaultTopK when unset.
func (r *RecommendationRequest) K() int {
	if r.TopK == nil {
		return DefaultTopK
	}
	return *r.TopK
}

// RecommendationResponse wraps the ranked results.
type RecommendationResponse struct {
	Recommendations []QueryResult `json:"recommendations"`
	QueryTime       int64         `json:"query_time_ms"`
}
