package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/embedding"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/keyword"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/recommend"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/storage"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/vector"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Recommend.DefaultTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	s.logger.Debug("recommend request", zap.Int("top_k", req.K()), zap.String("job_description", utils.Truncate(req.JobDescription, 80)))

	started := time.Now()
	results, err := engine.Recommend(r.Context(), req.JobDescription, req.K())
	if err != nil {
		s.logger.Error("recommend failed", zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.RecommendationResponse{
		Recommendations: results,
		QueryTime:       time.Since(started).Milliseconds(),
	})
}

func (s *Server) handleAssessments(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxPageLimit)
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	store := engine.Store()

	rows := make([]int, 0, store.Len())
	if q == "" {
		for i := 0; i < store.Len(); i++ {
			rows = append(rows, i)
		}
	} else {
		index, err := s.catalogIndex(store)
		if err != nil {
			s.logger.Error("catalog index unavailable", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		hits, err := index.Search(r.Context(), q, store.Len(), &keyword.SearchOptions{NameBoost: 2, FuzzyEnabled: true})
		if err != nil {
			s.logger.Error("catalog search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, h := range hits {
			rows = append(rows, h.Row)
		}
	}

	page := models.CatalogPage{
		Query:       q,
		Total:       len(rows),
		Offset:      offset,
		Limit:       limit,
		Assessments: []models.CatalogRecord{},
	}
	if offset < len(rows) {
		for _, row := range rows[offset:min(offset+limit, len(rows))] {
			page.Assessments = append(page.Assessments, store.Record(row))
		}
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engine(w, r)
	if !ok {
		return
	}
	store := engine.Store()
	resp := map[string]interface{}{
		"records":    store.Len(),
		"dimensions": store.Dimensions(),
	}
	if m := store.Manifest(); m != nil {
		resp["snapshot_id"] = m.SnapshotID
		resp["embedding_model"] = m.EmbeddingModel
		resp["created_at"] = m.CreatedAt
	}
	configInfo := map[string]interface{}{
		"embedding_provider": s.config.Embedding.Provider,
		"store_dir":          s.config.Storage.StoreDir,
		"default_top_k":      s.config.Recommend.DefaultTopK,
	}
	if usage, err := storage.StoreUsageOf(s.config.Storage.StoreDir); err == nil {
		resp["disk_usage_bytes"] = usage.TotalBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "ready": s.loader.Ready()})
}

// engine returns the loaded engine, or writes 503 when the store could not be loaded.
func (s *Server) engine(w http.ResponseWriter, r *http.Request) (*recommend.Engine, bool) {
	engine, err := s.loader.Get(r.Context())
	if err != nil {
		s.logger.Error("engine unavailable", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "recommendation engine unavailable: "+err.Error())
		return nil, false
	}
	return engine, true
}

// catalogIndex builds the lexical index over store on first use.
func (s *Server) catalogIndex(store *vector.Store) (*keyword.CatalogIndex, error) {
	s.indexOnce.Do(func() {
		records := make([]models.CatalogRecord, store.Len())
		for i := range records {
			records[i] = store.Record(i)
		}
		s.index, s.indexErr = keyword.NewCatalogIndex(records)
	})
	return s.index, s.indexErr
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, embedding.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, vector.ErrIntegrity):
		return http.StatusInternalServerError
	case errors.Is(err, vector.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
