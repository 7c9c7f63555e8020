package recommend

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/catalog"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/embedding"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/ingest"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/metrics"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/models"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbedder returns preset vectors per text, and fallback for anything else.
type fixedEmbedder struct {
	dims     int
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    atomic.Int32
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return f.dims }
func (f *fixedEmbedder) Close() error    { return nil }

func rec(name string, codes ...string) models.CatalogRecord {
	return models.CatalogRecord{Name: name, URL: "https://www.shl.com/" + name, TestType: codes}
}

func newStore(t *testing.T, dim int, vectors [][]float32, records []models.CatalogRecord) *vector.Store {
	t.Helper()
	s, err := vector.NewStore(dim, vectors, records)
	require.NoError(t, err)
	return s
}

func scenarioAStore(t *testing.T) *vector.Store {
	return newStore(t, 3,
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.8, 0, 0.6}},
		[]models.CatalogRecord{rec("Verify G+", "K"), rec("OPQ32", "P"), rec("Coding Assessment", "K")},
	)
}

func TestRecommend_ScenarioA(t *testing.T) {
	emb := &fixedEmbedder{dims: 3, fallback: []float32{0.9, 0.1, 0.2}}
	e, err := NewEngine(scenarioAStore(t), emb)
	require.NoError(t, err)

	got, err := e.Recommend(context.Background(), "looking for a cognitive ability test", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	names := map[string]bool{"Verify G+": true, "OPQ32": true, "Coding Assessment": true}
	for _, r := range got {
		assert.True(t, names[r.Name], r.Name)
	}
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	assert.Equal(t, "Verify G+", got[0].Name)
	assert.Equal(t, []string{"K"}, got[0].TestType)
	assert.Equal(t, "https://www.shl.com/Verify G+", got[0].URL)
}

func TestRecommend_ScenarioB_ZeroOrNegativeTopK(t *testing.T) {
	emb := &fixedEmbedder{dims: 3, fallback: []float32{1, 0, 0}}
	e, err := NewEngine(scenarioAStore(t), emb)
	require.NoError(t, err)

	for _, k := range []int{0, -1, -100} {
		got, err := e.Recommend(context.Background(), "anything", k)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(0), emb.calls.Load(), "no embedding call for k <= 0")
}

func TestRecommend_ScenarioC_TopKLargerThanStore(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}, {0.8, 0.6}, {-1, 0}}
	records := []models.CatalogRecord{rec("a", "K"), rec("b", "P"), rec("c", "A"), rec("d", "B"), rec("e", "S")}
	e, err := NewEngine(newStore(t, 2, vectors, records), &fixedEmbedder{dims: 2, fallback: []float32{1, 0}})
	require.NoError(t, err)

	got, err := e.Recommend(context.Background(), "q", 50)
	require.NoError(t, err)
	require.Len(t, got, 5)
	seen := map[string]bool{}
	for i, r := range got {
		assert.False(t, seen[r.Name], "duplicate %s", r.Name)
		seen[r.Name] = true
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, []string{"a", "d", "c", "b", "e"}, namesOf(got))
}

func TestRecommend_ScenarioD_EmptyStore(t *testing.T) {
	emb := &fixedEmbedder{dims: 4}
	e, err := NewEngine(newStore(t, 4, nil, nil), emb)
	require.NoError(t, err)
	for _, k := range []int{-1, 0, 1, 10} {
		got, err := e.Recommend(context.Background(), "q", k)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestRecommend_TopKBound(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}
	records := []models.CatalogRecord{rec("a", "K"), rec("b", "K"), rec("c", "K")}
	e, err := NewEngine(newStore(t, 2, vectors, records), &fixedEmbedder{dims: 2, fallback: []float32{0.3, 0.7}})
	require.NoError(t, err)
	for k := -2; k <= 6; k++ {
		got, err := e.Recommend(context.Background(), "q", k)
		require.NoError(t, err)
		assert.Len(t, got, min(max(k, 0), 3), "k=%d", k)
	}
}

func TestRecommend_TiesKeepCatalogOrder(t *testing.T) {
	vectors := [][]float32{{0, 1}, {1, 0}, {0, 1}, {1, 0}, {1, 0}}
	records := []models.CatalogRecord{rec("a", "K"), rec("b", "K"), rec("c", "K"), rec("d", "K"), rec("e", "K")}
	e, err := NewEngine(newStore(t, 2, vectors, records), &fixedEmbedder{dims: 2, fallback: []float32{1, 0}})
	require.NoError(t, err)

	first, err := e.Recommend(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "e", "a", "c"}, namesOf(first))
	for i := 0; i < 10; i++ {
		again, err := e.Recommend(context.Background(), "q", 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRecommend_NormalizesQuery(t *testing.T) {
	emb := &fixedEmbedder{dims: 3, fallback: []float32{10, 0, 0}}
	e, err := NewEngine(scenarioAStore(t), emb)
	require.NoError(t, err)
	got, err := e.Recommend(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, []float32{10, 0, 0}, emb.fallback, "embedder output must not be modified")
}

func TestRecommend_SelfSimilarityWithIngestion(t *testing.T) {
	records := []models.CatalogRecord{
		{Name: "Java 8 (New)", URL: "https://www.shl.com/java8", Description: "Java knowledge", TestType: []string{"K"}},
		{Name: "OPQ32r", URL: "https://www.shl.com/opq", Description: "Personality questionnaire", TestType: []string{"P"}},
		{Name: "Verify G+", URL: "https://www.shl.com/verify", Description: "General ability", TestType: []string{"A"}},
		{Name: "Account Manager Solution", URL: "https://www.shl.com/am", Description: "Sales simulation", TestType: []string{"B", "S", "P"}},
	}
	emb := embedding.NewMockEmbedder(32)
	store, err := ingest.NewIngestor(emb).Build(context.Background(), records)
	require.NoError(t, err)
	e, err := NewEngine(store, emb)
	require.NoError(t, err)

	for _, r := range records {
		got, err := e.Recommend(context.Background(), catalog.CompositeText(r), 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, r.Name, got[0].Name)
		assert.InDelta(t, 1.0, got[0].Score, 1e-5)
	}
}

func TestNewEngine_DimensionMismatch(t *testing.T) {
	_, err := NewEngine(scenarioAStore(t), &fixedEmbedder{dims: 384})
	require.Error(t, err)
	assert.ErrorIs(t, err, vector.ErrIntegrity)
	var dm *vector.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 384, dm.Actual)
}

func TestNewEngine_NilStore(t *testing.T) {
	_, err := NewEngine(nil, &fixedEmbedder{dims: 3})
	assert.ErrorIs(t, err, vector.ErrIntegrity)
}

func TestRecommend_QueryDimensionMismatch(t *testing.T) {
	// dims 0: the provider does not announce its dimension, so only the query catches it
	emb := &fixedEmbedder{dims: 0, fallback: []float32{1, 0}}
	e, err := NewEngine(scenarioAStore(t), emb)
	require.NoError(t, err)
	_, err = e.Recommend(context.Background(), "q", 2)
	assert.ErrorIs(t, err, vector.ErrIntegrity)
}

func TestRecommend_UpstreamFailureLeavesEngineUsable(t *testing.T) {
	emb := &fixedEmbedder{dims: 3, fallback: []float32{1, 0, 0}}
	e, err := NewEngine(scenarioAStore(t), emb, WithMetrics(metrics.NewRecorder()))
	require.NoError(t, err)

	emb.err = embedding.NewUpstreamError("test", errors.New("503"))
	_, err = e.Recommend(context.Background(), "q", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrUpstream)

	emb.err = errors.New("connection reset")
	_, err = e.Recommend(context.Background(), "q", 2)
	assert.ErrorIs(t, err, embedding.ErrUpstream, "unclassified embedder errors are upstream errors")

	emb.err = nil
	got, err := e.Recommend(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, "Verify G+", got[0].Name)
}

func TestRecommend_Concurrent(t *testing.T) {
	emb := embedding.NewMockEmbedder(16)
	records := []models.CatalogRecord{rec("a", "K"), rec("b", "P"), rec("c", "A"), rec("d", "B")}
	store, err := ingest.NewIngestor(emb).Build(context.Background(), records)
	require.NoError(t, err)
	e, err := NewEngine(store, emb)
	require.NoError(t, err)

	want, err := e.Recommend(context.Background(), "graduate analyst", 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Recommend(context.Background(), "graduate analyst", 3)
			if err != nil {
				errs <- err
				return
			}
			if len(got) != len(want) {
				errs <- errors.New("result length differs")
				return
			}
			for j := range got {
				if got[j].Name != want[j].Name || got[j].Score != want[j].Score {
					errs <- errors.New("result differs")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRecommend_ResultDoesNotAliasStore(t *testing.T) {
	e, err := NewEngine(scenarioAStore(t), &fixedEmbedder{dims: 3, fallback: []float32{1, 0, 0}})
	require.NoError(t, err)
	got, err := e.Recommend(context.Background(), "q", 1)
	require.NoError(t, err)
	got[0].TestType[0] = "X"
	assert.Equal(t, []string{"K"}, e.Store().Record(0).TestType)
}

func TestOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	_, err := vector.Save(dir, scenarioAStore(t), "fixed")
	require.NoError(t, err)

	e, err := Open(context.Background(), dir, &fixedEmbedder{dims: 3, fallback: []float32{0, 1, 0}}, WithModelName("other"))
	require.NoError(t, err)
	assert.Equal(t, 3, e.Store().Len())
	got, err := e.Recommend(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Equal(t, "OPQ32", got[0].Name)
}

func TestOpen_MissingStore(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), &fixedEmbedder{dims: 3})
	assert.ErrorIs(t, err, vector.ErrStorageUnavailable)
}

func namesOf(rs []models.QueryResult) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}
