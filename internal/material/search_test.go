package material

import (
	"context"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/suPer8Hu/tutor-platform/internal/logger"
)

type memoryCache struct {
	vecs map[string][]float32
	hits int
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{vecs: map[string][]float32{}}
}

func (c *memoryCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	vec, ok := c.vecs[text]
	if ok {
		c.hits++
	}
	return vec, ok
}

func (c *memoryCache) SetEmbedding(ctx context.Context, text string, vec []float32) {
	c.sets++
	c.vecs[text] = vec
}

func seedCompleted(t *testing.T, db *gorm.DB, id, courseID, text string, vec []float32) {
	t.Helper()
	enc, err := encodeEmbedding(vec)
	if err != nil {
		t.Fatalf("encode embedding: %v", err)
	}
	m := &Material{
		ID:            id,
		CourseID:      courseID,
		Name:          id + ".pdf",
		FilePath:      courseID + "/" + id + ".pdf",
		FileType:      "pdf",
		Status:        StatusCompleted,
		ExtractedText: &text,
		Embedding:     enc,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed completed material: %v", err)
	}
}

func newTestSearcher(db *gorm.DB, provider *fakeProvider, cache EmbeddingCache) *Searcher {
	return NewSearcher(NewRepo(db), provider, cache, SearchConfig{
		DefaultLimit:    3,
		MaxLimit:        10,
		MinQueryLen:     3,
		ExcerptMaxChars: 500,
	}, logger.NewNop())
}

func TestSearch_ShortQuerySkipsProvider(t *testing.T) {
	db := openTestDB(t)
	provider := &fakeProvider{embedding: []float32{1, 0}}
	s := newTestSearcher(db, provider, nil)

	for _, q := range []string{"", "  ", "ab", " a "} {
		results, err := s.Search(context.Background(), "search-short", q, 5)
		if err != nil {
			t.Fatalf("query %q: %v", q, err)
		}
		if results == nil || len(results) != 0 {
			t.Fatalf("query %q: want empty slice, got %v", q, results)
		}
	}
	if provider.embedCall != 0 {
		t.Fatalf("provider must not be called for short queries, got %d calls", provider.embedCall)
	}
}

func TestSearch_RanksByDescendingSimilarity(t *testing.T) {
	db := openTestDB(t)
	course := "search-rank"
	seedCompleted(t, db, "rank-far", course, "unrelated notes", []float32{-1, 0})
	seedCompleted(t, db, "rank-near", course, "exact topic notes", []float32{1, 0})
	seedCompleted(t, db, "rank-mid", course, "adjacent notes", []float32{0, 1})

	provider := &fakeProvider{embedding: []float32{1, 0}}
	s := newTestSearcher(db, provider, nil)

	results, err := s.Search(context.Background(), course, "thermodynamics basics", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if results[0].MaterialID != "rank-near" || !almostEqual(results[0].Similarity, 1.0) {
		t.Fatalf("top result: want rank-near@1.0, got %s@%v", results[0].MaterialID, results[0].Similarity)
	}
	if results[1].MaterialID != "rank-mid" || !almostEqual(results[1].Similarity, 0.5) {
		t.Fatalf("second result: want rank-mid@0.5, got %s@%v", results[1].MaterialID, results[1].Similarity)
	}
}

func TestSearch_EmptyCourseReturnsEmpty(t *testing.T) {
	db := openTestDB(t)
	provider := &fakeProvider{embedding: []float32{1, 0}}
	s := newTestSearcher(db, provider, nil)

	results, err := s.Search(context.Background(), "search-empty-course", "anything at all", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Fatalf("want empty slice, got %v", results)
	}
}

func TestSearch_PendingMaterialsExcluded(t *testing.T) {
	db := openTestDB(t)
	course := "search-pending"
	m := &Material{ID: "pending-only", CourseID: course, Name: "n.pdf", FilePath: "p", FileType: "pdf", Status: StatusPending}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	provider := &fakeProvider{embedding: []float32{1, 0}}
	s := newTestSearcher(db, provider, nil)

	results, err := s.Search(context.Background(), course, "anything at all", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("pending materials must not be ranked, got %v", results)
	}
}

func TestSearch_ExcerptTruncated(t *testing.T) {
	db := openTestDB(t)
	course := "search-excerpt"
	long := strings.Repeat("x", 600)
	seedCompleted(t, db, "excerpt-mat", course, long, []float32{1, 0})

	provider := &fakeProvider{embedding: []float32{1, 0}}
	s := newTestSearcher(db, provider, nil)

	results, err := s.Search(context.Background(), course, "long document", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 result, got %d", len(results))
	}
	if got := len([]rune(results[0].Excerpt)); got != 500 {
		t.Fatalf("want 500-char excerpt, got %d", got)
	}
}

func TestSearch_CacheAvoidsProviderCall(t *testing.T) {
	db := openTestDB(t)
	course := "search-cache"
	seedCompleted(t, db, "cache-mat", course, "cached topic", []float32{1, 0})

	provider := &fakeProvider{embedding: []float32{1, 0}}
	cache := newMemoryCache()
	s := newTestSearcher(db, provider, cache)

	if _, err := s.Search(context.Background(), course, "repeat query", 0); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if provider.embedCall != 1 || cache.sets != 1 {
		t.Fatalf("first search: want 1 provider call and 1 cache set, got %d/%d", provider.embedCall, cache.sets)
	}

	if _, err := s.Search(context.Background(), course, "repeat query", 0); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if provider.embedCall != 1 {
		t.Fatalf("second search must hit the cache, got %d provider calls", provider.embedCall)
	}
	if cache.hits != 1 {
		t.Fatalf("want 1 cache hit, got %d", cache.hits)
	}
}
