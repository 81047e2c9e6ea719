package material

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
)

// EmbeddingCache is an optional cache for query embeddings; the Redis
// store implements it. A nil cache disables caching.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)
	SetEmbedding(ctx context.Context, text string, vec []float32)
}

type SearchConfig struct {
	DefaultLimit    int
	MaxLimit        int
	MinQueryLen     int
	ExcerptMaxChars int
}

func (c *SearchConfig) fillDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 3
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 10
	}
	if c.MinQueryLen <= 0 {
		c.MinQueryLen = 3
	}
	if c.ExcerptMaxChars <= 0 {
		c.ExcerptMaxChars = 500
	}
}

// Searcher ranks a course's processed materials against a query by
// embedding similarity. The relational store has no native vector
// query, so ranking is computed here over the fetched candidate set.
type Searcher struct {
	repo     *Repo
	provider ai.Provider
	cache    EmbeddingCache
	cfg      SearchConfig
	log      *logger.Logger
}

func NewSearcher(repo *Repo, provider ai.Provider, cache EmbeddingCache, cfg SearchConfig, log *logger.Logger) *Searcher {
	cfg.fillDefaults()
	return &Searcher{repo: repo, provider: provider, cache: cache, cfg: cfg, log: log}
}

// Search returns up to limit results ordered by descending similarity.
// Queries that are empty or below the minimum length return an empty
// result without touching the embedding provider; that is the intended
// no-search path, not an error.
func (s *Searcher) Search(ctx context.Context, courseID, query string, limit int) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < s.cfg.MinQueryLen {
		s.log.Debug("query below minimum length, skipping search",
			"course_id", courseID, "query_len", len([]rune(q)))
		return []SearchResult{}, nil
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	queryVec, err := s.embedQuery(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	mats, err := s.repo.ListCompletedWithEmbedding(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	if len(mats) == 0 {
		s.logEmptyReason(ctx, courseID)
		return []SearchResult{}, nil
	}

	type scored struct {
		m     *Material
		score float64
	}
	ranked := make([]scored, 0, len(mats))
	for i := range mats {
		vec, err := mats[i].EmbeddingVector()
		if err != nil || len(vec) == 0 {
			s.log.Warn("skipping material with bad embedding", "material_id", mats[i].ID, "err", err)
			continue
		}
		ranked = append(ranked, scored{m: &mats[i], score: NormalizedSimilarity(queryVec, vec)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].m.ID < ranked[j].m.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) == 0 {
		s.log.Info("ranking produced no results", "course_id", courseID, "candidates", len(mats))
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, SearchResult{
			MaterialID: r.m.ID,
			Name:       r.m.Name,
			Excerpt:    excerpt(r.m.ExtractedText, s.cfg.ExcerptMaxChars),
			Similarity: r.score,
			FileType:   r.m.FileType,
		})
	}
	return results, nil
}

func (s *Searcher) embedQuery(ctx context.Context, q string) ([]float32, error) {
	if s.cache != nil {
		if vec, ok := s.cache.GetEmbedding(ctx, q); ok {
			return vec, nil
		}
	}
	vec, err := s.provider.GenerateEmbedding(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetEmbedding(ctx, q, vec)
	}
	return vec, nil
}

// logEmptyReason distinguishes the degenerate empty results for
// observability: no materials at all vs none completed yet.
func (s *Searcher) logEmptyReason(ctx context.Context, courseID string) {
	total, completed, err := s.repo.CountByCourse(ctx, courseID)
	switch {
	case err != nil:
		s.log.Warn("search empty, reason unknown", "course_id", courseID, "err", err)
	case total == 0:
		s.log.Info("search empty: course has no materials", "course_id", courseID)
	case completed == 0:
		s.log.Info("search empty: no completed materials",
			"course_id", courseID, "total", total)
	default:
		s.log.Info("search empty: completed materials lack embeddings",
			"course_id", courseID, "total", total, "completed", completed)
	}
}

func excerpt(text *string, maxChars int) string {
	if text == nil {
		return ""
	}
	runes := []rune(*text)
	if len(runes) <= maxChars {
		return *text
	}
	return string(runes[:maxChars])
}
