package chat

import (
	"context"
	"sync"
	"time"

	"github.com/suPer8Hu/tutor-platform/internal/logger"
	"github.com/suPer8Hu/tutor-platform/internal/material"
	"github.com/suPer8Hu/tutor-platform/internal/user"
)

// UserContext is the request-scoped bundle the prompt is built from.
// It is assembled fresh per turn and never persisted.
type UserContext struct {
	Preferences     user.Preferences
	PrefsDefaulted  bool
	Academic        *user.AcademicInfo
	History         []Message
	Materials       []material.SearchResult
}

// ProfileSource is the read side of the user repository the aggregator
// needs.
type ProfileSource interface {
	GetPreferences(ctx context.Context, userID uint64) (*user.Preferences, error)
	GetAcademicInfo(ctx context.Context, userID uint64) (*user.AcademicInfo, error)
}

type HistorySource interface {
	ListRecentDesc(ctx context.Context, userID uint64, courseID string, limit int) ([]Message, error)
}

type MaterialSearcher interface {
	Search(ctx context.Context, courseID, query string, limit int) ([]material.SearchResult, error)
}

type BuilderConfig struct {
	HistoryWindow int
	SoftTimeout   time.Duration
	HardTimeout   time.Duration
	SearchLimit   int
}

func (c *BuilderConfig) fillDefaults() {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 10
	}
	if c.SoftTimeout <= 0 {
		c.SoftTimeout = 2 * time.Second
	}
	if c.HardTimeout <= 0 {
		c.HardTimeout = 5 * time.Second
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 3
	}
}

// ContextBuilder fans out the four independent context reads and joins
// them, so total latency is roughly the slowest fetch rather than the
// sum. Every sub-fetch failure degrades to an absent section.
type ContextBuilder struct {
	profiles ProfileSource
	history  HistorySource
	searcher MaterialSearcher
	cfg      BuilderConfig
	log      *logger.Logger
}

func NewContextBuilder(profiles ProfileSource, history HistorySource, searcher MaterialSearcher, cfg BuilderConfig, log *logger.Logger) *ContextBuilder {
	cfg.fillDefaults()
	return &ContextBuilder{profiles: profiles, history: history, searcher: searcher, cfg: cfg, log: log}
}

// Build never fails: on total sub-fetch failure the returned context is
// the documented default profile with every optional section absent.
// Sub-fetches still running at the hard ceiling are abandoned; their
// results are discarded, with no guarantee the remote read stops. All
// reads are idempotent, so that is safe.
func (b *ContextBuilder) Build(ctx context.Context, userID uint64, courseID, query string) *UserContext {
	uc := &UserContext{
		Preferences:    user.DefaultPreferences(),
		PrefsDefaulted: true,
	}

	hardCtx, cancel := context.WithTimeout(ctx, b.cfg.HardTimeout)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(part string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(hardCtx); err != nil {
				b.log.Warn("context fetch failed, omitting section",
					"part", part, "user_id", userID, "course_id", courseID, "err", err)
			}
		}()
	}

	run("preferences", func(ctx context.Context) error {
		p, err := b.profiles.GetPreferences(ctx, userID)
		if err != nil {
			return err
		}
		mu.Lock()
		uc.Preferences = *p
		uc.PrefsDefaulted = false
		mu.Unlock()
		return nil
	})

	run("academic_info", func(ctx context.Context) error {
		a, err := b.profiles.GetAcademicInfo(ctx, userID)
		if err != nil {
			return err
		}
		mu.Lock()
		uc.Academic = a
		mu.Unlock()
		return nil
	})

	run("chat_history", func(ctx context.Context) error {
		desc, err := b.history.ListRecentDesc(ctx, userID, courseID, b.cfg.HistoryWindow)
		if err != nil {
			return err
		}
		// reverse to chronological order
		asc := make([]Message, 0, len(desc))
		for i := len(desc) - 1; i >= 0; i-- {
			asc = append(asc, desc[i])
		}
		mu.Lock()
		uc.History = asc
		mu.Unlock()
		return nil
	})

	run("material_search", func(ctx context.Context) error {
		results, err := b.searcher.Search(ctx, courseID, query, b.cfg.SearchLimit)
		if err != nil {
			return err
		}
		mu.Lock()
		uc.Materials = results
		mu.Unlock()
		return nil
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	start := time.Now()
	select {
	case <-done:
	case <-hardCtx.Done():
		b.log.Warn("context aggregation hit hard ceiling, returning partial context",
			"user_id", userID, "course_id", courseID, "ceiling", b.cfg.HardTimeout)
	}
	if elapsed := time.Since(start); elapsed > b.cfg.SoftTimeout {
		b.log.Warn("context aggregation slow",
			"user_id", userID, "course_id", courseID, "elapsed", elapsed)
	}

	// Snapshot under the lock: abandoned goroutines may still write.
	mu.Lock()
	snapshot := *uc
	mu.Unlock()
	return &snapshot
}
