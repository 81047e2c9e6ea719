package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/suPer8Hu/tutor-platform/internal/logger"
	"github.com/suPer8Hu/tutor-platform/internal/material"
	"github.com/suPer8Hu/tutor-platform/internal/user"
)

type fakeProfiles struct {
	prefs       *user.Preferences
	prefsErr    error
	academic    *user.AcademicInfo
	academicErr error
	block       bool
}

func (f *fakeProfiles) GetPreferences(ctx context.Context, userID uint64) (*user.Preferences, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.prefs, f.prefsErr
}

func (f *fakeProfiles) GetAcademicInfo(ctx context.Context, userID uint64) (*user.AcademicInfo, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.academic, f.academicErr
}

type fakeHistory struct {
	desc []Message
	err  error
}

func (f *fakeHistory) ListRecentDesc(ctx context.Context, userID uint64, courseID string, limit int) ([]Message, error) {
	return f.desc, f.err
}

type fakeSearcher struct {
	results []material.SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, courseID, query string, limit int) ([]material.SearchResult, error) {
	return f.results, f.err
}

func newTestBuilder(profiles ProfileSource, history HistorySource, searcher MaterialSearcher, cfg BuilderConfig) *ContextBuilder {
	return NewContextBuilder(profiles, history, searcher, cfg, logger.NewNop())
}

func TestBuild_AllSourcesSucceed(t *testing.T) {
	prefs := &user.Preferences{DetailLevel: 0.8, LearningPace: user.PaceFast, PriorExperience: user.ExperienceExpert}
	b := newTestBuilder(
		&fakeProfiles{prefs: prefs, academic: &user.AcademicInfo{Semester: "spring"}},
		&fakeHistory{desc: []Message{
			{ID: 3, Role: RoleModel, Content: "third"},
			{ID: 2, Role: RoleUser, Content: "second"},
			{ID: 1, Role: RoleUser, Content: "first"},
		}},
		&fakeSearcher{results: []material.SearchResult{{MaterialID: "m1"}}},
		BuilderConfig{},
	)

	uc := b.Build(context.Background(), 1, "course-1", "query")

	if uc.PrefsDefaulted {
		t.Fatalf("preferences fetched, must not be defaulted")
	}
	if uc.Preferences.DetailLevel != 0.8 {
		t.Fatalf("want fetched preferences, got %+v", uc.Preferences)
	}
	if uc.Academic == nil || uc.Academic.Semester != "spring" {
		t.Fatalf("want academic info, got %+v", uc.Academic)
	}
	if len(uc.History) != 3 || uc.History[0].ID != 1 || uc.History[2].ID != 3 {
		t.Fatalf("history must be chronological, got %+v", uc.History)
	}
	if len(uc.Materials) != 1 {
		t.Fatalf("want 1 material, got %+v", uc.Materials)
	}
}

func TestBuild_PreferencesFailureFallsBackToDefault(t *testing.T) {
	b := newTestBuilder(
		&fakeProfiles{prefsErr: errors.New("db down"), academic: &user.AcademicInfo{Semester: "fall"}},
		&fakeHistory{desc: []Message{{ID: 1, Role: RoleUser, Content: "hi"}}},
		&fakeSearcher{},
		BuilderConfig{},
	)

	uc := b.Build(context.Background(), 1, "course-1", "query")

	if !uc.PrefsDefaulted {
		t.Fatalf("want default-marked preferences")
	}
	if uc.Preferences != user.DefaultPreferences() {
		t.Fatalf("want default preferences, got %+v", uc.Preferences)
	}
	if uc.Academic == nil || len(uc.History) != 1 {
		t.Fatalf("other sections must survive a preferences failure: %+v", uc)
	}
}

func TestBuild_TotalFailureStillReturnsContext(t *testing.T) {
	boom := errors.New("everything down")
	b := newTestBuilder(
		&fakeProfiles{prefsErr: boom, academicErr: boom},
		&fakeHistory{err: boom},
		&fakeSearcher{err: boom},
		BuilderConfig{},
	)

	uc := b.Build(context.Background(), 1, "course-1", "query")

	if uc == nil {
		t.Fatalf("Build must never return nil")
	}
	if !uc.PrefsDefaulted || uc.Preferences != user.DefaultPreferences() {
		t.Fatalf("want default preferences, got %+v", uc.Preferences)
	}
	if uc.Academic != nil || len(uc.History) != 0 || len(uc.Materials) != 0 {
		t.Fatalf("want every optional section absent, got %+v", uc)
	}
}

func TestBuild_HardCeilingAbandonsSlowFetches(t *testing.T) {
	b := newTestBuilder(
		&fakeProfiles{block: true},
		&fakeHistory{desc: []Message{{ID: 1, Role: RoleUser, Content: "hi"}}},
		&fakeSearcher{results: []material.SearchResult{{MaterialID: "m1"}}},
		BuilderConfig{HardTimeout: 50 * time.Millisecond},
	)

	start := time.Now()
	uc := b.Build(context.Background(), 1, "course-1", "query")
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("Build must return at the hard ceiling, took %v", elapsed)
	}
	if !uc.PrefsDefaulted {
		t.Fatalf("blocked preferences fetch must leave the default profile")
	}
	if len(uc.History) != 1 || len(uc.Materials) != 1 {
		t.Fatalf("fast fetches must still land: %+v", uc)
	}
}
