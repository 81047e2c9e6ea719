package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Batch{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type stubProvider struct {
	reply   string
	chatErr error
	prompts []string
}

func (p *stubProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	if len(messages) > 0 {
		p.prompts = append(p.prompts, messages[len(messages)-1].Content)
	}
	return p.reply, p.chatErr
}

func (p *stubProvider) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "", errors.New("not used")
}

func (p *stubProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not used")
}

func (p *stubProvider) HealthCheck(ctx context.Context) error { return nil }

func newTestService(t *testing.T, db *gorm.DB, provider ai.Provider, profiles ProfileSource, searcher MaterialSearcher) *Service {
	t.Helper()
	repo := NewRepo(db)
	builder := NewContextBuilder(profiles, repo, searcher, BuilderConfig{}, logger.NewNop())
	return NewService(repo, provider, builder, logger.NewNop())
}

func TestSendMessage_PersistsBothSides(t *testing.T) {
	db := openTestDB(t)
	provider := &stubProvider{reply: "entropy measures disorder"}
	svc := newTestService(t, db, provider,
		&fakeProfiles{prefsErr: errors.New("no row"), academicErr: errors.New("no row")},
		&fakeSearcher{})

	reply, err := svc.SendMessage(context.Background(), 7, "course-send", "what is entropy?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "entropy measures disorder" {
		t.Fatalf("unexpected reply %q", reply)
	}

	msgs, err := svc.ListMessages(context.Background(), 7, "course-send", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("want user and model messages, got %d", len(msgs))
	}
	// newest first
	if msgs[0].Role != RoleModel || msgs[0].Content != "entropy measures disorder" {
		t.Fatalf("unexpected model message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "what is entropy?" {
		t.Fatalf("unexpected user message: %+v", msgs[1])
	}
	if msgs[0].BatchID == "" || msgs[0].BatchID != msgs[1].BatchID {
		t.Fatalf("both sides must share one batch: %q vs %q", msgs[0].BatchID, msgs[1].BatchID)
	}
}

func TestSendMessage_RespondsDespiteContextFailures(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("collaborators down")
	provider := &stubProvider{reply: "still here"}
	svc := newTestService(t, db, provider,
		&fakeProfiles{prefsErr: boom, academicErr: boom},
		&fakeSearcher{err: boom})

	reply, err := svc.SendMessage(context.Background(), 8, "course-degraded", "help")
	if err != nil {
		t.Fatalf("send must succeed on degraded context: %v", err)
	}
	if reply != "still here" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("want one chat call, got %d", len(provider.prompts))
	}
	prompt := provider.prompts[0]
	if !strings.Contains(prompt, sectionLearningProfile) {
		t.Fatalf("degraded prompt must still carry the default profile:\n%s", prompt)
	}
	if strings.Contains(prompt, sectionMaterials) {
		t.Fatalf("failed search must not produce a materials section:\n%s", prompt)
	}
}

func TestSendMessage_HistoryExcludesCurrentTurn(t *testing.T) {
	db := openTestDB(t)
	provider := &stubProvider{reply: "first answer"}
	svc := newTestService(t, db, provider,
		&fakeProfiles{prefsErr: errors.New("no row"), academicErr: errors.New("no row")},
		&fakeSearcher{})

	if _, err := svc.SendMessage(context.Background(), 9, "course-hist", "first question"); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	provider.reply = "second answer"
	if _, err := svc.SendMessage(context.Background(), 9, "course-hist", "second question"); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	first := provider.prompts[0]
	if strings.Contains(first, sectionConversation) {
		t.Fatalf("first turn has no history:\n%s", first)
	}
	second := provider.prompts[1]
	if !strings.Contains(second, "user: first question") || !strings.Contains(second, "model: first answer") {
		t.Fatalf("second turn must see the first exchange:\n%s", second)
	}
	if strings.Contains(second, "user: second question\n") {
		t.Fatalf("current question must not appear in history:\n%s", second)
	}
}

func TestSendMessage_ProviderErrorPropagates(t *testing.T) {
	db := openTestDB(t)
	provider := &stubProvider{chatErr: errors.New("model unavailable")}
	svc := newTestService(t, db, provider,
		&fakeProfiles{prefsErr: errors.New("no row"), academicErr: errors.New("no row")},
		&fakeSearcher{})

	if _, err := svc.SendMessage(context.Background(), 10, "course-err", "q"); err == nil {
		t.Fatalf("want error from failed completion")
	}

	msgs, err := svc.ListMessages(context.Background(), 10, "course-err", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("the user message is kept even when the model fails: %+v", msgs)
	}
}
