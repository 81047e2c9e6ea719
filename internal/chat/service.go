package chat

import (
	"context"
	"fmt"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
)

const systemPrompt = "You are a patient, encouraging tutor. Adapt your explanation to the " +
	"student's learning profile. Ground your answer in the relevant materials " +
	"when they are provided; never invent course content that is not there."

// Service runs one tutoring turn: aggregate context, build the prompt,
// call the model, persist both sides of the exchange.
type Service struct {
	repo     *Repo
	provider ai.Provider
	builder  *ContextBuilder
	log      *logger.Logger
}

func NewService(repo *Repo, provider ai.Provider, builder *ContextBuilder, log *logger.Logger) *Service {
	return &Service{repo: repo, provider: provider, builder: builder, log: log}
}

// SendMessage always attempts a model reply: context aggregation and
// material search degrade silently, so even with every collaborator
// down the student still gets an answer built from the default profile.
func (s *Service) SendMessage(ctx context.Context, userID uint64, courseID, content string) (string, error) {
	// Context is built before the new message is stored so the
	// "previous conversation" section holds prior turns only.
	uc := s.builder.Build(ctx, userID, courseID, content)
	prompt := FormatPrompt(uc, content)

	batch := &Batch{ID: NewBatchID(), CourseID: courseID, UserID: userID}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return "", fmt.Errorf("create batch: %w", err)
	}
	if err := s.repo.InsertMessage(ctx, &Message{
		BatchID:  batch.ID,
		CourseID: courseID,
		UserID:   userID,
		Role:     RoleUser,
		Content:  content,
	}); err != nil {
		return "", fmt.Errorf("store user message: %w", err)
	}

	reply, err := s.provider.Chat(ctx, []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: RoleUser, Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if err := s.repo.InsertMessage(ctx, &Message{
		BatchID:  batch.ID,
		CourseID: courseID,
		UserID:   userID,
		Role:     RoleModel,
		Content:  reply,
	}); err != nil {
		return "", fmt.Errorf("store model message: %w", err)
	}

	return reply, nil
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, courseID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMessages(ctx, userID, courseID, limit, beforeID)
}
