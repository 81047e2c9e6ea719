package material

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, m *Material) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Material, error) {
	var m Material
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ClaimProcessing moves pending -> processing with an optimistic guard:
// the UPDATE only matches rows still in pending, so two workers racing
// on the same id cannot both win.
func (r *Repo) ClaimProcessing(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&Material{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", StatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Material{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrAlreadyClaimed
	}
	return nil
}

func (r *Repo) MarkCompleted(ctx context.Context, id string, extractedText string, embedding []float32) error {
	enc, err := encodeEmbedding(embedding)
	if err != nil {
		return err
	}
	now := time.Now()
	return r.db.WithContext(ctx).Model(&Material{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"extracted_text": extractedText,
			"embedding":      enc,
			"processed_at":   now,
			"status":         StatusCompleted,
			"error_message":  nil,
		}).Error
}

func (r *Repo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Material{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        StatusFailed,
			"error_message": errMsg,
		}).Error
}

// ListCompletedWithEmbedding returns the candidate set for similarity
// ranking: completed materials of the course that carry an embedding.
func (r *Repo) ListCompletedWithEmbedding(ctx context.Context, courseID string) ([]Material, error) {
	var out []Material
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND status = ? AND embedding IS NOT NULL", courseID, StatusCompleted).
		Find(&out).Error
	return out, err
}

// CountByCourse reports how many materials a course has in total and
// how many finished processing. Used to explain empty search results.
func (r *Repo) CountByCourse(ctx context.Context, courseID string) (total, completed int64, err error) {
	q := r.db.WithContext(ctx).Model(&Material{}).Where("course_id = ?", courseID)
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&Material{}).
		Where("course_id = ? AND status = ?", courseID, StatusCompleted).
		Count(&completed).Error
	return total, completed, err
}

func (r *Repo) ListByCourse(ctx context.Context, courseID string) ([]Material, error) {
	var out []Material
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ResetStuck finds materials that sat in pending or processing longer
// than the threshold (a crash between pipeline steps leaves rows in
// processing forever), resets processing rows back to pending, and
// returns every id that should be requeued.
func (r *Repo) ResetStuck(ctx context.Context, olderThan time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Material{}).
		Where("status IN ? AND updated_at < ?", []Status{StatusPending, StatusProcessing}, olderThan).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	err = r.db.WithContext(ctx).Model(&Material{}).
		Where("id IN ? AND status = ?", ids, StatusProcessing).
		Update("status", StatusPending).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
