package material

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/suPer8Hu/tutor-platform/internal/logger"
)

// Dispatcher hands a material id to the background processing path.
// The queue publisher implements it in the normal deployment; an
// in-process pool implements it when no queue is configured.
type Dispatcher interface {
	Dispatch(ctx context.Context, materialID string) error
}

// ObjectUploader is the write half of the storage collaborator.
type ObjectUploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
}

// Service handles material ingest: store the bytes, create the pending
// row, and kick off processing without blocking the request.
type Service struct {
	repo       *Repo
	store      ObjectUploader
	dispatcher Dispatcher
	log        *logger.Logger
}

func NewService(repo *Repo, store ObjectUploader, dispatcher Dispatcher, log *logger.Logger) *Service {
	return &Service{repo: repo, store: store, dispatcher: dispatcher, log: log}
}

func (s *Service) Upload(ctx context.Context, courseID, name string, data []byte) (*Material, error) {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(name))
	path := fmt.Sprintf("%s/%s%s", courseID, id, ext)
	fileType := detectFileType(ext)

	if err := s.store.Upload(ctx, path, data, contentTypeFor(fileType)); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	m := &Material{
		ID:       id,
		CourseID: courseID,
		Name:     name,
		FilePath: path,
		FileType: fileType,
		FileSize: int64(len(data)),
		Status:   StatusPending,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}

	// Fire and forget: a dispatch failure leaves the row pending and
	// the reconciliation sweep requeues it later.
	if err := s.dispatcher.Dispatch(ctx, id); err != nil {
		s.log.Error("dispatch failed, material stays pending", "material_id", id, "err", err)
	}

	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Material, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByCourse(ctx context.Context, courseID string) ([]Material, error) {
	return s.repo.ListByCourse(ctx, courseID)
}

func detectFileType(ext string) string {
	switch ext {
	case ".pdf":
		return "pdf"
	case ".docx", ".doc":
		return "docx"
	case ".pptx", ".ppt":
		return "pptx"
	case ".txt":
		return "txt"
	case ".md", ".markdown":
		return "md"
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpg"
	default:
		return strings.TrimPrefix(ext, ".")
	}
}

func contentTypeFor(fileType string) string {
	switch fileType {
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "txt", "md":
		return "text/plain"
	case "png":
		return "image/png"
	case "jpg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
