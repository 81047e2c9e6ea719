package material

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Material is one uploaded file belonging to a course. Processing
// fields are written only by the Processor; a failed or completed
// material is never mutated again (re-upload creates a new row).
type Material struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	CourseID string `gorm:"size:36;index;not null" json:"course_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	FilePath string `gorm:"size:512;not null" json:"-"`
	FileType string `gorm:"size:64;not null" json:"file_type"`
	FileSize int64  `gorm:"not null" json:"file_size"`

	ExtractedText *string        `gorm:"type:text" json:"-"`
	Embedding     datatypes.JSON `json:"-"`
	Status        Status         `gorm:"type:varchar(16);index;not null;default:'pending'" json:"processing_status"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	ErrorMessage  *string        `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Material) TableName() string { return "materials" }

// EmbeddingVector decodes the stored JSON embedding. Returns nil for
// materials without one.
func (m *Material) EmbeddingVector() ([]float32, error) {
	if len(m.Embedding) == 0 {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal(m.Embedding, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func encodeEmbedding(vec []float32) (datatypes.JSON, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// SearchResult is one ranked hit from the semantic search engine.
// Excerpt is a length-capped prefix of the extracted text.
type SearchResult struct {
	MaterialID string  `json:"material_id"`
	Name       string  `json:"name"`
	Excerpt    string  `json:"excerpt"`
	Similarity float64 `json:"similarity_score"`
	FileType   string  `json:"file_type"`
}
