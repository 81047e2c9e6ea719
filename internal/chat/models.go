package chat

import (
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Batch groups the messages of one tutoring turn. History retrieval
// flattens batches back into one chronological stream per course.
type Batch struct {
	ID        string    `gorm:"primaryKey;size:26" json:"batch_id"` // ULID
	CourseID  string    `gorm:"size:36;index;not null" json:"course_id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Batch) TableName() string { return "chat_batches" }

// Message is append-only; rows are never updated or deleted.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID   string    `gorm:"size:26;index;not null" json:"-"`
	CourseID  string    `gorm:"size:36;index;not null" json:"course_id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

func NewBatchID() string {
	return ulid.Make().String()
}
