package user

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Learning pace and prior experience enums.
const (
	PaceSlow     = "slow"
	PaceModerate = "moderate"
	PaceFast     = "fast"

	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
	ExperienceExpert       = "expert"
)

// Preferences holds how a user wants to be tutored. The six numeric
// fields are weights in 0..1.
type Preferences struct {
	UserID              uint64    `gorm:"primaryKey" json:"-"`
	DetailLevel         float64   `gorm:"not null;default:0.5" json:"detail_level"`
	ExamplePreference   float64   `gorm:"not null;default:0.5" json:"example_preference"`
	AnalogyPreference   float64   `gorm:"not null;default:0.5" json:"analogy_preference"`
	TechnicalLanguage   float64   `gorm:"not null;default:0.5" json:"technical_language"`
	StructurePreference float64   `gorm:"not null;default:0.5" json:"structure_preference"`
	VisualPreference    float64   `gorm:"not null;default:0.5" json:"visual_preference"`
	LearningPace        string    `gorm:"size:16;not null;default:'moderate'" json:"learning_pace"`
	PriorExperience     string    `gorm:"size:16;not null;default:'intermediate'" json:"prior_experience"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Preferences) TableName() string { return "user_preferences" }

// DefaultPreferences is the documented neutral profile used whenever
// real preferences are missing: the prompt's learning profile section
// is always present, never fabricated beyond these defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		DetailLevel:         0.5,
		ExamplePreference:   0.5,
		AnalogyPreference:   0.5,
		TechnicalLanguage:   0.5,
		StructurePreference: 0.5,
		VisualPreference:    0.5,
		LearningPace:        PaceModerate,
		PriorExperience:     ExperienceIntermediate,
	}
}

type AcademicInfo struct {
	UserID      uint64         `gorm:"primaryKey" json:"-"`
	GradeLevels datatypes.JSON `json:"grade_levels"`
	Semester    string         `gorm:"size:64" json:"semester"`
	Subjects    datatypes.JSON `json:"subjects"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (AcademicInfo) TableName() string { return "user_academic_info" }
