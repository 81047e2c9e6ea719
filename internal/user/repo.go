package user

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetPreferences(ctx context.Context, userID uint64) (*Preferences, error) {
	var p Preferences
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) SavePreferences(ctx context.Context, p *Preferences) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repo) GetAcademicInfo(ctx context.Context, userID uint64) (*AcademicInfo, error) {
	var a AcademicInfo
	if err := r.db.WithContext(ctx).First(&a, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) SaveAcademicInfo(ctx context.Context, a *AcademicInfo) error {
	return r.db.WithContext(ctx).Save(a).Error
}

// GradeLevelList decodes the stored JSON array; bad or empty data
// yields nil.
func (a *AcademicInfo) GradeLevelList() []string {
	return decodeStrings(a.GradeLevels)
}

func (a *AcademicInfo) SubjectList() []string {
	return decodeStrings(a.Subjects)
}

func decodeStrings(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
