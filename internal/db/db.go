package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/suPer8Hu/tutor-platform/internal/chat"
	"github.com/suPer8Hu/tutor-platform/internal/material"
	"github.com/suPer8Hu/tutor-platform/internal/user"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return gdb, nil
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&user.User{},
		&user.Preferences{},
		&user.AcademicInfo{},
		&material.Material{},
		&chat.Batch{},
		&chat.Message{},
	)
}
