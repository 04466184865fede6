package repository

import (
	"fmt"
	"os"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() (*gorm.DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	// Connect to database. TranslateError maps driver errors (e.g. a 23505
	// unique violation from pgx) onto gorm sentinels so callers can match
	// gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.User{},
		&models.Branch{},
		&models.Role{},
		&models.UserRole{},
		&models.UserBranchAssignment{},
		&models.Report{},
		&models.Notification{},
		&models.DeliveryEvent{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
