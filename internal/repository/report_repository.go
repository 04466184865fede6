package repository

import (
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) FindByID(id string) (*models.Report, error) {
	var report models.Report
	err := r.db.Where("id = ?", id).First(&report).Error
	return &report, err
}
