package models

import (
	"time"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportApproved ReportStatus = "approved"
	ReportRejected ReportStatus = "rejected"
)

// Report is owned by the reporting subsystem; the notification core only
// reads it when a record-referencing event (approval, comment) needs to
// discover the owning branch and submitter.
type Report struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BranchID    string       `gorm:"type:varchar(36);not null;index" json:"branch_id"`
	SubmittedBy string       `gorm:"type:varchar(36);not null;index" json:"submitted_by"`
	ReportType  string       `gorm:"default:actual" json:"report_type"`
	Status      ReportStatus `gorm:"default:pending;index" json:"status"`
	Date        time.Time    `gorm:"type:date;index" json:"date"`
}
