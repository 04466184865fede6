package models

import (
	"time"

	"gorm.io/datatypes"
)

// Well-known notification event types. Producers may send types outside this
// list; those fall back to the generic title/body template and are only
// delivered to explicitly listed recipients.
const (
	EventReportSubmitted = "REPORT_SUBMITTED"
	EventReportApproved  = "REPORT_APPROVED"
	EventReportRejected  = "REPORT_REJECTED"
	EventCommentAdded    = "COMMENT_ADDED"
	EventApprovalPending = "APPROVAL_PENDING"
	EventSystemAlert     = "SYSTEM_ALERT"
	EventDashboardUpdate = "DASHBOARD_UPDATE"
)

// IsBroadcastType reports whether the event type targets every connected
// client instead of a persisted per-recipient notification row.
func IsBroadcastType(eventType string) bool {
	return eventType == EventSystemAlert || eventType == EventDashboardUpdate
}

// Notification is one in-app notification row, created per resolved
// recipient at dispatch time. Only the read state is ever mutated; rows are
// never deleted by this subsystem.
type Notification struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_user_idem_key" json:"user_id"`

	Title     string         `gorm:"not null" json:"title"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Type      string         `gorm:"type:varchar(64);not null;index" json:"type"`
	Data      datatypes.JSON `json:"data"`
	ActionURL string         `json:"action_url"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`

	// IdempotencyKey is caller-supplied; the composite unique index with
	// user_id makes re-dispatch of the same logical event a no-op per
	// recipient. NULL keys are exempt from the uniqueness constraint.
	IdempotencyKey *string `gorm:"type:varchar(128);uniqueIndex:idx_user_idem_key" json:"idempotency_key,omitempty"`

	// BatchID groups the rows created by a single dispatch call.
	BatchID string `gorm:"type:varchar(36);index" json:"batch_id"`
}

// NotificationResponse is the wire shape shared by the `notification` stream
// event and the polling endpoint's update entries.
type NotificationResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	ActionURL string         `json:"action_url,omitempty"`
	Data      datatypes.JSON `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"createdAt"`
	Timestamp int64          `json:"timestamp"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Body,
		ActionURL: n.ActionURL,
		Data:      n.Data,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		Timestamp: time.Now().UnixMilli(),
	}
}
