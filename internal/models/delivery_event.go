package models

import (
	"time"

	"gorm.io/datatypes"
)

type DeliveryEventKind string

const (
	DeliverySent      DeliveryEventKind = "SENT"
	DeliveryDelivered DeliveryEventKind = "DELIVERED"
	DeliveryClicked   DeliveryEventKind = "CLICKED"
	DeliveryClosed    DeliveryEventKind = "CLOSED"
	DeliveryFailed    DeliveryEventKind = "FAILED"
	DeliveryRead      DeliveryEventKind = "READ"
)

// ValidDeliveryEventKind reports whether kind is one of the known lifecycle
// kinds. Unknown kinds are rejected by the tracker.
func ValidDeliveryEventKind(kind DeliveryEventKind) bool {
	switch kind {
	case DeliverySent, DeliveryDelivered, DeliveryClicked, DeliveryClosed, DeliveryFailed, DeliveryRead:
		return true
	}
	return false
}

// ClientReportableDeliveryEventKind reports whether kind may be submitted
// through the public tracking endpoint. SENT and READ are written by the
// server only.
func ClientReportableDeliveryEventKind(kind DeliveryEventKind) bool {
	switch kind {
	case DeliveryDelivered, DeliveryClicked, DeliveryClosed, DeliveryFailed:
		return true
	}
	return false
}

// DeliveryEvent is an append-only lifecycle record against a notification.
// Client-reported events (DELIVERED, CLICKED, CLOSED) can legitimately arrive
// before the server-side SENT record is written; such events are kept but
// flagged via OutOfOrder rather than dropped.
type DeliveryEvent struct {
	ID             string            `gorm:"type:varchar(36);primarykey" json:"id"`
	NotificationID string            `gorm:"type:varchar(36);not null;index" json:"notification_id"`
	Event          DeliveryEventKind `gorm:"type:varchar(16);not null;index" json:"event"`
	Metadata       datatypes.JSON    `json:"metadata"`
	OutOfOrder     bool              `gorm:"default:false" json:"out_of_order"`
	Timestamp      time.Time         `gorm:"index" json:"timestamp"`
}
