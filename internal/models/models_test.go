package models

import (
	"testing"
	"time"
)

func TestNotificationToResponse(t *testing.T) {
	createdAt := time.Now().Add(-time.Minute)
	key := "report-r1-approved"
	notification := &Notification{
		ID:             "n1",
		CreatedAt:      createdAt,
		UserID:         "u1",
		Title:          "Report Approved",
		Body:           "Your report for B1 has been approved",
		Type:           EventReportApproved,
		ActionURL:      "/dashboard/reports/r1",
		IsRead:         false,
		IdempotencyKey: &key,
		BatchID:        "b1",
	}

	response := notification.ToResponse()

	if response.ID != notification.ID {
		t.Errorf("ToResponse ID = %q, want %q", response.ID, notification.ID)
	}
	if response.Type != notification.Type {
		t.Errorf("ToResponse Type = %q, want %q", response.Type, notification.Type)
	}
	if response.Title != notification.Title {
		t.Errorf("ToResponse Title = %q, want %q", response.Title, notification.Title)
	}
	if response.Message != notification.Body {
		t.Errorf("ToResponse Message = %q, want %q", response.Message, notification.Body)
	}
	if response.ActionURL != notification.ActionURL {
		t.Errorf("ToResponse ActionURL = %q, want %q", response.ActionURL, notification.ActionURL)
	}
	if !response.CreatedAt.Equal(createdAt) {
		t.Errorf("ToResponse CreatedAt = %v, want %v", response.CreatedAt, createdAt)
	}
	if response.Timestamp == 0 {
		t.Error("ToResponse Timestamp is zero")
	}
}

func TestIsBroadcastType(t *testing.T) {
	tests := []struct {
		eventType string
		want      bool
	}{
		{EventSystemAlert, true},
		{EventDashboardUpdate, true},
		{EventReportSubmitted, false},
		{EventReportApproved, false},
		{EventCommentAdded, false},
		{"SOMETHING_ELSE", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			if got := IsBroadcastType(tt.eventType); got != tt.want {
				t.Errorf("IsBroadcastType(%q) = %v, want %v", tt.eventType, got, tt.want)
			}
		})
	}
}

func TestValidDeliveryEventKind(t *testing.T) {
	tests := []struct {
		name string
		kind DeliveryEventKind
		want bool
	}{
		{"Sent", DeliverySent, true},
		{"Delivered", DeliveryDelivered, true},
		{"Clicked", DeliveryClicked, true},
		{"Closed", DeliveryClosed, true},
		{"Failed", DeliveryFailed, true},
		{"Read", DeliveryRead, true},
		{"Unknown", DeliveryEventKind("OPENED"), false},
		{"Empty", DeliveryEventKind(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidDeliveryEventKind(tt.kind); got != tt.want {
				t.Errorf("ValidDeliveryEventKind(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestClientReportableDeliveryEventKind(t *testing.T) {
	tests := []struct {
		name string
		kind DeliveryEventKind
		want bool
	}{
		{"Delivered", DeliveryDelivered, true},
		{"Clicked", DeliveryClicked, true},
		{"Closed", DeliveryClosed, true},
		{"Failed", DeliveryFailed, true},
		{"Sent", DeliverySent, false},
		{"Read", DeliveryRead, false},
		{"Unknown", DeliveryEventKind("OPENED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientReportableDeliveryEventKind(tt.kind); got != tt.want {
				t.Errorf("ClientReportableDeliveryEventKind(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestUserToResponse(t *testing.T) {
	branchID := "b1"
	user := &User{
		ID:       "u1",
		Username: "john_doe",
		Email:    "john@example.com",
		Name:     "John Doe",
		Role:     "manager",
		BranchID: &branchID,
		IsActive: true,
	}

	response := user.ToResponse()

	if response.ID != user.ID {
		t.Errorf("ToResponse ID = %q, want %q", response.ID, user.ID)
	}
	if response.Username != user.Username {
		t.Errorf("ToResponse Username = %q, want %q", response.Username, user.Username)
	}
	if response.Role != user.Role {
		t.Errorf("ToResponse Role = %q, want %q", response.Role, user.Role)
	}
	if response.BranchID == nil || *response.BranchID != branchID {
		t.Errorf("ToResponse BranchID = %v, want %q", response.BranchID, branchID)
	}
}

func TestReportStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   ReportStatus
		expected string
	}{
		{"Pending", ReportPending, "pending"},
		{"Approved", ReportApproved, "approved"},
		{"Rejected", ReportRejected, "rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.status) != tt.expected {
				t.Errorf("ReportStatus = %q, want %q", string(tt.status), tt.expected)
			}
		})
	}
}
