package service

import (
	"context"
	"testing"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
)

func newDispatchFixture() (*DispatchService, *MockNotificationRepository, *MockUserRepository, *MockBranchRepository, *stream.Registry) {
	userRepo := NewMockUserRepository()
	branchRepo := NewMockBranchRepository()
	reportRepo := NewMockReportRepository()
	notifRepo := NewMockNotificationRepository()

	targeting := NewTargetingService(userRepo, branchRepo, reportRepo)
	registry := stream.NewRegistry("test-instance", nil, stream.Config{})
	svc := NewDispatchService(notifRepo, targeting, registry, nil, nil)
	return svc, notifRepo, userRepo, branchRepo, registry
}

func TestDispatchCreatesRowPerResolvedRecipient(t *testing.T) {
	svc, notifRepo, userRepo, branchRepo, registry := newDispatchFixture()
	defer registry.Close()

	// Submitter is one of the branch's managers; a global admin also hears.
	for _, id := range []string{"mgr-1", "mgr-2", "admin-1"} {
		addActiveUser(userRepo, id)
	}
	branchRepo.Grant("mgr-1", RoleManager, "b1")
	branchRepo.Grant("mgr-2", RoleManager, "b1")
	branchRepo.Grant("admin-1", RoleAdmin, "")

	result, err := svc.Dispatch(context.Background(), DispatchInput{
		Type: models.EventReportSubmitted,
		Data: map[string]interface{}{"actorId": "mgr-1", "branchId": "b1", "reportId": "r1"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Created != 3 {
		t.Errorf("expected 3 created, got %d", result.Created)
	}
	if result.BatchID == "" {
		t.Error("expected a batch id")
	}
	for _, id := range []string{"mgr-1", "mgr-2", "admin-1"} {
		rows := notifRepo.ForUser(id)
		if len(rows) != 1 {
			t.Errorf("expected 1 row for %s, got %d", id, len(rows))
			continue
		}
		if rows[0].BatchID != result.BatchID {
			t.Errorf("row for %s has batch %s, want %s", id, rows[0].BatchID, result.BatchID)
		}
		if rows[0].Type != models.EventReportSubmitted {
			t.Errorf("row for %s has type %s", id, rows[0].Type)
		}
	}
}

func TestDispatchDuplicateKeyInsertCountsSkipped(t *testing.T) {
	svc, notifRepo, _, _, registry := newDispatchFixture()
	defer registry.Close()

	input := DispatchInput{
		Type:           models.EventReportApproved,
		Data:           map[string]interface{}{"reportId": "r1"},
		UserIDs:        []string{"u1"},
		IdempotencyKey: "report-r1-approved",
	}
	if _, err := svc.Dispatch(context.Background(), input); err != nil {
		t.Fatalf("seed dispatch failed: %v", err)
	}

	// A concurrent same-key dispatch loses the insert race: the unique
	// index rejects the row and it counts as suppressed, not failed.
	notifRepo.raceOnExists = true
	result, err := svc.Dispatch(context.Background(), input)
	if err != nil {
		t.Fatalf("racing dispatch failed: %v", err)
	}
	if result.Created != 0 || result.Skipped != 1 || result.Failed != 0 {
		t.Errorf("racing dispatch: created=%d skipped=%d failed=%d, want 0/1/0",
			result.Created, result.Skipped, result.Failed)
	}
	if rows := notifRepo.ForUser("u1"); len(rows) != 1 {
		t.Errorf("expected 1 row after race, got %d", len(rows))
	}
}

func TestDispatchIdempotentRedispatch(t *testing.T) {
	svc, notifRepo, _, _, registry := newDispatchFixture()
	defer registry.Close()

	input := DispatchInput{
		Type:           models.EventReportApproved,
		Data:           map[string]interface{}{"reportId": "r1"},
		UserIDs:        []string{"u1", "u2"},
		IdempotencyKey: "report-r1-approved",
	}

	first, err := svc.Dispatch(context.Background(), input)
	if err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	if first.Created != 2 || first.Skipped != 0 {
		t.Errorf("first dispatch: created=%d skipped=%d", first.Created, first.Skipped)
	}

	second, err := svc.Dispatch(context.Background(), input)
	if err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}
	if second.Created != 0 || second.Skipped != 2 {
		t.Errorf("second dispatch: created=%d skipped=%d, want 0/2", second.Created, second.Skipped)
	}
	if total := len(notifRepo.ForUser("u1")) + len(notifRepo.ForUser("u2")); total != 2 {
		t.Errorf("expected 2 total rows after re-dispatch, got %d", total)
	}
}

func TestDispatchIsolatesPerRecipientFailures(t *testing.T) {
	svc, notifRepo, _, _, registry := newDispatchFixture()
	defer registry.Close()

	notifRepo.failCreateFor["u2"] = true

	result, err := svc.Dispatch(context.Background(), DispatchInput{
		Type:    models.EventCommentAdded,
		Data:    map[string]interface{}{"reportId": "r1"},
		UserIDs: []string{"u1", "u2", "u3"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Created != 2 || result.Failed != 1 {
		t.Errorf("created=%d failed=%d, want 2/1", result.Created, result.Failed)
	}
	if len(notifRepo.ForUser("u1")) != 1 || len(notifRepo.ForUser("u3")) != 1 {
		t.Error("surviving recipients must still get their rows")
	}
}

func TestDispatchUnknownTypeWithoutRecipientsIsNoop(t *testing.T) {
	svc, notifRepo, _, _, registry := newDispatchFixture()
	defer registry.Close()

	result, err := svc.Dispatch(context.Background(), DispatchInput{
		Type: "BRAND_NEW_EVENT",
		Data: map[string]interface{}{"actorId": "u1"},
	})
	if err != nil {
		t.Fatalf("unknown type must not error: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("expected 0 created, got %d", result.Created)
	}
	if len(notifRepo.notifications) != 0 {
		t.Errorf("expected no rows, got %d", len(notifRepo.notifications))
	}
}

func TestDispatchBroadcastSkipsPersistence(t *testing.T) {
	svc, notifRepo, _, _, registry := newDispatchFixture()
	defer registry.Close()

	conn, err := registry.Add("viewer-1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	result, err := svc.Dispatch(context.Background(), DispatchInput{
		Type: models.EventSystemAlert,
		Data: map[string]interface{}{"title": "Maintenance", "message": "Back in 5"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.Created != 0 || len(notifRepo.notifications) != 0 {
		t.Error("broadcast types must not persist rows")
	}

	select {
	case frame := <-conn.Frames():
		if frame.Event != stream.EventSystemAlert {
			t.Errorf("expected %s frame, got %s", stream.EventSystemAlert, frame.Event)
		}
	default:
		t.Error("expected a broadcast frame on the local connection")
	}
}

func TestDispatchDeliversToLocalConnections(t *testing.T) {
	svc, _, _, _, registry := newDispatchFixture()
	defer registry.Close()

	conn, err := registry.Add("u1", nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err = svc.Dispatch(context.Background(), DispatchInput{
		Type:    models.EventReportApproved,
		Data:    map[string]interface{}{"reportId": "r1"},
		UserIDs: []string{"u1"},
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	select {
	case frame := <-conn.Frames():
		if frame.Event != stream.EventNotification {
			t.Errorf("expected %s frame, got %s", stream.EventNotification, frame.Event)
		}
	default:
		t.Error("expected a notification frame on the local connection")
	}
}
