package service

import (
	"errors"
	"testing"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/testutil"
)

func newTrackingFixture(t *testing.T) (*TrackingService, *MockNotificationRepository, *MockDeliveryEventRepository) {
	notifRepo := NewMockNotificationRepository()
	eventRepo := NewMockDeliveryEventRepository()

	helper := testutil.NewTestHelper(t)
	notification := helper.CreateTestNotification("notif-1", "user-1", "")
	if err := notifRepo.Create(notification); err != nil {
		t.Fatalf("seeding notification failed: %v", err)
	}
	return NewTrackingService(notifRepo, eventRepo), notifRepo, eventRepo
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	svc, _, _ := newTrackingFixture(t)

	_, err := svc.Record("notif-1", "OPENED_MAYBE", nil)
	if !errors.Is(err, ErrInvalidDeliveryEvent) {
		t.Errorf("expected ErrInvalidDeliveryEvent, got %v", err)
	}
}

func TestRecordRejectsMissingNotification(t *testing.T) {
	svc, _, _ := newTrackingFixture(t)

	_, err := svc.Record("no-such-id", models.DeliveryClicked, nil)
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("expected ErrNotificationNotFound, got %v", err)
	}
}

func TestRecordFlagsClientEventBeforeSent(t *testing.T) {
	svc, _, _ := newTrackingFixture(t)

	// DELIVERED arrives before any SENT: keep it, flag it.
	event, err := svc.Record("notif-1", models.DeliveryDelivered, map[string]interface{}{"transport": "sse"})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !event.OutOfOrder {
		t.Error("expected out-of-order flag when no SENT is on record")
	}
}

func TestRecordOrderedAfterSent(t *testing.T) {
	svc, _, _ := newTrackingFixture(t)

	if _, err := svc.Record("notif-1", models.DeliverySent, nil); err != nil {
		t.Fatalf("recording SENT failed: %v", err)
	}
	event, err := svc.Record("notif-1", models.DeliveryDelivered, nil)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if event.OutOfOrder {
		t.Error("DELIVERED after SENT must not be flagged")
	}
}

func TestHistoryListsAllEvents(t *testing.T) {
	svc, _, _ := newTrackingFixture(t)

	for _, kind := range []models.DeliveryEventKind{models.DeliverySent, models.DeliveryDelivered, models.DeliveryClicked} {
		if _, err := svc.Record("notif-1", kind, nil); err != nil {
			t.Fatalf("recording %s failed: %v", kind, err)
		}
	}
	events, err := svc.History("notif-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}
