package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/service"
)

func newTrackFixture() (*NotificationHandler, *mockNotificationRepo, *mockDeliveryEventRepo) {
	notifRepo := newMockNotificationRepo()
	eventRepo := newMockDeliveryEventRepo()
	tracking := service.NewTrackingService(notifRepo, eventRepo)
	notifService := service.NewNotificationService(notifRepo, tracking, nil)
	return NewNotificationHandler(notifService, tracking), notifRepo, eventRepo
}

func postTrack(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/notifications/track", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestTrackRejectsServerOnlyKinds(t *testing.T) {
	handler, notifRepo, eventRepo := newTrackFixture()
	notifRepo.notifications["n1"] = &models.Notification{
		ID: "n1", UserID: "u1", Type: models.EventReportApproved, CreatedAt: time.Now(),
	}

	app := fiber.New()
	app.Post("/api/notifications/track", handler.Track)

	// SENT and READ are the server's to write; anonymous callers cannot
	// forge them.
	for _, kind := range []string{"SENT", "READ"} {
		status := postTrack(t, app, `{"notificationId":"n1","event":"`+kind+`"}`)
		if status != fiber.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", kind, status)
		}
	}
	if len(eventRepo.events) != 0 {
		t.Fatalf("expected no events recorded, got %d", len(eventRepo.events))
	}

	if status := postTrack(t, app, `{"notificationId":"n1","event":"DELIVERED"}`); status != fiber.StatusCreated {
		t.Errorf("DELIVERED: status = %d, want 201", status)
	}
	if len(eventRepo.events) != 1 || eventRepo.events[0].Event != models.DeliveryDelivered {
		t.Errorf("expected one DELIVERED event, got %+v", eventRepo.events)
	}
}

func TestTrackUnknownNotification(t *testing.T) {
	handler, _, _ := newTrackFixture()

	app := fiber.New()
	app.Post("/api/notifications/track", handler.Track)

	if status := postTrack(t, app, `{"notificationId":"missing","event":"CLICKED"}`); status != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}
