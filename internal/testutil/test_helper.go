package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id, username string) *models.User {
	if id == "" {
		id = "user-1"
	}
	if username == "" {
		username = "testuser"
	}

	return &models.User{
		ID:        id,
		Username:  username,
		Email:     username + "@example.com",
		Name:      "Test User",
		Role:      "user",
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestBranch creates a test branch with default values
func (h *TestHelper) CreateTestBranch(id, code string) *models.Branch {
	if id == "" {
		id = "branch-1"
	}
	if code == "" {
		code = "B1"
	}

	return &models.Branch{
		ID:       id,
		Code:     code,
		Name:     "Branch " + code,
		IsActive: true,
	}
}

// CreateTestReport creates a test report with default values
func (h *TestHelper) CreateTestReport(id, branchID, submittedBy string) *models.Report {
	if id == "" {
		id = "report-1"
	}
	if branchID == "" {
		branchID = "branch-1"
	}
	if submittedBy == "" {
		submittedBy = "user-1"
	}

	return &models.Report{
		ID:          id,
		BranchID:    branchID,
		SubmittedBy: submittedBy,
		ReportType:  "daily",
		Status:      models.ReportPending,
		Date:        time.Now(),
	}
}

// CreateTestNotification creates a test notification with default values
func (h *TestHelper) CreateTestNotification(id, userID, eventType string) *models.Notification {
	if id == "" {
		id = "notif-1"
	}
	if userID == "" {
		userID = "user-1"
	}
	if eventType == "" {
		eventType = models.EventReportSubmitted
	}

	return &models.Notification{
		ID:        id,
		UserID:    userID,
		Title:     "Test Notification",
		Body:      "Something happened",
		Type:      eventType,
		CreatedAt: time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(value interface{}, testName string) {
	if value == nil {
		h.t.Errorf("%s: expected non-nil value", testName)
	}
}

// GetRecordNotFoundError returns an error that mimics gorm.ErrRecordNotFound
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
