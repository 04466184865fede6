package service

import (
	"context"
	"errors"
	"log"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/repository"
	"gorm.io/gorm"
)

// Role names used by targeting rules.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleApprover = "approver"
)

// EventContext is the contextual data targeting needs, extracted from the
// producer's payload.
type EventContext struct {
	ActorID  string
	BranchID string
	ReportID string
}

// ParseEventContext pulls the well-known context fields out of a raw
// dispatch payload.
func ParseEventContext(data map[string]interface{}) EventContext {
	str := func(key string) string {
		if v, ok := data[key].(string); ok {
			return v
		}
		return ""
	}
	return EventContext{
		ActorID:  str("actorId"),
		BranchID: str("branchId"),
		ReportID: str("reportId"),
	}
}

// TargetingService computes the recipient set for an event type. It never
// returns a hard error for bad input: unknown types and missing referenced
// records yield an empty set, so a producer's request path cannot fail on
// targeting.
type TargetingService struct {
	userRepo   repository.UserRepositoryInterface
	branchRepo repository.BranchRepositoryInterface
	reportRepo repository.ReportRepositoryInterface
}

func NewTargetingService(
	userRepo repository.UserRepositoryInterface,
	branchRepo repository.BranchRepositoryInterface,
	reportRepo repository.ReportRepositoryInterface,
) *TargetingService {
	return &TargetingService{
		userRepo:   userRepo,
		branchRepo: branchRepo,
		reportRepo: reportRepo,
	}
}

// Resolve returns the deduplicated recipient ids for eventType. Order is
// irrelevant.
func (s *TargetingService) Resolve(ctx context.Context, eventType string, ec EventContext) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	add := func(ids ...string) {
		for _, id := range ids {
			if id != "" {
				set[id] = struct{}{}
			}
		}
	}
	exclude := func(id string) {
		delete(set, id)
	}

	switch eventType {
	case models.EventReportSubmitted:
		branchID := s.branchForEvent(ec)
		ids, err := s.branchRepo.FindUserIDsByRoles([]string{RoleManager, RoleApprover, RoleAdmin}, branchID)
		if err != nil {
			log.Printf("Targeting: role lookup failed for %s: %v", eventType, err)
			return nil, nil
		}
		if len(ids) == 0 && branchID != "" {
			// Branches without scoped role grants fall back to their
			// explicit membership so a submission never lands unseen.
			ids, err = s.branchRepo.FindAssignedUserIDs(branchID)
			if err != nil {
				log.Printf("Targeting: branch assignment lookup failed for %s: %v", eventType, err)
				return nil, nil
			}
		}
		add(ids...)
		add(ec.ActorID) // the submitter is a participant

	case models.EventApprovalPending:
		branchID := s.branchForEvent(ec)
		ids, err := s.branchRepo.FindUserIDsByRoles([]string{RoleApprover, RoleAdmin}, branchID)
		if err != nil {
			log.Printf("Targeting: role lookup failed for %s: %v", eventType, err)
			return nil, nil
		}
		add(ids...)
		exclude(ec.ActorID) // don't tell the actor their own work is pending

	case models.EventReportApproved, models.EventReportRejected:
		report, ok := s.lookupReport(ec.ReportID, eventType)
		if !ok {
			return nil, nil
		}
		add(report.SubmittedBy)
		exclude(ec.ActorID) // approving your own report is not notification-worthy

	case models.EventCommentAdded:
		report, ok := s.lookupReport(ec.ReportID, eventType)
		if !ok {
			return nil, nil
		}
		add(report.SubmittedBy)
		ids, err := s.branchRepo.FindUserIDsByRoles([]string{RoleManager}, report.BranchID)
		if err != nil {
			log.Printf("Targeting: role lookup failed for %s: %v", eventType, err)
		} else {
			add(ids...)
		}
		exclude(ec.ActorID) // the commenter already knows

	default:
		// Unknown types are not an error; they simply target nobody.
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	// Drop recipients deactivated since the producing event was created.
	active, err := s.userRepo.FindActiveIDs(ids)
	if err != nil {
		log.Printf("Targeting: active-user filter failed, using unfiltered set: %v", err)
		return ids, nil
	}
	return active, nil
}

// branchForEvent prefers the explicit branch id and falls back to the
// referenced report's owning branch.
func (s *TargetingService) branchForEvent(ec EventContext) string {
	if ec.BranchID != "" {
		return ec.BranchID
	}
	if report, ok := s.lookupReport(ec.ReportID, "branch discovery"); ok {
		return report.BranchID
	}
	return ""
}

func (s *TargetingService) lookupReport(reportID, eventType string) (*models.Report, bool) {
	if reportID == "" {
		log.Printf("Targeting: %s event without reportId, no recipients", eventType)
		return nil, false
	}
	report, err := s.reportRepo.FindByID(reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Targeting: report %s not found for %s, no recipients", reportID, eventType)
		} else {
			log.Printf("Targeting: report lookup %s failed for %s: %v", reportID, eventType, err)
		}
		return nil, false
	}
	return report, true
}
