package service

import (
	"fmt"

	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
)

// RenderedContent is the user-visible shape of a notification derived from
// an event type and its payload.
type RenderedContent struct {
	Title     string
	Body      string
	ActionURL string
}

type templateFunc func(data map[string]interface{}) RenderedContent

var contentTemplates = map[string]templateFunc{
	models.EventReportSubmitted: func(data map[string]interface{}) RenderedContent {
		return RenderedContent{
			Title:     "New Report Submitted",
			Body:      fmt.Sprintf("A new report for %s has been submitted by %s", strField(data, "branchName", "a branch"), strField(data, "submitterName", "a user")),
			ActionURL: reportURL(data),
		}
	},
	models.EventReportApproved: func(data map[string]interface{}) RenderedContent {
		return RenderedContent{
			Title:     "Report Approved",
			Body:      fmt.Sprintf("Your report for %s has been approved", strField(data, "branchName", "your branch")),
			ActionURL: reportURL(data),
		}
	},
	models.EventReportRejected: func(data map[string]interface{}) RenderedContent {
		body := fmt.Sprintf("Your report for %s was rejected", strField(data, "branchName", "your branch"))
		if reason := strField(data, "reason", ""); reason != "" {
			body = fmt.Sprintf("%s: %s", body, reason)
		}
		return RenderedContent{
			Title:     "Report Needs Attention",
			Body:      body,
			ActionURL: reportURL(data),
		}
	},
	models.EventCommentAdded: func(data map[string]interface{}) RenderedContent {
		return RenderedContent{
			Title:     "New Comment",
			Body:      fmt.Sprintf("%s commented on a report you follow", strField(data, "commenterName", "Someone")),
			ActionURL: reportURL(data),
		}
	},
	models.EventApprovalPending: func(data map[string]interface{}) RenderedContent {
		return RenderedContent{
			Title:     "Approval Needed",
			Body:      fmt.Sprintf("A report for %s is waiting for your approval", strField(data, "branchName", "a branch")),
			ActionURL: "/dashboard/approvals",
		}
	},
	models.EventSystemAlert: func(data map[string]interface{}) RenderedContent {
		return RenderedContent{
			Title: strField(data, "title", "System Alert"),
			Body:  strField(data, "message", "A system alert has been issued"),
		}
	},
	models.EventDashboardUpdate: func(data map[string]interface{}) RenderedContent {
		return RenderedContent{
			Title: "Dashboard Updated",
			Body:  strField(data, "message", "Dashboard data has been refreshed"),
		}
	},
}

// RenderContent derives title, body and action URL for an event. Unknown
// event types get a generic rendering instead of an error.
func RenderContent(eventType string, data map[string]interface{}) RenderedContent {
	if tmpl, ok := contentTemplates[eventType]; ok {
		return tmpl(data)
	}
	return RenderedContent{
		Title: "New Notification",
		Body:  strField(data, "message", "You have a new notification"),
	}
}

func strField(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func reportURL(data map[string]interface{}) string {
	if id := strField(data, "reportId", ""); id != "" {
		return "/dashboard/reports/" + id
	}
	return "/dashboard/reports"
}
