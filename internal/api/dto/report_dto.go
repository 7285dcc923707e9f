package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryCount is one bucket of the by-category dashboard.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// PriorityCount is one bucket of the by-priority dashboard.
type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

func NewCategoryCounts(groups []domain.GroupCount) []CategoryCount {
	out := make([]CategoryCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, CategoryCount{Category: g.Key, Count: g.Count})
	}
	return out
}

func NewPriorityCounts(groups []domain.GroupCount) []PriorityCount {
	out := make([]PriorityCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, PriorityCount{Priority: g.Key, Count: g.Count})
	}
	return out
}

// GenerateReportRequest payload. Dates are RFC3339 or YYYY-MM-DD.
type GenerateReportRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Type      string `json:"type"`
}

// ReportFilter echoes the request.
type ReportFilter struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Type      string `json:"type,omitempty"`
}

// ReportResponse wraps generated report rows.
type ReportResponse struct {
	Filter      ReportFilter `json:"filter"`
	Data        any          `json:"data"`
	GeneratedAt time.Time    `json:"generatedAt"`
}
