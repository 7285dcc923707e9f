package domain

import "time"

// TicketStats holds independent counts per status plus the grand total.
type TicketStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// WorkloadEntry counts open and in-progress tickets held by one assignee.
type WorkloadEntry struct {
	TechnicianID   string `json:"technicianId"`
	TechnicianName string `json:"technicianName"`
	TicketCount    int    `json:"ticketCount"`
}

// PerformanceRow aggregates resolution time per assignee. AvgResolutionMs is
// nil when no ticket in the group has been resolved.
type PerformanceRow struct {
	AssignedTo      *string  `json:"assignedTo"`
	AvgResolutionMs *float64 `json:"avgResolutionTime"`
	ResolvedCount   int      `json:"resolvedCount"`
	TicketCount     int      `json:"ticketCount"`
}

// TicketReportRow is the summary projection used by range reports.
type TicketReportRow struct {
	TicketNumber string         `json:"ticketNumber"`
	Title        string         `json:"title"`
	Status       TicketStatus   `json:"status"`
	Priority     TicketPriority `json:"priority"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// BulkResult reports how many tickets a bulk update matched and changed.
type BulkResult struct {
	Matched  int `json:"matched"`
	Modified int `json:"modified"`
}
