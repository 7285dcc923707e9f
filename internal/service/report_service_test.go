package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestStatsCountsEachStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleCustomer)
	tech := f.user(t, "tom", domain.RoleTechnician)
	f.ticket(t, alice, "a")
	b := f.ticket(t, alice, "b")
	c := f.ticket(t, alice, "c")
	_, err := f.tickets.AssignTicket(ctx, tech, b.ID, tech.ID)
	require.NoError(t, err)
	_, err = f.tickets.UpdateStatus(ctx, tech, c.ID, domain.TicketStatusResolved, ptr("done"))
	require.NoError(t, err)

	stats, err := f.reports.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStats{Total: 3, Open: 1, InProgress: 1, Resolved: 1}, stats)

	byPriority, err := f.reports.StatsByPriority(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupCount{{Key: "medium", Count: 3}}, byPriority)

	byCategory, err := f.reports.StatsByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupCount{{Key: "other", Count: 3}}, byCategory)
}

func TestWorkloadRequiresStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleCustomer)
	tech := f.user(t, "tom", domain.RoleTechnician)
	tk := f.ticket(t, alice, "a")
	_, err := f.tickets.AssignTicket(ctx, tech, tk.ID, tech.ID)
	require.NoError(t, err)

	_, err = f.reports.Workload(ctx, alice)
	requireCode(t, err, apperrors.CodeForbidden)

	workload, err := f.reports.Workload(ctx, tech)
	require.NoError(t, err)
	assert.Equal(t, []domain.WorkloadEntry{{TechnicianID: tech.ID, TechnicianName: "tom full", TicketCount: 1}}, workload)
}

func TestGenerateReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", domain.RoleCustomer)
	tech := f.user(t, "tom", domain.RoleTechnician)
	admin := f.user(t, "root", domain.RoleAdmin)
	first := f.ticket(t, alice, "first")
	f.ticket(t, alice, "second")
	_, err := f.tickets.AssignTicket(ctx, tech, first.ID, tech.ID)
	require.NoError(t, err)
	_, err = f.tickets.UpdateStatus(ctx, tech, first.ID, domain.TicketStatusResolved, ptr("fixed"))
	require.NoError(t, err)

	_, err = f.reports.GenerateReport(ctx, tech, ReportRequest{})
	requireCode(t, err, apperrors.CodeForbidden)

	report, err := f.reports.GenerateReport(ctx, admin, ReportRequest{StartDate: "2026-03-02", EndDate: "2026-03-02"})
	require.NoError(t, err)
	rows, ok := report.Data.([]domain.TicketReportRow)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "TKT-00002", rows[0].TicketNumber)
	assert.False(t, report.GeneratedAt.IsZero())

	report, err = f.reports.GenerateReport(ctx, admin, ReportRequest{StartDate: "2026-03-03", EndDate: "2026-03-04"})
	require.NoError(t, err)
	assert.Empty(t, report.Data)

	report, err = f.reports.GenerateReport(ctx, admin, ReportRequest{Type: ReportTypePerformance})
	require.NoError(t, err)
	perf, ok := report.Data.([]domain.PerformanceRow)
	require.True(t, ok)
	require.Len(t, perf, 2)
	assert.Nil(t, perf[0].AssignedTo)
	assert.Nil(t, perf[0].AvgResolutionMs)
	require.NotNil(t, perf[1].AvgResolutionMs)
	assert.Positive(t, *perf[1].AvgResolutionMs)
	assert.Equal(t, 1, perf[1].ResolvedCount)

	_, err = f.reports.GenerateReport(ctx, admin, ReportRequest{StartDate: "yesterday", EndDate: "2026-03-04"})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = f.reports.GenerateReport(ctx, admin, ReportRequest{StartDate: "2026-03-04", EndDate: "2026-03-01"})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestParseReportDate(t *testing.T) {
	start, err := parseReportDate("2026-03-02", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), start)

	end, err := parseReportDate("2026-03-02", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC), end)

	exact, err := parseReportDate("2026-03-02T10:00:00+02:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), exact)
}
