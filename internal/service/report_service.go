package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Cache keys for dashboard aggregates.
const (
	statsKey         = "stats"
	statsCategoryKey = "stats:category"
	statsPriorityKey = "stats:priority"
	workloadKey      = "stats:workload"
)

// StatsCacheKeys lists every cached aggregate. Ticket writes drop them all.
var StatsCacheKeys = []string{statsKey, statsCategoryKey, statsPriorityKey, workloadKey}

// ReportTypePerformance selects the per-assignee resolution report.
const ReportTypePerformance = "performance"

// ReportService computes read-only aggregates over tickets.
type ReportService struct {
	tickets repository.TicketRepository
	cache   *cache.Client
	metrics *observability.Metrics
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// ReportDependencies bundles collaborators for report service.
type ReportDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      *cache.Client
	Metrics    *observability.Metrics
	StatsTTL   time.Duration
	Logger     *zap.Logger
}

func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		tickets: deps.TicketRepo,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		ttl:     deps.StatsTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// ReportRequest holds the raw report form.
type ReportRequest struct {
	StartDate string
	EndDate   string
	Type      string
}

// Report wraps generated rows with the filter that produced them.
type Report struct {
	Filter      ReportRequest
	Data        any
	GeneratedAt time.Time
}

// Stats counts tickets per status. Each count is an independent query.
func (s *ReportService) Stats(ctx context.Context) (domain.TicketStats, error) {
	return cachedLoad(ctx, s, statsKey, func(ctx context.Context) (domain.TicketStats, error) {
		var stats domain.TicketStats
		targets := []struct {
			dst    *int
			status domain.TicketStatus
		}{
			{&stats.Total, ""},
			{&stats.Open, domain.TicketStatusOpen},
			{&stats.InProgress, domain.TicketStatusInProgress},
			{&stats.Resolved, domain.TicketStatusResolved},
			{&stats.Closed, domain.TicketStatusClosed},
		}
		for _, target := range targets {
			var filter repository.TicketFilter
			if target.status != "" {
				filter.Statuses = []domain.TicketStatus{target.status}
			}
			n, err := s.tickets.Count(ctx, filter)
			if err != nil {
				return stats, err
			}
			*target.dst = n
		}
		return stats, nil
	})
}

// StatsByCategory counts tickets per category.
func (s *ReportService) StatsByCategory(ctx context.Context) ([]domain.GroupCount, error) {
	return cachedLoad(ctx, s, statsCategoryKey, func(ctx context.Context) ([]domain.GroupCount, error) {
		return s.tickets.GroupCount(ctx, repository.GroupByCategory)
	})
}

// StatsByPriority counts tickets per priority.
func (s *ReportService) StatsByPriority(ctx context.Context) ([]domain.GroupCount, error) {
	return cachedLoad(ctx, s, statsPriorityKey, func(ctx context.Context) ([]domain.GroupCount, error) {
		return s.tickets.GroupCount(ctx, repository.GroupByPriority)
	})
}

// Workload counts open and in-progress tickets per assignee.
func (s *ReportService) Workload(ctx context.Context, caller *domain.User) ([]domain.WorkloadEntry, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionViewWorkload, policy.Resource{}); err != nil {
		return nil, err
	}
	return cachedLoad(ctx, s, workloadKey, func(ctx context.Context) ([]domain.WorkloadEntry, error) {
		return s.tickets.Workload(ctx)
	})
}

// GenerateReport builds an ad-hoc report over tickets created in the range.
func (s *ReportService) GenerateReport(ctx context.Context, caller *domain.User, req ReportRequest) (*Report, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionViewReports, policy.Resource{}); err != nil {
		return nil, err
	}

	filter := repository.TicketFilter{Sort: repository.DefaultTicketSort}
	if req.StartDate != "" && req.EndDate != "" {
		from, err := parseReportDate(req.StartDate, false)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid startDate", map[string]any{"startDate": req.StartDate})
		}
		to, err := parseReportDate(req.EndDate, true)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid endDate", map[string]any{"endDate": req.EndDate})
		}
		if to.Before(from) {
			return nil, apperrors.NewValidationError("endDate must not be before startDate", nil)
		}
		filter.CreatedFrom = &from
		filter.CreatedTo = &to
	}

	report := &Report{Filter: req, GeneratedAt: s.now().UTC()}
	if req.Type == ReportTypePerformance {
		rows, err := s.tickets.Performance(ctx, filter)
		if err != nil {
			return nil, repoError(err, "Ticket")
		}
		report.Data = rows
		return report, nil
	}

	tickets, _, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	rows := make([]domain.TicketReportRow, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, domain.TicketReportRow{
			TicketNumber: t.TicketNumber,
			Title:        t.Title,
			Status:       t.Status,
			Priority:     t.Priority,
			CreatedAt:    t.CreatedAt,
		})
	}
	report.Data = rows
	return report, nil
}

// parseReportDate accepts RFC3339 or a bare date. A bare end date covers the
// whole day.
func parseReportDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// cachedLoad serves key from the cache or computes and stores it.
func cachedLoad[T any](ctx context.Context, s *ReportService, key string, load func(context.Context) (T, error)) (T, error) {
	if raw, _ := s.cache.Get(ctx, key); raw != nil {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			s.metrics.RecordCacheLookup(key, true)
			return value, nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	}
	s.metrics.RecordCacheLookup(key, false)

	value, err := load(ctx)
	if err != nil {
		return value, repoError(err, "Ticket")
	}
	if s.ttl > 0 {
		if raw, err := json.Marshal(value); err == nil {
			_ = s.cache.Set(ctx, key, raw, s.ttl)
		}
	}
	return value, nil
}
