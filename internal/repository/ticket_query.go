package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketSortField names a sortable ticket attribute.
type TicketSortField string

const (
	SortCreatedAt    TicketSortField = "createdAt"
	SortUpdatedAt    TicketSortField = "updatedAt"
	SortPriority     TicketSortField = "priority"
	SortStatus       TicketSortField = "status"
	SortCategory     TicketSortField = "category"
	SortTitle        TicketSortField = "title"
	SortTicketNumber TicketSortField = "ticketNumber"
)

var sortExpressions = map[TicketSortField]string{
	SortCreatedAt:    "t.created_at",
	SortUpdatedAt:    "t.updated_at",
	SortPriority:     "CASE t.priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 WHEN 'urgent' THEN 3 END",
	SortStatus:       "CASE t.status WHEN 'open' THEN 0 WHEN 'in-progress' THEN 1 WHEN 'resolved' THEN 2 WHEN 'closed' THEN 3 END",
	SortCategory:     "t.category",
	SortTitle:        "LOWER(t.title)",
	SortTicketNumber: "t.sequence",
}

// ParseSortField resolves an allow-listed sort key.
func ParseSortField(name string) (TicketSortField, bool) {
	field := TicketSortField(name)
	_, ok := sortExpressions[field]
	return field, ok
}

// TicketSort is a single sort key.
type TicketSort struct {
	Field TicketSortField
	Desc  bool
}

// DefaultTicketSort orders newest first.
var DefaultTicketSort = TicketSort{Field: SortCreatedAt, Desc: true}

// TicketFilter is the single query shape behind every ticket listing. Empty
// fields do not constrain. Limit of zero means no limit.
type TicketFilter struct {
	CreatedBy   string
	AssignedTo  string
	Unassigned  bool
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	Categories  []domain.TicketCategory
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Sort        TicketSort
	Limit       int
	Offset      int
}

func placeholders[T any](args *[]any, values []T) string {
	marks := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		marks[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(marks, ",")
}

// buildTicketWhere renders the filter as a WHERE body over alias t.
func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "t.assigned_to IS NULL")
	} else if filter.AssignedTo != "" {
		args = append(args, filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", placeholders(&args, filter.Statuses)))
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", placeholders(&args, filter.Priorities)))
	}
	if len(filter.Categories) > 0 {
		clauses = append(clauses, fmt.Sprintf("t.category IN (%s)", placeholders(&args, filter.Categories)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(term))+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %[1]s OR LOWER(t.description) LIKE %[1]s OR LOWER(t.ticket_number) LIKE %[1]s)", p))
	}
	return strings.Join(clauses, " AND "), args
}

// orderClause renders ORDER BY with a sequence tie-breaker.
func orderClause(s TicketSort) string {
	if s.Field == "" {
		s = DefaultTicketSort
	}
	expr, ok := sortExpressions[s.Field]
	if !ok {
		expr = sortExpressions[SortCreatedAt]
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, t.sequence %s", expr, dir, dir)
}

func limitClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Matches evaluates the filter against a single ticket. Non-SQL stores use it
// to share the query semantics.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Unassigned {
		if t.AssignedTo != nil {
			return false
		}
	} else if f.AssignedTo != "" && !t.IsAssignedTo(f.AssignedTo) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !contains(f.Priorities, t.Priority) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, t.Category) {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(t.TicketNumber), term) {
			return false
		}
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func rank[T comparable](values []T, v T) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return len(values)
}

// SortTickets orders tickets in place the same way orderClause does. seq
// returns the allocation sequence used as tie-breaker.
func SortTickets(tickets []domain.Ticket, s TicketSort, seq func(*domain.Ticket) int64) {
	if s.Field == "" {
		s = DefaultTicketSort
	}
	compare := func(a, b *domain.Ticket) int {
		switch s.Field {
		case SortUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case SortPriority:
			return rank(domain.TicketPriorities, a.Priority) - rank(domain.TicketPriorities, b.Priority)
		case SortStatus:
			return rank(domain.TicketStatuses, a.Status) - rank(domain.TicketStatuses, b.Status)
		case SortCategory:
			return strings.Compare(string(a.Category), string(b.Category))
		case SortTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case SortTicketNumber:
			return 0
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := &tickets[i], &tickets[j]
		c := compare(a, b)
		if c == 0 {
			sa, sb := seq(a), seq(b)
			switch {
			case sa < sb:
				c = -1
			case sa > sb:
				c = 1
			}
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}
