package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketGroupField names a column tickets can be counted by.
type TicketGroupField string

const (
	GroupByCategory TicketGroupField = "category"
	GroupByPriority TicketGroupField = "priority"
)

// TicketRepository encapsulates ticket persistence. Reads return tickets
// joined with creator and assignee display fields.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	GroupCount(ctx context.Context, field TicketGroupField) ([]domain.GroupCount, error)
	Workload(ctx context.Context) ([]domain.WorkloadEntry, error)
	Performance(ctx context.Context, filter TicketFilter) ([]domain.PerformanceRow, error)
	BulkAssign(ctx context.Context, ids []string, assigneeID string) (domain.BulkResult, error)
	BulkStatus(ctx context.Context, ids []string, status domain.TicketStatus, now time.Time) (domain.BulkResult, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.ticket_number, t.title, t.description, t.priority, t.status, t.category,
               t.created_by, t.assigned_to, t.resolution, t.resolved_at, t.closed_at, t.created_at, t.updated_at,
               c.id, c.username, c.full_name, c.email, c.department, c.role,
               a.id, a.username, a.full_name, a.email, a.department, a.role
        FROM tickets t
        LEFT JOIN users c ON c.id = t.created_by
        LEFT JOIN users a ON a.id = t.assigned_to`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&seq); err != nil {
		return fmt.Errorf("allocate ticket number: %w", err)
	}
	ticket.TicketNumber = domain.FormatTicketNumber(seq)

	const query = `
        INSERT INTO tickets (sequence, ticket_number, title, description, priority, status, category, created_by, assigned_to, resolution)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		seq,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.Resolution,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, category=$5,
            assigned_to=$6, resolution=$7, resolved_at=$8, closed_at=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.AssignedTo,
		ticket.Resolution,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where, args := buildTicketWhere(filter)
	query := ticketSelect + ` WHERE ` + where + orderClause(filter.Sort) + limitClause(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := buildTicketWhere(filter)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ticketRepository) GroupCount(ctx context.Context, field TicketGroupField) ([]domain.GroupCount, error) {
	var column string
	switch field {
	case GroupByCategory:
		column = "category"
	case GroupByPriority:
		column = "priority"
	default:
		return nil, fmt.Errorf("unsupported group field %q", field)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %[1]s, COUNT(*) FROM tickets GROUP BY %[1]s ORDER BY %[1]s`, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.GroupCount
	for rows.Next() {
		var gc domain.GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			return nil, err
		}
		result = append(result, gc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Workload(ctx context.Context) ([]domain.WorkloadEntry, error) {
	const query = `
        SELECT u.id, u.full_name, COUNT(*) AS ticket_count
        FROM tickets t
        JOIN users u ON u.id = t.assigned_to
        WHERE t.status IN ('open', 'in-progress')
        GROUP BY u.id, u.full_name
        ORDER BY ticket_count DESC, u.full_name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkloadEntry
	for rows.Next() {
		var entry domain.WorkloadEntry
		if err := rows.Scan(&entry.TechnicianID, &entry.TechnicianName, &entry.TicketCount); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Performance(ctx context.Context, filter TicketFilter) ([]domain.PerformanceRow, error) {
	where, args := buildTicketWhere(filter)
	query := `
        SELECT t.assigned_to,
               AVG(EXTRACT(EPOCH FROM (t.resolved_at - t.created_at)) * 1000)::float8,
               COUNT(t.resolved_at),
               COUNT(*)
        FROM tickets t
        WHERE ` + where + `
        GROUP BY t.assigned_to
        ORDER BY t.assigned_to NULLS FIRST`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.PerformanceRow
	for rows.Next() {
		var row domain.PerformanceRow
		if err := rows.Scan(&row.AssignedTo, &row.AvgResolutionMs, &row.ResolvedCount, &row.TicketCount); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// BulkAssign sets the assignee on every matched ticket. Status is untouched.
func (r *ticketRepository) BulkAssign(ctx context.Context, ids []string, assigneeID string) (domain.BulkResult, error) {
	return r.bulkUpdate(ctx, ids,
		`assigned_to IS DISTINCT FROM $2::uuid`, []any{assigneeID},
		`UPDATE tickets SET assigned_to=$2, updated_at=NOW() WHERE id = ANY($1::uuid[])`, assigneeID,
	)
}

// BulkStatus sets status on every matched ticket and stamps resolved_at or
// closed_at with now regardless of prior values.
func (r *ticketRepository) BulkStatus(ctx context.Context, ids []string, status domain.TicketStatus, now time.Time) (domain.BulkResult, error) {
	switch status {
	case domain.TicketStatusResolved:
		return r.bulkUpdate(ctx, ids, `TRUE`, nil,
			`UPDATE tickets SET status=$2, resolved_at=$3, updated_at=NOW() WHERE id = ANY($1::uuid[])`, status, now)
	case domain.TicketStatusClosed:
		return r.bulkUpdate(ctx, ids, `TRUE`, nil,
			`UPDATE tickets SET status=$2, closed_at=$3, updated_at=NOW() WHERE id = ANY($1::uuid[])`, status, now)
	default:
		return r.bulkUpdate(ctx, ids, `status IS DISTINCT FROM $2`, []any{status},
			`UPDATE tickets SET status=$2, updated_at=NOW() WHERE id = ANY($1::uuid[])`, status)
	}
}

// bulkUpdate counts matched and changed rows, then applies update, in one
// transaction. Both statements take the id array as $1.
func (r *ticketRepository) bulkUpdate(ctx context.Context, ids []string, changed string, changedArgs []any, update string, updateArgs ...any) (result domain.BulkResult, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	countQuery := `SELECT COUNT(*), COUNT(*) FILTER (WHERE ` + changed + `) FROM tickets WHERE id = ANY($1::uuid[])`
	if err = tx.QueryRow(ctx, countQuery, append([]any{ids}, changedArgs...)...).Scan(&result.Matched, &result.Modified); err != nil {
		return result, translate(err)
	}
	if _, err = tx.Exec(ctx, update, append([]any{ids}, updateArgs...)...); err != nil {
		return result, translate(err)
	}
	if err = tx.Commit(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket  domain.Ticket
		creator nullableUserRef
		assign  nullableUserRef
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Category,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Resolution,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creator.ID, &creator.Username, &creator.FullName, &creator.Email, &creator.Department, &creator.Role,
		&assign.ID, &assign.Username, &assign.FullName, &assign.Email, &assign.Department, &assign.Role,
	); err != nil {
		return nil, err
	}
	ticket.Creator = creator.ref()
	ticket.Assignee = assign.ref()
	return &ticket, nil
}

// nullableUserRef receives the columns of an outer-joined users row.
type nullableUserRef struct {
	ID         *string
	Username   *string
	FullName   *string
	Email      *string
	Department *string
	Role       *string
}

func (n nullableUserRef) ref() *domain.UserRef {
	if n.ID == nil {
		return nil
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return &domain.UserRef{
		ID:         *n.ID,
		Username:   deref(n.Username),
		FullName:   deref(n.FullName),
		Email:      deref(n.Email),
		Department: deref(n.Department),
		Role:       domain.Role(deref(n.Role)),
	}
}
