package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickdesk/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. Visibility scoping is the
// caller's responsibility; the repository applies whatever is set.
type TicketFilter struct {
	CreatedBy  *string
	AssignedTo *string
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	CategoryID *string
	Search     *string
	SortBy     string
	SortOrder  string
	Limit      int
	Offset     int
}

// TicketMutation mutates a ticket under lock and returns the history
// entries the change produced.
type TicketMutation func(t *domain.Ticket) ([]domain.TicketChange, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Mutate runs fn against the current row inside a transaction holding
	// a row lock, then persists the ticket and any history entries fn
	// returned. Concurrent mutations of the same ticket serialize here.
	Mutate(ctx context.Context, id string, fn TicketMutation) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	CastVote(ctx context.Context, id, principalID string, vote domain.VoteType) (*domain.Ticket, error)
	IncrementViewCount(ctx context.Context, id string) error
	ListHistory(ctx context.Context, ticketID string) ([]domain.TicketChange, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, subject, description, category_id, status, priority, created_by, assigned_to,
               attachments, upvotes, downvotes, view_count, resolved_at, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, description, category_id, status, priority, created_by, assigned_to, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, view_count, created_at, updated_at`
	if ticket.Attachments == nil {
		ticket.Attachments = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.CategoryID,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.Attachments,
	).Scan(&ticket.ID, &ticket.ViewCount, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicketRow(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn TicketMutation) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	ticket, err := scanTicketRow(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	changes, err := fn(ticket)
	if err != nil {
		return nil, err
	}

	const update = `
        UPDATE tickets SET subject=$1, description=$2, category_id=$3, status=$4, priority=$5,
            assigned_to=$6, resolved_at=$7, closed_at=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		ticket.Subject,
		ticket.Description,
		ticket.CategoryID,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return nil, err
	}

	const insertChange = `
        INSERT INTO ticket_history (ticket_id, change_type, old_value, new_value, changed_by, reason)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, changed_at`
	for i := range changes {
		changes[i].TicketID = ticket.ID
		if err := tx.QueryRow(ctx, insertChange,
			ticket.ID,
			changes[i].ChangeType,
			changes[i].OldValue,
			changes[i].NewValue,
			changes[i].ChangedBy,
			changes[i].Reason,
		).Scan(&changes[i].ID, &changes[i].ChangedAt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes the ticket; comments and history rows go with it via
// the schema's cascade rules.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM tickets WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		ticketColumns, where, orderClause(filter.SortBy, filter.SortOrder), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// CastVote applies remove-then-insert vote semantics in one statement so
// concurrent casts from different principals cannot lose updates.
func (r *ticketRepository) CastVote(ctx context.Context, id, principalID string, vote domain.VoteType) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET
            upvotes = CASE WHEN $3 = 'upvote'
                THEN array_append(array_remove(upvotes, $2), $2)
                ELSE array_remove(upvotes, $2) END,
            downvotes = CASE WHEN $3 = 'downvote'
                THEN array_append(array_remove(downvotes, $2), $2)
                ELSE array_remove(downvotes, $2) END,
            updated_at = NOW()
        WHERE id=$1
        RETURNING ` + ticketColumns
	return scanTicketRow(r.pool.QueryRow(ctx, query, id, principalID, string(vote)))
}

func (r *ticketRepository) IncrementViewCount(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET view_count = view_count + 1 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketChange, error) {
	const query = `
        SELECT id, ticket_id, change_type, old_value, new_value, changed_by, reason, changed_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY changed_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketChange
	for rows.Next() {
		var change domain.TicketChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.ChangeType,
			&change.OldValue,
			&change.NewValue,
			&change.ChangedBy,
			&change.Reason,
			&change.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}

var ticketSortColumns = map[string]string{
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
	"priority":   "priority",
	"status":     "status",
	"viewCount":  "view_count",
	"view_count": "view_count",
	"subject":    "subject",
}

func orderClause(sortBy, sortOrder string) string {
	column, ok := ticketSortColumns[sortBy]
	if !ok {
		return "created_at DESC"
	}
	direction := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		direction = "DESC"
	}
	return column + " " + direction
}

func scanTicketRow(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.CategoryID,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Attachments,
		&ticket.Upvotes,
		&ticket.Downvotes,
		&ticket.ViewCount,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.CategoryID,
			&ticket.Status,
			&ticket.Priority,
			&ticket.CreatedBy,
			&ticket.AssignedTo,
			&ticket.Attachments,
			&ticket.Upvotes,
			&ticket.Downvotes,
			&ticket.ViewCount,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
