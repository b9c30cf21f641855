package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickdesk/helpdesk-service/internal/domain"
)

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	// ListThread returns top-level comments ordered by creation time,
	// each populated with its replies.
	ListThread(ctx context.Context, ticketID string) ([]domain.Comment, error)
	CastVote(ctx context.Context, id, principalID string, vote domain.VoteType) (*domain.Comment, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentColumns = `id, ticket_id, author_id, content, is_internal, attachments, upvotes, downvotes, parent_comment_id, created_at`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, author_id, content, is_internal, attachments, parent_comment_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if comment.Attachments == nil {
		comment.Attachments = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		comment.IsInternal,
		comment.Attachments,
		comment.ParentID,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id=$1`
	return scanCommentRow(r.pool.QueryRow(ctx, query, id))
}

func (r *commentRepository) ListThread(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := scanCommentFields(rows, &comment); err != nil {
			return nil, err
		}
		all = append(all, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assembleThread(all), nil
}

// assembleThread builds the two-tier tree: top-level comments in order,
// replies attached to their parent in order.
func assembleThread(all []domain.Comment) []domain.Comment {
	topLevel := make([]domain.Comment, 0, len(all))
	index := make(map[string]int, len(all))
	for _, comment := range all {
		if comment.ParentID == nil {
			topLevel = append(topLevel, comment)
			index[comment.ID] = len(topLevel) - 1
		}
	}
	for _, comment := range all {
		if comment.ParentID == nil {
			continue
		}
		if i, ok := index[*comment.ParentID]; ok {
			topLevel[i].Replies = append(topLevel[i].Replies, comment)
		}
	}
	return topLevel
}

// CastVote applies remove-then-insert vote semantics in one statement.
func (r *commentRepository) CastVote(ctx context.Context, id, principalID string, vote domain.VoteType) (*domain.Comment, error) {
	query := `
        UPDATE comments SET
            upvotes = CASE WHEN $3 = 'upvote'
                THEN array_append(array_remove(upvotes, $2), $2)
                ELSE array_remove(upvotes, $2) END,
            downvotes = CASE WHEN $3 = 'downvote'
                THEN array_append(array_remove(downvotes, $2), $2)
                ELSE array_remove(downvotes, $2) END
        WHERE id=$1
        RETURNING ` + commentColumns
	return scanCommentRow(r.pool.QueryRow(ctx, query, id, principalID, string(vote)))
}

func (r *commentRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE ticket_id=$1`, ticketID).Scan(&count)
	return count, err
}

func scanCommentRow(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	if err := scanCommentFields(row, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func scanCommentFields(row pgx.Row, comment *domain.Comment) error {
	return row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Content,
		&comment.IsInternal,
		&comment.Attachments,
		&comment.Upvotes,
		&comment.Downvotes,
		&comment.ParentID,
		&comment.CreatedAt,
	)
}
