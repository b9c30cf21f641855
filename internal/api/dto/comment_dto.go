package dto

import (
	"time"

	"github.com/quickdesk/helpdesk-service/internal/domain"
)

// CreateCommentRequest payload for comments and replies.
type CreateCommentRequest struct {
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
	IsInternal  bool     `json:"is_internal"`
}

// CommentResponse is the serialized comment, replies included.
type CommentResponse struct {
	ID          string            `json:"id"`
	TicketID    string            `json:"ticket_id"`
	AuthorID    string            `json:"author_id"`
	Content     string            `json:"content"`
	IsInternal  bool              `json:"is_internal"`
	Attachments []string          `json:"attachments"`
	Upvotes     []string          `json:"upvotes"`
	Downvotes   []string          `json:"downvotes"`
	VoteCount   int               `json:"vote_count"`
	ParentID    *string           `json:"parent_comment_id"`
	Replies     []CommentResponse `json:"replies"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewCommentResponse serializes a domain comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	replies := make([]CommentResponse, 0, len(c.Replies))
	for i := range c.Replies {
		replies = append(replies, NewCommentResponse(&c.Replies[i]))
	}
	return CommentResponse{
		ID:          c.ID,
		TicketID:    c.TicketID,
		AuthorID:    c.AuthorID,
		Content:     c.Content,
		IsInternal:  c.IsInternal,
		Attachments: emptyIfNil(c.Attachments),
		Upvotes:     emptyIfNil(c.Upvotes),
		Downvotes:   emptyIfNil(c.Downvotes),
		VoteCount:   c.VoteCount(),
		ParentID:    c.ParentID,
		Replies:     replies,
		CreatedAt:   c.CreatedAt,
	}
}
