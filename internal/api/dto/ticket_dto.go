package dto

import (
	"time"

	"github.com/quickdesk/helpdesk-service/internal/domain"
	"github.com/quickdesk/helpdesk-service/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Attachments []string              `json:"attachments"`
}

// UpdateTicketRequest payload; nil fields are not touched.
type UpdateTicketRequest struct {
	Subject          *string                `json:"subject"`
	Description      *string                `json:"description"`
	Category         *string                `json:"category"`
	Priority         *domain.TicketPriority `json:"priority"`
	Status           *domain.TicketStatus   `json:"status"`
	AssignedTo       *string                `json:"assigned_to"`
	StatusReason     string                 `json:"status_reason"`
	PriorityReason   string                 `json:"priority_reason"`
	AssignmentReason string                 `json:"assignment_reason"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedTo string `json:"assigned_to"`
}

// VoteRequest payload.
type VoteRequest struct {
	VoteType domain.VoteType `json:"vote_type"`
}

// TicketChangeRecord is one audit history entry.
type TicketChangeRecord struct {
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	ChangedBy string    `json:"changed_by"`
	Reason    string    `json:"reason"`
	ChangedAt time.Time `json:"changed_at"`
}

// TicketHistoryResponse groups audit entries by tracked field.
type TicketHistoryResponse struct {
	Status     []TicketChangeRecord `json:"status_history"`
	Priority   []TicketChangeRecord `json:"priority_history"`
	Assignment []TicketChangeRecord `json:"assignment_history"`
}

// TicketResponse is the serialized ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	CategoryID  string                `json:"category_id"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  *string               `json:"assigned_to"`
	Attachments []string              `json:"attachments"`
	Upvotes     []string              `json:"upvotes"`
	Downvotes   []string              `json:"downvotes"`
	VoteCount   int                   `json:"vote_count"`
	ViewCount   int64                 `json:"view_count"`
	ResolvedAt  *time.Time            `json:"resolved_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse is a ticket plus its history and comment thread.
type TicketDetailResponse struct {
	Ticket   TicketResponse        `json:"ticket"`
	History  TicketHistoryResponse `json:"history"`
	Comments []CommentResponse     `json:"comments"`
}

// NewTicketResponse serializes a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
		Attachments: emptyIfNil(t.Attachments),
		Upvotes:     emptyIfNil(t.Upvotes),
		Downvotes:   emptyIfNil(t.Downvotes),
		VoteCount:   t.VoteCount(),
		ViewCount:   t.ViewCount,
		ResolvedAt:  t.ResolvedAt,
		ClosedAt:    t.ClosedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketDetailResponse serializes a full ticket view.
func NewTicketDetailResponse(view *service.TicketView) TicketDetailResponse {
	comments := make([]CommentResponse, 0, len(view.Comments))
	for i := range view.Comments {
		comments = append(comments, NewCommentResponse(&view.Comments[i]))
	}
	return TicketDetailResponse{
		Ticket:   NewTicketResponse(view.Ticket),
		History:  newHistoryResponse(view.History),
		Comments: comments,
	}
}

func newHistoryResponse(history domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		Status:     changeRecords(history.Status),
		Priority:   changeRecords(history.Priority),
		Assignment: changeRecords(history.Assignment),
	}
}

func changeRecords(changes []domain.TicketChange) []TicketChangeRecord {
	records := make([]TicketChangeRecord, 0, len(changes))
	for _, c := range changes {
		records = append(records, TicketChangeRecord{
			OldValue:  c.OldValue,
			NewValue:  c.NewValue,
			ChangedBy: c.ChangedBy,
			Reason:    c.Reason,
			ChangedAt: c.ChangedAt,
		})
	}
	return records
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
