package events

import (
	"time"

	"github.com/quickdesk/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventTicketCommented EventType = "ticket_commented"
	EventCommentReply    EventType = "comment_reply"
)

// Event represents a domain event emitted by the workflow engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject    string                `json:"subject"`
	CategoryID string                `json:"category_id"`
	Priority   domain.TicketPriority `json:"priority"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	CreatorID string   `json:"creator_id"`
	Subject   string   `json:"subject"`
	Changed   []string `json:"changed"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	CreatorID  string `json:"creator_id"`
	AssigneeID string `json:"assignee_id"`
	Subject    string `json:"subject"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	CreatorID   string `json:"creator_id"`
	CommentID   string `json:"comment_id"`
	IsInternal  bool   `json:"is_internal"`
	Subject     string `json:"subject"`
	BodyPreview string `json:"body_preview"`
}

// CommentReplyPayload payload.
type CommentReplyPayload struct {
	ParentAuthorID  string `json:"parent_author_id"`
	ParentCommentID string `json:"parent_comment_id"`
	CommentID       string `json:"comment_id"`
	Subject         string `json:"subject"`
	BodyPreview     string `json:"body_preview"`
}
