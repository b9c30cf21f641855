package domain

import "time"

// NotificationType enumerates the events users are told about.
type NotificationType string

const (
	NotificationTicketCreated  NotificationType = "ticket_created"
	NotificationTicketUpdated  NotificationType = "ticket_updated"
	NotificationTicketAssigned NotificationType = "ticket_assigned"
	NotificationTicketComment  NotificationType = "ticket_comment"
	NotificationCommentReply   NotificationType = "comment_reply"
)

// Notification is a persisted in-app notification record. Delivery is
// best effort; the mutation that triggered it never waits on it.
type Notification struct {
	ID        string
	Recipient string
	Sender    string
	TicketID  string
	Type      NotificationType
	Title     string
	Message   string
	Metadata  map[string]any
	IsRead    bool
	CreatedAt time.Time
}
