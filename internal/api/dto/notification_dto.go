package dto

import (
	"time"

	"github.com/quickdesk/helpdesk-service/internal/domain"
)

// NotificationResponse is the serialized notification record.
type NotificationResponse struct {
	ID        string                  `json:"id"`
	Sender    string                  `json:"sender"`
	TicketID  string                  `json:"ticket_id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Metadata  map[string]any          `json:"metadata"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewNotificationResponse serializes a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Sender:    n.Sender,
		TicketID:  n.TicketID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
