package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quickdesk/helpdesk-service/internal/config"
	"github.com/quickdesk/helpdesk-service/internal/domain"
	"github.com/quickdesk/helpdesk-service/internal/events"
	"github.com/quickdesk/helpdesk-service/internal/repository"
	apperrors "github.com/quickdesk/helpdesk-service/pkg/util/errorutil"
)

// NotificationService consumes workflow events and turns them into
// persisted notification records plus best-effort email/webhook sends.
// Nothing here ever propagates back to the operation that emitted the
// event; failures are logged and dropped.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	cfg           config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		logger:        logger,
		cfg:           cfg,
	}
}

// RegisterHandlers subscribes to workflow events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommented, n.handleTicketCommented)
	n.dispatcher.Subscribe(events.EventCommentReply, n.handleCommentReply)
}

// ListNotifications returns the principal's notifications, newest first.
func (n *NotificationService) ListNotifications(ctx context.Context, principal domain.Principal, limit, offset int) ([]domain.Notification, error) {
	return n.notifications.ListByRecipient(ctx, principal.ID, limit, offset)
}

// MarkRead acknowledges one of the principal's notifications.
func (n *NotificationService) MarkRead(ctx context.Context, principal domain.Principal, notificationID string) error {
	if err := checkID(notificationID, "notification"); err != nil {
		return err
	}
	if err := n.notifications.MarkRead(ctx, notificationID, principal.ID); err != nil {
		return notFoundOr(err, "notification")
	}
	return nil
}

// handleTicketCreated fans out to every active support agent and admin.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return apperrors.NewInternalError(fmt.Errorf("unexpected payload for %s", event.Type))
	}
	staff, err := n.users.ListActiveStaff(ctx)
	if err != nil {
		return err
	}
	for _, recipient := range staff {
		n.record(ctx, &domain.Notification{
			Recipient: recipient.ID,
			Sender:    event.ActorID,
			TicketID:  event.TicketID,
			Type:      domain.NotificationTicketCreated,
			Title:     "New Ticket Created",
			Message:   fmt.Sprintf("New ticket: %s", payload.Subject),
			Metadata:  map[string]any{"priority": string(payload.Priority)},
		})
	}
	n.sendEmailStub(event)
	n.sendWebhookStub(event)
	return nil
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return apperrors.NewInternalError(fmt.Errorf("unexpected payload for %s", event.Type))
	}
	if payload.CreatorID == event.ActorID {
		return nil
	}
	n.record(ctx, &domain.Notification{
		Recipient: payload.CreatorID,
		Sender:    event.ActorID,
		TicketID:  event.TicketID,
		Type:      domain.NotificationTicketUpdated,
		Title:     "Ticket Updated",
		Message:   fmt.Sprintf("Your ticket %q was updated", payload.Subject),
		Metadata:  map[string]any{"changed": payload.Changed},
	})
	n.sendEmailStub(event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return apperrors.NewInternalError(fmt.Errorf("unexpected payload for %s", event.Type))
	}
	n.record(ctx, &domain.Notification{
		Recipient: payload.CreatorID,
		Sender:    event.ActorID,
		TicketID:  event.TicketID,
		Type:      domain.NotificationTicketAssigned,
		Title:     "Ticket Assigned",
		Message:   fmt.Sprintf("Your ticket %q was assigned to an agent", payload.Subject),
		Metadata:  map[string]any{"assignee_id": payload.AssigneeID},
	})
	n.sendEmailStub(event)
	return nil
}

// handleTicketCommented notifies the creator, skipping internal notes
// and the creator's own comments.
func (n *NotificationService) handleTicketCommented(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentedPayload)
	if !ok {
		return apperrors.NewInternalError(fmt.Errorf("unexpected payload for %s", event.Type))
	}
	if payload.IsInternal || payload.CreatorID == event.ActorID {
		return nil
	}
	n.record(ctx, &domain.Notification{
		Recipient: payload.CreatorID,
		Sender:    event.ActorID,
		TicketID:  event.TicketID,
		Type:      domain.NotificationTicketComment,
		Title:     "New Comment",
		Message:   fmt.Sprintf("New comment on your ticket %q", payload.Subject),
		Metadata:  map[string]any{"comment_id": payload.CommentID, "preview": payload.BodyPreview},
	})
	n.sendEmailStub(event)
	return nil
}

func (n *NotificationService) handleCommentReply(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentReplyPayload)
	if !ok {
		return apperrors.NewInternalError(fmt.Errorf("unexpected payload for %s", event.Type))
	}
	if payload.ParentAuthorID == event.ActorID {
		return nil
	}
	n.record(ctx, &domain.Notification{
		Recipient: payload.ParentAuthorID,
		Sender:    event.ActorID,
		TicketID:  event.TicketID,
		Type:      domain.NotificationCommentReply,
		Title:     "New Reply to Your Comment",
		Message:   fmt.Sprintf("Someone replied to your comment on ticket %q", payload.Subject),
		Metadata:  map[string]any{"comment_id": payload.CommentID, "preview": payload.BodyPreview},
	})
	n.sendEmailStub(event)
	return nil
}

func (n *NotificationService) record(ctx context.Context, notification *domain.Notification) {
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("failed to persist notification",
			zap.String("type", string(notification.Type)),
			zap.String("recipient", notification.Recipient),
			zap.Error(err))
	}
}

func (n *NotificationService) sendEmailStub(event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
