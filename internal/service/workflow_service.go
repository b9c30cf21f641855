package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quickdesk/helpdesk-service/internal/domain"
	"github.com/quickdesk/helpdesk-service/internal/events"
	"github.com/quickdesk/helpdesk-service/internal/repository"
	apperrors "github.com/quickdesk/helpdesk-service/pkg/util/errorutil"
)

// WorkflowService is the sole authority for mutating tickets and
// comments. Every write path runs its authorization check and transition
// bookkeeping here; handlers only translate HTTP into these calls.
type WorkflowService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	categories CategoryResolver
	dispatcher events.Dispatcher
}

// WorkflowDependencies bundles collaborators for the workflow engine.
type WorkflowDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Categories  CategoryResolver
	Dispatcher  events.Dispatcher
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		categories: deps.Categories,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Subject     string
	Description string
	Category    CategoryRef
	Priority    domain.TicketPriority
	Attachments []string
}

// TicketPatch describes a partial ticket update. Nil fields are left
// untouched. An empty AssignedTo clears the assignment.
type TicketPatch struct {
	Subject          *string
	Description      *string
	Category         *CategoryRef
	Priority         *domain.TicketPriority
	Status           *domain.TicketStatus
	AssignedTo       *string
	StatusReason     string
	PriorityReason   string
	AssignmentReason string
}

// CommentInput describes a new comment or reply.
type CommentInput struct {
	Content     string
	Attachments []string
	IsInternal  bool
}

// TicketView is a full ticket read: the record, its grouped audit
// history and the two-tier comment thread.
type TicketView struct {
	Ticket   *domain.Ticket
	History  domain.TicketHistory
	Comments []domain.Comment
}

// ListQuery captures listing filters as received from the client.
type ListQuery struct {
	Status     string
	Priority   string
	Category   string
	Search     string
	SortBy     string
	SortOrder  string
	AssignedTo string
	Page       int
	Limit      int
}

// Pagination describes a result page.
type Pagination struct {
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
	Limit int   `json:"limit"`
}

// CreateTicket creates a ticket for the principal, status open and
// unassigned, and notifies active staff.
func (s *WorkflowService) CreateTicket(ctx context.Context, principal domain.Principal, input CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", nil)
	}

	category, err := s.categories.Resolve(ctx, input.Category)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: input.Description,
		CategoryID:  category.ID,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedBy:   principal.ID,
		Attachments: input.Attachments,
		Upvotes:     []string{},
		Downvotes:   []string{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  principal.ID,
		Payload: events.TicketCreatedPayload{
			Subject:    ticket.Subject,
			CategoryID: ticket.CategoryID,
			Priority:   ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket returns the full ticket view, enforcing the visibility rule
// and incrementing the view counter once per authorized read. Internal
// comments are stripped for end users.
func (s *WorkflowService) GetTicket(ctx context.Context, principal domain.Principal, ticketID string) (*TicketView, error) {
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !principal.CanAccessTicket(ticket) {
		return nil, apperrors.NewForbidden("not authorized to view this ticket")
	}

	if err := s.tickets.IncrementViewCount(ctx, ticket.ID); err != nil {
		return nil, err
	}
	ticket.ViewCount++

	comments, err := s.comments.ListThread(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if !principal.Role.IsStaff() {
		comments = stripInternal(comments)
	}

	changes, err := s.tickets.ListHistory(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	return &TicketView{
		Ticket:   ticket,
		History:  domain.GroupChanges(changes),
		Comments: comments,
	}, nil
}

// UpdateTicket applies a partial update. History entries are appended
// only for status/priority/assignment values that actually change, and
// ResolvedAt/ClosedAt are captured on the first transition into their
// status and never reset.
func (s *WorkflowService) UpdateTicket(ctx context.Context, principal domain.Principal, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}

	var category *domain.Category
	if patch.Category != nil {
		resolved, err := s.categories.Resolve(ctx, *patch.Category)
		if err != nil {
			return nil, err
		}
		category = resolved
	}
	if patch.AssignedTo != nil && *patch.AssignedTo != "" {
		if err := checkID(*patch.AssignedTo, "assignee"); err != nil {
			return nil, err
		}
	}

	var changed []string
	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) ([]domain.TicketChange, error) {
		if !principal.CanAccessTicket(t) {
			return nil, apperrors.NewForbidden("not authorized to update this ticket")
		}

		var entries []domain.TicketChange

		if patch.Subject != nil {
			subject := strings.TrimSpace(*patch.Subject)
			if err := validateSubject(subject); err != nil {
				return nil, err
			}
			if subject != t.Subject {
				changed = append(changed, "subject")
			}
			t.Subject = subject
		}
		if patch.Description != nil {
			if err := validateDescription(*patch.Description); err != nil {
				return nil, err
			}
			if *patch.Description != t.Description {
				changed = append(changed, "description")
			}
			t.Description = *patch.Description
		}
		if category != nil {
			if category.ID != t.CategoryID {
				changed = append(changed, "category")
			}
			t.CategoryID = category.ID
		}

		if patch.Status != nil {
			newStatus := *patch.Status
			if !newStatus.Valid() {
				return nil, apperrors.NewValidationError("invalid status", nil)
			}
			if newStatus != t.Status {
				entries = append(entries, domain.TicketChange{
					ChangeType: domain.ChangeTypeStatus,
					OldValue:   strPtr(string(t.Status)),
					NewValue:   strPtr(string(newStatus)),
					ChangedBy:  principal.ID,
					Reason:     reasonOr(patch.StatusReason, "Status updated"),
				})
				changed = append(changed, "status")
				now := time.Now()
				if newStatus == domain.TicketStatusResolved && t.ResolvedAt == nil {
					t.ResolvedAt = &now
				}
				if newStatus == domain.TicketStatusClosed && t.ClosedAt == nil {
					t.ClosedAt = &now
				}
				t.Status = newStatus
			}
		}

		if patch.Priority != nil {
			newPriority := *patch.Priority
			if !newPriority.Valid() {
				return nil, apperrors.NewValidationError("invalid priority", nil)
			}
			if newPriority != t.Priority {
				entries = append(entries, domain.TicketChange{
					ChangeType: domain.ChangeTypePriority,
					OldValue:   strPtr(string(t.Priority)),
					NewValue:   strPtr(string(newPriority)),
					ChangedBy:  principal.ID,
					Reason:     reasonOr(patch.PriorityReason, "Priority updated"),
				})
				changed = append(changed, "priority")
				t.Priority = newPriority
			}
		}

		if patch.AssignedTo != nil {
			var newAssignee *string
			if *patch.AssignedTo != "" {
				newAssignee = patch.AssignedTo
			}
			if !strPtrEqual(newAssignee, t.AssignedTo) {
				entries = append(entries, domain.TicketChange{
					ChangeType: domain.ChangeTypeAssignment,
					OldValue:   t.AssignedTo,
					NewValue:   newAssignee,
					ChangedBy:  principal.ID,
					Reason:     reasonOr(patch.AssignmentReason, "Ticket reassigned"),
				})
				changed = append(changed, "assignedTo")
				t.AssignedTo = newAssignee
			}
		}

		return entries, nil
	})
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		ActorID:  principal.ID,
		Payload: events.TicketUpdatedPayload{
			CreatorID: ticket.CreatedBy,
			Subject:   ticket.Subject,
			Changed:   changed,
		},
	})
	return ticket, nil
}

// DeleteTicket removes the ticket and all of its comments.
func (s *WorkflowService) DeleteTicket(ctx context.Context, principal domain.Principal, ticketID string) error {
	if err := checkID(ticketID, "ticket"); err != nil {
		return err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOr(err, "ticket")
	}
	if !principal.CanAccessTicket(ticket) {
		return apperrors.NewForbidden("not authorized to delete this ticket")
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return notFoundOr(err, "ticket")
	}
	return nil
}

// AssignTicket sets the assignee. Staff only; the assignee must itself
// be a support agent or admin. Assignment history is recorded here the
// same way UpdateTicket records it.
func (s *WorkflowService) AssignTicket(ctx context.Context, principal domain.Principal, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !principal.Role.IsStaff() {
		return nil, apperrors.NewForbidden("support agent or admin role required")
	}
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(assigneeID); err != nil {
		return nil, apperrors.NewValidationError("can only assign to support agents or admins", nil)
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("can only assign to support agents or admins", nil)
		}
		return nil, err
	}
	if !assignee.Role.IsStaff() {
		return nil, apperrors.NewValidationError("can only assign to support agents or admins", nil)
	}

	ticket, err := s.tickets.Mutate(ctx, ticketID, func(t *domain.Ticket) ([]domain.TicketChange, error) {
		if strPtrEqual(t.AssignedTo, &assignee.ID) {
			return nil, nil
		}
		entry := domain.TicketChange{
			ChangeType: domain.ChangeTypeAssignment,
			OldValue:   t.AssignedTo,
			NewValue:   strPtr(assignee.ID),
			ChangedBy:  principal.ID,
			Reason:     "Ticket reassigned",
		}
		t.AssignedTo = strPtr(assignee.ID)
		return []domain.TicketChange{entry}, nil
	})
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  principal.ID,
		Payload: events.TicketAssignedPayload{
			CreatorID:  ticket.CreatedBy,
			AssigneeID: assignee.ID,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

// VoteTicket casts or switches a vote. Casting the same vote twice is a
// no-op; there is no retract primitive.
func (s *WorkflowService) VoteTicket(ctx context.Context, principal domain.Principal, ticketID string, vote domain.VoteType) (*domain.Ticket, error) {
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	if !vote.Valid() {
		return nil, apperrors.NewValidationError("invalid vote type", nil)
	}
	ticket, err := s.tickets.CastVote(ctx, ticketID, principal.ID, vote)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	return ticket, nil
}

// AddComment appends a top-level comment to a ticket. Internal comments
// are staff only.
func (s *WorkflowService) AddComment(ctx context.Context, principal domain.Principal, ticketID string, input CommentInput) (*domain.Comment, error) {
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if input.IsInternal && !principal.Role.IsStaff() {
		return nil, apperrors.NewForbidden("end users cannot add internal comments")
	}
	if err := validateContent(input.Content); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:    ticket.ID,
		AuthorID:    principal.ID,
		Content:     input.Content,
		IsInternal:  input.IsInternal,
		Attachments: input.Attachments,
		Upvotes:     []string{},
		Downvotes:   []string{},
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommented,
		TicketID: ticket.ID,
		ActorID:  principal.ID,
		Payload: events.TicketCommentedPayload{
			CreatorID:   ticket.CreatedBy,
			CommentID:   comment.ID,
			IsInternal:  comment.IsInternal,
			Subject:     ticket.Subject,
			BodyPreview: preview(comment.Content, 120),
		},
	})
	return comment, nil
}

// VoteComment casts or switches a vote on a comment, same semantics as
// VoteTicket.
func (s *WorkflowService) VoteComment(ctx context.Context, principal domain.Principal, ticketID, commentID string, vote domain.VoteType) (*domain.Comment, error) {
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	if err := checkID(commentID, "comment"); err != nil {
		return nil, err
	}
	if !vote.Valid() {
		return nil, apperrors.NewValidationError("invalid vote type", nil)
	}
	comment, err := s.comments.CastVote(ctx, commentID, principal.ID, vote)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return comment, nil
}

// ReplyToComment creates a reply under a top-level comment. Threads are
// two tiers deep: replying to a reply is rejected.
func (s *WorkflowService) ReplyToComment(ctx context.Context, principal domain.Principal, ticketID, commentID string, input CommentInput) (*domain.Comment, error) {
	if err := checkID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	if err := checkID(commentID, "comment"); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	parent, err := s.comments.GetByID(ctx, commentID)
	if err != nil || parent.TicketID != ticket.ID {
		return nil, notFoundOr(orNoRows(err), "parent comment")
	}
	if parent.IsReply() {
		return nil, apperrors.NewValidationError("cannot reply to a reply", nil)
	}
	if input.IsInternal && !principal.Role.IsStaff() {
		return nil, apperrors.NewForbidden("end users cannot add internal comments")
	}
	if err := validateContent(input.Content); err != nil {
		return nil, err
	}

	reply := &domain.Comment{
		TicketID:    ticket.ID,
		AuthorID:    principal.ID,
		Content:     input.Content,
		IsInternal:  input.IsInternal,
		Attachments: input.Attachments,
		Upvotes:     []string{},
		Downvotes:   []string{},
		ParentID:    &parent.ID,
	}
	if err := s.comments.Create(ctx, reply); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentReply,
		TicketID: ticket.ID,
		ActorID:  principal.ID,
		Payload: events.CommentReplyPayload{
			ParentAuthorID:  parent.AuthorID,
			ParentCommentID: parent.ID,
			CommentID:       reply.ID,
			Subject:         ticket.Subject,
			BodyPreview:     preview(reply.Content, 120),
		},
	})
	return reply, nil
}

// ListTickets returns a visibility-scoped, filtered page of tickets.
func (s *WorkflowService) ListTickets(ctx context.Context, principal domain.Principal, query ListQuery) ([]domain.Ticket, Pagination, error) {
	filter := repository.TicketFilter{
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}

	switch principal.Role {
	case domain.RoleEndUser:
		// end users only ever see their own tickets
		filter.CreatedBy = strPtr(principal.ID)
	case domain.RoleSupportAgent:
		switch {
		case query.AssignedTo == "me":
			filter.AssignedTo = strPtr(principal.ID)
		case query.AssignedTo != "":
			if err := checkID(query.AssignedTo, "assignee"); err != nil {
				return nil, Pagination{}, err
			}
			filter.AssignedTo = strPtr(query.AssignedTo)
		}
	}

	if query.Status != "" {
		status := domain.TicketStatus(query.Status)
		if !status.Valid() {
			return nil, Pagination{}, apperrors.NewValidationError("invalid status", nil)
		}
		filter.Status = &status
	}
	if query.Priority != "" {
		priority := domain.TicketPriority(query.Priority)
		if !priority.Valid() {
			return nil, Pagination{}, apperrors.NewValidationError("invalid priority", nil)
		}
		filter.Priority = &priority
	}
	if query.Category != "" {
		category, err := s.categories.Resolve(ctx, ParseCategoryRef(query.Category))
		if err != nil {
			return nil, Pagination{}, err
		}
		filter.CategoryID = &category.ID
	}
	if query.Search != "" {
		filter.Search = strPtr(query.Search)
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return tickets, Pagination{
		Page:  page,
		Pages: pages,
		Total: total,
		Limit: limit,
	}, nil
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// stripInternal drops internal comments and internal replies from the
// thread before it reaches an end user.
func stripInternal(comments []domain.Comment) []domain.Comment {
	filtered := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.IsInternal {
			continue
		}
		if len(comment.Replies) > 0 {
			visible := make([]domain.Comment, 0, len(comment.Replies))
			for _, reply := range comment.Replies {
				if !reply.IsInternal {
					visible = append(visible, reply)
				}
			}
			comment.Replies = visible
		}
		filtered = append(filtered, comment)
	}
	return filtered
}

func validateSubject(subject string) error {
	if n := utf8.RuneCountInString(subject); n < 5 || n > 100 {
		return apperrors.NewValidationError("subject must be between 5 and 100 characters", nil)
	}
	return nil
}

func validateDescription(description string) error {
	if n := utf8.RuneCountInString(description); n < 10 || n > 1000 {
		return apperrors.NewValidationError("description must be between 10 and 1000 characters", nil)
	}
	return nil
}

func validateContent(content string) error {
	if n := utf8.RuneCountInString(content); n < 1 || n > 2000 {
		return apperrors.NewValidationError("comment content must be between 1 and 2000 characters", nil)
	}
	return nil
}

func checkID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewInvalidIdentifier(fmt.Sprintf("invalid %s id format", what))
	}
	return nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

// orNoRows normalizes a nil error into pgx.ErrNoRows for paths where the
// record was found but fails a consistency check.
func orNoRows(err error) error {
	if err == nil {
		return pgx.ErrNoRows
	}
	return err
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

func reasonOr(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}
	return reason
}

func strPtr(s string) *string {
	return &s
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
