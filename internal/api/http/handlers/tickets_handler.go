package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/quickdesk/helpdesk-service/internal/api/dto"
	"github.com/quickdesk/helpdesk-service/internal/auth"
	"github.com/quickdesk/helpdesk-service/internal/service"
	apperrors "github.com/quickdesk/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket workflow over HTTP.
type TicketsHandler struct {
	workflow *service.WorkflowService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflow *service.WorkflowService) *TicketsHandler {
	return &TicketsHandler{workflow: workflow}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.CreateTicket(c.UserContext(), principal, service.CreateTicketInput{
		Subject:     req.Subject,
		Description: req.Description,
		Category:    service.ParseCategoryRef(req.Category),
		Priority:    req.Priority,
		Attachments: req.Attachments,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	query := service.ListQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		AssignedTo: c.Query("assignedTo"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 10),
	}

	tickets, pagination, err := h.workflow.ListTickets(c.UserContext(), principal, query)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return respondPage(c, items, pagination)
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	view, err := h.workflow.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketDetailResponse(view))
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.TicketPatch{
		Subject:          req.Subject,
		Description:      req.Description,
		Priority:         req.Priority,
		Status:           req.Status,
		AssignedTo:       req.AssignedTo,
		StatusReason:     req.StatusReason,
		PriorityReason:   req.PriorityReason,
		AssignmentReason: req.AssignmentReason,
	}
	if req.Category != nil {
		ref := service.ParseCategoryRef(*req.Category)
		patch.Category = &ref
	}

	ticket, err := h.workflow.UpdateTicket(c.UserContext(), principal, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.workflow.DeleteTicket(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "ticket deleted successfully")
}

// AssignTicket PUT /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.AssignTicket(c.UserContext(), principal, c.Params("id"), req.AssignedTo)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// VoteTicket PUT /api/tickets/:id/vote.
func (h *TicketsHandler) VoteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.VoteTicket(c.UserContext(), principal, c.Params("id"), req.VoteType)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// AddComment POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.workflow.AddComment(c.UserContext(), principal, c.Params("id"), service.CommentInput{
		Content:     req.Content,
		Attachments: req.Attachments,
		IsInternal:  req.IsInternal,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewCommentResponse(comment))
}

// VoteComment PUT /api/tickets/:ticketId/comments/:commentId/vote.
func (h *TicketsHandler) VoteComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.workflow.VoteComment(c.UserContext(), principal, c.Params("ticketId"), c.Params("commentId"), req.VoteType)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewCommentResponse(comment))
}

// ReplyToComment POST /api/tickets/:ticketId/comments/:commentId/reply.
func (h *TicketsHandler) ReplyToComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	reply, err := h.workflow.ReplyToComment(c.UserContext(), principal, c.Params("ticketId"), c.Params("commentId"), service.CommentInput{
		Content:     req.Content,
		Attachments: req.Attachments,
		IsInternal:  req.IsInternal,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewCommentResponse(reply))
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
