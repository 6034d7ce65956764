package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/chamado-hq/helpdesk-service/internal/api/dto"
	"github.com/chamado-hq/helpdesk-service/internal/auth"
	"github.com/chamado-hq/helpdesk-service/internal/domain"
	"github.com/chamado-hq/helpdesk-service/internal/ledger"
	"github.com/chamado-hq/helpdesk-service/internal/lifecycle"
	"github.com/chamado-hq/helpdesk-service/internal/repository"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes the lifecycle operations over HTTP.
type TicketsHandler struct {
	engine *lifecycle.Engine
	ledger *ledger.Ledger
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(engine *lifecycle.Engine, ld *ledger.Ledger) *TicketsHandler {
	return &TicketsHandler{engine: engine, ledger: ld}
}

// Open POST /tickets.
func (h *TicketsHandler) Open(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.OpenTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.engine.Open(c.UserContext(), lifecycle.OpenInput{
		ActorID:      principal.ActorID,
		DepartmentID: req.DepartmentID,
		TopicID:      req.TopicID,
		Priority:     req.Priority,
		Summary:      req.Summary,
		Description:  req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	_, ticket, err := h.loadForRead(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// List GET /tickets. End users see their own tickets; admins may filter.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketQuery(c)
	if !principal.IsAdmin() {
		filter.OpenedBy = &principal.ActorID
	}
	tickets, err := h.engine.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign POST /tickets/:id/assign. Admin only (enforced by route guard).
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID <= 0 {
		return apperrors.NewValidationError("assignee_id required", nil)
	}

	ticket, err := h.engine.Assign(c.UserContext(), ticketID, principal.ActorID, req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// Close POST /tickets/:id/close. Allowed for admins and the current
// assignee; the engine itself does not check roles.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.engine.Get(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	if !principal.IsAdmin() && (ticket.AssignedTo == nil || *ticket.AssignedTo != principal.ActorID) {
		return apperrors.NewForbidden("admin or assigned responsible required")
	}

	closed, err := h.engine.Close(c.UserContext(), ticketID, principal.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(closed)})
}

// PostMessage POST /tickets/:id/messages. Posting on a closed ticket
// reopens it; the UI confirms that with the actor before calling.
func (h *TicketsHandler) PostMessage(c *fiber.Ctx) error {
	principal, ticket, err := h.loadForRead(c)
	if err != nil {
		return err
	}
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msg, err := h.engine.PostMessage(c.UserContext(), ticket.ID, principal.ActorID, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromMessage(*msg)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	_, ticket, err := h.loadForRead(c)
	if err != nil {
		return err
	}
	entries, err := h.engine.History(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.FromHistoryEntry(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Messages GET /tickets/:id/messages.
func (h *TicketsHandler) Messages(c *fiber.Ctx) error {
	_, ticket, err := h.loadForRead(c)
	if err != nil {
		return err
	}
	msgs, err := h.ledger.Messages(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, dto.FromMessage(msg))
	}
	initial, err := h.ledger.InitialAttachments(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	initialItems := make([]dto.AttachmentResponse, 0, len(initial))
	for _, att := range initial {
		initialItems = append(initialItems, dto.FromAttachment(att))
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{"messages": items, "initial_attachments": initialItems},
	})
}

// loadForRead resolves the ticket and checks the caller may see it: the
// opener, the assignee, or an admin.
func (h *TicketsHandler) loadForRead(c *fiber.Ctx) (*auth.Principal, *domain.Ticket, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, nil, apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	ticket, err := h.engine.Get(c.UserContext(), ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !principal.IsAdmin() && ticket.OpenedBy != principal.ActorID &&
		(ticket.AssignedTo == nil || *ticket.AssignedTo != principal.ActorID) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	return principal, ticket, nil
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part)))
			if status.Valid() {
				filter.Statuses = append(filter.Statuses, status)
			}
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if assignee := c.QueryInt("assigned_to"); assignee > 0 {
		id := int64(assignee)
		filter.AssignedTo = &id
	}
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
