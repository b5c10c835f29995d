package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cauafreitas/portfolio-api/internal/domain"
	"github.com/cauafreitas/portfolio-api/internal/repository"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type ContactService interface {
	Submit(ctx context.Context, msg *domain.ContactMessage, clientKey string) (domain.Outcome, error)
	RecordFeedback(ctx context.Context, fb *domain.Feedback, clientKey string) error
	ListMessages(ctx context.Context, params repository.ListParams) ([]domain.ContactMessage, int64, error)
}

type ContactHandler struct {
	service ContactService
}

func NewContactHandler(service ContactService) (*ContactHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("contact service is required")
	}
	return &ContactHandler{service: service}, nil
}

func RegisterContactRoutes(router fiber.Router, service ContactService) error {
	h, err := NewContactHandler(service)
	if err != nil {
		return err
	}

	router.Get("/", h.Root)

	v1 := router.Group("/v1")
	v1.Post("/contact", h.SubmitContact)
	v1.Post("/feedback", h.SubmitFeedback)
	v1.Get("/messages", h.ListMessages)

	return nil
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type feedbackRequest struct {
	Message string `json:"message"`
}

type submitResponse struct {
	Outcome   string `json:"outcome"`
	MessageID string `json:"messageId,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type listMessagesResponse struct {
	Data []messageResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *ContactHandler) Root(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"service": "portfolio-api",
		"status":  "ok",
	})
}

// SubmitContact accepts one contact message. Partial failures behind the
// pipeline never turn into an error status here; they show up as a warning on
// an otherwise successful response.
func (h *ContactHandler) SubmitContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	msg := domain.ContactMessage{
		Name:        strings.TrimSpace(req.Name),
		SenderEmail: strings.TrimSpace(req.Email),
		Content:     strings.TrimSpace(req.Message),
	}

	outcome, err := h.service.Submit(c.UserContext(), &msg, c.IP())
	if err != nil {
		return toHTTPError(err)
	}

	resp := submitResponse{
		Outcome:   outcome.String(),
		MessageID: msg.ID,
	}
	if outcome == domain.OutcomePartialSuccess {
		resp.Warning = "message accepted; part of the pipeline did not complete"
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ContactHandler) SubmitFeedback(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	fb := domain.Feedback{Content: strings.TrimSpace(req.Message)}
	if err := h.service.RecordFeedback(c.UserContext(), &fb, c.IP()); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":     "accepted",
		"feedbackId": fb.ID,
	})
}

func (h *ContactHandler) ListMessages(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	messages, total, err := h.service.ListMessages(c.UserContext(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		data = append(data, messageResponse{
			ID:        msg.ID,
			Name:      msg.Name,
			Email:     msg.SenderEmail,
			Message:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	return params, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAdmissionDenied):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
