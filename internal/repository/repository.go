package repository

import (
	"context"

	"github.com/cauafreitas/portfolio-api/internal/domain"
)

type ListParams struct {
	Page     int
	PageSize int
}

// MessageRepository is the append-only contact message store. Records are
// created once and never mutated or deleted by this service.
type MessageRepository interface {
	Create(ctx context.Context, m *domain.ContactMessage) error
	List(ctx context.Context, params ListParams) ([]domain.ContactMessage, int64, error)
}

// FeedbackRepository stores anonymous site feedback notes.
type FeedbackRepository interface {
	Create(ctx context.Context, f *domain.Feedback) error
}
