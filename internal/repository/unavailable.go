package repository

import (
	"context"

	"github.com/cauafreitas/portfolio-api/internal/domain"
)

var (
	_ MessageRepository  = (*UnavailableMessageStore)(nil)
	_ FeedbackRepository = (*UnavailableFeedbackStore)(nil)
)

// UnavailableMessageStore stands in for the database when no DSN is
// configured. Every call fails fast with ErrStoreUnavailable so the rest of
// the pipeline keeps working in degraded mode instead of crashing at startup.
type UnavailableMessageStore struct{}

func NewUnavailableMessageStore() *UnavailableMessageStore {
	return &UnavailableMessageStore{}
}

func (*UnavailableMessageStore) Create(ctx context.Context, m *domain.ContactMessage) error {
	return domain.ErrStoreUnavailable
}

func (*UnavailableMessageStore) List(ctx context.Context, params ListParams) ([]domain.ContactMessage, int64, error) {
	return nil, 0, domain.ErrStoreUnavailable
}

// UnavailableFeedbackStore is the feedback counterpart of
// UnavailableMessageStore.
type UnavailableFeedbackStore struct{}

func NewUnavailableFeedbackStore() *UnavailableFeedbackStore {
	return &UnavailableFeedbackStore{}
}

func (*UnavailableFeedbackStore) Create(ctx context.Context, f *domain.Feedback) error {
	return domain.ErrStoreUnavailable
}
