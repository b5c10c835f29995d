package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cauafreitas/portfolio-api/internal/delivery"
	"github.com/cauafreitas/portfolio-api/internal/dispatch"
	"github.com/cauafreitas/portfolio-api/internal/domain"
	"github.com/cauafreitas/portfolio-api/internal/provider"
	"github.com/cauafreitas/portfolio-api/internal/repository"
)

type fakeMessageRepo struct {
	mu        sync.Mutex
	created   []domain.ContactMessage
	createErr error
	listErr   error
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.ContactMessage) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *msg)
	return nil
}

func (f *fakeMessageRepo) List(ctx context.Context, params repository.ListParams) ([]domain.ContactMessage, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ContactMessage(nil), f.created...), int64(len(f.created)), nil
}

type fakeFeedbackRepo struct {
	created   []domain.Feedback
	createErr error
}

func (f *fakeFeedbackRepo) Create(ctx context.Context, fb *domain.Feedback) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *fb)
	return nil
}

type fakeStrategy struct {
	mu     sync.Mutex
	calls  []provider.Email
	err    error
	notify chan struct{}
}

func (f *fakeStrategy) Deliver(ctx context.Context, email provider.Email) ([]domain.DeliveryAttempt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, email)
	f.mu.Unlock()
	if f.notify != nil {
		f.notify <- struct{}{}
	}

	if f.err != nil {
		return []domain.DeliveryAttempt{{
			Transport:   "email-api",
			Role:        domain.RolePrimary,
			Outcome:     domain.AttemptFailed,
			ErrorDetail: f.err.Error(),
		}}, f.err
	}
	return []domain.DeliveryAttempt{{
		Transport: "email-api",
		Role:      domain.RolePrimary,
		Outcome:   domain.AttemptDelivered,
	}}, nil
}

func (f *fakeStrategy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.allowed, nil
}

func validMessage() *domain.ContactMessage {
	return &domain.ContactMessage{
		Name:        "Ada Lovelace",
		SenderEmail: "ada@example.com",
		Content:     "I would like to talk about a project.",
	}
}

func newTestService(t *testing.T, params ContactServiceParams) *ContactService {
	t.Helper()

	if params.Messages == nil {
		params.Messages = &fakeMessageRepo{}
	}
	if params.Feedback == nil {
		params.Feedback = &fakeFeedbackRepo{}
	}
	if params.Strategy == nil {
		params.Strategy = &fakeStrategy{}
	}
	if params.Recipient == "" {
		params.Recipient = "owner@example.com"
	}
	if params.Sender == "" {
		params.Sender = "noreply@example.com"
	}

	svc, err := NewContactService(params)
	if err != nil {
		t.Fatalf("NewContactService() error = %v", err)
	}
	return svc
}

func TestSubmitFullSuccess(t *testing.T) {
	t.Parallel()

	repo := &fakeMessageRepo{}
	strategy := &fakeStrategy{}
	limiter := &fakeLimiter{allowed: true}
	svc := newTestService(t, ContactServiceParams{
		Messages:       repo,
		Strategy:       strategy,
		ContactLimiter: limiter,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome != domain.OutcomeFullSuccess {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomeFullSuccess)
	}

	if len(repo.created) != 1 {
		t.Fatalf("messages persisted = %d, want 1", len(repo.created))
	}
	stored := repo.created[0]
	if stored.ID == "" {
		t.Error("persisted message should be assigned an ID")
	}
	if stored.CreatedAt.IsZero() {
		t.Error("persisted message should be assigned a timestamp")
	}

	if strategy.callCount() != 1 {
		t.Fatalf("delivery invocations = %d, want 1", strategy.callCount())
	}
	email := strategy.calls[0]
	if email.To != "owner@example.com" {
		t.Errorf("To = %s, want owner@example.com", email.To)
	}
	if email.ReplyTo != "ada@example.com" {
		t.Errorf("ReplyTo = %s, want sender address", email.ReplyTo)
	}
	if !strings.Contains(email.Subject, "Ada Lovelace") {
		t.Errorf("Subject = %q, want the sender name in it", email.Subject)
	}
	if !strings.Contains(email.Body, "I would like to talk about a project.") {
		t.Errorf("Body = %q, want the message content in it", email.Body)
	}
}

func TestSubmitStoreFailureCapsOutcome(t *testing.T) {
	t.Parallel()

	repo := &fakeMessageRepo{createErr: errors.New("connection refused")}
	strategy := &fakeStrategy{}
	svc := newTestService(t, ContactServiceParams{
		Messages: repo,
		Strategy: strategy,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v, storage failures must be absorbed", err)
	}
	if outcome != domain.OutcomePartialSuccess {
		t.Fatalf("outcome = %s, want %s even though delivery succeeded", outcome, domain.OutcomePartialSuccess)
	}
	if strategy.callCount() != 1 {
		t.Fatal("delivery should still run when persistence fails")
	}
}

func TestSubmitStoreUnavailableStillDelivers(t *testing.T) {
	t.Parallel()

	strategy := &fakeStrategy{}
	svc := newTestService(t, ContactServiceParams{
		Messages: repository.NewUnavailableMessageStore(),
		Strategy: strategy,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome != domain.OutcomePartialSuccess {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomePartialSuccess)
	}
	if strategy.callCount() != 1 {
		t.Fatal("delivery should run against an unavailable store")
	}
}

func TestSubmitDeliveryFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeMessageRepo{}
	strategy := &fakeStrategy{err: delivery.ErrAllTransportsFailed}
	svc := newTestService(t, ContactServiceParams{
		Messages: repo,
		Strategy: strategy,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v, delivery failures must be absorbed", err)
	}
	if outcome != domain.OutcomePartialSuccess {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomePartialSuccess)
	}
	if len(repo.created) != 1 {
		t.Fatal("message should stay persisted when delivery fails")
	}
}

func TestSubmitAdmissionDenied(t *testing.T) {
	t.Parallel()

	repo := &fakeMessageRepo{}
	strategy := &fakeStrategy{}
	limiter := &fakeLimiter{allowed: false}
	svc := newTestService(t, ContactServiceParams{
		Messages:       repo,
		Strategy:       strategy,
		ContactLimiter: limiter,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if !errors.Is(err, domain.ErrAdmissionDenied) {
		t.Fatalf("Submit() error = %v, want ErrAdmissionDenied", err)
	}
	if outcome != domain.OutcomeHardFailure {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomeHardFailure)
	}

	if len(repo.created) != 0 {
		t.Error("denied submission must not be persisted")
	}
	if strategy.callCount() != 0 {
		t.Error("denied submission must not trigger delivery")
	}
}

func TestSubmitLimiterErrorFailsOpen(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{err: errors.New("redis: connection pool timeout")}
	strategy := &fakeStrategy{}
	svc := newTestService(t, ContactServiceParams{
		Strategy:       strategy,
		ContactLimiter: limiter,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v, a broken limiter must not reject traffic", err)
	}
	if outcome != domain.OutcomeFullSuccess {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomeFullSuccess)
	}
}

func TestSubmitValidationFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeMessageRepo{}
	strategy := &fakeStrategy{}
	svc := newTestService(t, ContactServiceParams{
		Messages: repo,
		Strategy: strategy,
	})

	msg := validMessage()
	msg.SenderEmail = "not-an-address"

	outcome, err := svc.Submit(context.Background(), msg, "203.0.113.7")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
	if outcome != domain.OutcomeHardFailure {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomeHardFailure)
	}
	if len(repo.created) != 0 || strategy.callCount() != 0 {
		t.Error("invalid submission must not touch the store or transports")
	}
}

func TestSubmitBackgroundDelivery(t *testing.T) {
	t.Parallel()

	repo := &fakeMessageRepo{}
	strategy := &fakeStrategy{notify: make(chan struct{}, 1)}
	executor := dispatch.NewExecutor(8, 1, nil)

	done := make(chan error, 1)
	go func() {
		done <- executor.Start(context.Background())
	}()

	svc := newTestService(t, ContactServiceParams{
		Messages: repo,
		Strategy: strategy,
		Executor: executor,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome != domain.OutcomeFullSuccess {
		t.Fatalf("outcome = %s, want %s when the task is scheduled", outcome, domain.OutcomeFullSuccess)
	}

	select {
	case <-strategy.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled delivery never ran")
	}

	executor.Close()
	<-done
}

func TestSubmitBackgroundQueueFullDeliversInline(t *testing.T) {
	t.Parallel()

	strategy := &fakeStrategy{}
	// Tiny buffer and no Start: the queue fills and stays full.
	executor := dispatch.NewExecutor(1, 1, nil)
	if !executor.Enqueue(func(ctx context.Context) {}) {
		t.Fatal("priming task should fit the buffer")
	}

	svc := newTestService(t, ContactServiceParams{
		Strategy: strategy,
		Executor: executor,
	})

	outcome, err := svc.Submit(context.Background(), validMessage(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome != domain.OutcomeFullSuccess {
		t.Fatalf("outcome = %s, want %s", outcome, domain.OutcomeFullSuccess)
	}
	if strategy.callCount() != 1 {
		t.Fatal("delivery should fall back to inline when the queue is full")
	}
}

func TestRecordFeedback(t *testing.T) {
	t.Parallel()

	repo := &fakeFeedbackRepo{}
	limiter := &fakeLimiter{allowed: true}
	svc := newTestService(t, ContactServiceParams{
		Feedback:        repo,
		FeedbackLimiter: limiter,
	})

	fb := &domain.Feedback{Content: "Nice site."}
	if err := svc.RecordFeedback(context.Background(), fb, "203.0.113.7"); err != nil {
		t.Fatalf("RecordFeedback() error = %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("feedback persisted = %d, want 1", len(repo.created))
	}
	if repo.created[0].ID == "" {
		t.Error("feedback should be assigned an ID")
	}
	if limiter.calls != 1 {
		t.Errorf("limiter calls = %d, want 1", limiter.calls)
	}
}

func TestRecordFeedbackAdmissionDenied(t *testing.T) {
	t.Parallel()

	repo := &fakeFeedbackRepo{}
	svc := newTestService(t, ContactServiceParams{
		Feedback:        repo,
		FeedbackLimiter: &fakeLimiter{allowed: false},
	})

	err := svc.RecordFeedback(context.Background(), &domain.Feedback{Content: "spam"}, "203.0.113.7")
	if !errors.Is(err, domain.ErrAdmissionDenied) {
		t.Fatalf("RecordFeedback() error = %v, want ErrAdmissionDenied", err)
	}
	if len(repo.created) != 0 {
		t.Error("denied feedback must not be persisted")
	}
}

func TestRecordFeedbackStoreFailureAbsorbed(t *testing.T) {
	t.Parallel()

	repo := &fakeFeedbackRepo{createErr: errors.New("connection refused")}
	svc := newTestService(t, ContactServiceParams{
		Feedback: repo,
	})

	err := svc.RecordFeedback(context.Background(), &domain.Feedback{Content: "Nice site."}, "203.0.113.7")
	if err != nil {
		t.Fatalf("RecordFeedback() error = %v, storage failures must be absorbed", err)
	}
}

func TestNewContactServiceValidation(t *testing.T) {
	t.Parallel()

	_, err := NewContactService(ContactServiceParams{
		Feedback: &fakeFeedbackRepo{},
		Strategy: &fakeStrategy{},
	})
	if err == nil {
		t.Fatal("NewContactService() should require a message repository")
	}

	_, err = NewContactService(ContactServiceParams{
		Messages: &fakeMessageRepo{},
		Feedback: &fakeFeedbackRepo{},
	})
	if err == nil {
		t.Fatal("NewContactService() should require a delivery strategy")
	}
}
