package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cauafreitas/portfolio-api/internal/delivery"
	"github.com/cauafreitas/portfolio-api/internal/dispatch"
	"github.com/cauafreitas/portfolio-api/internal/domain"
	"github.com/cauafreitas/portfolio-api/internal/observability"
	"github.com/cauafreitas/portfolio-api/internal/provider"
	"github.com/cauafreitas/portfolio-api/internal/ratelimit"
	"github.com/cauafreitas/portfolio-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	operationContact  = "contact"
	operationFeedback = "feedback"
)

// DeliveryStrategy is the ordered-transport delivery port.
type DeliveryStrategy interface {
	Deliver(ctx context.Context, email provider.Email) ([]domain.DeliveryAttempt, error)
}

// Enqueuer schedules deferred delivery work. Nil on the service means
// delivery runs synchronously before the response.
type Enqueuer interface {
	Enqueue(task dispatch.Task) bool
}

// ContactService is the submission pipeline: admit, validate, persist, then
// deliver the notification. Storage and transport failures are absorbed here
// and downgraded to the outcome; only admission denials and validation
// failures surface to the caller.
type ContactService struct {
	messages        repository.MessageRepository
	feedback        repository.FeedbackRepository
	strategy        DeliveryStrategy
	contactLimiter  ratelimit.Limiter
	feedbackLimiter ratelimit.Limiter
	executor        Enqueuer
	reporter        observability.ErrorReporter
	metrics         *observability.Metrics
	logger          *zap.Logger
	recipient       string
	sender          string
	now             func() time.Time
}

type ContactServiceParams struct {
	Messages        repository.MessageRepository
	Feedback        repository.FeedbackRepository
	Strategy        DeliveryStrategy
	ContactLimiter  ratelimit.Limiter
	FeedbackLimiter ratelimit.Limiter

	// Executor enables background delivery when non-nil.
	Executor Enqueuer

	Reporter observability.ErrorReporter
	Metrics  *observability.Metrics
	Logger   *zap.Logger

	// Recipient is the operator address notifications are sent to.
	Recipient string
	// Sender is the From address on outgoing notifications.
	Sender string
}

func NewContactService(params ContactServiceParams) (*ContactService, error) {
	if params.Messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if params.Feedback == nil {
		return nil, fmt.Errorf("feedback repository is required")
	}
	if params.Strategy == nil {
		return nil, fmt.Errorf("delivery strategy is required")
	}
	if params.Reporter == nil {
		params.Reporter = observability.NopReporter{}
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}

	return &ContactService{
		messages:        params.Messages,
		feedback:        params.Feedback,
		strategy:        params.Strategy,
		contactLimiter:  params.ContactLimiter,
		feedbackLimiter: params.FeedbackLimiter,
		executor:        params.Executor,
		reporter:        params.Reporter,
		metrics:         params.Metrics,
		logger:          params.Logger,
		recipient:       strings.TrimSpace(params.Recipient),
		sender:          strings.TrimSpace(params.Sender),
		now:             time.Now,
	}, nil
}

// Submit runs one message through the pipeline. clientKey is the caller's
// network identity, used only for admission control.
func (s *ContactService) Submit(ctx context.Context, msg *domain.ContactMessage, clientKey string) (domain.Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if msg == nil {
		return domain.OutcomeHardFailure, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	if !s.admit(ctx, s.contactLimiter, operationContact, clientKey) {
		s.metrics.IncAdmissionDenied(operationContact)
		return domain.OutcomeHardFailure, fmt.Errorf("%w: contact submissions", domain.ErrAdmissionDenied)
	}

	msg.Name = strings.TrimSpace(msg.Name)
	msg.SenderEmail = strings.TrimSpace(msg.SenderEmail)
	msg.Content = strings.TrimSpace(msg.Content)
	if err := msg.Validate(); err != nil {
		s.metrics.IncSubmission(domain.OutcomeHardFailure.String())
		return domain.OutcomeHardFailure, err
	}

	if strings.TrimSpace(msg.ID) == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = s.now().UTC()

	// Persistence comes first and is judged on its own: a failure here is
	// reported and absorbed, and the outcome can no longer be FullSuccess.
	persisted := true
	if err := s.messages.Create(ctx, msg); err != nil {
		persisted = false
		s.metrics.IncStoreFailure()
		s.reporter.Report(ctx, err, map[string]string{
			"component": "message_store",
			"messageId": msg.ID,
		})
		observability.WithContextLogger(s.logger, ctx).Warn("message not persisted, continuing with delivery",
			zap.String("messageId", msg.ID),
			zap.Error(err),
		)
	}

	email := s.formatNotification(msg)

	if s.executor != nil {
		if s.scheduleDelivery(msg.ID, email) {
			outcome := domain.OutcomeFullSuccess
			if !persisted {
				outcome = domain.OutcomePartialSuccess
			}
			s.metrics.IncSubmission(outcome.String())
			return outcome, nil
		}
		// Queue full: deliver inline rather than drop the notification.
	}

	outcome := s.deliverNow(ctx, msg.ID, email, persisted)
	s.metrics.IncSubmission(outcome.String())
	return outcome, nil
}

// RecordFeedback stores one anonymous feedback note. Same absorption rules as
// Submit: only admission and validation failures reach the caller.
func (s *ContactService) RecordFeedback(ctx context.Context, fb *domain.Feedback, clientKey string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if fb == nil {
		return fmt.Errorf("%w: feedback is required", domain.ErrValidation)
	}

	if !s.admit(ctx, s.feedbackLimiter, operationFeedback, clientKey) {
		s.metrics.IncAdmissionDenied(operationFeedback)
		return fmt.Errorf("%w: feedback submissions", domain.ErrAdmissionDenied)
	}

	fb.Content = strings.TrimSpace(fb.Content)
	if err := fb.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(fb.ID) == "" {
		fb.ID = uuid.NewString()
	}
	fb.CreatedAt = s.now().UTC()

	if err := s.feedback.Create(ctx, fb); err != nil {
		s.metrics.IncStoreFailure()
		s.reporter.Report(ctx, err, map[string]string{
			"component":  "feedback_store",
			"feedbackId": fb.ID,
		})
		observability.WithContextLogger(s.logger, ctx).Warn("feedback not persisted",
			zap.String("feedbackId", fb.ID),
			zap.Error(err),
		)
	}

	return nil
}

func (s *ContactService) ListMessages(ctx context.Context, params repository.ListParams) ([]domain.ContactMessage, int64, error) {
	return s.messages.List(ctx, params)
}

// admit fails open: a broken limiter must not take the contact form down.
func (s *ContactService) admit(ctx context.Context, limiter ratelimit.Limiter, operation, clientKey string) bool {
	if limiter == nil || strings.TrimSpace(clientKey) == "" {
		return true
	}

	allowed, err := limiter.Allow(ctx, clientKey)
	if err != nil {
		s.reporter.Report(ctx, err, map[string]string{
			"component": "rate_limiter",
			"operation": operation,
		})
		return true
	}

	return allowed
}

func (s *ContactService) scheduleDelivery(messageID string, email provider.Email) bool {
	scheduled := s.executor.Enqueue(func(taskCtx context.Context) {
		attempts, err := s.strategy.Deliver(taskCtx, email)
		s.logDelivery(taskCtx, messageID, attempts, err == nil)
	})
	if !scheduled {
		s.logger.Warn("dispatch queue full, delivering inline",
			zap.String("messageId", messageID),
		)
	}
	return scheduled
}

func (s *ContactService) deliverNow(ctx context.Context, messageID string, email provider.Email, persisted bool) domain.Outcome {
	attempts, err := s.strategy.Deliver(ctx, email)
	delivered := err == nil
	s.logDelivery(ctx, messageID, attempts, delivered)

	if delivered && persisted {
		return domain.OutcomeFullSuccess
	}
	return domain.OutcomePartialSuccess
}

func (s *ContactService) logDelivery(ctx context.Context, messageID string, attempts []domain.DeliveryAttempt, delivered bool) {
	observability.WithContextLogger(s.logger, ctx).Info("delivery finished",
		zap.String("messageId", messageID),
		zap.Bool("delivered", delivered),
		zap.Int("attempts", len(attempts)),
	)
}

func (s *ContactService) formatNotification(msg *domain.ContactMessage) provider.Email {
	body := fmt.Sprintf("Name: %s\nEmail: %s\n\n%s", msg.Name, msg.SenderEmail, msg.Content)

	return provider.Email{
		From:    s.sender,
		To:      s.recipient,
		ReplyTo: msg.SenderEmail,
		Subject: fmt.Sprintf("Portfolio contact from %s", msg.Name),
		Body:    body,
	}
}

var _ DeliveryStrategy = (*delivery.Strategy)(nil)
