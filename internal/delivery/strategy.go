package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cauafreitas/portfolio-api/internal/domain"
	"github.com/cauafreitas/portfolio-api/internal/observability"
	"github.com/cauafreitas/portfolio-api/internal/provider"
	"go.uber.org/zap"
)

// DefaultAttemptTimeout bounds a single transport attempt. An attempt that
// does not finish in time counts as a network failure and the strategy moves
// on to the next transport.
const DefaultAttemptTimeout = 10 * time.Second

// ErrAllTransportsFailed is returned after one full pass over the ordered
// transport list without a delivery.
var ErrAllTransportsFailed = errors.New("all transports failed")

// Option is one entry in the ordered transport table.
type Option struct {
	Transport provider.Transport
	Timeout   time.Duration
}

// Strategy tries transports in a fixed priority order until one delivers or
// the list is exhausted. One attempt per transport per pass; a config-level
// failure on one transport never aborts the pass.
type Strategy struct {
	options  []Option
	reporter observability.ErrorReporter
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewStrategy(
	options []Option,
	reporter observability.ErrorReporter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Strategy, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("at least one transport option is required")
	}
	for i, opt := range options {
		if opt.Transport == nil {
			return nil, fmt.Errorf("transport option %d is nil", i)
		}
	}
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Strategy{
		options:  options,
		reporter: reporter,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Deliver attempts the email on each transport in order. It returns every
// attempt made; a nil error means one of them delivered.
func (s *Strategy) Deliver(ctx context.Context, email provider.Email) ([]domain.DeliveryAttempt, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(s.options))

	for i, opt := range s.options {
		role := domain.RolePrimary
		if i > 0 {
			role = domain.RoleFallback
		}

		start := s.now()
		receipt, err := s.attempt(ctx, opt, email)
		elapsed := s.now().Sub(start)

		s.metrics.ObserveDeliveryDuration(opt.Transport.Name(), elapsed)

		if err == nil {
			attempts = append(attempts, domain.DeliveryAttempt{
				Transport: opt.Transport.Name(),
				Role:      role,
				Outcome:   domain.AttemptDelivered,
				Elapsed:   elapsed,
			})
			s.metrics.IncDeliveryAttempt(opt.Transport.Name(), "delivered")

			messageID := ""
			if receipt != nil {
				messageID = receipt.MessageID
			}
			observability.WithContextLogger(s.logger, ctx).Info("notification delivered",
				zap.String("transport", opt.Transport.Name()),
				zap.String("role", role.String()),
				zap.String("messageId", messageID),
				zap.Duration("elapsed", elapsed),
			)
			return attempts, nil
		}

		reason := provider.ReasonOf(err)
		attempts = append(attempts, domain.DeliveryAttempt{
			Transport:   opt.Transport.Name(),
			Role:        role,
			Outcome:     domain.AttemptFailed,
			ErrorDetail: err.Error(),
			Elapsed:     elapsed,
		})
		s.metrics.IncDeliveryAttempt(opt.Transport.Name(), reason.String())
		s.reporter.Report(ctx, err, map[string]string{
			"transport": opt.Transport.Name(),
			"reason":    reason.String(),
		})

		observability.WithContextLogger(s.logger, ctx).Warn("transport attempt failed",
			zap.String("transport", opt.Transport.Name()),
			zap.String("role", role.String()),
			zap.String("reason", reason.String()),
			zap.Error(err),
		)
	}

	return attempts, ErrAllTransportsFailed
}

func (s *Strategy) attempt(ctx context.Context, opt Option, email provider.Email) (*provider.SendReceipt, error) {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return opt.Transport.Send(attemptCtx, email)
}
