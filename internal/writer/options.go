package writer

import (
	"context"
	"time"

	"github.com/acentior/hw-video-writer/internal/logger"
	"github.com/acentior/hw-video-writer/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultSyncTimeout  = time.Second
	DefaultBusyInterval = time.Millisecond
)

// RetryPolicy decides how a submission the device answered busy is
// repeated. The zero value retries forever every DefaultBusyInterval.
type RetryPolicy struct {
	// Interval between attempts when NewBackOff is nil.
	Interval time.Duration
	// MaxRetries caps the attempts after the first one. Zero is unbounded.
	MaxRetries uint64
	// NewBackOff, when set, supplies the wait schedule instead of a
	// constant Interval. It is called once per submission.
	NewBackOff func() backoff.BackOff
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.NewBackOff != nil {
		b = p.NewBackOff()
	} else {
		interval := p.Interval
		if interval <= 0 {
			interval = DefaultBusyInterval
		}
		b = backoff.NewConstantBackOff(interval)
	}
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, p.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}

type options struct {
	syncTimeout time.Duration
	retry       RetryPolicy
	logger      *zap.SugaredLogger
	metrics     *metrics.Writer
}

func defaultOptions() options {
	return options{
		syncTimeout: DefaultSyncTimeout,
		logger:      logger.ComponentLogger("writer"),
	}
}

// Option configures a Writer.
type Option func(*options)

// WithSyncTimeout bounds the wait for each encode operation to complete.
func WithSyncTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.syncTimeout = d
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Writer) Option {
	return func(o *options) { o.metrics = m }
}
