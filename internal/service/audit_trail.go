package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/legalbot-guard-api/internal/dto"
	"github.com/noah-isme/legalbot-guard-api/internal/observability"
)

const auditErrorBuffer = 16

// AuditSubmitter accepts activity entries for best-effort recording.
type AuditSubmitter interface {
	Submit(ctx context.Context, entry dto.ActivityCreateRequest) bool
}

// AuditTrail records activity on behalf of business operations without ever
// failing them. Entries are queued, written by a worker and retried a bounded
// number of times. A full queue drops the entry.
type AuditTrail interface {
	AuditSubmitter
	Start(ctx context.Context)
	Close()
	Errors() <-chan error
}

// AuditTrailConfig tunes queue size and retries.
type AuditTrailConfig struct {
	Buffer     int
	MaxRetries int
	Backoff    time.Duration
}

type auditJob struct {
	ctx   context.Context
	entry dto.ActivityCreateRequest
}

type auditTrail struct {
	recorder   ActivityRecorder
	queue      chan auditJob
	errs       chan error
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	running bool
	done    chan struct{}
}

// NewAuditTrail constructs the audit trail. Call Start before submitting.
func NewAuditTrail(recorder ActivityRecorder, cfg AuditTrailConfig, logger zerolog.Logger) AuditTrail {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}

	return &auditTrail{
		recorder:   recorder,
		queue:      make(chan auditJob, cfg.Buffer),
		errs:       make(chan error, auditErrorBuffer),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     logger.With().Str("component", "audit_trail").Logger(),
		done:       make(chan struct{}),
	}
}

func (a *auditTrail) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running || a.closed {
		return
	}
	a.running = true
	go a.run(ctx)
}

// Submit never blocks. It reports whether the entry was queued.
func (a *auditTrail) Submit(ctx context.Context, entry dto.ActivityCreateRequest) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		observability.AuditDropped().Inc()
		return false
	}

	select {
	case a.queue <- auditJob{ctx: context.WithoutCancel(ctx), entry: entry}:
		return true
	default:
		observability.AuditDropped().Inc()
		a.logger.Warn().
			Str("user_id", entry.UserID).
			Str("action", entry.Action).
			Msg("audit queue full, dropping entry")
		return false
	}
}

func (a *auditTrail) Errors() <-chan error {
	return a.errs
}

// Close stops accepting entries and waits for queued ones to be written when
// the worker is running.
func (a *auditTrail) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	running := a.running
	a.mu.Unlock()

	if running {
		<-a.done
	}
}

func (a *auditTrail) run(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case job, ok := <-a.queue:
			if !ok {
				return
			}
			a.write(ctx, job)
		case <-ctx.Done():
			a.drain()
			return
		}
	}
}

// drain writes what is already queued once the worker context is cancelled.
func (a *auditTrail) drain() {
	for {
		select {
		case job, ok := <-a.queue:
			if !ok {
				return
			}
			a.write(context.Background(), job)
		default:
			return
		}
	}
}

func (a *auditTrail) write(ctx context.Context, job auditJob) {
	var err error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(a.backoff * time.Duration(attempt)):
			case <-ctx.Done():
			}
		}

		_, err = a.recorder.Record(job.ctx, job.entry)
		if err == nil {
			return
		}
		if errors.Is(err, ErrUserBanned) || errors.Is(err, ErrValidation) {
			break
		}
	}

	observability.AuditFailures().Inc()
	a.logger.Error().Err(err).
		Str("user_id", job.entry.UserID).
		Str("action", job.entry.Action).
		Msg("failed to record audit activity")

	select {
	case a.errs <- err:
	default:
	}
}
