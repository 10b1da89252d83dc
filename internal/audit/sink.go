// Package audit records who did what. Events are formatted at the call site
// and persisted in the background; persistence failures are only logged.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/async"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Recorder accepts audit events without blocking the caller on persistence.
type Recorder interface {
	Record(ctx context.Context, op constants.AuditOperation, tag Tag, subject any)
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, constants.AuditOperation, Tag, any) {}

type Sink struct {
	repo   repository.AuditRepository
	queue  *async.Queue[entity.AuditEvent]
	logger *slog.Logger
	now    func() time.Time
}

func NewSink(repo repository.AuditRepository, logger *slog.Logger, opts ...async.Option) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sink{repo: repo, logger: logger, now: time.Now}
	s.queue = async.NewQueue("audit", s.persist, logger, opts...)
	return s
}

// Record formats the event with the caller's identity and queues it.
func (s *Sink) Record(ctx context.Context, op constants.AuditOperation, tag Tag, subject any) {
	e := entity.AuditEvent{
		ID:        uuid.NewString(),
		Operation: op,
		Username:  common.IdentityFromContext(ctx).Name(),
		RequestID: common.RequestIDFromContext(ctx),
		Timestamp: s.now().UTC(),
	}
	if err := Format(&e, tag, subject); err != nil {
		s.logger.Error("failed to format audit event", "operation", op, "tag", tag, "error", err)
		return
	}
	if !s.queue.Enqueue(ctx, e) {
		s.logger.Warn("audit.dropped", "operation", op, "file", e.FileName)
	}
}

func (s *Sink) persist(ctx context.Context, e entity.AuditEvent) error {
	if err := s.repo.Insert(ctx, &e); err != nil {
		return err
	}
	s.logger.Debug("audit.persisted", "operation", e.Operation, "user", e.Username)
	return nil
}

// Close drains queued events.
func (s *Sink) Close(ctx context.Context) {
	s.queue.Shutdown(ctx)
}
