package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
)

// Inserter is the part of *river.Client the event queue needs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// EventQueue is an events.Emitter that enqueues a delivery job per event.
// Services emit only after their unit has committed, so the job is inserted
// outside that transaction. Failures are logged and dropped.
//
// The River client is created after the services that emit events, so the
// inserter is attached later with SetInserter. Until then events are logged.
type EventQueue struct {
	mu       sync.RWMutex
	inserter Inserter
	logger   *slog.Logger
	now      func() time.Time
}

func NewEventQueue(logger *slog.Logger) *EventQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventQueue{logger: logger, now: time.Now}
}

func (q *EventQueue) SetInserter(ins Inserter) {
	q.mu.Lock()
	q.inserter = ins
	q.mu.Unlock()
}

func (q *EventQueue) Emit(ctx context.Context, ev events.Event) {
	env, err := events.Encode(ev, q.now())
	if err != nil {
		q.logger.Error("encode event", "type", ev.Type(), "error", err)
		return
	}

	q.mu.RLock()
	ins := q.inserter
	q.mu.RUnlock()
	if ins == nil {
		q.logger.Warn("event queue not wired, logging event", "type", env.Type, "event_id", env.ID)
		return
	}

	if _, err := ins.Insert(context.WithoutCancel(ctx), DeliverEventArgs{Envelope: env}, nil); err != nil {
		q.logger.Error("enqueue event delivery", "type", env.Type, "event_id", env.ID, "error", err)
	}
}
