package service

import (
	"context"
	"sync/atomic"
	"time"

	"reflow_emulator/internal/logger"
	"reflow_emulator/internal/models"
	"reflow_emulator/internal/repository"

	"github.com/google/uuid"
)

const (
	// DefaultJournalBuffer bounds the events waiting to be written.
	DefaultJournalBuffer = 1024
	journalWriteTimeout  = 2 * time.Second
)

// JournalService writes events to the repository from its own goroutine so
// that a slow database never stalls the datagram loop.
type JournalService struct {
	repo    repository.EventRepo
	events  chan models.DeviceEvent
	log     *logger.Logger
	dropped atomic.Uint64
}

func NewJournalService(repo repository.EventRepo, buffer int, log *logger.Logger) *JournalService {
	if buffer <= 0 {
		buffer = DefaultJournalBuffer
	}
	return &JournalService{
		repo:   repo,
		events: make(chan models.DeviceEvent, buffer),
		log:    log,
	}
}

// Record enqueues e. Events are dropped with a warning when the buffer is full.
func (j *JournalService) Record(e models.DeviceEvent) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	select {
	case j.events <- e:
	default:
		n := j.dropped.Add(1)
		j.log.Warnw("journal_event_dropped", "type", e.Type, "dropped_total", n)
	}
}

// Dropped returns the number of events lost to a full buffer.
func (j *JournalService) Dropped() uint64 {
	return j.dropped.Load()
}

// Run writes events until ctx is canceled, then flushes what is still buffered.
func (j *JournalService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			j.flush()
			return
		case e := <-j.events:
			j.write(ctx, e)
		}
	}
}

func (j *JournalService) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	for {
		select {
		case e := <-j.events:
			j.write(ctx, e)
		default:
			return
		}
	}
}

func (j *JournalService) write(ctx context.Context, e models.DeviceEvent) {
	if err := j.repo.Append(ctx, e); err != nil {
		j.log.Errorw("journal_append_failed", "err", err, "event_id", e.EventID, "type", e.Type)
	}
}
