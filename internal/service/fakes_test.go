package service

import (
	"context"
	"sync"
	"time"

	"reflow_emulator/internal/models"
)

// fakeEventRepo is a minimal stub that satisfies repository.EventRepo.
type fakeEventRepo struct {
	mu sync.Mutex

	gotFrom time.Time
	gotTo   time.Time
	gotType string

	events    []models.DeviceEvent
	appended  []models.DeviceEvent
	err       error
	appendErr error

	calls int
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotFrom = from
	f.gotTo = to
	f.gotType = typ
	return f.events, f.err
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.DeviceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, e)
	return f.appendErr
}

func (f *fakeEventRepo) appendedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

// recordingJournal captures events synchronously.
type recordingJournal struct {
	events []models.DeviceEvent
}

func (r *recordingJournal) Record(e models.DeviceEvent) {
	r.events = append(r.events, e)
}

func (r *recordingJournal) last() models.DeviceEvent {
	if len(r.events) == 0 {
		return models.DeviceEvent{}
	}
	return r.events[len(r.events)-1]
}
