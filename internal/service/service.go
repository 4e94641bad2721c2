package service

import (
	"context"
	"net/netip"
	"time"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/models"
	"reflow_emulator/internal/repository"
)

// Monitoring exposes a read-only view of the device.
type Monitoring interface {
	GetState(ctx context.Context) (models.DeviceState, error)
}

// EventLog exposes the journal of processed datagrams with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error)
}

// Journal accepts events for asynchronous persistence. Record never blocks.
type Journal interface {
	Record(e models.DeviceEvent)
}

// Handler turns one datagram into at most one device transition and reply.
type Handler interface {
	Handle(datagram []byte, sender netip.AddrPort) Outcome
	Tick(now time.Time) *Reply
}

// Service aggregates the read-side services used by the HTTP monitor.
type Service struct {
	Monitoring
	EventLog
}

// NewService wires the device and journal repository into the read-side services.
func NewService(dev *device.State, variant Variant, repos *repository.Repository) *Service {
	return &Service{
		Monitoring: NewMonitoringService(dev, variant),
		EventLog:   NewEventLogService(repos.EventRepo),
	}
}
