package service

import (
	"context"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/models"
)

type MonitoringService struct {
	device  *device.State
	variant Variant
}

func NewMonitoringService(dev *device.State, variant Variant) *MonitoringService {
	return &MonitoringService{device: dev, variant: variant}
}

// GetState returns a consistent snapshot of the device, tagged with the protocol variant.
func (s *MonitoringService) GetState(ctx context.Context) (models.DeviceState, error) {
	if err := ctx.Err(); err != nil {
		return models.DeviceState{}, err
	}
	st := s.device.Snapshot()
	if s.variant != nil {
		st.Variant = s.variant.Name()
	}
	return st, nil
}
