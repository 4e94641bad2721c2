package handlers

import (
	"context"
	"sync"
	"time"

	"reflow_emulator/internal/models"
	"reflow_emulator/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockMonitoring struct {
	mu    sync.Mutex
	state models.DeviceState
	err   error
	calls int
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.DeviceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.state, m.err
}

func (m *mockMonitoring) set(st models.DeviceState) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

type mockEventLog struct {
	resp     []models.DeviceEvent
	err      error
	calls    int
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DeviceEvent, error) {
	m.calls++
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, nil)
	return h.InitRoutes()
}
