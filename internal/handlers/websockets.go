package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"reflow_emulator/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 5 * time.Second
	pongWait        = 30 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMsgSize      = 512
	defaultInterval = 250 * time.Millisecond
	minInterval     = 10 * time.Millisecond
	maxInterval     = 10 * time.Second
)

// wsEnvelope wraps every message sent over /ws.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// The monitor is read-only and meant for local tooling, so any origin may connect.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stateStream tracks what was last delivered to one client.
type stateStream struct {
	conn *websocket.Conn
	last models.DeviceState
	sent bool
}

// @Summary      Stream device state
// @Description  Sends the snapshot on connect, then again whenever it changes. Sampling period via interval or interval_ms.
// @Tags         device
// @Param        interval     query  string  false  "Go duration, 10ms-10s"
// @Param        interval_ms  query  int     false  "Milliseconds, 10-10000"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go h.drain(conn, closed)

	ctx := c.Request.Context()
	stream := &stateStream{conn: conn}
	if err := h.publish(ctx, stream); err != nil {
		h.wsClose(err)
		return
	}

	sample := time.NewTicker(interval)
	defer sample.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.wsClose(err)
				return
			}
		case <-sample.C:
			if err := h.publish(ctx, stream); err != nil {
				h.wsClose(err)
				return
			}
		}
	}
}

// parseInterval reads ?interval=250ms or ?interval_ms=250, falling back to
// defaultInterval when missing or out of bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= minInterval && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			d := time.Duration(v) * time.Millisecond
			if d >= minInterval && d <= maxInterval {
				return d
			}
		}
	}
	return defaultInterval
}

// drain consumes client frames so control messages are processed.
func (h *Handler) drain(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// publish sends the snapshot if it differs from the last one delivered.
func (h *Handler) publish(ctx context.Context, s *stateStream) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteJSON(wsEnvelope{Type: "error", Error: errGetState})
		return err
	}
	if s.sent && st == s.last {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(wsEnvelope{Type: "state", Data: st}); err != nil {
		return err
	}
	s.last, s.sent = st, true
	return nil
}

func (h *Handler) wsClose(err error) {
	if h.log != nil {
		h.log.Infow("ws_stream_closed", "err", err)
	}
}
