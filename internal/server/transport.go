package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"reflow_emulator/internal/logger"
	"reflow_emulator/internal/metrics"
	"reflow_emulator/internal/service"
)

const (
	// maxDatagramSize is the receive buffer; commands are two bytes.
	maxDatagramSize = 1024
	// DefaultReadTimeout bounds each receive so that shutdown is observed.
	DefaultReadTimeout = 100 * time.Millisecond
	// errorBackoff throttles the loop while the socket keeps failing.
	errorBackoff = 10 * time.Millisecond
)

// Transport is the receive-process-reply loop over one UDP socket.
type Transport struct {
	conn        *net.UDPConn
	handler     service.Handler
	log         *logger.Logger
	metrics     *metrics.Metrics
	readTimeout time.Duration
}

// Listen binds the device socket. A failure here is fatal for the process.
func Listen(addr netip.AddrPort) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, fmt.Errorf("bind udp %s: %w", addr, err)
	}
	return conn, nil
}

// NewTransport builds the loop. Callers pushing status periodically should
// pass a readTimeout no larger than the push interval.
func NewTransport(conn *net.UDPConn, handler service.Handler, log *logger.Logger, m *metrics.Metrics, readTimeout time.Duration) *Transport {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Transport{
		conn:        conn,
		handler:     handler,
		log:         log,
		metrics:     m,
		readTimeout: readTimeout,
	}
}

// LocalAddr is the bound address, useful when binding port 0.
func (t *Transport) LocalAddr() netip.AddrPort {
	ap := t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// Run processes datagrams in arrival order until a Stop command is handled,
// ctx is canceled or the socket is closed. It closes the socket on return.
func (t *Transport) Run(ctx context.Context) error {
	defer func() { _ = t.conn.Close() }()

	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			t.log.Infow("transport_stopped", "reason", "context_canceled")
			return nil
		}

		if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		n, from, err := t.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				t.push()
				continue
			case errors.Is(err, net.ErrClosed):
				t.log.Infow("transport_stopped", "reason", "socket_closed")
				return nil
			default:
				t.metrics.ObserveTransportError("read")
				t.log.Warnw("udp_read_failed", "err", err)
				time.Sleep(errorBackoff)
				continue
			}
		}

		from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())
		t.log.Debugw("datagram_received", "sender", from, "len", n)

		out := t.handler.Handle(buf[:n], from)
		if out.Reply != nil {
			t.send(*out.Reply)
		}
		t.push()

		if out.Stop {
			t.log.Infow("transport_stopped", "reason", "stop_command", "sender", from)
			return nil
		}
	}
}

func (t *Transport) push() {
	if r := t.handler.Tick(time.Now()); r != nil {
		t.send(*r)
	}
}

func (t *Transport) send(r service.Reply) {
	if _, err := t.conn.WriteToUDPAddrPort(r.Payload, r.To); err != nil {
		t.metrics.ObserveTransportError("write")
		t.log.Warnw("udp_write_failed", "to", r.To, "kind", r.Kind, "err", err)
		return
	}
	t.metrics.ObserveReply(r.Kind)
}
