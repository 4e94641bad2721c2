package service

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/logger"
	"reflow_emulator/internal/models"
	"reflow_emulator/internal/protocol"
)

var (
	ctrlX = netip.MustParseAddrPort("127.0.0.1:40001")
	ctrlY = netip.MustParseAddrPort("127.0.0.1:40002")
)

func newTestProcessor(t *testing.T, variant Variant, opts ...device.Option) (*Processor, *device.State, *recordingJournal) {
	t.Helper()
	dev := device.New(device.DefaultTemperatureC, opts...)
	j := &recordingJournal{}
	return NewProcessor(dev, variant, j, logger.Nop(), nil), dev, j
}

func cmd(op protocol.Opcode, arg byte) []byte {
	return protocol.EncodeCommand(op, arg)
}

func TestProcessor_ShortDatagramsAreDropped(t *testing.T) {
	p, dev, j := newTestProcessor(t, RequestReplyVariant{})
	before := dev.Snapshot()

	for _, in := range [][]byte{nil, {}, {0x04}, {0x05}} {
		out := p.Handle(in, ctrlX)
		if !errors.Is(out.Err, protocol.ErrMalformedDatagram) {
			t.Fatalf("input %v: expected ErrMalformedDatagram, got %v", in, out.Err)
		}
		if out.Reply != nil || out.Stop {
			t.Fatalf("input %v: expected no reply and no stop, got %+v", in, out)
		}
	}
	if dev.Snapshot() != before {
		t.Fatalf("state changed: %+v -> %+v", before, dev.Snapshot())
	}
	if j.last().Type != models.EventMalformed {
		t.Fatalf("expected MALFORMED event, got %+v", j.last())
	}
}

func TestProcessor_UnknownOpcode(t *testing.T) {
	p, dev, j := newTestProcessor(t, RequestReplyVariant{})
	before := dev.Snapshot()

	out := p.Handle([]byte{0x09, 0x01}, ctrlX)
	if !errors.Is(out.Err, protocol.ErrUnknownOpcode) {
		t.Fatalf("expected ErrUnknownOpcode, got %v", out.Err)
	}
	if out.Reply != nil || out.Stop || dev.Snapshot() != before {
		t.Fatalf("unknown opcode had an effect: %+v", out)
	}
	if j.last().Type != models.EventUnknown {
		t.Fatalf("expected UNKNOWN event, got %+v", j.last())
	}
}

func TestProcessor_HeaterControl(t *testing.T) {
	p, dev, _ := newTestProcessor(t, RequestReplyVariant{})

	cases := []struct {
		arg  byte
		want bool
	}{
		{0x01, true},
		{0x01, true},
		{0x00, false},
		{0x00, false},
		{0xff, true},
		{0x80, true},
		{0x00, false},
	}
	for _, tc := range cases {
		out := p.Handle(cmd(protocol.OpHeaterControl, tc.arg), ctrlY)
		if out.Err != nil || out.Reply != nil {
			t.Fatalf("arg=%#x: unexpected outcome %+v", tc.arg, out)
		}
		if got := dev.Snapshot().HeaterOn; got != tc.want {
			t.Fatalf("arg=%#x: heater=%v, want %v", tc.arg, got, tc.want)
		}
	}
}

func TestProcessor_ReserveConflict(t *testing.T) {
	p, dev, j := newTestProcessor(t, RequestReplyVariant{})

	if out := p.Handle(cmd(protocol.OpReserve, 0), ctrlX); out.Err != nil {
		t.Fatalf("reserve X: %v", out.Err)
	}
	out := p.Handle(cmd(protocol.OpReserve, 0), ctrlY)
	if !errors.Is(out.Err, device.ErrAlreadyReserved) {
		t.Fatalf("expected ErrAlreadyReserved, got %v", out.Err)
	}
	if out.Reply != nil {
		t.Fatalf("errors must not produce a reply: %+v", out.Reply)
	}
	if owner := dev.Snapshot().Owner; owner != ctrlX.String() {
		t.Fatalf("owner=%q, want %q", owner, ctrlX)
	}
	if j.last().Type != models.EventRejected {
		t.Fatalf("expected REJECTED event, got %+v", j.last())
	}

	// duplicated reserve from the owner is harmless
	if out := p.Handle(cmd(protocol.OpReserve, 0), ctrlX); out.Err != nil {
		t.Fatalf("re-reserve X: %v", out.Err)
	}
}

func TestProcessor_ReserveTransferPolicy(t *testing.T) {
	p, dev, j := newTestProcessor(t, RequestReplyVariant{}, device.WithReservePolicy(device.ReserveTransfer))

	p.Handle(cmd(protocol.OpReserve, 0), ctrlX)
	if out := p.Handle(cmd(protocol.OpReserve, 0), ctrlY); out.Err != nil {
		t.Fatalf("transfer: %v", out.Err)
	}
	if owner := dev.Snapshot().Owner; owner != ctrlY.String() {
		t.Fatalf("owner=%q, want %q", owner, ctrlY)
	}
	meta, _ := j.last().Metadata.(map[string]any)
	if meta["previous_owner"] != ctrlX.String() {
		t.Fatalf("expected previous_owner metadata, got %+v", j.last())
	}
}

func TestProcessor_Release(t *testing.T) {
	p, dev, _ := newTestProcessor(t, RequestReplyVariant{})
	p.Handle(cmd(protocol.OpReserve, 0), ctrlX)

	out := p.Handle(cmd(protocol.OpRelease, 0), ctrlY)
	if !errors.Is(out.Err, device.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", out.Err)
	}
	if owner := dev.Snapshot().Owner; owner != ctrlX.String() {
		t.Fatalf("owner changed to %q", owner)
	}

	if out := p.Handle(cmd(protocol.OpRelease, 0), ctrlX); out.Err != nil {
		t.Fatalf("release X: %v", out.Err)
	}
	if dev.Snapshot().Reserved {
		t.Fatalf("expected unreserved")
	}

	// duplicated release is rejected, not fatal
	if out := p.Handle(cmd(protocol.OpRelease, 0), ctrlX); !errors.Is(out.Err, device.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on duplicate release, got %v", out.Err)
	}
}

func TestProcessor_StatusRequest(t *testing.T) {
	p, _, j := newTestProcessor(t, RequestReplyVariant{})

	// unreserved, heater off
	out := p.Handle(cmd(protocol.OpStatusRequest, 0), ctrlY)
	if out.Reply == nil {
		t.Fatalf("expected reply")
	}
	if out.Reply.To != ctrlY || out.Reply.Kind != ReplyKindReply {
		t.Fatalf("reply routed wrong: %+v", out.Reply)
	}
	if want := []byte{0x00, 0x15, 0x00}; string(out.Reply.Payload) != string(want) {
		t.Fatalf("payload=%v, want %v", out.Reply.Payload, want)
	}

	// reserved by X, heater on; a non-owner still gets the reply
	p.Handle(cmd(protocol.OpReserve, 0), ctrlX)
	p.Handle(cmd(protocol.OpHeaterControl, 1), ctrlX)
	out = p.Handle(cmd(protocol.OpStatusRequest, 0), ctrlY)
	if out.Reply == nil || out.Reply.To != ctrlY {
		t.Fatalf("expected reply to requester, got %+v", out.Reply)
	}
	if want := []byte{0x00, 0x15, 0x01}; string(out.Reply.Payload) != string(want) {
		t.Fatalf("payload=%v, want %v", out.Reply.Payload, want)
	}
	if j.last().Type != models.EventStatus {
		t.Fatalf("expected STATUS event, got %+v", j.last())
	}
}

func TestProcessor_Stop(t *testing.T) {
	p, _, _ := newTestProcessor(t, RequestReplyVariant{})

	out := p.Handle(cmd(protocol.OpStop, 0), ctrlX)
	if !out.Stop || out.Err != nil || out.Reply != nil {
		t.Fatalf("unexpected stop outcome: %+v", out)
	}
}

func TestProcessor_PollVariantRejectsRequestReplyOpcodes(t *testing.T) {
	p, _, _ := newTestProcessor(t, NewPollVariant(9001, time.Millisecond))

	for _, op := range []protocol.Opcode{protocol.OpStatusRequest, protocol.OpStop} {
		out := p.Handle(cmd(op, 0), ctrlX)
		if !errors.Is(out.Err, protocol.ErrUnknownOpcode) {
			t.Fatalf("%s: expected ErrUnknownOpcode, got %v", op, out.Err)
		}
		if out.Stop || out.Reply != nil {
			t.Fatalf("%s: unexpected effect %+v", op, out)
		}
	}
}

func TestProcessor_TickPushesToOwnerControllerPort(t *testing.T) {
	p, _, _ := newTestProcessor(t, NewPollVariant(9001, 10*time.Millisecond))
	now := time.Now()

	if r := p.Tick(now); r != nil {
		t.Fatalf("unreserved device must not push: %+v", r)
	}

	p.Handle(cmd(protocol.OpReserve, 0), ctrlX)
	r := p.Tick(now)
	if r == nil {
		t.Fatalf("expected push")
	}
	if want := netip.MustParseAddrPort("127.0.0.1:9001"); r.To != want {
		t.Fatalf("push to %v, want %v", r.To, want)
	}
	if want := []byte{0x00, 0x15, 0x01}; string(r.Payload) != string(want) || r.Kind != ReplyKindPush {
		t.Fatalf("push=%+v", r)
	}

	if r := p.Tick(now.Add(5 * time.Millisecond)); r != nil {
		t.Fatalf("push before period elapsed: %+v", r)
	}
	if r := p.Tick(now.Add(10 * time.Millisecond)); r == nil {
		t.Fatalf("expected push after period")
	}
}
