package service

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/models"
	"reflow_emulator/internal/protocol"
)

// Protocol variant names accepted by the device.variant config key.
const (
	VariantRequestReply = "request_reply"
	VariantPoll         = "poll"
)

// DefaultPollPeriod matches the 10ms cadence of the original firmware emulator.
const DefaultPollPeriod = 10 * time.Millisecond

var ErrUnknownVariant = errors.New("unknown protocol variant")

// Variant captures the differences between the two supported protocols.
type Variant interface {
	Name() string
	// Accepts reports whether the opcode exists in this protocol.
	Accepts(op protocol.Opcode) bool
	// Status builds the status message for the given snapshot.
	Status(st models.DeviceState) protocol.StatusMessage
	// Interval is the push cadence, zero when the variant never pushes.
	Interval() time.Duration
	// Push returns an unsolicited status datagram due at now, if any.
	Push(now time.Time, dev *device.State) *Reply
}

// NewVariant selects a variant by name.
func NewVariant(name string, controllerPort uint16, pollPeriod time.Duration) (Variant, error) {
	switch name {
	case VariantRequestReply, "":
		return RequestReplyVariant{}, nil
	case VariantPoll:
		return NewPollVariant(controllerPort, pollPeriod), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
}

// RequestReplyVariant answers StatusRequest with the heater state and honors Stop.
type RequestReplyVariant struct{}

func (RequestReplyVariant) Name() string { return VariantRequestReply }

func (RequestReplyVariant) Accepts(op protocol.Opcode) bool { return op.Known() }

func (RequestReplyVariant) Status(st models.DeviceState) protocol.StatusMessage {
	return protocol.NewStatus(st.TemperatureC, st.HeaterOn)
}

func (RequestReplyVariant) Interval() time.Duration { return 0 }

func (RequestReplyVariant) Push(time.Time, *device.State) *Reply { return nil }

// PollVariant pushes status to the reservation owner's controller port every period.
// StatusRequest and Stop do not exist in this protocol.
type PollVariant struct {
	controllerPort uint16
	period         time.Duration
	lastPush       time.Time
}

func NewPollVariant(controllerPort uint16, period time.Duration) *PollVariant {
	if period <= 0 {
		period = DefaultPollPeriod
	}
	return &PollVariant{controllerPort: controllerPort, period: period}
}

func (v *PollVariant) Name() string { return VariantPoll }

func (v *PollVariant) Accepts(op protocol.Opcode) bool {
	switch op {
	case protocol.OpHeaterControl, protocol.OpReserve, protocol.OpRelease:
		return true
	default:
		return false
	}
}

// Status carries the reservation flag, which is always 1 while pushing.
func (v *PollVariant) Status(st models.DeviceState) protocol.StatusMessage {
	return protocol.NewStatus(st.TemperatureC, st.Reserved)
}

func (v *PollVariant) Interval() time.Duration { return v.period }

func (v *PollVariant) Push(now time.Time, dev *device.State) *Reply {
	if now.Sub(v.lastPush) < v.period {
		return nil
	}
	owner, ok := dev.Owner()
	if !ok {
		return nil
	}
	v.lastPush = now
	return &Reply{
		To:      netip.AddrPortFrom(owner.Addr(), v.controllerPort),
		Payload: v.Status(dev.Snapshot()).Encode(),
		Kind:    ReplyKindPush,
	}
}
