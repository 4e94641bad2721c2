package service

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/logger"
	"reflow_emulator/internal/metrics"
	"reflow_emulator/internal/models"
	"reflow_emulator/internal/protocol"
)

// Processor applies decoded commands to the device. It is not safe for
// concurrent use; the transport loop owns it.
type Processor struct {
	device  *device.State
	variant Variant
	journal Journal
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewProcessor(dev *device.State, variant Variant, journal Journal, log *logger.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		device:  dev,
		variant: variant,
		journal: journal,
		log:     log,
		metrics: m,
	}
}

// Handle decodes one datagram and applies it. Every per-datagram error is
// absorbed into Outcome.Err.
func (p *Processor) Handle(datagram []byte, sender netip.AddrPort) Outcome {
	cmd, err := protocol.Decode(datagram, sender)
	if err == nil && !p.variant.Accepts(cmd.Opcode) {
		err = fmt.Errorf("%w: 0x%02x is not part of the %s protocol", protocol.ErrUnknownOpcode, byte(cmd.Opcode), p.variant.Name())
		cmd.Opcode = protocol.OpUnknown
	}
	if err != nil {
		return p.drop(cmd, datagram, err)
	}

	out := Outcome{Command: cmd}
	switch cmd.Opcode {
	case protocol.OpHeaterControl:
		p.device.SetHeater(cmd.HeaterOn())
		p.log.Infow("heater_control", "sender", sender, "heater_on", cmd.HeaterOn())
		p.record(models.EventHeater, sender, "heater switched", map[string]any{"heater_on": cmd.HeaterOn()})

	case protocol.OpReserve:
		prev, wasReserved := p.device.Owner()
		if out.Err = p.device.Reserve(sender); out.Err != nil {
			break
		}
		meta := map[string]any{}
		if wasReserved && prev != sender {
			meta["previous_owner"] = prev.String()
		}
		p.log.Infow("reserve_granted", "sender", sender)
		p.record(models.EventReserve, sender, "reservation granted", meta)

	case protocol.OpRelease:
		if out.Err = p.device.Release(sender); out.Err != nil {
			break
		}
		p.log.Infow("release_granted", "sender", sender)
		p.record(models.EventRelease, sender, "reservation released", nil)

	case protocol.OpStatusRequest:
		st := p.device.Snapshot()
		msg := p.variant.Status(st)
		out.Reply = &Reply{To: sender, Payload: msg.Encode(), Kind: ReplyKindReply}
		p.log.Debugw("status_request", "sender", sender, "temperature_c", msg.Temperature, "flag", msg.Flag)
		p.record(models.EventStatus, sender, "status requested", map[string]any{
			"temperature_c": msg.Temperature,
			"flag":          msg.Flag,
		})

	case protocol.OpStop:
		out.Stop = true
		p.log.Infow("stop_requested", "sender", sender)
		p.record(models.EventStop, sender, "stop requested", nil)
	}

	if out.Err != nil {
		p.metrics.ObserveDatagram(cmd.Opcode.String(), metrics.ResultRejected)
		p.log.Warnw(cmd.Opcode.String()+"_rejected", "sender", sender, "err", out.Err)
		p.record(models.EventRejected, sender, out.Err.Error(), map[string]any{"opcode": byte(cmd.Opcode)})
		return out
	}

	p.metrics.ObserveDatagram(cmd.Opcode.String(), metrics.ResultApplied)
	p.metrics.SetDeviceState(p.device.Snapshot())
	return out
}

// Tick gives the variant a chance to push unsolicited status.
func (p *Processor) Tick(now time.Time) *Reply {
	return p.variant.Push(now, p.device)
}

func (p *Processor) drop(cmd protocol.Command, datagram []byte, err error) Outcome {
	eventType, result := models.EventUnknown, metrics.ResultUnknown
	if errors.Is(err, protocol.ErrMalformedDatagram) {
		eventType, result = models.EventMalformed, metrics.ResultMalformed
	}
	p.metrics.ObserveDatagram(cmd.Opcode.String(), result)
	p.log.Warnw("datagram_dropped", "sender", cmd.Sender, "len", len(datagram), "err", err)
	p.record(eventType, cmd.Sender, err.Error(), map[string]any{"len": len(datagram)})
	return Outcome{Command: cmd, Err: err}
}

func (p *Processor) record(typ string, sender netip.AddrPort, desc string, meta map[string]any) {
	if p.journal == nil {
		return
	}
	e := models.DeviceEvent{
		Type:        typ,
		Sender:      sender.String(),
		Description: desc,
	}
	if len(meta) > 0 {
		e.Metadata = meta
	}
	p.journal.Record(e)
}
