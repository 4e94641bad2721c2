package protocol

import (
	"fmt"
	"net/netip"
)

// Opcode identifies the command a datagram encodes.
type Opcode byte

const (
	OpUnknown       Opcode = 0x00
	OpHeaterControl Opcode = 0x01
	OpReserve       Opcode = 0x02
	OpRelease       Opcode = 0x03
	OpStatusRequest Opcode = 0x04
	OpStop          Opcode = 0x05
)

// CommandLen is the length of a well-formed command datagram.
const CommandLen = 2

func (o Opcode) String() string {
	switch o {
	case OpHeaterControl:
		return "heater_control"
	case OpReserve:
		return "reserve"
	case OpRelease:
		return "release"
	case OpStatusRequest:
		return "status_request"
	case OpStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Known reports whether o is one of the defined opcodes.
func (o Opcode) Known() bool {
	return o >= OpHeaterControl && o <= OpStop
}

// Command is a decoded datagram together with its sender.
type Command struct {
	Opcode   Opcode
	Argument byte
	Sender   netip.AddrPort
}

// HeaterOn reports the boolean encoding of the argument byte.
func (c Command) HeaterOn() bool {
	return c.Argument != 0
}

// Decode parses an untrusted datagram. Bytes past the argument are ignored.
// On ErrUnknownOpcode the returned command carries OpUnknown and the raw
// argument so the caller can still report the sender.
func Decode(b []byte, sender netip.AddrPort) (Command, error) {
	cmd := Command{Opcode: OpUnknown, Sender: sender}
	if len(b) < CommandLen {
		return cmd, ErrMalformedDatagram
	}
	cmd.Argument = b[1]

	op := Opcode(b[0])
	if !op.Known() {
		return cmd, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, b[0])
	}
	cmd.Opcode = op
	return cmd, nil
}

// EncodeCommand builds the datagram a controller sends to the device.
func EncodeCommand(op Opcode, arg byte) []byte {
	return []byte{byte(op), arg}
}
