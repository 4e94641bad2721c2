package protocol

import "errors"

var (
	// ErrMalformedDatagram indicates a datagram too short to carry a command.
	ErrMalformedDatagram = errors.New("malformed datagram, length is less than 2")

	// ErrUnknownOpcode indicates a command byte outside the supported opcode set.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrInvalidStatusLength indicates a status reply that is not exactly 3 bytes.
	ErrInvalidStatusLength = errors.New("invalid status message, length is not 3")
)
