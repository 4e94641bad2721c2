package protocol

import "encoding/binary"

// StatusLen is the length of a status reply.
const StatusLen = 3

// StatusMessage is the reply sent by the device.
type StatusMessage struct {
	Temperature uint16
	Flag        uint8
}

// NewStatus builds a status message with the flag normalized to 0 or 1.
func NewStatus(temperature uint16, flag bool) StatusMessage {
	m := StatusMessage{Temperature: temperature}
	if flag {
		m.Flag = 1
	}
	return m
}

// Encode returns the 3-byte wire form.
func (m StatusMessage) Encode() []byte {
	b := make([]byte, StatusLen)
	binary.BigEndian.PutUint16(b[0:2], m.Temperature)
	b[2] = m.Flag
	return b
}

// DecodeStatus parses a status reply received by a controller.
func DecodeStatus(b []byte) (StatusMessage, error) {
	if len(b) != StatusLen {
		return StatusMessage{}, ErrInvalidStatusLength
	}
	return StatusMessage{
		Temperature: binary.BigEndian.Uint16(b[0:2]),
		Flag:        b[2],
	}, nil
}
