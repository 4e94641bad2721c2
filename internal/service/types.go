package service

import (
	"net/netip"
	"time"

	"reflow_emulator/internal/protocol"
)

// LogFilter supports journal filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "HEATER", "RESERVE", "RELEASE", "STATUS", "STOP", "REJECTED", "MALFORMED", "UNKNOWN"
}

// Reply kinds.
const (
	ReplyKindReply = "reply"
	ReplyKindPush  = "push"
)

// Reply is a status datagram the transport must send.
type Reply struct {
	To      netip.AddrPort
	Payload []byte
	Kind    string
}

// Outcome is the result of handling one datagram. Err is never sent to the peer.
type Outcome struct {
	Command protocol.Command
	Reply   *Reply
	Stop    bool
	Err     error
}
