package netmgr

import (
	"github.com/vaelix/isonm/canid"
	"github.com/vaelix/isonm/cf"
)

// AddressClaimPGN is the J1939/ISO 11783-5 Address Claimed PGN.
const AddressClaimPGN uint32 = 0xEE00

// RequestPGN is the J1939 PGN Request PGN, used by process_for_callbacks
// (spec.md §4.6) to recognize a broadcast request sent from the null
// source address.
const RequestPGN uint32 = 0xEA00

// Message is one decoded, fully-resolved inbound frame (spec.md §3).
type Message struct {
	Identifier uint32
	Decoded    canid.Identifier
	Payload    []byte
	Source     *cf.ControlFunction
	Destination *cf.ControlFunction
	PortIndex   uint8
	Timestamp   int64
}

// PGN implements callback.Message.
func (m *Message) PGN() uint32 { return m.Decoded.PGN }

// Port implements callback.Message.
func (m *Message) Port() uint8 { return m.PortIndex }

// IsBroadcast reports whether the frame's destination was the
// broadcast address.
func (m *Message) IsBroadcast() bool {
	return m.Decoded.Destination == 0xFF
}

// RawPayload, SourceCF and Priority satisfy the isotp package's
// frameView interface (duck-typed, not imported here) so a transport
// protocol plugin can inspect a Message beyond the minimal
// callback.Message surface without netmgr depending on isotp.
func (m *Message) RawPayload() []byte         { return m.Payload }
func (m *Message) SourceCF() *cf.ControlFunction { return m.Source }
func (m *Message) Priority() uint8            { return m.Decoded.Priority }
