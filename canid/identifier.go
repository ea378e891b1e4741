// Package canid encodes and decodes the 29-bit extended CAN identifier
// used by SAE J1939 / ISO 11783 into its priority, PGN, source and
// destination address fields.
package canid

import "github.com/vaelix/isonm/canhw"

// InvalidIdentifier is returned by Encode when the inputs cannot form a
// legal 29-bit identifier. It is outside the legal 0x1FFFFFFF range, so
// it can never collide with a real encoded identifier.
const InvalidIdentifier uint32 = 0xFFFFFFFF

const (
	pduFormatBroadcastThreshold = 0xF0
	maxPriority                 = 0x7
	idMask29Bit                 = 0x1FFFFFFF
)

// Identifier is the decoded form of a 29-bit extended CAN identifier.
type Identifier struct {
	Priority    uint8
	PGN         uint32
	Source      uint8
	Destination uint8
}

// Decode splits a raw 29-bit identifier into priority, PGN, source and
// destination address per spec.md section 4.1.
func Decode(id uint32) Identifier {
	id &= idMask29Bit

	priority := uint8((id >> 26) & 0x7)
	source := uint8(id & 0xFF)
	pf := uint8((id >> 16) & 0xFF)

	if pf < pduFormatBroadcastThreshold {
		// PDU1: destination-specific.
		return Identifier{
			Priority:    priority,
			PGN:         (id >> 8) & 0x3FF00,
			Source:      source,
			Destination: uint8((id >> 8) & 0xFF),
		}
	}

	// PDU2: broadcast.
	return Identifier{
		Priority:    priority,
		PGN:         (id >> 8) & 0x3FFFF,
		Source:      source,
		Destination: 0xFF,
	}
}

// Encode constructs a 29-bit identifier from its fields. It returns
// InvalidIdentifier and false if the inputs cannot be encoded: priority
// above 7, a PDU2 (broadcast) PGN paired with any destination other than
// 0xFF, or a PDU1 (destination-specific) PGN paired with the null
// address 254. A PDU1 PGN with destination 0xFF is accepted and carries
// 0xFF in its destination byte.
func Encode(priority uint8, pgn uint32, source, destination uint8) (uint32, bool) {
	if priority > maxPriority {
		return InvalidIdentifier, false
	}

	id := uint32(priority&0x07) << 26
	id |= uint32(source)

	pf := uint8((pgn >> 8) & 0xFF)
	isPDU2 := pf >= pduFormatBroadcastThreshold

	switch {
	case isPDU2:
		// Broadcast form: PGN already encodes the full 18 bits (group
		// extension included), so the destination must be the broadcast
		// address — there is no separate destination field to carry
		// anything else.
		if destination != canhw.BroadcastAddress {
			return InvalidIdentifier, false
		}
		id |= (pgn & 0x3FFFF) << 8

	default:
		// PDU1: destination-specific. The destination byte (PS) may
		// legally be the broadcast address 0xFF — that is how a
		// destination-specific PGN is broadcast — but a control function
		// with no claimed address (NullAddress) can never be a valid
		// destination.
		if destination == canhw.NullAddress {
			return InvalidIdentifier, false
		}
		id |= uint32(destination) << 8
		id |= (pgn & 0x3FF00) << 8
	}

	return id & idMask29Bit, true
}
