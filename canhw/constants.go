package canhw

// Constants from spec.md section 6.
const (
	// NullAddress (254) means "known identity, no current bus address."
	NullAddress uint8 = 254

	// BroadcastAddress (255) addresses every control function on a port.
	BroadcastAddress uint8 = 255

	// DataLength is the payload size of one classic CAN frame.
	DataLength = 8

	// MaxPorts bounds the number of CAN channels a NetworkManager can
	// drive. Implementer-configurable per spec.md, fixed here to match
	// the reference value used throughout the design notes.
	MaxPorts = 4

	// AbsoluteMaxMessageLength is the ISO-TP/ISO 11783 ceiling on a
	// single application message, regardless of how it is segmented.
	AbsoluteMaxMessageLength = 1785
)
