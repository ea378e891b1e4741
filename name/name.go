// Package name implements the ISO 11783-5 NAME: the 64-bit identity
// value control functions use to arbitrate for a bus address.
package name

import "encoding/binary"

// NAME is a 64-bit ISO 11783-5 identity. It is treated as opaque except
// for the field accessors below; equality and ordering are unsigned
// 64-bit compare, and the lowest NAME always wins address arbitration.
type NAME uint64

// Decode reads a NAME from its 8-byte little-endian wire form, the
// layout an AddressClaim message's data field carries.
func Decode(data [8]byte) NAME {
	return NAME(binary.LittleEndian.Uint64(data[:]))
}

// Encode writes the NAME back to its 8-byte little-endian wire form.
func (n NAME) Encode() [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], uint64(n))
	return out
}

// Less reports whether n wins arbitration against other (lower NAME
// wins).
func (n NAME) Less(other NAME) bool {
	return uint64(n) < uint64(other)
}

// Equal reports bitwise equality.
func (n NAME) Equal(other NAME) bool {
	return n == other
}

// Fields is the decomposed form of a NAME, used to build one for a
// locally-owned Internal control function. ECUInstance,
// FunctionInstance and DeviceClassInstance default to 0 when omitted.
type Fields struct {
	IdentityNumber          uint32
	ManufacturerCode        uint16
	ECUInstance             uint8
	FunctionInstance        uint8
	Function                uint8
	DeviceClass             uint8
	DeviceClassInstance     uint8
	IndustryGroup           uint8
	SelfConfigurable        bool
}

// New packs Fields into a NAME per the ISO 11783-5 bit layout.
func New(f Fields) NAME {
	var n uint64
	n |= uint64(f.IdentityNumber) & 0x1FFFFF
	n |= (uint64(f.ManufacturerCode) & 0x7FF) << 21
	n |= (uint64(f.ECUInstance) & 0x07) << 32
	n |= (uint64(f.FunctionInstance) & 0x1F) << 35
	n |= uint64(f.Function) << 40
	n |= (uint64(f.DeviceClass) & 0x7F) << 49
	n |= (uint64(f.DeviceClassInstance) & 0x0F) << 56
	n |= (uint64(f.IndustryGroup) & 0x07) << 60
	if f.SelfConfigurable {
		n |= 1 << 63
	}
	return NAME(n)
}

// Field accessors, per the ISO 11783-5 NAME bit layout. Bit positions
// are counted from bit 0 (least significant).
func (n NAME) IdentityNumber() uint32 {
	return uint32(n) & 0x1FFFFF
}

func (n NAME) ManufacturerCode() uint16 {
	return uint16(n>>21) & 0x7FF
}

func (n NAME) ECUInstance() uint8 {
	return uint8(n>>32) & 0x07
}

func (n NAME) FunctionInstance() uint8 {
	return uint8(n>>35) & 0x1F
}

func (n NAME) Function() uint8 {
	return uint8(n >> 40)
}

func (n NAME) DeviceClass() uint8 {
	return uint8(n>>49) & 0x7F
}

func (n NAME) DeviceClassInstance() uint8 {
	return uint8(n>>56) & 0x0F
}

func (n NAME) IndustryGroup() uint8 {
	return uint8(n>>60) & 0x07
}

func (n NAME) ArbitraryAddressCapable() bool {
	return n&(1<<63) != 0
}
