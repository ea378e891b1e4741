// Package cf defines the Control Function: the participant identity
// type shared by the registry, the address-claim state machine, and
// the network manager's dispatch and callback fan-out.
package cf

import (
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/name"
)

// Type distinguishes who owns a Control Function.
type Type uint8

const (
	// TypeExternal control functions are observed on the bus and owned
	// by the registry.
	TypeExternal Type = iota
	// TypeInternal control functions are owned by this process and
	// carry an address-claim state machine.
	TypeInternal
	// TypePartnered control functions are External CFs the
	// application has declared interest in via a NameFilter.
	TypePartnered
)

func (t Type) String() string {
	switch t {
	case TypeInternal:
		return "internal"
	case TypePartnered:
		return "partnered"
	default:
		return "external"
	}
}

// ControlFunction is one addressable participant on one CAN port.
//
// Invariants (spec.md §3): at most one CF per (Port, Address) with
// Address != NullAddress; Address == NullAddress means "known identity,
// no current bus address"; NAME is immutable after construction.
type ControlFunction struct {
	name    name.NAME
	port    uint8
	cfType  Type
	address uint8
}

// New constructs a Control Function with no claimed address.
func New(n name.NAME, port uint8, t Type) *ControlFunction {
	return &ControlFunction{
		name:    n,
		port:    port,
		cfType:  t,
		address: canhw.NullAddress,
	}
}

func (c *ControlFunction) NAME() name.NAME { return c.name }
func (c *ControlFunction) Port() uint8     { return c.port }
func (c *ControlFunction) Type() Type      { return c.cfType }

// Address returns the CF's current bus address, or canhw.NullAddress if
// it holds none.
func (c *ControlFunction) Address() uint8 { return c.address }

// SetAddress updates the CF's current bus address. It is called by the
// registry (on claim observation / table reconciliation) and by the
// address-claim state machine (on entering AddressClaimed or losing
// arbitration) — never directly by application code once a CF is
// registered.
func (c *ControlFunction) SetAddress(a uint8) { c.address = a }

// HasValidAddress reports whether the CF currently holds a bus address.
func (c *ControlFunction) HasValidAddress() bool {
	return c.address != canhw.NullAddress
}
