package cf

import "github.com/vaelix/isonm/name"

// AddressClaimer is the subset of the address-claim state machine
// (package addrclaim) that an Internal control function needs to
// drive and that the network manager needs to poll. It is declared
// here, not imported from addrclaim, so that cf has no dependency on
// the state-machine package — addrclaim depends on cf instead, and
// *addrclaim.StateMachine satisfies this interface implicitly.
type AddressClaimer interface {
	// Tick advances the state machine; nowMs is the monotonic clock
	// reading in milliseconds from the injected Clock.
	Tick(nowMs int64)
	// ConsumeAddressChanged reports whether the CF's address changed
	// since the last call, and clears the flag. The network manager
	// calls this once per Update to decide whether to reconcile the
	// address table.
	ConsumeAddressChanged() bool
	// RequestAddress asks the state machine to (re)claim a new
	// preferred address, restarting arbitration.
	RequestAddress(preferred uint8)
	// Unclaimable reports whether this boot cycle's arbitration ended
	// in UnableToClaim.
	Unclaimable() bool
	// ObserveCompetingClaim notifies the state machine that another
	// node claimed contestedAddress with NAME challenger, so it can
	// defend or concede per ISO 11783-5 arbitration.
	ObserveCompetingClaim(challenger name.NAME, contestedAddress uint8)
}

// Internal is a Control Function owned by this process: it drives its
// own address-claim arbitration via an embedded AddressClaimer.
type Internal struct {
	*ControlFunction
	Claim AddressClaimer
}

// NewInternal constructs an Internal CF. The caller supplies the
// address-claim state machine (package addrclaim) after construction,
// since addrclaim needs a *ControlFunction to drive — see
// addrclaim.NewStateMachine.
func NewInternal(n name.NAME, port uint8) *Internal {
	return &Internal{
		ControlFunction: New(n, port, TypeInternal),
	}
}
