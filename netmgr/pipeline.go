package netmgr

import (
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/canid"
	"github.com/vaelix/isonm/name"
)

// ReceiveFrame is the hardware ingress entry point (spec.md §4.5
// producer context). It may run on a separate thread from Update; it
// performs the immediate partial decode and CF resolution, then pushes
// the fully populated Message onto the receive queue.
func (nm *NetworkManager) ReceiveFrame(f canhw.Frame) {
	decoded := canid.Decode(f.Identifier)
	port := f.Channel

	msg := &Message{
		Identifier: f.Identifier,
		Decoded:    decoded,
		Payload:    append([]byte(nil), f.Data[:f.DataLength]...),
		PortIndex:  port,
		Timestamp:  nm.clock.NowMs(),
	}

	if decoded.PGN == AddressClaimPGN {
		// Must not consult the (possibly stale) address table for
		// claim frames; scan the authoritative active list instead.
		msg.Source = nm.reg.FindActiveByPortAddress(port, decoded.Source)
		msg.Destination = nil // AddressClaim is always broadcast.
	} else {
		msg.Source = nm.reg.Lookup(port, decoded.Source)
		if decoded.Destination != canhw.BroadcastAddress {
			msg.Destination = nm.reg.Lookup(port, decoded.Destination)
		}
	}

	if !nm.rxq.Push(msg) {
		nm.mets.FramesDropped.Inc()
		return
	}
	nm.mets.FramesReceived.Inc()
	nm.mets.QueueDepth.Set(float64(nm.rxq.Len()))
}

// Update is the single periodic tick (spec.md §4.7): drain receive
// queue, tick address-claim state machines, adopt address changes,
// tick transport protocols, stamp the timestamp. The application must
// call this at least once every 10ms for ISO 11783-5 timing.
func (nm *NetworkManager) Update() {
	if !nm.initialized {
		nm.Initialize()
	}

	for {
		msg, ok := nm.rxq.Pop()
		if !ok {
			break
		}
		nm.mets.QueueDepth.Set(float64(nm.rxq.Len()))
		nm.dispatchReceived(msg)
	}

	now := nm.clock.NowMs()
	for _, internal := range nm.internals {
		internal.Claim.Tick(now)
		if internal.Claim.ConsumeAddressChanged() {
			nm.reg.ActivateInternal(internal.ControlFunction)
			nm.reg.UpdateAddressTable(internal.Port(), internal.Address())
		}
	}

	badge := nm.mintBadge()
	nm.transports.UpdateAll(badge)

	nm.lastUpdateMs = now
}

func (nm *NetworkManager) dispatchReceived(msg *Message) {
	if msg.PGN() == AddressClaimPGN && len(msg.Payload) == canhw.DataLength {
		var raw [8]byte
		copy(raw[:], msg.Payload)
		claimedName := name.Decode(raw)
		port := msg.PortIndex
		addr := msg.Decoded.Source

		nm.reg.ObserveClaim(port, claimedName, addr)
		nm.reg.UpdateAddressTable(port, addr)
		nm.mets.ClaimsObserved.Inc()

		for _, internal := range nm.internals {
			if internal.Port() != port || internal.NAME().Equal(claimedName) {
				continue
			}
			internal.Claim.ObserveCompetingClaim(claimedName, addr)
		}
	}

	nm.protocolCB.Invoke(msg)
	nm.processForCallbacks(msg)
}
