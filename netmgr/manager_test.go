package netmgr

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vaelix/isonm/callback"
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/canhw/mockhw"
	"github.com/vaelix/isonm/canid"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/isometrics"
	"github.com/vaelix/isonm/name"
	"github.com/vaelix/isonm/rxqueue"
)

func newTestManager() (*NetworkManager, *mockhw.Hardware, *mockhw.Clock) {
	hw := mockhw.New()
	hw.Start()
	clock := mockhw.NewClock()
	nm := New(hw, clock)
	return nm, hw, clock
}

func claimAddress(nm *NetworkManager, clock *mockhw.Clock, internal *cf.Internal) {
	for i := 0; i < 10 && !internal.HasValidAddress(); i++ {
		nm.Update()
		clock.Advance(300)
	}
}

func TestFreshAddressClaimScenario(t *testing.T) {
	nm, _, clock := newTestManager()
	internal := nm.RegisterInternal(name.NAME(100), 0, 0x80)

	claimAddress(nm, clock, internal)
	if internal.Address() != 0x80 {
		t.Fatalf("expected internal CF to claim 0x80, got %d", internal.Address())
	}
	if nm.Registry().Lookup(0, 0x80) == nil {
		t.Fatalf("expected the address table to resolve the claimed address")
	}
}

func TestAddressContentionScenario(t *testing.T) {
	nm, hw, clock := newTestManager()
	internal := nm.RegisterInternal(name.NAME(200), 0, 0x80)
	claimAddress(nm, clock, internal)
	if internal.Address() != 0x80 {
		t.Fatalf("setup: expected our CF to claim 0x80 first")
	}

	// A lower-NAME challenger claims the same address on the bus.
	challenger := name.NAME(50)
	id, _ := canid.Encode(6, AddressClaimPGN, 0x80, canhw.BroadcastAddress)
	hw.InjectFrame(canhw.Frame{Identifier: id, IsExtended: true, DataLength: 8, Data: challenger.Encode()})
	nm.Update()

	if internal.HasValidAddress() {
		t.Fatalf("expected our CF to lose contention to a lower NAME, still holds %d", internal.Address())
	}
}

func TestPartnerAdoptionScenario(t *testing.T) {
	nm, hw, _ := newTestManager()
	partner := nm.RegisterPartner(0, cf.FilterFunction(129))

	claimed := name.New(name.Fields{Function: 129})
	id, _ := canid.Encode(6, AddressClaimPGN, 0x44, canhw.BroadcastAddress)
	hw.InjectFrame(canhw.Frame{Identifier: id, IsExtended: true, DataLength: 8, Data: claimed.Encode()})
	nm.Update()

	if !partner.HasValidAddress() {
		t.Fatalf("expected the partner to adopt the matching claim")
	}
	if partner.Address() != 0x44 {
		t.Fatalf("got partner address %d want 0x44", partner.Address())
	}
}

func TestSingleFrameSendScenario(t *testing.T) {
	nm, hw, clock := newTestManager()
	internal := nm.RegisterInternal(name.NAME(1), 0, 0x20)
	claimAddress(nm, clock, internal)
	hw.ClearWriteLog()

	completed := false
	var success bool
	ok := nm.Send(0xFE00, []byte{1, 2, 3}, 3, internal, nil, 6, func(s bool) {
		completed = true
		success = s
	}, nil)
	if !ok {
		t.Fatalf("expected Send to accept a single-frame payload")
	}
	if !completed {
		t.Fatalf("expected the single-frame fast path to complete synchronously")
	}
	if !success {
		t.Fatalf("expected the send to report success")
	}
	if len(hw.WriteLog()) != 1 {
		t.Fatalf("expected exactly one frame on the wire, got %d", len(hw.WriteLog()))
	}
}

func TestSendRejectsWithoutValidAddress(t *testing.T) {
	nm, _, _ := newTestManager()
	internal := nm.RegisterInternal(name.NAME(1), 0, 0x20) // not yet claimed

	ok := nm.Send(0xFE00, []byte{1}, 1, internal, nil, 6, nil, nil)
	if ok {
		t.Fatalf("expected Send to reject a source with no claimed address")
	}
}

func TestSendReportsHardwareFailure(t *testing.T) {
	nm, hw, clock := newTestManager()
	internal := nm.RegisterInternal(name.NAME(1), 0, 0x20)
	claimAddress(nm, clock, internal)

	hw.RejectSends(true)
	var success bool
	ok := nm.Send(0xFE00, []byte{1}, 1, internal, nil, 6, func(s bool) { success = s }, nil)
	if success {
		t.Fatalf("expected onComplete to report the true hardware failure, not always-true")
	}
	if ok {
		t.Fatalf("expected Send's own return value to reflect the hardware failure, not always-true")
	}
}

func TestReceiveFrameDropsUnderQueueBound(t *testing.T) {
	hw := mockhw.New()
	hw.Start()
	clock := mockhw.NewClock()
	mets := isometrics.NewNop()
	nm := New(hw, clock, WithMetrics(mets), WithQueueBound(1, rxqueue.DropNewest))

	claimed := name.NAME(1)
	id, _ := canid.Encode(6, AddressClaimPGN, 0x10, canhw.BroadcastAddress)
	frame := canhw.Frame{Identifier: id, IsExtended: true, DataLength: 8, Data: claimed.Encode()}

	hw.InjectFrame(frame) // fills the one-slot queue
	hw.InjectFrame(frame) // must be dropped, not counted as received

	if got := testutil.ToFloat64(mets.FramesDropped); got != 1 {
		t.Fatalf("expected exactly one dropped frame counted, got %v", got)
	}
	if got := testutil.ToFloat64(mets.FramesReceived); got != 1 {
		t.Fatalf("expected exactly one received frame counted, got %v", got)
	}

	nm.Update() // drains the surviving frame so the manager is left clean
}

func TestGlobalCallbackFiresOnNullSourceRequest(t *testing.T) {
	nm, hw, _ := newTestManager()
	fired := false
	nm.AddGlobalCallback(RequestPGN, func(msg callback.Message, _ any) {
		fired = true
	}, nil, "tok")

	id, _ := canid.Encode(6, RequestPGN, canhw.NullAddress, canhw.BroadcastAddress)
	hw.InjectFrame(canhw.Frame{Identifier: id, IsExtended: true, DataLength: 3, Data: [8]byte{0, 0xEE, 0}})
	nm.Update()

	if !fired {
		t.Fatalf("expected a PGN-Request with null source to be treated as a broadcast")
	}
}

func TestGlobalCallbackSkipsUnresolvedNonNullSourceRequest(t *testing.T) {
	nm, hw, _ := newTestManager()
	fired := false
	nm.AddGlobalCallback(RequestPGN, func(msg callback.Message, _ any) {
		fired = true
	}, nil, "tok")

	// A real, unclaimed-in-our-table source address (not NullAddress)
	// sends a PGN-Request. It must not be mistaken for a broadcast just
	// because we haven't resolved it into the address table yet.
	id, _ := canid.Encode(6, RequestPGN, 0x33, canhw.BroadcastAddress)
	hw.InjectFrame(canhw.Frame{Identifier: id, IsExtended: true, DataLength: 3, Data: [8]byte{0, 0xEE, 0}})
	nm.Update()

	if fired {
		t.Fatalf("expected an unresolved, non-null-source PGN-Request not to fire the global callback")
	}
}

func TestGlobalCallbackFiresOnBroadcast(t *testing.T) {
	nm, hw, _ := newTestManager()
	fired := false
	nm.AddGlobalCallback(0xFE00, func(msg callback.Message, _ any) {
		fired = true
	}, nil, "tok")

	claimed := name.NAME(999)
	id, _ := canid.Encode(6, AddressClaimPGN, 0x10, canhw.BroadcastAddress)
	hw.InjectFrame(canhw.Frame{Identifier: id, IsExtended: true, DataLength: 8, Data: claimed.Encode()})
	nm.Update()

	id2, _ := canid.Encode(6, 0xFE00, 0x10, canhw.BroadcastAddress)
	hw.InjectFrame(canhw.Frame{Identifier: id2, IsExtended: true, DataLength: 1, Data: [8]byte{1}})
	nm.Update()

	if !fired {
		t.Fatalf("expected the global callback to fire for a broadcast message from a resolved source")
	}
}
