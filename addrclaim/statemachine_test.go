package addrclaim

import (
	"testing"

	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/name"
)

type fakeSender struct {
	requests []uint8
	claims   []sentClaim
	rejectAt int // 1-based index into claims to reject
}

type sentClaim struct {
	name    name.NAME
	port    uint8
	address uint8
}

func (s *fakeSender) SendRequestForClaim(port uint8) bool {
	s.requests = append(s.requests, port)
	return true
}

func (s *fakeSender) SendAddressClaim(n name.NAME, port, address uint8) bool {
	s.claims = append(s.claims, sentClaim{n, port, address})
	if s.rejectAt > 0 && len(s.claims) == s.rejectAt {
		return false
	}
	return true
}

type fakeClock struct{ now int64 }

func (c *fakeClock) NowMs() int64 { return c.now }

// runTicks advances clock by 300ms (past any single contention window)
// and ticks sm, stopping early once sm reaches a terminal state.
func runTicks(sm *StateMachine, clock *fakeClock, times int) {
	for i := 0; i < times; i++ {
		if sm.State() == AddressClaimed || sm.State() == UnableToClaim {
			return
		}
		clock.now += 300
		sm.Tick(clock.now)
	}
}

func TestFreshClaimSucceeds(t *testing.T) {
	owner := cf.New(name.NAME(100), 0, cf.TypeInternal)
	sender := &fakeSender{}
	clock := &fakeClock{}
	sm := NewStateMachine(owner, 0x80, sender, clock)

	sm.Tick(0) // NonePresent -> WaitingForClaim, schedules the random delay
	if sm.State() != WaitingForClaim {
		t.Fatalf("expected WaitingForClaim after first tick, got %v", sm.State())
	}

	runTicks(sm, clock, 10)

	if sm.State() != AddressClaimed {
		t.Fatalf("expected AddressClaimed, got %v", sm.State())
	}
	if owner.Address() != 0x80 {
		t.Fatalf("expected claimed address 0x80, got %d", owner.Address())
	}
	if !sm.ConsumeAddressChanged() {
		t.Fatalf("expected ConsumeAddressChanged to report true once")
	}
	if sm.ConsumeAddressChanged() {
		t.Fatalf("expected ConsumeAddressChanged to clear after consuming")
	}
	if len(sender.requests) != 1 {
		t.Fatalf("expected exactly one Request For Claim broadcast, got %d", len(sender.requests))
	}
	if len(sender.claims) != 1 {
		t.Fatalf("expected exactly one claim frame sent, got %d", len(sender.claims))
	}
}

func TestNullAddressIsUnclaimable(t *testing.T) {
	owner := cf.New(name.NAME(100), 0, cf.TypeInternal)
	clock := &fakeClock{}
	sm := NewStateMachine(owner, canhw.NullAddress, &fakeSender{}, clock)

	sm.Tick(0)
	runTicks(sm, clock, 10)
	if sm.State() != UnableToClaim {
		t.Fatalf("expected UnableToClaim, got %v", sm.State())
	}
	if !sm.Unclaimable() {
		t.Fatalf("expected Unclaimable() to report true")
	}
}

func TestLowerNameWinsContention(t *testing.T) {
	owner := cf.New(name.NAME(100), 0, cf.TypeInternal)
	sender := &fakeSender{}
	clock := &fakeClock{}
	sm := NewStateMachine(owner, 0x80, sender, clock)
	sm.Tick(0)
	runTicks(sm, clock, 10)
	if sm.State() != AddressClaimed {
		t.Fatalf("expected AddressClaimed before contention")
	}

	// A higher NAME (200 > 100) challenges for the same address: we win,
	// and must defend by re-sending our claim.
	claimsBefore := len(sender.claims)
	sm.ObserveCompetingClaim(name.NAME(200), 0x80)
	if sm.State() != AddressClaimed {
		t.Fatalf("expected to retain AddressClaimed after winning contention, got %v", sm.State())
	}
	if len(sender.claims) <= claimsBefore {
		t.Fatalf("expected a defending claim frame to be sent")
	}
}

func TestHigherNameLosesContention(t *testing.T) {
	owner := cf.New(name.NAME(200), 0, cf.TypeInternal)
	clock := &fakeClock{}
	sm := NewStateMachine(owner, 0x80, &fakeSender{}, clock)
	sm.Tick(0)
	runTicks(sm, clock, 10)
	if sm.State() != AddressClaimed {
		t.Fatalf("expected AddressClaimed before contention")
	}

	// A lower NAME (100 < 200) challenges for the same address: we lose.
	sm.ObserveCompetingClaim(name.NAME(100), 0x80)
	if sm.State() != WaitingForRequestContention {
		t.Fatalf("expected WaitingForRequestContention after losing, got %v", sm.State())
	}
	if owner.Address() != canhw.NullAddress {
		t.Fatalf("expected address to be relinquished, got %d", owner.Address())
	}
	if !sm.ConsumeAddressChanged() {
		t.Fatalf("expected ConsumeAddressChanged to report the relinquished address")
	}
}

func TestHardwareRejectionRetries(t *testing.T) {
	owner := cf.New(name.NAME(100), 0, cf.TypeInternal)
	sender := &fakeSender{rejectAt: 1}
	clock := &fakeClock{}
	sm := NewStateMachine(owner, 0x80, sender, clock)

	sm.Tick(0)
	runTicks(sm, clock, 10) // first SendAddressClaim is rejected, retries, then succeeds

	if sm.State() != AddressClaimed {
		t.Fatalf("expected the retry to succeed, got %v", sm.State())
	}
	if len(sender.claims) < 2 {
		t.Fatalf("expected at least one retry after the rejected send, got %d claim attempts", len(sender.claims))
	}
	if owner.Address() != 0x80 {
		t.Fatalf("expected the retried claim to land on 0x80, got %d", owner.Address())
	}
}

func TestRequestAddressRestartsArbitration(t *testing.T) {
	owner := cf.New(name.NAME(100), 0, cf.TypeInternal)
	clock := &fakeClock{}
	sm := NewStateMachine(owner, 0x80, &fakeSender{}, clock)
	sm.Tick(0)
	runTicks(sm, clock, 10)
	if sm.State() != AddressClaimed {
		t.Fatalf("expected AddressClaimed")
	}

	sm.RequestAddress(0x90)
	if sm.State() != NonePresent {
		t.Fatalf("expected RequestAddress to restart at NonePresent, got %v", sm.State())
	}
	sm.Tick(clock.now)
	runTicks(sm, clock, 10)
	if owner.Address() != 0x90 {
		t.Fatalf("expected the new preferred address 0x90, got %d", owner.Address())
	}
}

func TestFullChainVisitsEveryState(t *testing.T) {
	owner := cf.New(name.NAME(100), 0, cf.TypeInternal)
	sender := &fakeSender{}
	clock := &fakeClock{}
	sm := NewStateMachine(owner, 0x80, sender, clock)

	seen := map[State]bool{}
	sm.Tick(clock.now)
	seen[sm.State()] = true
	for i := 0; i < 10 && sm.State() != AddressClaimed; i++ {
		clock.now += 300
		sm.Tick(clock.now)
		seen[sm.State()] = true
	}

	for _, want := range []State{WaitingForClaim, WaitingForRequestContention, ContendingForPreferredAddress, AddressClaimed} {
		if !seen[want] {
			t.Fatalf("expected the state chain to pass through %v, observed states: %v", want, seen)
		}
	}
	if len(sender.requests) != 1 {
		t.Fatalf("expected exactly one Request For Claim broadcast, got %d", len(sender.requests))
	}
}
