// Package addrclaim implements the per-Internal-CF ISO 11783-5
// address-claim state machine (spec.md §4.4). It owns the claimed
// address of exactly one Internal control function and decides, on
// every Tick and every observed competing claim, whether to defend,
// re-arbitrate, or give up.
package addrclaim

import (
	"math/rand"

	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/name"
)

// State is one node of the state machine spec.md §4.4 names.
type State uint8

const (
	NonePresent State = iota
	WaitingForClaim
	SendingRequestForClaim
	WaitingForRequestContention
	SendingPreferredAddress
	ContendingForPreferredAddress
	AddressClaimed
	UnableToClaim
)

func (s State) String() string {
	switch s {
	case WaitingForClaim:
		return "WaitingForClaim"
	case SendingRequestForClaim:
		return "SendingRequestForClaim"
	case WaitingForRequestContention:
		return "WaitingForRequestContention"
	case SendingPreferredAddress:
		return "SendingPreferredAddress"
	case ContendingForPreferredAddress:
		return "ContendingForPreferredAddress"
	case AddressClaimed:
		return "AddressClaimed"
	case UnableToClaim:
		return "UnableToClaim"
	default:
		return "NonePresent"
	}
}

// contentionDelayMs bounds the pseudo-random pre-claim delay, drawn
// uniformly from [0,250]ms by a generator seeded with the CF's NAME, and
// is also the fixed length of each contention window.
const contentionDelayMs = 250

// Sender is the minimal transmit capability the state machine needs:
// broadcast a request for other nodes' claims, and construct and hand
// off this CF's own address-claim frame. The network manager supplies
// this (it is the only component allowed to send on the CF's behalf),
// keeping addrclaim from depending on netmgr.
type Sender interface {
	SendRequestForClaim(port uint8) bool
	SendAddressClaim(n name.NAME, port, address uint8) bool
}

// StateMachine drives one Internal CF's address-claim arbitration. It
// satisfies cf.AddressClaimer.
type StateMachine struct {
	cf     *cf.ControlFunction
	sender Sender
	clock  canhw.Clock

	state     State
	preferred uint8
	changed   bool
	deadline  int64 // ms, absolute clock reading the current wait state ends at
	rng       *rand.Rand
}

// NewStateMachine constructs a state machine for owner, which begins
// arbitrating for preferredAddress as soon as Tick is first called.
func NewStateMachine(owner *cf.ControlFunction, preferredAddress uint8, sender Sender, clock canhw.Clock) *StateMachine {
	return &StateMachine{
		cf:        owner,
		sender:    sender,
		clock:     clock,
		state:     NonePresent,
		preferred: preferredAddress,
		rng:       rand.New(rand.NewSource(int64(owner.NAME()))),
	}
}

// ConsumeAddressChanged implements cf.AddressClaimer.
func (s *StateMachine) ConsumeAddressChanged() bool {
	v := s.changed
	s.changed = false
	return v
}

// Unclaimable implements cf.AddressClaimer.
func (s *StateMachine) Unclaimable() bool { return s.state == UnableToClaim }

// State returns the current node, for diagnostics and tests.
func (s *StateMachine) State() State { return s.state }

// RequestAddress implements cf.AddressClaimer: restart arbitration for
// a new preferred address.
func (s *StateMachine) RequestAddress(preferred uint8) {
	s.preferred = preferred
	s.state = NonePresent
	s.deadline = 0
}

func (s *StateMachine) randomDelayMs() int64 {
	return int64(s.rng.Intn(contentionDelayMs + 1))
}

// Tick implements cf.AddressClaimer. It advances the state machine by
// one network-manager update tick. Each deadline reached moves the
// machine exactly one hop along the ISO 11783-5 chain: a node
// broadcasts a Request For Claim before it ever announces its own
// preferred address, then sits out a full contention window after
// sending that preferred-address claim before declaring victory.
func (s *StateMachine) Tick(nowMs int64) {
	switch s.state {
	case NonePresent:
		s.deadline = nowMs + s.randomDelayMs()
		s.state = WaitingForClaim

	case WaitingForClaim:
		if nowMs >= s.deadline {
			s.sendRequestForClaim(nowMs)
		}

	case SendingRequestForClaim:
		// Transient; resolved synchronously inside
		// sendRequestForClaim, but treat as a retry opportunity if
		// Tick ever observes it lingering.
		s.sendRequestForClaim(nowMs)

	case WaitingForRequestContention:
		if nowMs >= s.deadline {
			s.sendPreferredAddress(nowMs)
		}

	case SendingPreferredAddress:
		s.sendPreferredAddress(nowMs)

	case ContendingForPreferredAddress:
		if nowMs >= s.deadline {
			s.state = AddressClaimed
		}

	case AddressClaimed, UnableToClaim:
		// Terminal for this boot cycle unless RequestAddress restarts
		// arbitration.
	}
}

// sendRequestForClaim broadcasts the Request For Claim that opens
// arbitration, then opens the contention window every other node on
// the bus has to object in before this CF sends its own preferred
// address.
func (s *StateMachine) sendRequestForClaim(nowMs int64) {
	if s.preferred == canhw.NullAddress {
		s.state = UnableToClaim
		s.cf.SetAddress(canhw.NullAddress)
		return
	}
	s.state = SendingRequestForClaim
	s.sender.SendRequestForClaim(s.cf.Port())
	s.deadline = nowMs + contentionDelayMs
	s.state = WaitingForRequestContention
}

// sendPreferredAddress commits to the preferred address: it sends the
// claim frame and, on acceptance, opens the second contention window
// during which a competing claim can still be observed before the
// address is considered settled.
func (s *StateMachine) sendPreferredAddress(nowMs int64) bool {
	s.state = SendingPreferredAddress
	ok := s.sender.SendAddressClaim(s.cf.NAME(), s.cf.Port(), s.preferred)
	if !ok {
		// Hardware rejected the claim frame; retry from scratch next
		// tick rather than spin on the same deadline forever.
		s.state = WaitingForClaim
		s.deadline = nowMs
		return false
	}
	s.cf.SetAddress(s.preferred)
	s.changed = true
	s.state = ContendingForPreferredAddress
	s.deadline = nowMs + contentionDelayMs
	return true
}

// ObserveCompetingClaim is called by the registry/network manager
// when another node claims the address this CF currently holds or is
// arbitrating for. challenger is the NAME claiming that address.
// Per ISO 11783-5: lower NAME wins. If this CF's NAME is lower, it
// defends by re-sending its claim; otherwise it loses the address.
func (s *StateMachine) ObserveCompetingClaim(challenger name.NAME, contestedAddress uint8) {
	if s.preferred != contestedAddress && s.cf.Address() != contestedAddress {
		return
	}
	if s.cf.NAME().Less(challenger) {
		// We win arbitration: defend by re-sending our claim. Unlike
		// the initial claim this needs no fresh contention window —
		// we already hold the address, this just reasserts it.
		if s.sender.SendAddressClaim(s.cf.NAME(), s.cf.Port(), s.preferred) {
			s.cf.SetAddress(s.preferred)
			s.state = AddressClaimed
		}
		return
	}
	// We lose: give up the address and re-enter the contention window
	// to try claiming again, skipping straight past the initial
	// random delay and Request For Claim broadcast since those only
	// matter on the very first attempt.
	s.cf.SetAddress(canhw.NullAddress)
	s.changed = true
	s.deadline = s.clock.NowMs() + contentionDelayMs
	s.state = WaitingForRequestContention
}
