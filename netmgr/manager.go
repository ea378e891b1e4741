// Package netmgr is the Network Manager façade (spec.md §4.7): it owns
// the registry, the transport registry, the callback registries, and
// the receive queue, and exposes Initialize/Update/Send/ReceiveFrame
// plus callback and registry accessors. Grounded on the original
// can_network_manager.cpp/.hpp overall shape, with the tick-loop and
// mutex discipline taken from the teacher's tp_layer.Transport.Run and
// tp.SafeQueue.
package netmgr

import (
	"github.com/vaelix/isonm/addrclaim"
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/callback"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/isolog"
	"github.com/vaelix/isonm/isometrics"
	"github.com/vaelix/isonm/name"
	"github.com/vaelix/isonm/registry"
	"github.com/vaelix/isonm/rxqueue"
	"github.com/vaelix/isonm/transport"
)

// NetworkManager is the single object the application constructs and
// drives. It is an explicitly-constructed value, not a process-wide
// singleton — spec.md §9 flags the original's global instance as a
// re-architecture target.
type NetworkManager struct {
	hw    canhw.Hardware
	clock canhw.Clock
	log   isolog.Logger
	mets  *isometrics.Metrics

	reg        *registry.Registry
	rxq        *rxqueue.Queue[*Message]
	globalCB   *callback.GlobalRegistry
	protocolCB *callback.ProtocolRegistry
	transports *transport.Registry

	internals []*cf.Internal

	initialized     bool
	lastUpdateMs    int64
}

// Option configures a NetworkManager at construction time.
type Option func(*NetworkManager)

// WithLogger overrides the default no-op logger.
func WithLogger(l isolog.Logger) Option {
	return func(nm *NetworkManager) { nm.log = l }
}

// WithMetrics overrides the default metrics sink.
func WithMetrics(m *isometrics.Metrics) Option {
	return func(nm *NetworkManager) { nm.mets = m }
}

// WithQueueBound caps the receive queue at n entries with the given
// drop policy (0 = unbounded, the default).
func WithQueueBound(n int, policy rxqueue.DropPolicy) Option {
	return func(nm *NetworkManager) { nm.rxq.SetBound(n, policy) }
}

// New constructs a NetworkManager driving hw, timed by clock.
func New(hw canhw.Hardware, clock canhw.Clock, opts ...Option) *NetworkManager {
	rxq := rxqueue.New[*Message]()
	nm := &NetworkManager{
		hw:         hw,
		clock:      clock,
		log:        isolog.Nop,
		mets:       isometrics.NewNop(),
		rxq:        rxq,
		globalCB:   &callback.GlobalRegistry{},
		protocolCB: &callback.ProtocolRegistry{},
		transports: &transport.Registry{},
	}
	for _, o := range opts {
		o(nm)
	}
	nm.reg = registry.New(rxq.Mu(), nm.log)
	hw.SetReceiveHandler(nm.ReceiveFrame)
	return nm
}

// mintBadge is where the NetworkManager creates the transport.Badge it
// passes to a registered protocol's Initialize/Update (spec.md §6, §9
// "badge pattern"). transport.Badge{} is constructible by any package,
// so this is not enforced by the type.
func (nm *NetworkManager) mintBadge() transport.Badge { return transport.Badge{} }

// RegisterProtocol adds a transport protocol to the dispatch chain, in
// the order offers will be tried (spec.md §4.2 step 1).
func (nm *NetworkManager) RegisterProtocol(p transport.Protocol) {
	nm.transports.Register(p)
}

// RegisterInternal registers an Internal CF and starts its
// address-claim state machine. preferredAddress is the address it will
// attempt to claim first.
func (nm *NetworkManager) RegisterInternal(n name.NAME, port uint8, preferredAddress uint8) *cf.Internal {
	internal := cf.NewInternal(n, port)
	internal.Claim = addrclaim.NewStateMachine(internal.ControlFunction, preferredAddress, nm, nm.clock)
	nm.reg.RegisterInternal(internal)
	nm.internals = append(nm.internals, internal)
	return internal
}

// RegisterPartner registers a Partnered CF recognized by filters.
func (nm *NetworkManager) RegisterPartner(port uint8, filters ...cf.NameFilter) *cf.PartneredControlFunction {
	p := cf.NewPartnered(port, filters...)
	nm.reg.RegisterPartner(p)
	return p
}

// Registry exposes the CF registry for read access (lookups,
// diagnostics). The core never lets application code mutate it
// directly except through RegisterInternal/RegisterPartner.
func (nm *NetworkManager) Registry() *registry.Registry { return nm.reg }

// AddGlobalCallback registers fn for every broadcast message carrying
// pgn. token must be reused to RemoveGlobalCallback the same
// registration.
func (nm *NetworkManager) AddGlobalCallback(pgn uint32, fn callback.Func, parent, token any) {
	nm.globalCB.Add(pgn, fn, parent, token)
}

// RemoveGlobalCallback removes every global callback registered with
// token.
func (nm *NetworkManager) RemoveGlobalCallback(token any) {
	nm.globalCB.Remove(token)
}

// AddProtocolCallback registers fn for messages carrying pgn, for use
// by transport-protocol implementations that need to observe frames
// the dispatcher routes to them (spec.md §4.5 step 2). Must not be
// called from within a protocol callback invocation — see
// callback.ProtocolRegistry.
func (nm *NetworkManager) AddProtocolCallback(pgn uint32, fn callback.Func, parent, token any) {
	nm.protocolCB.Add(pgn, fn, parent, token)
}

// RemoveProtocolCallback removes the protocol callback registered for
// (pgn, token).
func (nm *NetworkManager) RemoveProtocolCallback(pgn uint32, token any) {
	nm.protocolCB.Remove(pgn, token)
}

// Initialize runs once before the first Update call: it initializes
// every registered transport protocol (spec.md §4.7).
func (nm *NetworkManager) Initialize() {
	if nm.initialized {
		return
	}
	nm.transports.InitializeAll(nm.mintBadge())
	nm.lastUpdateMs = nm.clock.NowMs()
	nm.initialized = true
}
