// Package transport declares the abstract Transport Protocol contract
// (spec.md §6) that the network manager's transmit dispatcher
// delegates multi-frame payloads to. Concrete segmentation logic
// (ISO-TP, ETP, ...) lives outside this package; package isotp ships
// one reference implementation.
package transport

import "github.com/vaelix/isonm/cf"

// Badge is the token Initialize and Update take (spec.md §6, §9
// "badge pattern"). It is an empty struct, so any package can
// construct one with Badge{}; within the core, netmgr's unexported
// mintBadge is the only place that creates one. Nothing in the type
// itself stops another caller from driving a protocol.
type Badge struct {
	_ [0]byte
}

// OnComplete is invoked once a transmission finishes, successfully or
// not. For the single-frame fast path it fires synchronously before
// Send returns; for a transport-accepted transmission it fires
// asynchronously, whenever the protocol implementation decides the
// transfer is done.
type OnComplete func(success bool)

// OnChunk supplies payload bytes lazily, chunk by chunk, as an
// alternative to handing a protocol a pre-built buffer. offset and
// length select the bytes wanted; the full message length is
// Offer.Length.
type OnChunk func(offset, length int) []byte

// Offer describes one transmission a Protocol is being asked to
// accept responsibility for.
type Offer struct {
	PGN         uint32
	Buffer      []byte // nil if OnChunk is used instead
	Length      int
	Source      *cf.Internal
	Destination *cf.ControlFunction // nil for broadcast
	Priority    uint8
	OnComplete  OnComplete
	Parent      any
	OnChunk     OnChunk
}

// Protocol is the abstract multi-frame transport-protocol contract
// (spec.md §6). The network manager holds a registry of these and
// tries each, in registration order, before falling back to a
// single-frame send.
type Protocol interface {
	// Offer is given a transmission request and returns true if this
	// protocol accepts responsibility for completing it. On true, the
	// protocol owns calling o.OnComplete exactly once, asynchronously.
	Offer(o Offer) bool
	// Initialize runs once before the first Update call.
	Initialize(b Badge)
	// Update is ticked once per network-manager Update call.
	Update(b Badge)
	// IsInitialized reports whether Initialize has completed.
	IsInitialized() bool
}

// Registry holds protocols in registration order.
type Registry struct {
	protocols []Protocol
}

// Register appends p to the registry. Registration order is the
// offer-iteration order spec.md §4.2 step 1 requires.
func (r *Registry) Register(p Protocol) {
	r.protocols = append(r.protocols, p)
}

// Protocols returns the registered protocols in registration order.
func (r *Registry) Protocols() []Protocol {
	return r.protocols
}

// Offer tries every registered protocol in order and returns the one
// that accepted, or nil if none did.
func (r *Registry) Offer(o Offer) Protocol {
	for _, p := range r.protocols {
		if p.Offer(o) {
			return p
		}
	}
	return nil
}

// InitializeAll initializes every registered protocol that has not
// already been initialized.
func (r *Registry) InitializeAll(b Badge) {
	for _, p := range r.protocols {
		if !p.IsInitialized() {
			p.Initialize(b)
		}
	}
}

// UpdateAll ticks every registered protocol.
func (r *Registry) UpdateAll(b Badge) {
	for _, p := range r.protocols {
		p.Update(b)
	}
}
