// Package callback implements the two PGN callback registries spec.md
// §3/§4.6 describes: the global registry (insertion-order, duplicates
// allowed) and the protocol registry (set semantics, mutex-protected
// because it is registered from arbitrary threads). Grounded on the
// original's ParameterGroupNumberCallbackData equality-by-triple and
// on the mutex-per-list discipline already present in the teacher's
// tp package (tp.SafeQueue, tp.RateLimiter).
package callback

import (
	"sync"
)

// Message is the minimal view of a received message a callback needs.
// netmgr.Message satisfies this; kept as an interface here so callback
// has no dependency on netmgr (netmgr depends on callback instead).
type Message interface {
	PGN() uint32
	Port() uint8
}

// Func is the callback signature spec.md §6 specifies: it receives the
// message and the registration-time opaque parent.
type Func func(msg Message, parent any)

// entry is one (PGN, function, parent) triple. spec.md §3 defines
// equality by all three fields, but Go funcs are not comparable with
// ==, so entries are identified by a caller-supplied token instead:
// (PGN, token) in ProtocolRegistry, token alone in GlobalRegistry.Remove
// (simpler and avoids reflect on a hot path).
type entry struct {
	pgn    uint32
	fn     Func
	parent any
	token  any
}

// GlobalRegistry is the insertion-order, duplicates-allowed list of
// global PGN callbacks (spec.md §4.6 "broadcast" fan-out target).
//
// SPEC_FULL.md §5/§9 resolves the open question of whether concurrent
// registration is safe in favor of protecting this list with a mutex,
// even though the original leaves it unprotected — the teacher's own
// codebase mutex-protects every list touched from more than one call
// site, and this one is documented as registerable "from any thread".
type GlobalRegistry struct {
	mu      sync.Mutex
	entries []entry
}

// Add appends a callback for pgn. token identifies this registration
// for a later Remove call (use the same token you'll pass to Remove).
func (g *GlobalRegistry) Add(pgn uint32, fn Func, parent, token any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, entry{pgn: pgn, fn: fn, parent: parent, token: token})
}

// Remove deletes every entry registered with token.
func (g *GlobalRegistry) Remove(token any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.entries[:0]
	for _, e := range g.entries {
		if e.token != token {
			out = append(out, e)
		}
	}
	g.entries = out
}

// Invoke fans msg out to every callback registered for msg.PGN(), in
// insertion order. A panicking callback is recovered so it cannot
// prevent subsequent callbacks from firing (spec.md §4.6 ordering
// guarantee).
func (g *GlobalRegistry) Invoke(msg Message) {
	g.mu.Lock()
	snapshot := append([]entry(nil), g.entries...)
	g.mu.Unlock()

	for _, e := range snapshot {
		if e.pgn == msg.PGN() {
			invokeSafely(e.fn, msg, e.parent)
		}
	}
}

// ProtocolRegistry is the set-semantics protocol PGN callback list
// (spec.md §3, §4.5 step 2). Registration, lookup and the full
// fan-out for a given message are all performed under the same mutex
// so a callback cannot be freed mid-invocation (spec.md §4.5 step 2,
// §5). Callbacks invoked under this mutex MUST NOT call Add/Remove —
// that is a documented re-entrant deadlock, matching spec.md §5.
type ProtocolRegistry struct {
	mu      sync.Mutex
	entries []entry
}

// Add registers fn for pgn if an identical (pgn, token) pair is not
// already present (set semantics).
func (p *ProtocolRegistry) Add(pgn uint32, fn Func, parent, token any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.pgn == pgn && e.token == token {
			return
		}
	}
	p.entries = append(p.entries, entry{pgn: pgn, fn: fn, parent: parent, token: token})
}

// Remove deletes the entry registered for (pgn, token), if any.
func (p *ProtocolRegistry) Remove(pgn uint32, token any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.entries[:0]
	for _, e := range p.entries {
		if !(e.pgn == pgn && e.token == token) {
			out = append(out, e)
		}
	}
	p.entries = out
}

// Invoke fans msg out to every protocol callback matching msg.PGN(),
// in registration order, holding the mutex for the full fan-out.
func (p *ProtocolRegistry) Invoke(msg Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.pgn == msg.PGN() {
			invokeSafely(e.fn, msg, e.parent)
		}
	}
}

func invokeSafely(fn Func, msg Message, parent any) {
	defer func() { _ = recover() }()
	fn(msg, parent)
}
