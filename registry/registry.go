// Package registry is the authoritative Control Function Registry and
// per-port Address Table (spec.md §4.3). It owns the active/inactive
// CF partitions, the partner list, and the address-table cache that
// sits over them. Grounded on the original's
// update_control_functions/update_address_table/
// process_receive_can_message_for_address_claim algorithm shape.
package registry

import (
	"fmt"
	"sync"

	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/isolog"
	"github.com/vaelix/isonm/name"
)

// Registry is the CF registry and address table for every port a
// NetworkManager drives.
//
// The active list is guarded by mu, which the caller (netmgr) shares
// with its receive queue rather than introducing a second lock —
// spec.md §5 flags the two-lock ordering hazard and recommends
// exactly this sharing when the hardware callback runs on another
// thread.
type Registry struct {
	mu  *sync.Mutex
	log isolog.Logger

	active   []*cf.ControlFunction
	inactive []*cf.ControlFunction
	partners []*cf.PartneredControlFunction

	table [canhw.MaxPorts][canhw.NullAddress]*cf.ControlFunction
}

// New constructs a Registry sharing mu with the caller's receive
// queue. log may be isolog.Nop.
func New(mu *sync.Mutex, log isolog.Logger) *Registry {
	if log == nil {
		log = isolog.Nop
	}
	return &Registry{mu: mu, log: log}
}

// RegisterInternal adds an Internal CF to the inactive list; it moves
// to active once its address-claim state machine reports a claimed
// address and the network manager calls ActivateInternal.
func (r *Registry) RegisterInternal(i *cf.Internal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inactive = append(r.inactive, i.ControlFunction)
}

// RegisterPartner adds a Partnered CF the application wants recognized
// by name filter once it claims an address on the bus.
func (r *Registry) RegisterPartner(p *cf.PartneredControlFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partners = append(r.partners, p)
}

// Active returns a snapshot of the current active list.
func (r *Registry) Active() []*cf.ControlFunction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*cf.ControlFunction(nil), r.active...)
}

// Partners returns a snapshot of the registered partner list, in
// registration order (spec.md §4.6 "partners scanned in registration
// order").
func (r *Registry) Partners() []*cf.PartneredControlFunction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*cf.PartneredControlFunction(nil), r.partners...)
}

func removeCF(list []*cf.ControlFunction, target *cf.ControlFunction) []*cf.ControlFunction {
	out := list[:0]
	for _, c := range list {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// moveToActive relocates target from inactive to active, or appends it
// to active if it was in neither list (a freshly created External CF).
// Must be called with mu held.
func (r *Registry) moveToActive(target *cf.ControlFunction) {
	r.inactive = removeCF(r.inactive, target)
	for _, c := range r.active {
		if c == target {
			return
		}
	}
	r.active = append(r.active, target)
}

// ActivateInternal promotes an Internal CF's control function to the
// active list once its own address-claim state machine reports an
// address change. An internal CF's own broadcast AddressClaim frame is
// not reflected back to its own receive handler, so unlike an External
// CF it never becomes active via ObserveClaim — the network manager
// calls this directly from Update instead (spec.md §4.4, §4.7).
func (r *Registry) ActivateInternal(c *cf.ControlFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moveToActive(c)
}

// ObserveClaim implements spec.md §4.3 observe_claim: called by the
// network manager when an AddressClaim frame for port arrives, after
// decoding its 8-byte NAME. It resolves which CF claimed
// claimedAddress, evicts whoever previously held that address, and
// leaves the table itself untouched — the caller follows up with
// UpdateAddressTable(port, claimedAddress) to reconcile the cache.
func (r *Registry) ObserveClaim(port uint8, claimedName name.NAME, claimedAddress uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *cf.ControlFunction

	// Step 1: active list — match by NAME, evict address conflicts.
	for _, c := range r.active {
		if c.Port() != port {
			continue
		}
		if c.NAME().Equal(claimedName) {
			found = c
			continue
		}
		if c.Address() == claimedAddress {
			c.SetAddress(canhw.NullAddress)
		}
	}

	// Step 2: inactive list — same matching, same eviction.
	if found == nil {
		for _, c := range r.inactive {
			if c.Port() != port {
				continue
			}
			if c.NAME().Equal(claimedName) {
				found = c
			}
		}
	}
	for _, c := range r.inactive {
		if c.Port() == port && !c.NAME().Equal(claimedName) && c.Address() == claimedAddress {
			c.SetAddress(canhw.NullAddress)
		}
	}

	// Step 3: partner list — adopt on filter match.
	if found == nil {
		for _, p := range r.partners {
			if p.Port() != port {
				continue
			}
			if p.Address() == claimedAddress && p.NAME().Equal(claimedName) {
				found = p.ControlFunction
				break
			}
			if !p.HasValidAddress() && p.MatchesName(claimedName) {
				p.Adopt(claimedName, claimedAddress)
				r.moveToActive(p.ControlFunction)
				r.log.Infof("partner has claimed %d", claimedAddress)
				found = p.ControlFunction
				break
			}
		}
	}

	// Step 4: novel NAME — construct an External CF.
	if found == nil {
		ext := cf.New(claimedName, port, cf.TypeExternal)
		r.active = append(r.active, ext)
		r.log.Infof("new control function %d", claimedAddress)
		found = ext
	}

	// Step 5: finalize the claimed address on whichever CF was found.
	found.SetAddress(claimedAddress)
	r.moveToActive(found)
}

// UpdateAddressTable implements spec.md §4.3 update_address_table: it
// evicts a stale cached entry and, if the slot is now empty,
// reinstalls whichever active CF currently holds that address.
func (r *Registry) UpdateAddressTable(port, address uint8) {
	if int(port) >= canhw.MaxPorts || address == canhw.NullAddress {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur := r.table[port][address]; cur != nil && cur.Address() == canhw.NullAddress {
		r.table[port][address] = nil
	}
	if r.table[port][address] == nil {
		for _, c := range r.active {
			if c.Port() == port && c.Address() == address {
				r.table[port][address] = c
				break
			}
		}
	}
}

// Lookup performs the O(1) table lookup spec.md §4.3 specifies.
// Out-of-range ports or the null/broadcast addresses return nil.
func (r *Registry) Lookup(port, address uint8) *cf.ControlFunction {
	if int(port) >= canhw.MaxPorts || address >= canhw.NullAddress {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table[port][address]
}

// FindActiveByPortAddress linearly scans the active list for a CF at
// (port, address). Used by the receive pipeline's producer path for
// AddressClaim frames, which must not consult the (possibly stale)
// address table (spec.md §4.5).
func (r *Registry) FindActiveByPortAddress(port, address uint8) *cf.ControlFunction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.active {
		if c.Port() == port && c.Address() == address {
			return c
		}
	}
	return nil
}

// String renders a short diagnostic summary, useful in tests and CLI
// introspection commands.
func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("registry{active=%d inactive=%d partners=%d}", len(r.active), len(r.inactive), len(r.partners))
}
