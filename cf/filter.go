package cf

import (
	"github.com/vaelix/isonm/callback"
	"github.com/vaelix/isonm/name"
)

// NameFilter is a predicate over NAME fields, used by a Partnered CF to
// recognize which remotely-claimed NAME it should adopt. Grounded on
// can_partnered_control_function.hpp's filter-list-of-(field,value)
// shape, expressed here as a composable predicate.
type NameFilter func(n name.NAME) bool

// Matches reports whether n satisfies every filter in fs. An empty
// filter set matches everything.
func Matches(fs []NameFilter, n name.NAME) bool {
	for _, f := range fs {
		if !f(n) {
			return false
		}
	}
	return true
}

// FilterFunction matches on the NAME's Function field.
func FilterFunction(fn uint8) NameFilter {
	return func(n name.NAME) bool { return n.Function() == fn }
}

// FilterIndustryGroup matches on the NAME's IndustryGroup field.
func FilterIndustryGroup(ig uint8) NameFilter {
	return func(n name.NAME) bool { return n.IndustryGroup() == ig }
}

// FilterDeviceClass matches on the NAME's DeviceClass field.
func FilterDeviceClass(dc uint8) NameFilter {
	return func(n name.NAME) bool { return n.DeviceClass() == dc }
}

// FilterManufacturerCode matches on the NAME's ManufacturerCode field.
func FilterManufacturerCode(mc uint16) NameFilter {
	return func(n name.NAME) bool { return n.ManufacturerCode() == mc }
}

// FilterIdentityNumber matches on the NAME's IdentityNumber field.
func FilterIdentityNumber(id uint32) NameFilter {
	return func(n name.NAME) bool { return n.IdentityNumber() == id }
}

// PartneredControlFunction is an External CF the application cares
// about, recognized by NameFilter rather than by a fixed address.
type PartneredControlFunction struct {
	*ControlFunction
	filters []NameFilter

	// Callbacks is this partner's own per-PGN callback list (spec.md
	// §4.6: "invoke that partner's per-PGN callbacks"), distinct from
	// both the network manager's global and protocol registries.
	Callbacks callback.GlobalRegistry
}

// NewPartnered constructs a Partnered CF. It starts out with no
// claimed address and is not yet a member of the registry's active
// list; it becomes active once a claimed NAME satisfies Matches.
func NewPartnered(port uint8, filters ...NameFilter) *PartneredControlFunction {
	return &PartneredControlFunction{
		ControlFunction: New(0, port, TypePartnered),
		filters:         filters,
	}
}

// AddCallback registers fn for pgn on this partner.
func (p *PartneredControlFunction) AddCallback(pgn uint32, fn callback.Func, parent, token any) {
	p.Callbacks.Add(pgn, fn, parent, token)
}

// MatchesName reports whether n satisfies this partner's filters.
func (p *PartneredControlFunction) MatchesName(n name.NAME) bool {
	return Matches(p.filters, n)
}

// Adopt binds this partner to a freshly observed NAME and address,
// called once by the registry when a claim satisfies MatchesName.
func (p *PartneredControlFunction) Adopt(n name.NAME, address uint8) {
	p.name = n
	p.address = address
}
