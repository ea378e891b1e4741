package netmgr

import (
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/cf"
)

// processForCallbacks implements spec.md §4.6: broadcast messages (no
// destination CF, and either a resolved source or a PGN-Request with
// null source) fan out to every matching global callback; messages
// addressed to a local Internal CF fan out instead to each matching
// Partnered CF's own per-PGN callbacks, partners scanned in
// registration order.
func (nm *NetworkManager) processForCallbacks(msg *Message) {
	if msg.Destination == nil && (msg.Source != nil || (msg.PGN() == RequestPGN && msg.Decoded.Source == canhw.NullAddress)) {
		nm.globalCB.Invoke(msg)
		return
	}

	if !nm.isLocalInternal(msg.Destination) {
		return
	}
	for _, p := range nm.reg.Partners() {
		if p.Port() != msg.PortIndex {
			continue
		}
		p.Callbacks.Invoke(msg)
	}
}

func (nm *NetworkManager) isLocalInternal(dest *cf.ControlFunction) bool {
	if dest == nil {
		return false
	}
	for _, internal := range nm.internals {
		if internal.ControlFunction == dest {
			return true
		}
	}
	return false
}
