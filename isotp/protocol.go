// Package isotp is a reference Transport Protocol plugin implementing
// transport.Protocol (spec.md §6) over ISO 15765-2-style single
// nibble-coded First/Consecutive/Flow-Control framing. It is
// supplemental, not core: spec.md scopes concrete transport protocols
// out of the network manager itself, but ships this one so the
// dispatcher in package netmgr has something real to segment and
// reassemble end to end, the same relationship the teacher's own
// cmd/main.go has to package tp. Ported from tp/protocol.go's
// PDU/RxState/TxState/Params state-machine shape and tp/config.go's
// Config, and adapted from its original blocking
// TransportLayerLogic.Send/Recv calls to the non-blocking
// Offer/Initialize/Update contract transport.Protocol specifies.
package isotp

import (
	"sync"

	"github.com/vaelix/isonm/callback"
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/canid"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/transport"
)

const (
	pciSingleFrame      = 0x0
	pciFirstFrame       = 0x1
	pciConsecutiveFrame = 0x2
	pciFlowControl      = 0x3

	flowStatusContinue = 0x0
	flowStatusWait     = 0x1
	flowStatusOverflow = 0x2
)

// CallbackRegistrar is the narrow slice of netmgr.NetworkManager this
// plugin needs to receive Flow Control / First Frame / Consecutive
// Frame traffic. Declared locally (duck-typed, like cf.AddressClaimer)
// so isotp has no import-time dependency on netmgr.
type CallbackRegistrar interface {
	AddProtocolCallback(pgn uint32, fn callback.Func, parent, token any)
}

// OnReceived is invoked once an inbound segmented transfer is fully
// reassembled.
type OnReceived func(pgn uint32, payload []byte, source *cf.ControlFunction, port uint8)

// Protocol is the reference ISO-TP-style transport plugin.
type Protocol struct {
	hw    canhw.Hardware
	clock canhw.Clock
	cfg   Config

	onReceived OnReceived

	mu          sync.Mutex
	tx          map[uint32]*txTransfer
	rx          map[uint32]*rxTransfer
	initialized bool
}

// New constructs a Protocol bound to pgns: the set of PGNs it will
// offer to carry and will register protocol callbacks for. reg is
// typically the owning *netmgr.NetworkManager.
func New(reg CallbackRegistrar, hw canhw.Hardware, clock canhw.Clock, cfg Config, onReceived OnReceived, pgns ...uint32) *Protocol {
	p := &Protocol{
		hw:         hw,
		clock:      clock,
		cfg:        cfg,
		onReceived: onReceived,
		tx:         make(map[uint32]*txTransfer),
		rx:         make(map[uint32]*rxTransfer),
	}
	for _, pgn := range pgns {
		reg.AddProtocolCallback(pgn, p.onFrame, nil, p)
	}
	return p
}

type txTransfer struct {
	offer     transport.Offer
	remaining []byte
	seq       uint8
	awaitingF bool
	blockLeft int
	stMinMs   int
	nextSend  int64
	deadline  int64
}

type rxTransfer struct {
	pgn      uint32
	total    int
	data     []byte
	seq      uint8
	source   *cf.ControlFunction
	port     uint8
	priority uint8
	deadline int64
}

// Offer implements transport.Protocol. It accepts responsibility only
// for payloads too long for a single frame; the dispatcher's
// single-frame fast path handles everything else.
func (p *Protocol) Offer(o transport.Offer) bool {
	if o.Length <= canhw.DataLength {
		return false
	}
	if o.Buffer == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.tx[o.PGN]; busy {
		return false
	}

	now := p.clock.NowMs()
	ff := p.frameFirst(o)
	id, ok := p.encodeID(o.PGN, o.Priority, o.Source.Address(), destAddr(o.Destination))
	if !ok {
		return false
	}
	if !p.hw.SendFrame(canhw.Frame{
		Channel:    o.Source.Port(),
		Identifier: id,
		IsExtended: true,
		DataLength: canhw.DataLength,
		Data:       ff,
	}) {
		return false
	}

	p.tx[o.PGN] = &txTransfer{
		offer:     o,
		remaining: o.Buffer[6:],
		seq:       1,
		awaitingF: true,
		deadline:  now + p.cfg.TimeoutFC.Milliseconds(),
	}
	return true
}

func (p *Protocol) frameFirst(o transport.Offer) [canhw.DataLength]byte {
	var data [canhw.DataLength]byte
	data[0] = byte(pciFirstFrame<<4) | byte((o.Length>>8)&0x0F)
	data[1] = byte(o.Length & 0xFF)
	copy(data[2:], o.Buffer)
	return data
}

func (p *Protocol) encodeID(pgn uint32, priority, src, dst uint8) (uint32, bool) {
	return canid.Encode(priority, pgn, src, dst)
}

func destAddr(dest *cf.ControlFunction) uint8 {
	if dest == nil {
		return canhw.BroadcastAddress
	}
	return dest.Address()
}

// Initialize implements transport.Protocol.
func (p *Protocol) Initialize(_ transport.Badge) {
	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()
}

// IsInitialized implements transport.Protocol.
func (p *Protocol) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Update implements transport.Protocol: advance every in-flight
// transfer by one tick, pacing Consecutive Frames by STmin and failing
// transfers that blew past their deadline.
func (p *Protocol) Update(_ transport.Badge) {
	now := p.clock.NowMs()

	p.mu.Lock()
	var toComplete []*txTransfer
	for pgn, t := range p.tx {
		if t.awaitingF {
			if now >= t.deadline {
				toComplete = append(toComplete, t)
				delete(p.tx, pgn)
			}
			continue
		}
		if now < t.nextSend {
			continue
		}
		if len(t.remaining) == 0 {
			toComplete = append(toComplete, t)
			delete(p.tx, pgn)
			continue
		}
		p.sendNextCF(pgn, t, now)
		if t.blockLeft == 0 && p.cfg.BlockSize > 0 {
			t.awaitingF = true
			t.deadline = now + p.cfg.TimeoutFC.Milliseconds()
		} else {
			t.nextSend = now + int64(t.stMinMs)
		}
		if len(t.remaining) == 0 {
			toComplete = append(toComplete, t)
			delete(p.tx, pgn)
		}
	}
	for pgn, r := range p.rx {
		if now >= r.deadline {
			delete(p.rx, pgn)
		}
	}
	p.mu.Unlock()

	for _, t := range toComplete {
		if t.offer.OnComplete != nil {
			t.offer.OnComplete(len(t.remaining) == 0)
		}
	}
}

func (p *Protocol) sendNextCF(pgn uint32, t *txTransfer, now int64) {
	n := clamp7(t.remaining)
	var data [canhw.DataLength]byte
	data[0] = byte(pciConsecutiveFrame<<4) | (t.seq & 0x0F)
	copy(data[1:], t.remaining[:n])
	t.remaining = t.remaining[n:]
	t.seq = (t.seq + 1) & 0x0F
	if t.blockLeft > 0 {
		t.blockLeft--
	}

	id, ok := p.encodeID(pgn, t.offer.Priority, t.offer.Source.Address(), destAddr(t.offer.Destination))
	if !ok {
		return
	}
	p.hw.SendFrame(canhw.Frame{
		Channel:    t.offer.Source.Port(),
		Identifier: id,
		IsExtended: true,
		DataLength: canhw.DataLength,
		Data:       data,
	})
}

func clamp7(b []byte) int {
	if len(b) > 7 {
		return 7
	}
	return len(b)
}

// onFrame is the protocol callback registered for every PGN this
// plugin was constructed with. It demultiplexes by the PCI nibble in
// the first payload byte.
func (p *Protocol) onFrame(msg callback.Message, _ any) {
	full, ok := msg.(frameView)
	if !ok {
		return
	}
	payload := full.RawPayload()
	if len(payload) == 0 {
		return
	}
	pci := payload[0] >> 4

	switch pci {
	case pciFlowControl:
		p.onFlowControl(msg.PGN(), payload)
	case pciFirstFrame:
		p.onFirstFrame(msg.PGN(), msg.Port(), full, payload)
	case pciConsecutiveFrame:
		p.onConsecutiveFrame(msg.PGN(), payload)
	}
}

// frameView is the extra surface netmgr.Message provides beyond
// callback.Message, needed to resolve source CF and priority.
type frameView interface {
	RawPayload() []byte
	SourceCF() *cf.ControlFunction
	Priority() uint8
}

func (p *Protocol) onFlowControl(pgn uint32, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tx[pgn]
	if !ok || !t.awaitingF {
		return
	}
	if len(payload) < 3 {
		return
	}
	status := payload[0] & 0x0F
	switch status {
	case flowStatusOverflow:
		// Expire the transfer so the next Update removes it and reports
		// OnComplete(false).
		t.deadline = 0
	case flowStatusWait:
		t.deadline = p.clock.NowMs() + p.cfg.TimeoutFC.Milliseconds()
	case flowStatusContinue:
		bs := int(payload[1])
		stMin := int(payload[2])
		if bs == 0 {
			bs = p.cfg.BlockSize
		}
		t.blockLeft = bs
		t.stMinMs = stMin
		t.awaitingF = false
		t.nextSend = p.clock.NowMs()
	}
}

func (p *Protocol) onFirstFrame(pgn uint32, port uint8, full frameView, payload []byte) {
	if len(payload) < 8 {
		return
	}
	total := (int(payload[0]&0x0F) << 8) | int(payload[1])

	p.mu.Lock()
	p.rx[pgn] = &rxTransfer{
		pgn:      pgn,
		total:    total,
		data:     append([]byte(nil), payload[2:8]...),
		seq:      1,
		source:   full.SourceCF(),
		port:     port,
		priority: full.Priority(),
		deadline: p.clock.NowMs() + p.cfg.TimeoutCF.Milliseconds(),
	}
	p.mu.Unlock()

	// Respond Clear-To-Send immediately; this reference plugin does
	// not exercise receiver-side block pacing.
	var fc [canhw.DataLength]byte
	fc[0] = byte(pciFlowControl << 4)
	fc[1] = byte(p.cfg.BlockSize)
	fc[2] = byte(p.cfg.STminMs)
	var srcAddr uint8 = canhw.NullAddress
	if full.SourceCF() != nil {
		srcAddr = full.SourceCF().Address()
	}
	id, ok := p.encodeID(pgn, full.Priority(), canhw.NullAddress, srcAddr)
	if ok {
		p.hw.SendFrame(canhw.Frame{Channel: port, Identifier: id, IsExtended: true, DataLength: canhw.DataLength, Data: fc})
	}
}

func (p *Protocol) onConsecutiveFrame(pgn uint32, payload []byte) {
	p.mu.Lock()
	r, ok := p.rx[pgn]
	if !ok {
		p.mu.Unlock()
		return
	}
	seq := payload[0] & 0x0F
	if seq != r.seq {
		delete(p.rx, pgn)
		p.mu.Unlock()
		return
	}
	remaining := r.total - len(r.data)
	n := clamp7(payload[1:])
	if n > remaining {
		n = remaining
	}
	r.data = append(r.data, payload[1:1+n]...)
	r.seq = (r.seq + 1) & 0x0F
	done := len(r.data) >= r.total
	if done {
		delete(p.rx, pgn)
	}
	onReceived := p.onReceived
	var out []byte
	var src *cf.ControlFunction
	var port uint8
	if done {
		out = r.data
		src = r.source
		port = r.port
	}
	p.mu.Unlock()

	if done && onReceived != nil {
		onReceived(pgn, out, src, port)
	}
}
