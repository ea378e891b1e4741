// Package mockhw is an in-memory loopback implementation of
// canhw.Hardware, adapted from the teacher's driver.MockCanMix (a
// darwin-only virtual CANDriver used for development without real
// hardware). This version drops the platform build tag and the
// CANDriver-specific channel plumbing, and implements canhw.Hardware
// directly so it can back tests and the demo binary on any platform.
package mockhw

import (
	"sync"
	"time"

	"github.com/vaelix/isonm/canhw"
)

// WriteRecord captures one frame the core handed to SendFrame.
type WriteRecord struct {
	Frame     canhw.Frame
	Timestamp time.Time
}

// Response is a canned auto-reply: whenever a sent frame's identifier
// matches Trigger, Reply is injected back as a received frame after
// Delay.
type Response struct {
	Trigger uint32
	Reply   canhw.Frame
	Delay   time.Duration
}

// Hardware is a loopback canhw.Hardware for tests and the demo binary.
// SendFrame never reaches real wire; it records the frame and, if
// configured, schedules a canned response to be delivered to the
// registered receive handler.
type Hardware struct {
	mu        sync.Mutex
	handler   func(canhw.Frame)
	running   bool
	writeLog  []WriteRecord
	responses []Response
	rejectAll bool
}

// New constructs a stopped loopback hardware instance. Call Start
// before SendFrame will accept frames.
func New() *Hardware {
	return &Hardware{}
}

// Start marks the device ready to accept frames.
func (h *Hardware) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = true
}

// Stop marks the device unable to accept frames.
func (h *Hardware) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
}

// RejectSends makes every subsequent SendFrame call fail, for
// exercising the HardwareSendFailed path.
func (h *Hardware) RejectSends(reject bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rejectAll = reject
}

// SetReceiveHandler implements canhw.Hardware.
func (h *Hardware) SetReceiveHandler(handler func(canhw.Frame)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

// SendFrame implements canhw.Hardware. It records the frame and fires
// any matching canned Response asynchronously.
func (h *Hardware) SendFrame(f canhw.Frame) bool {
	h.mu.Lock()
	if !h.running || h.rejectAll {
		h.mu.Unlock()
		return false
	}
	h.writeLog = append(h.writeLog, WriteRecord{Frame: f, Timestamp: time.Now()})
	var matched []Response
	for _, r := range h.responses {
		if r.Trigger == f.Identifier {
			matched = append(matched, r)
		}
	}
	h.mu.Unlock()

	for _, r := range matched {
		go func(resp Response) {
			if resp.Delay > 0 {
				time.Sleep(resp.Delay)
			}
			h.InjectFrame(resp.Reply)
		}(r)
	}
	return true
}

// InjectFrame delivers f to the registered receive handler, as if it
// had arrived on the wire. Safe to call from any goroutine, matching
// the real hardware callback's cross-thread contract (spec.md §5).
func (h *Hardware) InjectFrame(f canhw.Frame) {
	h.mu.Lock()
	handler := h.handler
	h.mu.Unlock()
	if handler != nil {
		handler(f)
	}
}

// AddResponse registers a canned auto-reply.
func (h *Hardware) AddResponse(r Response) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, r)
}

// WriteLog returns a copy of every frame SendFrame has recorded.
func (h *Hardware) WriteLog() []WriteRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]WriteRecord{}, h.writeLog...)
}

// ClearWriteLog discards the recorded write log.
func (h *Hardware) ClearWriteLog() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeLog = nil
}

// Clock is a manually-advanced canhw.Clock for deterministic tests of
// the address-claim state machine's timer-driven transitions.
type Clock struct {
	mu  sync.Mutex
	now int64
}

// NewClock constructs a Clock starting at 0ms.
func NewClock() *Clock { return &Clock{} }

// NowMs implements canhw.Clock.
func (c *Clock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by deltaMs.
func (c *Clock) Advance(deltaMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += deltaMs
}
