package isometrics

import "testing"

func TestNopMetricsAreUsable(t *testing.T) {
	m := NewNop()
	// Every counter/gauge must be safe to touch even though nothing
	// observes it; this is what netmgr.New defaults to.
	m.FramesSent.Inc()
	m.FramesReceived.Inc()
	m.FramesDropped.Inc()
	m.ClaimsSent.Inc()
	m.ClaimsObserved.Inc()
	m.QueueDepth.Set(3)
}
