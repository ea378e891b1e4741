// Package isolog is the small structured-logging seam the network
// manager core logs diagnostic detail through (spec.md §7: "diagnostic
// detail is emitted via the logger"). It mirrors the original's
// CANStackLogger interface and is backed by go.uber.org/zap, the
// structured logger scionproto-scion uses throughout pkg/log.
package isolog

// Logger is the interface every core component logs through. The
// default implementation (NewZap) wraps a *zap.Logger; a no-op
// implementation (Nop) is useful for tests that don't want log noise.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// nop discards everything. It is the package-level default so that
// components never have to nil-check their logger.
type nop struct{}

func (nop) Debugf(string, ...any) {}
func (nop) Infof(string, ...any)  {}
func (nop) Warnf(string, ...any)  {}
func (nop) Errorf(string, ...any) {}

// Nop is a Logger that discards every call.
var Nop Logger = nop{}
