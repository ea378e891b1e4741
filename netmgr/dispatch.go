package netmgr

import (
	"github.com/vaelix/isonm/canhw"
	"github.com/vaelix/isonm/canid"
	"github.com/vaelix/isonm/cf"
	"github.com/vaelix/isonm/name"
	"github.com/vaelix/isonm/transport"
)

// Send implements the Transmit Dispatcher, spec.md §4.2. It returns
// true if the transmission was accepted (by a transport, or by the
// single-frame fast path), false on any precondition failure or
// hardware rejection — diagnostic detail goes to the logger, never to
// the caller, per spec.md §7.
func (nm *NetworkManager) Send(pgn uint32, buffer []byte, length int, source *cf.Internal, dest *cf.ControlFunction, priority uint8, onComplete transport.OnComplete, onChunk transport.OnChunk) bool {
	if err := nm.validateSend(buffer, length, priority, source, pgn, onChunk); err != nil {
		nm.log.Warnf("Send rejected: %v", err)
		return false
	}

	offer := transport.Offer{
		PGN:         pgn,
		Buffer:      buffer,
		Length:      length,
		Source:      source,
		Destination: dest,
		Priority:    priority,
		OnComplete:  onComplete,
		OnChunk:     onChunk,
	}
	if p := nm.transports.Offer(offer); p != nil {
		// The accepting protocol owns completion; it must not have
		// called onComplete synchronously (spec.md §4.2 step 3).
		return true
	}

	if buffer == nil {
		nm.log.Warnf("Send rejected: %v", ProtocolRejectedError{NewSendError("payload has no buffer for the single-frame path and no protocol accepted it")})
		return false
	}
	if length > canhw.DataLength {
		nm.log.Warnf("Send rejected: %v", ProtocolRejectedError{NewSendError("payload exceeds single-frame size and no protocol accepted it")})
		return false
	}

	destAddr := uint8(canhw.BroadcastAddress)
	if dest != nil {
		if !dest.HasValidAddress() {
			nm.log.Warnf("Send rejected: %v", NoRouteError{NewSendError("destination has no valid address")})
			return false
		}
		destAddr = dest.Address()
	}

	id, ok := canid.Encode(priority, pgn, source.Address(), destAddr)
	if !ok {
		nm.log.Warnf("Send rejected: %v", InvalidInputError{NewSendError("identifier could not be encoded")})
		return false
	}

	frame := canhw.Frame{
		Channel:    source.Port(),
		Identifier: id,
		IsExtended: true,
		DataLength: uint8(length),
	}
	copy(frame.Data[:], buffer)

	success := nm.hw.SendFrame(frame)
	if !success {
		nm.log.Warnf("Send rejected: %v", HardwareSendFailedError{NewSendError("hardware layer rejected frame")})
	}
	nm.mets.FramesSent.Inc()

	// The single-frame fast path reports completion synchronously
	// (spec.md §4.2 step 3). SPEC_FULL.md §9 resolves the original's
	// apparent bug of reporting success=true even on hardware failure:
	// here the reported outcome matches what actually happened, and
	// Send's own return value carries the same result.
	if onComplete != nil {
		onComplete(success)
	}
	return success
}

func (nm *NetworkManager) validateSend(buffer []byte, length int, priority uint8, source *cf.Internal, pgn uint32, onChunk transport.OnChunk) error {
	if source == nil {
		return InvalidInputError{NewSendError("source control function is nil")}
	}
	if buffer == nil && onChunk == nil {
		return InvalidInputError{NewSendError("no buffer and no chunk source")}
	}
	if length <= 0 || length > canhw.AbsoluteMaxMessageLength {
		return InvalidInputError{NewSendError("length out of range")}
	}
	if priority > 7 {
		return InvalidInputError{NewSendError("priority out of range")}
	}
	if pgn != AddressClaimPGN && !source.HasValidAddress() {
		return NoValidAddressError{NewSendError("source has not completed address claiming")}
	}
	return nil
}

// SendAddressClaim implements addrclaim.Sender: it builds and hands
// off an 8-byte AddressClaim frame directly to the hardware, bypassing
// the transport/dispatch gate above (address-claim frames are always
// single-frame and are the one case spec.md §4.2 exempts from holding
// a valid address already).
func (nm *NetworkManager) SendAddressClaim(n name.NAME, port, address uint8) bool {
	id, ok := canid.Encode(6, AddressClaimPGN, address, canhw.BroadcastAddress)
	if !ok {
		nm.log.Warnf("address claim encode failed for addr %d", address)
		return false
	}
	frame := canhw.Frame{
		Channel:    port,
		Identifier: id,
		IsExtended: true,
		DataLength: canhw.DataLength,
		Data:       n.Encode(),
	}
	ok = nm.hw.SendFrame(frame)
	if ok {
		nm.mets.ClaimsSent.Inc()
	}
	return ok
}

// SendRequestForClaim implements addrclaim.Sender: it broadcasts a
// J1939 Request PGN asking every node on the bus to (re)announce its
// current address claim. The state machine sends this before
// committing to its preferred address, so it can observe any
// conflicting claim during the contention window rather than finding
// out only after it has already claimed (spec.md §4.4,
// SendingRequestForClaim).
func (nm *NetworkManager) SendRequestForClaim(port uint8) bool {
	id, ok := canid.Encode(6, RequestPGN, canhw.NullAddress, canhw.BroadcastAddress)
	if !ok {
		nm.log.Warnf("request-for-claim encode failed on port %d", port)
		return false
	}
	frame := canhw.Frame{
		Channel:    port,
		Identifier: id,
		IsExtended: true,
		DataLength: 3,
	}
	frame.Data[0] = byte(AddressClaimPGN)
	frame.Data[1] = byte(AddressClaimPGN >> 8)
	frame.Data[2] = byte(AddressClaimPGN >> 16)
	return nm.hw.SendFrame(frame)
}
