package netmgr

// messageOrDefault mirrors the teacher's tp.messageOrDefault helper:
// return msg if the caller supplied one, otherwise a kind-specific
// default.
func messageOrDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

// SendError is the common base every dispatch-path error embeds, in
// the style of the teacher's tp.IsoTpError embedding chain. Send's
// public signature still collapses every kind to a bool (spec.md §7);
// these types exist so the injected Logger can report which kind
// occurred.
type SendError struct {
	msg string
}

func NewSendError(msg string) SendError { return SendError{msg: msg} }

func (e SendError) Error() string { return messageOrDefault(e.msg, "send failed") }

// InvalidInputError — null buffer with no chunk callback, length 0 or
// > ABSOLUTE_MAX_MESSAGE_LENGTH, or priority > 7.
type InvalidInputError struct{ SendError }

func (e InvalidInputError) Error() string {
	return messageOrDefault(e.msg, "invalid input to Send")
}

// NoValidAddressError — the source CF has not completed address
// claiming.
type NoValidAddressError struct{ SendError }

func (e NoValidAddressError) Error() string {
	return messageOrDefault(e.msg, "source control function has no valid address")
}

// NoRouteError — the destination CF has NullAddress.
type NoRouteError struct{ SendError }

func (e NoRouteError) Error() string {
	return messageOrDefault(e.msg, "destination control function has no route")
}

// HardwareSendFailedError — the hardware layer rejected the frame.
type HardwareSendFailedError struct{ SendError }

func (e HardwareSendFailedError) Error() string {
	return messageOrDefault(e.msg, "hardware rejected frame")
}

// ProtocolRejectedError — every protocol declined and the single-frame
// fallback does not apply (payload too long for one frame, or supplied
// only through an OnChunk callback with no buffer).
type ProtocolRejectedError struct{ SendError }

func (e ProtocolRejectedError) Error() string {
	return messageOrDefault(e.msg, "no transport protocol accepted the transmission")
}
