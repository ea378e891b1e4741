package isotp

// Grounded on the teacher's tp.IsoTpError / messageOrDefault
// embedding chain (tp/errors.go). Only ProtocolError is returned today,
// by Config.Validate; the timeout, sequence and length kinds are
// declared but no code path in this plugin constructs them.
func messageOrDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

type ProtocolError struct{ msg string }

func NewProtocolError(msg string) ProtocolError { return ProtocolError{msg: msg} }

func (e ProtocolError) Error() string { return messageOrDefault(e.msg, "isotp error") }

type FlowControlTimeoutError struct{ ProtocolError }

func (e FlowControlTimeoutError) Error() string {
	return messageOrDefault(e.msg, "flow control frame not received in time")
}

type ConsecutiveFrameTimeoutError struct{ ProtocolError }

func (e ConsecutiveFrameTimeoutError) Error() string {
	return messageOrDefault(e.msg, "consecutive frame not received in time")
}

type WrongSequenceNumberError struct{ ProtocolError }

func (e WrongSequenceNumberError) Error() string {
	return messageOrDefault(e.msg, "wrong sequence number in consecutive frame")
}

type FrameTooLongError struct{ ProtocolError }

func (e FrameTooLongError) Error() string {
	return messageOrDefault(e.msg, "first frame length exceeds maximum frame size")
}
