package isotp

import "time"

// Config mirrors the teacher's tp.Config/tp.DefaultConfig shape,
// narrowed to the parameters this reference plugin actually drives:
// block size, separation time, and the flow-control/consecutive-frame
// timeouts spec.md §4.2.1 calls out.
type Config struct {
	// BlockSize is how many Consecutive Frames to send before waiting
	// for the next Flow Control frame. 0 means "send until done".
	BlockSize int
	// STminMs is the minimum separation time between Consecutive
	// Frames, in milliseconds.
	STminMs int
	// TimeoutFC bounds how long a sender waits for Flow Control after
	// a First Frame before giving up.
	TimeoutFC time.Duration
	// TimeoutCF bounds how long a receiver waits for the next
	// Consecutive Frame before giving up on a reassembly.
	TimeoutCF time.Duration
	// WFTMax is range-checked by Validate only. The sender does not
	// count Flow-Control Wait frames: each Wait restarts the TimeoutFC
	// deadline, with no limit on how many are accepted.
	WFTMax int
}

// DefaultConfig returns the ISO 15765-2 recommended defaults, as
// tp.DefaultConfig does for the teacher's own stack.
func DefaultConfig() Config {
	return Config{
		BlockSize: 0,
		STminMs:   20,
		TimeoutFC: 1000 * time.Millisecond,
		TimeoutCF: 1000 * time.Millisecond,
		WFTMax:    0,
	}
}

// Validate checks parameter ranges, in the style of tp.Config.Validate.
func (c Config) Validate() error {
	if c.BlockSize < 0 || c.BlockSize > 255 {
		return NewProtocolError("block size out of range")
	}
	if c.STminMs < 0 || c.STminMs > 127 {
		return NewProtocolError("STmin out of range")
	}
	if c.WFTMax < 0 {
		return NewProtocolError("WFTMax out of range")
	}
	return nil
}
