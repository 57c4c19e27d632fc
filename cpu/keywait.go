package cpu

// KeyWaitState is the progress of an Fx0A key wait.
type KeyWaitState int

const (
	KEY_WAIT_IDLE     = KeyWaitState(0) // No key wait in progress.
	KEY_WAIT_SCANNING = KeyWaitState(1) // Waiting for any key to be held.
	KEY_WAIT_CAPTURED = KeyWaitState(2) // Key captured, waiting for its release.
)

func (state KeyWaitState) String() string {
	switch state {
	case KEY_WAIT_IDLE:
		return "idle"
	case KEY_WAIT_SCANNING:
		return "scanning"
	case KEY_WAIT_CAPTURED:
		return "captured"
	}
	return "invalid"
}

// KeyWait is the Fx0A state machine. The instruction is re-issued every
// cycle until the captured key is released.
type KeyWait struct {
	State KeyWaitState
	Key   uint8 // Captured key, valid in KEY_WAIT_CAPTURED.
}
