package io

// Keypad is the state of the 16 key hexadecimal keypad, indexed by key
// value. Key values are masked to the low nibble.
//
//	+---+---+---+---+
//	| 1 | 2 | 3 | C |
//	| 4 | 5 | 6 | D |
//	| 7 | 8 | 9 | E |
//	| A | 0 | B | F |
//	+---+---+---+---+
type Keypad [KEY_COUNT]bool

// Press marks a key as held.
func (kp *Keypad) Press(key uint8) {
	kp[key&0xf] = true
}

// Release marks a key as not held.
func (kp *Keypad) Release(key uint8) {
	kp[key&0xf] = false
}

// Pressed returns true if the key is held.
func (kp *Keypad) Pressed(key uint8) bool {
	return kp[key&0xf]
}

// First returns the lowest numbered held key.
func (kp *Keypad) First() (key uint8, ok bool) {
	for n, held := range kp {
		if held {
			return uint8(n), true
		}
	}
	return
}

// Reset releases all keys.
func (kp *Keypad) Reset() {
	clear(kp[:])
}
