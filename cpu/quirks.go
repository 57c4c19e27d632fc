package cpu

import (
	"iter"
	"maps"
	"slices"
)

// Quirks selects between the behaviours that differ across CHIP-8
// implementations.
type Quirks struct {
	LogicResetsVF        bool // 8xy1, 8xy2, 8xy3 clear VF.
	ShiftUsesVY          bool // 8xy6, 8xyE shift Vy into Vx, instead of Vx in place.
	LoadStoreIncrementsI bool // Fx55, Fx65 leave I advanced by x+1.
	JumpUsesVX           bool // Bxnn jumps to xnn + Vx, instead of nnn + V0.
}

// QUIRKS_DEFAULT is the profile expected by the CHIP-8 test suite.
const QUIRKS_DEFAULT = "chip8"

var quirksProfiles = map[string]Quirks{
	"chip8": {
		LogicResetsVF:        true,
		ShiftUsesVY:          true,
		LoadStoreIncrementsI: true,
	},
	"schip": {
		JumpUsesVX: true,
	},
	"xochip": {
		ShiftUsesVY:          true,
		LoadStoreIncrementsI: true,
	},
}

// DefaultQuirks returns the QUIRKS_DEFAULT profile.
func DefaultQuirks() Quirks {
	return quirksProfiles[QUIRKS_DEFAULT]
}

// QuirksProfile looks up a named quirks profile.
func QuirksProfile(name string) (quirks Quirks, err error) {
	quirks, ok := quirksProfiles[name]
	if !ok {
		err = ErrQuirksProfile
	}
	return
}

// QuirksProfiles returns the sorted names of the known profiles.
func QuirksProfiles() iter.Seq[string] {
	return slices.Values(slices.Sorted(maps.Keys(quirksProfiles)))
}
