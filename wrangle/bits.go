package wrangle

import (
	"fmt"
)

type bits32 uint32

func (v bits32) String() string {
	return fmt.Sprintf("0b%032b", v)
}

// Hex formats the value as a fixed-width hex literal for an instruction of
// the given width.
func (v bits32) Hex(width Width) string {
	if width <= 16 {
		return fmt.Sprintf("0x%04x", uint32(v))
	}
	return fmt.Sprintf("0x%08x", uint32(v))
}

func rangeMask(top, bottom uint) bits32 {
	return bits32((uint64(1) << (top + 1)) - (uint64(1) << bottom))
}
