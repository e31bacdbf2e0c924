package tile

import "fmt"

// Slot identifies one of the payload kinds a tile may hold.
type Slot uint8

const (
	SlotColor Slot = iota
	SlotDepth
	SlotIntensity

	slotCount
)

// Slots lists all slots in load order: Color first, then Depth, then
// Intensity.
var Slots = [slotCount]Slot{SlotColor, SlotDepth, SlotIntensity}

func (s Slot) String() string {
	switch s {
	case SlotColor:
		return "color"
	case SlotDepth:
		return "depth"
	case SlotIntensity:
		return "intensity"
	default:
		return fmt.Sprintf("slot(%d)", uint8(s))
	}
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	return s < slotCount
}
