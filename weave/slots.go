package weave

// SlotMap relocates advice local slots past the target's argument slots.
// Slot 0 (the receiver) is shared and never moves.
type SlotMap struct {
	width int
}

// NewSlotMap returns the map for a target whose arguments occupy width slots.
func NewSlotMap(width int) SlotMap {
	return SlotMap{width: width}
}

// Map returns the shifted slot for s.
func (m SlotMap) Map(s int) int {
	if s == 0 {
		return 0
	}
	return s + m.width
}

// Width returns the argument slot width the map shifts by.
func (m SlotMap) Width() int {
	return m.width
}
