package match

import "strconv"

// SlotIndex names one of the two fixed seats.
type SlotIndex int

const (
	Slot0  SlotIndex = 0
	Slot1  SlotIndex = 1
	NoSlot SlotIndex = -1
)

const slotCount = 2

func (s SlotIndex) Valid() bool {
	return s == Slot0 || s == Slot1
}

// Other returns the opposing seat. It is only meaningful for valid slots.
func (s SlotIndex) Other() SlotIndex {
	return 1 - s
}

func (s SlotIndex) String() string {
	if !s.Valid() {
		return "none"
	}
	return strconv.Itoa(int(s))
}
