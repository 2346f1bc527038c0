// Package queues finds the queue families a device needs and drives the
// graphics and present queues for a fixed number of frames in flight.
package queues

import (
	"github.com/foxmulder900/vulkan-base/optional"
)

// FamilyIndices records which queue families of a physical device draw and
// present. Either may be unset while the families are being searched.
type FamilyIndices struct {
	// Graphics supports graphics commands.
	Graphics optional.Optional[uint32]

	// Present can present images to the window surface.
	Present optional.Optional[uint32]
}

// IsComplete reports whether both families were found.
func (f FamilyIndices) IsComplete() bool {
	return f.Graphics.HasValue() && f.Present.HasValue()
}

// Unique returns the set family indexes without duplicates, graphics first.
// A device needs one queue create info per returned family.
func (f FamilyIndices) Unique() []uint32 {
	var families []uint32
	if f.Graphics.HasValue() {
		families = append(families, f.Graphics.Get())
	}
	if f.Present.HasValue() &&
		(!f.Graphics.HasValue() || f.Present.Get() != f.Graphics.Get()) {
		families = append(families, f.Present.Get())
	}
	return families
}

// Shared reports whether graphics and present use the same family.
func (f FamilyIndices) Shared() bool {
	return f.IsComplete() && f.Graphics.Get() == f.Present.Get()
}
