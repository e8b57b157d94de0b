// Package slots maps raw player inventory slot indices to the named region of
// the inventory they belong to.
package slots

import (
	"fmt"
	"sort"
)

type region struct {
	lo, hi int // inclusive
	name   string
}

// regions must stay sorted by lo and contiguous; Classify binary-searches it.
var regions = buildRegions()

func buildRegions() []region {
	r := []region{
		{0, 49, "inventory"},
		{50, 53, "coin"},
		{54, 57, "ammo"},
		{58, 58, "hand"},
		{59, 61, "armor"},
		{62, 68, "accessory"},
		{69, 72, "social armor"},
		{73, 78, "social accessory"},
		{79, 81, "dye armor"},
		{82, 88, "dye accessory"},
		{89, 93, "equipment"},
		{94, 98, "equipment dye"},
		{99, 138, "piggy bank"},
		{139, 178, "safe"},
		{179, 179, "trash"},
		{180, 219, "defender's forge"},
		{220, 259, "void bag/void vault"},
	}

	// Each loadout repeats the equipped armor/accessory block.
	loadout := []struct {
		size int
		name string
	}{
		{3, "armor"},
		{7, "accessory"},
		{3, "social armor"},
		{7, "social accessory"},
		{3, "dye armor"},
		{7, "dye accessory"},
	}
	next := 260
	for n := 1; n <= Loadouts; n++ {
		for _, part := range loadout {
			r = append(r, region{next, next + part.size - 1, fmt.Sprintf("%s (loadout %d)", part.name, n)})
			next += part.size
		}
	}
	return r
}

// Loadouts is the number of equipment loadout banks.
const Loadouts = 3

// Classify returns the region name for slot, or "unknown <slot>" when the
// slot lies outside every known region.
func Classify(slot int) string {
	i := sort.Search(len(regions), func(i int) bool { return regions[i].hi >= slot })
	if i < len(regions) && regions[i].lo <= slot {
		return regions[i].name
	}
	return fmt.Sprintf("unknown %d", slot)
}
