package slots

import (
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		slot int
		want string
	}{
		{0, "inventory"},
		{49, "inventory"},
		{50, "coin"},
		{53, "coin"},
		{54, "ammo"},
		{57, "ammo"},
		{58, "hand"},
		{59, "armor"},
		{61, "armor"},
		{62, "accessory"},
		{68, "accessory"},
		{69, "social armor"},
		{72, "social armor"},
		{73, "social accessory"},
		{78, "social accessory"},
		{79, "dye armor"},
		{81, "dye armor"},
		{82, "dye accessory"},
		{88, "dye accessory"},
		{89, "equipment"},
		{93, "equipment"},
		{94, "equipment dye"},
		{98, "equipment dye"},
		{99, "piggy bank"},
		{138, "piggy bank"},
		{139, "safe"},
		{178, "safe"},
		{179, "trash"},
		{180, "defender's forge"},
		{219, "defender's forge"},
		{220, "void bag/void vault"},
		{259, "void bag/void vault"},
		{260, "armor (loadout 1)"},
		{262, "armor (loadout 1)"},
		{263, "accessory (loadout 1)"},
		{269, "accessory (loadout 1)"},
		{270, "social armor (loadout 1)"},
		{273, "social accessory (loadout 1)"},
		{280, "dye armor (loadout 1)"},
		{283, "dye accessory (loadout 1)"},
		{289, "dye accessory (loadout 1)"},
		{290, "armor (loadout 2)"},
		{293, "accessory (loadout 2)"},
		{300, "social armor (loadout 2)"},
		{303, "social accessory (loadout 2)"},
		{310, "dye armor (loadout 2)"},
		{313, "dye accessory (loadout 2)"},
		{319, "dye accessory (loadout 2)"},
		{320, "armor (loadout 3)"},
		{323, "accessory (loadout 3)"},
		{330, "social armor (loadout 3)"},
		{333, "social accessory (loadout 3)"},
		{340, "dye armor (loadout 3)"},
		{343, "dye accessory (loadout 3)"},
		{349, "dye accessory (loadout 3)"},
	}

	for _, tt := range tests {
		if got := Classify(tt.slot); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.slot, got, tt.want)
		}
	}
}

func TestClassifyUnknown(t *testing.T) {
	tests := []struct {
		slot int
		want string
	}{
		{-1, "unknown -1"},
		{350, "unknown 350"},
		{10000, "unknown 10000"},
		{math.MinInt32, "unknown -2147483648"},
	}
	for _, tt := range tests {
		if got := Classify(tt.slot); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.slot, got, tt.want)
		}
	}
}

func TestRegionsContiguous(t *testing.T) {
	if regions[0].lo != 0 {
		t.Fatalf("first region starts at %d, want 0", regions[0].lo)
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].lo != regions[i-1].hi+1 {
			t.Errorf("region %q starts at %d, previous ends at %d", regions[i].name, regions[i].lo, regions[i-1].hi)
		}
		if regions[i].hi < regions[i].lo {
			t.Errorf("region %q has hi %d < lo %d", regions[i].name, regions[i].hi, regions[i].lo)
		}
	}
	if last := regions[len(regions)-1].hi; last != 349 {
		t.Errorf("last region ends at %d, want 349", last)
	}
}
