package session

import (
	"encoding/json"
	"fmt"
)

// Action classifies a single observed inventory interaction.
type Action int

const (
	Inventory Action = iota // write to the player's own inventory slot
	Chest                   // write to a slot of the open chest
	Drop                    // item thrown to the ground
	Pick                    // item taken from the ground
)

var actionNames = map[Action]string{
	Inventory: "Inventory",
	Chest:     "Chest",
	Drop:      "Drop",
	Pick:      "Pick",
}

var actionFromName = map[string]Action{
	"Inventory": Inventory,
	"Chest":     Chest,
	"Drop":      Drop,
	"Pick":      Pick,
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "Unknown"
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := actionFromName[s]
	if !ok {
		return fmt.Errorf("unknown action %q", s)
	}
	*a = v
	return nil
}

// DropAction tells a pick-up from a drop by the item's reported velocity:
// only an item with no velocity on either axis was taken from the ground.
func DropAction(vx, vy float32) Action {
	if vx == 0 && vy == 0 {
		return Pick
	}
	return Drop
}

// ActionRecord is one entry of a player's rolling action history.
type ActionRecord struct {
	Action   Action `json:"action"`
	Slot     int    `json:"slot"`
	ItemType int    `json:"itemType"`
	ItemName string `json:"itemName"`
	Stack    int    `json:"stack"`
}

// String serializes the record as kind;slot;item;stack.
func (r ActionRecord) String() string {
	return fmt.Sprintf("%s;%d;%s;%d", r.Action, r.Slot, r.ItemName, r.Stack)
}
