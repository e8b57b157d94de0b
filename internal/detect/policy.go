// Package detect turns host inventory events into detections. It keeps the
// per-player sessions up to date and applies the stack threshold and item
// exclusion rules.
package detect

import (
	"fmt"

	"github.com/beholder/backend/internal/config"
	"github.com/beholder/backend/internal/session"
)

// Candidate is one inventory interaction awaiting a policy decision.
type Candidate struct {
	PlayerName string
	Action     session.Action
	ItemType   int
	ItemName   string
	Stack      int

	// Region is the inventory region for Inventory actions.
	Region string
	// ChestX and ChestY locate the open chest for Chest actions.
	ChestX, ChestY int
}

// Exceeds applies the threshold. Slot writes alert at the threshold itself;
// items crossing the ground only alert above it.
func Exceeds(a session.Action, stack, threshold int) bool {
	switch a {
	case session.Drop, session.Pick:
		return stack > threshold
	default:
		return stack >= threshold
	}
}

// Evaluate decides whether c is a detection under cfg and, if so, returns the
// message describing it.
func Evaluate(cfg *config.Plugin, c Candidate) (string, bool) {
	if cfg.IsExcluded(c.ItemType) {
		return "", false
	}
	if !Exceeds(c.Action, c.Stack, cfg.StackCheckThreshold) {
		return "", false
	}
	return Describe(c), true
}

// Describe formats the alert text for c.
func Describe(c Candidate) string {
	switch c.Action {
	case session.Chest:
		return fmt.Sprintf("<%s> Putting %d %s into [Chest] at %d : %d", c.PlayerName, c.Stack, c.ItemName, c.ChestX, c.ChestY)
	case session.Pick:
		return fmt.Sprintf("<%s> Taking %d %s [from the ground]", c.PlayerName, c.Stack, c.ItemName)
	case session.Drop:
		return fmt.Sprintf("<%s> Dropped %d %s [to the ground]", c.PlayerName, c.Stack, c.ItemName)
	default:
		return fmt.Sprintf("<%s> have %d %s in [%s]", c.PlayerName, c.Stack, c.ItemName, c.Region)
	}
}
