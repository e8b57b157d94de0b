// Package game holds the contract between the watcher and the game server
// that hosts it: player snapshots, colors, and the events the host emits.
package game

import "fmt"

// Everyone addresses a message to every connected player.
const Everyone = -1

// BypassPermission exempts its holder from all inventory watching.
const BypassPermission = "beholder.bypass"

// Color is an RGB triple as the game client understands it.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as a #rrggbb string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Packed returns the color in the client's packed uint32 form (ABGR).
func (c Color) Packed() uint32 {
	return 0xFF000000 | uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
}

var (
	Yellow = Color{R: 255, G: 255, B: 0}
	Red    = Color{R: 255, G: 0, B: 0}
)

// Player is a point-in-time view of a connected player.
type Player struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Group       string   `json:"group"`
	LoggedIn    bool     `json:"loggedIn"`
	X           float32  `json:"x"`
	Y           float32  `json:"y"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether perm was granted to the player.
func (p Player) HasPermission(perm string) bool {
	for _, have := range p.Permissions {
		if have == perm || have == "*" {
			return true
		}
	}
	return false
}
