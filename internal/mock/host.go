package mock

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/beholder/backend/internal/game"
)

// Outbound is a message the watcher sent to the simulated server.
type Outbound struct {
	Kind   string
	Player int
	Text   string
	Color  game.Color
	X, Y   float32
}

const maxOutbound = 256

// Host is an in-process stand-in for the game server. It keeps the player
// list the generator maintains and logs everything the watcher sends.
type Host struct {
	mu       sync.RWMutex
	players  map[int]game.Player
	items    map[int]string
	outbound []Outbound
}

func NewHost() *Host {
	return &Host{
		players: make(map[int]game.Player),
		items:   make(map[int]string),
	}
}

func (h *Host) setPlayer(p game.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.players[p.Index] = p
}

func (h *Host) removePlayer(index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.players, index)
}

func (h *Host) setItems(names map[int]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, name := range names {
		h.items[id] = name
	}
}

// Connected is always true; the simulated server never goes away.
func (h *Host) Connected() bool { return true }

func (h *Host) Player(index int) (game.Player, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.players[index]
	return p, ok
}

func (h *Host) Players() []game.Player {
	h.mu.RLock()
	result := make([]game.Player, 0, len(h.players))
	for _, p := range h.players {
		result = append(result, p)
	}
	h.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

func (h *Host) ItemName(itemType int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if name, ok := h.items[itemType]; ok {
		return name
	}
	return fmt.Sprintf("item #%d", itemType)
}

func (h *Host) record(o Outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.outbound) == maxOutbound {
		h.outbound = h.outbound[1:]
	}
	h.outbound = append(h.outbound, o)
}

func (h *Host) Broadcast(msg string, c game.Color) error {
	log.Printf("[mock] broadcast %s: %s", c.Hex(), msg)
	h.record(Outbound{Kind: "broadcast", Player: game.Everyone, Text: msg, Color: c})
	return nil
}

func (h *Host) SendInfo(player int, msg string) error {
	log.Printf("[mock] info to %d: %s", player, msg)
	h.record(Outbound{Kind: "info", Player: player, Text: msg})
	return nil
}

func (h *Host) SendCombatText(player int, text string, c game.Color, x, y float32) error {
	log.Printf("[mock] combat text to %d at (%.0f, %.0f): %s", player, x, y, text)
	h.record(Outbound{Kind: "combat_text", Player: player, Text: text, Color: c, X: x, Y: y})
	return nil
}

// Sent returns the most recent outbound messages, oldest first.
func (h *Host) Sent() []Outbound {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Outbound(nil), h.outbound...)
}
