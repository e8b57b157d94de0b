package bridge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/beholder/backend/internal/game"
)

// Roster mirrors the players and item catalog the shim reports.
type Roster struct {
	mu      sync.RWMutex
	players map[int]game.Player
	items   map[int]string
}

func NewRoster() *Roster {
	return &Roster{
		players: make(map[int]game.Player),
		items:   make(map[int]string),
	}
}

// Upsert stores p, replacing any player on the same slot.
func (r *Roster) Upsert(p game.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.Index] = p
}

func (r *Roster) Remove(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, index)
}

// Clear forgets every player and returns the slots that were occupied.
func (r *Roster) Clear() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots := make([]int, 0, len(r.players))
	for i := range r.players {
		slots = append(slots, i)
	}
	sort.Ints(slots)
	r.players = make(map[int]game.Player)
	return slots
}

// SetItemNames merges names into the item catalog.
func (r *Roster) SetItemNames(names map[int]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, name := range names {
		r.items[id] = name
	}
}

func (r *Roster) Player(index int) (game.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[index]
	return p, ok
}

// Players returns every connected player ordered by slot.
func (r *Roster) Players() []game.Player {
	r.mu.RLock()
	result := make([]game.Player, 0, len(r.players))
	for _, p := range r.players {
		result = append(result, p)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

// ItemName returns the catalog name for itemType, or a placeholder naming
// the id when the shim never sent one.
func (r *Roster) ItemName(itemType int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.items[itemType]; ok {
		return name
	}
	return fmt.Sprintf("item #%d", itemType)
}
