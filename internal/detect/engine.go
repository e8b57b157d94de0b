package detect

import (
	"log"
	"sync/atomic"

	"github.com/beholder/backend/internal/config"
	"github.com/beholder/backend/internal/game"
	"github.com/beholder/backend/internal/packet"
	"github.com/beholder/backend/internal/session"
	"github.com/beholder/backend/internal/slots"
)

// ReloadedMessage is sent to a player who asked for a rules reload.
const ReloadedMessage = "Beholder configuration reloaded."

// noSlot is recorded for actions that do not touch a numbered slot.
const noSlot = -1

// Host is what the engine needs to know about the game server.
type Host interface {
	Player(index int) (game.Player, bool)
	ItemName(itemType int) string
	SendInfo(player int, msg string) error
}

// Rules provides and reloads the watcher rules.
type Rules interface {
	Current() *config.Plugin
	Reload() (*config.Plugin, error)
}

// Notifier receives detections.
type Notifier interface {
	Notify(offender int, message string)
}

// Engine consumes host events. Events for a slot without a session, for an
// out-of-range slot, or arriving before the server is ready are dropped.
type Engine struct {
	host          Host
	rules         Rules
	notifier      Notifier
	fallbackSlots int

	registry atomic.Pointer[session.Registry]
}

// NewEngine creates an engine. fallbackSlots sizes the registry when the
// host's ready event does not carry a slot count.
func NewEngine(host Host, rules Rules, notifier Notifier, fallbackSlots int) *Engine {
	return &Engine{
		host:          host,
		rules:         rules,
		notifier:      notifier,
		fallbackSlots: fallbackSlots,
	}
}

// Subscribe registers every handler on bus. The returned function removes
// them all.
func (e *Engine) Subscribe(bus *game.Bus) (unsubscribe func()) {
	unsubs := []func(){
		game.Subscribe(bus, e.ServerReady),
		game.Subscribe(bus, e.Login),
		game.Subscribe(bus, e.Leave),
		game.Subscribe(bus, e.PlayerSlot),
		game.Subscribe(bus, e.ChestOpen),
		game.Subscribe(bus, e.ChestItem),
		game.Subscribe(bus, e.ItemDrop),
		game.Subscribe(bus, e.RawPacket),
		game.Subscribe(bus, e.Reload),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Ready reports whether the registry has been allocated.
func (e *Engine) Ready() bool {
	return e.registry.Load() != nil
}

// Session returns the live session for index.
func (e *Engine) Session(index int) (*session.PlayerSession, bool) {
	reg := e.registry.Load()
	if reg == nil {
		return nil, false
	}
	return reg.Get(index)
}

// Sessions snapshots every live session in slot order.
func (e *Engine) Sessions() []session.Snapshot {
	reg := e.registry.Load()
	if reg == nil {
		return []session.Snapshot{}
	}
	return reg.Snapshots()
}

// Slots returns the size of the session table, or 0 before the server is
// ready.
func (e *Engine) Slots() int {
	reg := e.registry.Load()
	if reg == nil {
		return 0
	}
	return reg.Size()
}

// ActiveSessions returns the number of live sessions.
func (e *Engine) ActiveSessions() int {
	reg := e.registry.Load()
	if reg == nil {
		return 0
	}
	return reg.ActiveCount()
}

// ServerReady allocates a fresh registry, discarding any earlier one.
func (e *Engine) ServerReady(ev game.ServerReady) {
	size := ev.MaxSlots
	if size <= 0 {
		size = e.fallbackSlots
	}
	reg, err := session.NewRegistry(size)
	if err != nil {
		log.Printf("[detect] cannot allocate player registry: %v", err)
		return
	}
	e.registry.Store(reg)
	log.Printf("[detect] tracking %d player slots", size)
}

func (e *Engine) Login(ev game.Login) {
	reg := e.registry.Load()
	if reg == nil {
		return
	}
	reg.Login(ev.Player)
}

func (e *Engine) Leave(ev game.Leave) {
	reg := e.registry.Load()
	if reg == nil {
		return
	}
	reg.Leave(ev.Player)
}

// watched returns the session and player for index when the player is
// logged in and not exempt.
func (e *Engine) watched(index int) (*session.PlayerSession, game.Player, bool) {
	s, ok := e.Session(index)
	if !ok {
		return nil, game.Player{}, false
	}
	p, ok := e.host.Player(index)
	if !ok || !p.LoggedIn {
		return nil, game.Player{}, false
	}
	if p.HasPermission(game.BypassPermission) {
		return nil, game.Player{}, false
	}
	return s, p, true
}

func (e *Engine) PlayerSlot(ev game.PlayerSlot) {
	s, p, ok := e.watched(ev.Player)
	if !ok {
		return
	}
	name := e.host.ItemName(ev.ItemType)
	s.RecordAction(session.ActionRecord{
		Action:   session.Inventory,
		Slot:     ev.Slot,
		ItemType: ev.ItemType,
		ItemName: name,
		Stack:    ev.Stack,
	})
	e.evaluate(ev.Player, Candidate{
		PlayerName: p.Name,
		Action:     session.Inventory,
		ItemType:   ev.ItemType,
		ItemName:   name,
		Stack:      ev.Stack,
		Region:     slots.Classify(ev.Slot),
	})
}

func (e *Engine) ChestItem(ev game.ChestItem) {
	s, p, ok := e.watched(ev.Player)
	if !ok {
		return
	}
	name := e.host.ItemName(ev.ItemType)
	s.RecordAction(session.ActionRecord{
		Action:   session.Chest,
		Slot:     ev.Slot,
		ItemType: ev.ItemType,
		ItemName: name,
		Stack:    ev.Stack,
	})
	_, x, y := s.Chest()
	e.evaluate(ev.Player, Candidate{
		PlayerName: p.Name,
		Action:     session.Chest,
		ItemType:   ev.ItemType,
		ItemName:   name,
		Stack:      ev.Stack,
		ChestX:     x,
		ChestY:     y,
	})
}

func (e *Engine) ItemDrop(ev game.ItemDrop) {
	s, p, ok := e.watched(ev.Player)
	if !ok {
		return
	}
	action := session.DropAction(ev.VelocityX, ev.VelocityY)
	name := e.host.ItemName(ev.ItemType)
	s.RecordAction(session.ActionRecord{
		Action:   action,
		Slot:     noSlot,
		ItemType: ev.ItemType,
		ItemName: name,
		Stack:    ev.Stack,
	})
	e.evaluate(ev.Player, Candidate{
		PlayerName: p.Name,
		Action:     action,
		ItemType:   ev.ItemType,
		ItemName:   name,
		Stack:      ev.Stack,
	})
}

// ChestOpen records the chest the player is using. Exempt players are not
// tracked.
func (e *Engine) ChestOpen(ev game.ChestOpen) {
	s, _, ok := e.watched(ev.Player)
	if !ok {
		return
	}
	s.OpenChest(ev.X, ev.Y)
}

// RawPacket watches chest-open packets for the close marker.
func (e *Engine) RawPacket(ev game.RawPacket) {
	if ev.Type != packet.TypeChestOpen {
		return
	}
	s, ok := e.Session(ev.Player)
	if !ok {
		return
	}
	c, err := packet.DecodeChestOpen(ev.Payload)
	if err != nil {
		log.Printf("[detect] ignoring malformed chest packet from slot %d: %v", ev.Player, err)
		return
	}
	if c.Closed() {
		s.CloseChest()
	}
}

// Reload rereads the rules and confirms to the requesting player, if any.
func (e *Engine) Reload(ev game.ReloadRequest) {
	if _, err := e.rules.Reload(); err == nil {
		log.Printf("[detect] rules reloaded")
	}
	if ev.Player < 0 {
		return
	}
	if err := e.host.SendInfo(ev.Player, ReloadedMessage); err != nil {
		log.Printf("[detect] reload confirmation to slot %d failed: %v", ev.Player, err)
	}
}

func (e *Engine) evaluate(offender int, c Candidate) {
	msg, hit := Evaluate(e.rules.Current(), c)
	if !hit {
		return
	}
	e.notifier.Notify(offender, msg)
}
