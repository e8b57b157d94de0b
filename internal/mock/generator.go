// Package mock simulates a game server: a handful of players who log in,
// shuffle items around, use chests and drop things, one of whom keeps
// producing suspicious stacks.
package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/beholder/backend/internal/game"
	"github.com/beholder/backend/internal/packet"
)

// Item ids used by the simulation.
const (
	itemDirt     = 2
	itemStone    = 3
	itemTorch    = 8
	itemIronBar  = 22
	itemGoldCoin = 73
	itemPlatinum = 74
)

var itemNames = map[int]string{
	itemDirt:     "Dirt Block",
	itemStone:    "Stone Block",
	itemTorch:    "Torch",
	itemIronBar:  "Iron Bar",
	itemGoldCoin: "Gold Coin",
	itemPlatinum: "Platinum Coin",
}

type mockPlayer struct {
	player  game.Player
	pattern string
	chestX  int
	chestY  int
}

type MockGenerator struct {
	host     *Host
	bus      *game.Bus
	maxSlots int
	interval time.Duration
	rng      *rand.Rand
	players  []*mockPlayer
}

func NewGenerator(host *Host, bus *game.Bus, maxSlots int) *MockGenerator {
	return &MockGenerator{
		host:     host,
		bus:      bus,
		maxSlots: maxSlots,
		interval: time.Second,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start announces the server, logs the simulated players in, and keeps
// generating traffic until ctx is done. Everything before the first tick
// happens synchronously.
func (g *MockGenerator) Start(ctx context.Context) {
	g.announce()
	go g.run(ctx)
}

func (g *MockGenerator) announce() {
	g.players = []*mockPlayer{
		{player: game.Player{Index: 0, Name: "Ops", Group: "owner", X: 4200, Y: 3100}, pattern: "idle"},
		{player: game.Player{Index: 1, Name: "Kai", Group: "default", X: 3900, Y: 3050}, pattern: "steady"},
		{player: game.Player{Index: 2, Name: "Mira", Group: "vip", X: 5100, Y: 2900}, pattern: "chest", chestX: 320, chestY: 195},
		{player: game.Player{Index: 3, Name: "Tobi", Group: "default", X: 6000, Y: 3300}, pattern: "ground"},
		{player: game.Player{Index: 4, Name: "Rin", Group: "default", X: 7000, Y: 2800}, pattern: "hoarder"},
		{player: game.Player{Index: 5, Name: "Builder", Group: "trusted", X: 2000, Y: 3000,
			Permissions: []string{game.BypassPermission}}, pattern: "hoarder"},
	}

	g.bus.Publish(game.ServerReady{MaxSlots: g.maxSlots})
	g.host.setItems(itemNames)
	for _, mp := range g.players {
		// Joined first, authenticated second, as on a real server.
		g.host.setPlayer(mp.player)
		mp.player.LoggedIn = true
		g.host.setPlayer(mp.player)
		g.bus.Publish(game.Login{Player: mp.player.Index})
	}
}

// Stop logs every simulated player out.
func (g *MockGenerator) Stop() {
	for _, mp := range g.players {
		g.host.removePlayer(mp.player.Index)
		g.bus.Publish(game.Leave{Player: mp.player.Index})
	}
}

func (g *MockGenerator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			g.Stop()
			return
		case <-ticker.C:
			tick++
			g.Step(tick)
		}
	}
}

// Step advances every player by one tick.
func (g *MockGenerator) Step(tick int) {
	for _, mp := range g.players {
		g.wander(mp)
		switch mp.pattern {
		case "steady":
			g.advanceSteady(mp, tick)
		case "chest":
			g.advanceChest(mp, tick)
		case "ground":
			g.advanceGround(mp, tick)
		case "hoarder":
			g.advanceHoarder(mp, tick)
		}
	}
}

func (g *MockGenerator) wander(mp *mockPlayer) {
	mp.player.X += float32(g.rng.Intn(65) - 32)
	mp.player.Y += float32(g.rng.Intn(17) - 8)
	g.host.setPlayer(mp.player)
}

// advanceSteady shuffles small stacks around the main inventory.
func (g *MockGenerator) advanceSteady(mp *mockPlayer, tick int) {
	g.bus.Publish(game.PlayerSlot{
		Player:   mp.player.Index,
		Slot:     tick % 50,
		ItemType: itemStone,
		Stack:    1 + tick%60,
	})
}

// advanceChest runs a four-tick cycle: open, two deposits, close.
func (g *MockGenerator) advanceChest(mp *mockPlayer, tick int) {
	idx := mp.player.Index
	switch tick % 4 {
	case 1:
		g.bus.Publish(game.ChestOpen{Player: idx, X: mp.chestX, Y: mp.chestY})
	case 2:
		g.bus.Publish(game.PlayerSlot{Player: idx, Slot: 58, ItemType: itemIronBar, Stack: 40})
		g.bus.Publish(game.ChestItem{Player: idx, Slot: tick % 40, ItemType: itemIronBar, Stack: 40})
	case 3:
		g.bus.Publish(game.ChestItem{Player: idx, Slot: (tick + 1) % 40, ItemType: itemTorch, Stack: 99})
	case 0:
		g.bus.Publish(game.RawPacket{
			Player:  idx,
			Type:    packet.TypeChestOpen,
			Payload: packet.EncodeChestOpen(packet.ChestOpen{ID: packet.ClosedChestID}),
		})
	}
}

// advanceGround alternates throwing and picking up dirt.
func (g *MockGenerator) advanceGround(mp *mockPlayer, tick int) {
	ev := game.ItemDrop{Player: mp.player.Index, ItemType: itemDirt, Stack: 250}
	if tick%2 == 1 {
		ev.VelocityX = 2.5
		ev.VelocityY = -1
	}
	g.bus.Publish(ev)
}

// advanceHoarder produces a stack far above the default threshold every
// third tick, and ordinary traffic otherwise.
func (g *MockGenerator) advanceHoarder(mp *mockPlayer, tick int) {
	idx := mp.player.Index
	if tick%3 != 0 {
		g.bus.Publish(game.PlayerSlot{Player: idx, Slot: 10 + tick%10, ItemType: itemGoldCoin, Stack: 1 + tick%30})
		return
	}
	switch tick / 3 % 3 {
	case 0:
		g.bus.Publish(game.PlayerSlot{Player: idx, Slot: 50, ItemType: itemPlatinum, Stack: 999})
	case 1:
		g.bus.Publish(game.ItemDrop{Player: idx, ItemType: itemPlatinum, Stack: 1500, VelocityX: -3})
	case 2:
		g.bus.Publish(game.PlayerSlot{Player: idx, Slot: 100, ItemType: itemTorch, Stack: 9999})
	}
}
