package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/beholder/backend/internal/config"
	"github.com/beholder/backend/internal/game"
	"github.com/beholder/backend/internal/packet"
	"github.com/beholder/backend/internal/session"
)

const platinumCoin = 74

type fakeHost struct {
	mu      sync.Mutex
	players map[int]game.Player
	infos   []string
}

func newFakeHost(players ...game.Player) *fakeHost {
	h := &fakeHost{players: make(map[int]game.Player)}
	for _, p := range players {
		h.players[p.Index] = p
	}
	return h
}

func (h *fakeHost) Player(index int) (game.Player, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[index]
	return p, ok
}

func (h *fakeHost) ItemName(itemType int) string {
	if itemType == platinumCoin {
		return "Platinum Coin"
	}
	return "Dirt Block"
}

func (h *fakeHost) SendInfo(player int, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.infos = append(h.infos, msg)
	return nil
}

type notice struct {
	offender int
	msg      string
}

type fakeNotifier struct {
	got []notice
}

func (n *fakeNotifier) Notify(offender int, msg string) {
	n.got = append(n.got, notice{offender, msg})
}

type staticRules struct {
	cfg     *config.Plugin
	reloads int
}

func (r *staticRules) Current() *config.Plugin { return r.cfg }

func (r *staticRules) Reload() (*config.Plugin, error) {
	r.reloads++
	return r.cfg, nil
}

func rulesWith(threshold int, excluded ...int) *staticRules {
	ids, err := json.Marshal(excluded)
	if err != nil {
		panic(err)
	}
	doc := fmt.Sprintf(`{"StackCheckThreshold": %d, "ExcludedItemId": %s}`, threshold, ids)
	p, err := config.ParsePlugin([]byte(doc))
	if err != nil {
		panic(err)
	}
	return &staticRules{cfg: p}
}

var rin = game.Player{Index: 3, Name: "Rin", Group: "default", LoggedIn: true}

// setup returns an engine wired to a bus with Rin logged in on slot 3.
func setup(t *testing.T, rules Rules, players ...game.Player) (*game.Bus, *Engine, *fakeHost, *fakeNotifier) {
	t.Helper()
	if len(players) == 0 {
		players = []game.Player{rin}
	}
	host := newFakeHost(players...)
	n := &fakeNotifier{}
	e := NewEngine(host, rules, n, 16)
	bus := game.NewBus()
	t.Cleanup(e.Subscribe(bus))

	bus.Publish(game.ServerReady{MaxSlots: 8})
	for _, p := range players {
		bus.Publish(game.Login{Player: p.Index})
	}
	return bus, e, host, n
}

func TestRinMovesCoinsIntoCoinSlot(t *testing.T) {
	bus, _, _, n := setup(t, rulesWith(999))

	bus.Publish(game.PlayerSlot{Player: 3, Slot: 50, ItemType: platinumCoin, Stack: 999})

	if len(n.got) != 1 {
		t.Fatalf("got %d detections, want 1", len(n.got))
	}
	msg := n.got[0].msg
	for _, want := range []string{"Rin", "999", "Platinum Coin", "coin"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q lacks %q", msg, want)
		}
	}
	if msg != "<Rin> have 999 Platinum Coin in [coin]" {
		t.Errorf("message = %q", msg)
	}
	if n.got[0].offender != 3 {
		t.Errorf("offender = %d, want 3", n.got[0].offender)
	}
}

func TestThresholdComparators(t *testing.T) {
	const T = 100
	tests := []struct {
		name  string
		event game.Event
		want  bool
	}{
		{"inventory at T", game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: T}, true},
		{"inventory below T", game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: T - 1}, false},
		{"chest at T", game.ChestItem{Player: 3, Slot: 0, ItemType: 2, Stack: T}, true},
		{"chest below T", game.ChestItem{Player: 3, Slot: 0, ItemType: 2, Stack: T - 1}, false},
		{"drop at T", game.ItemDrop{Player: 3, ItemType: 2, Stack: T, VelocityX: 1}, false},
		{"drop above T", game.ItemDrop{Player: 3, ItemType: 2, Stack: T + 1, VelocityX: 1}, true},
		{"pick at T", game.ItemDrop{Player: 3, ItemType: 2, Stack: T}, false},
		{"pick above T", game.ItemDrop{Player: 3, ItemType: 2, Stack: T + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, _, _, n := setup(t, rulesWith(T))
			bus.Publish(tt.event)
			if got := len(n.got) == 1; got != tt.want {
				t.Errorf("detected = %v, want %v (%v)", got, tt.want, n.got)
			}
		})
	}
}

func TestDropAndPickMessages(t *testing.T) {
	bus, _, _, n := setup(t, rulesWith(10))

	bus.Publish(game.ItemDrop{Player: 3, ItemType: 2, Stack: 50, VelocityX: -0.5})
	bus.Publish(game.ItemDrop{Player: 3, ItemType: 2, Stack: 60})

	want := []string{
		"<Rin> Dropped 50 Dirt Block [to the ground]",
		"<Rin> Taking 60 Dirt Block [from the ground]",
	}
	if len(n.got) != len(want) {
		t.Fatalf("got %d detections, want %d", len(n.got), len(want))
	}
	for i, w := range want {
		if n.got[i].msg != w {
			t.Errorf("detection %d = %q, want %q", i, n.got[i].msg, w)
		}
	}
}

func TestExcludedItemNeverDetected(t *testing.T) {
	bus, e, _, n := setup(t, rulesWith(999, 71, 72, 73, 74))

	bus.Publish(game.ItemDrop{Player: 3, ItemType: 73, Stack: 500, VelocityX: 2, VelocityY: -1})
	bus.Publish(game.PlayerSlot{Player: 3, Slot: 51, ItemType: platinumCoin, Stack: 9999})

	if len(n.got) != 0 {
		t.Fatalf("excluded items raised %v", n.got)
	}
	s, _ := e.Session(3)
	if got := len(s.History()); got != 2 {
		t.Errorf("history has %d records, want 2 (excluded events are still recorded)", got)
	}
}

func TestBelowThresholdStillRecorded(t *testing.T) {
	bus, e, _, _ := setup(t, rulesWith(999))

	bus.Publish(game.PlayerSlot{Player: 3, Slot: 12, ItemType: 2, Stack: 5})

	s, _ := e.Session(3)
	hist := s.History()
	if len(hist) != 1 || hist[0].String() != "Inventory;12;Dirt Block;5" {
		t.Errorf("history = %v", hist)
	}
	if s.State() != session.AwaitingNext {
		t.Errorf("state = %v, want awaiting_next", s.State())
	}
}

func TestBypassPlayerIgnored(t *testing.T) {
	boss := game.Player{Index: 1, Name: "Boss", LoggedIn: true, Permissions: []string{game.BypassPermission}}
	bus, e, _, n := setup(t, rulesWith(1), boss)

	bus.Publish(game.PlayerSlot{Player: 1, Slot: 0, ItemType: 2, Stack: 9999})
	bus.Publish(game.ChestOpen{Player: 1, X: 10, Y: 20})
	bus.Publish(game.ItemDrop{Player: 1, ItemType: 2, Stack: 9999, VelocityX: 1})

	if len(n.got) != 0 {
		t.Errorf("bypass player raised %v", n.got)
	}
	s, _ := e.Session(1)
	if open, x, y := s.Chest(); open || x != session.NoChest || y != session.NoChest {
		t.Errorf("bypass chest state = (%v, %d, %d), want unset", open, x, y)
	}
	if len(s.History()) != 0 {
		t.Errorf("bypass player has history %v", s.History())
	}
}

func TestUnauthenticatedPlayersIgnored(t *testing.T) {
	guest := game.Player{Index: 2, Name: "Guest", LoggedIn: false}
	host := newFakeHost(guest, rin)
	n := &fakeNotifier{}
	e := NewEngine(host, rulesWith(1), n, 8)
	bus := game.NewBus()
	defer e.Subscribe(bus)()

	// Before server-ready nothing is tracked.
	bus.Publish(game.Login{Player: 3})
	bus.Publish(game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: 50})
	if e.Ready() || len(n.got) != 0 {
		t.Fatal("events before server-ready were processed")
	}

	bus.Publish(game.ServerReady{})
	// Guest has a session but is not logged in on the host.
	bus.Publish(game.Login{Player: 2})
	bus.Publish(game.PlayerSlot{Player: 2, Slot: 0, ItemType: 2, Stack: 50})
	// Rin never got a session after server-ready.
	bus.Publish(game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: 50})
	// Out of range.
	bus.Publish(game.PlayerSlot{Player: 400, Slot: 0, ItemType: 2, Stack: 50})

	if len(n.got) != 0 {
		t.Errorf("unauthenticated events raised %v", n.got)
	}
	if e.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions() = %d, want 1", e.ActiveSessions())
	}
}

func TestServerReadyFallbackSize(t *testing.T) {
	e := NewEngine(newFakeHost(), rulesWith(1), &fakeNotifier{}, 5)
	e.ServerReady(game.ServerReady{})
	e.Login(game.Login{Player: 4})
	e.Login(game.Login{Player: 5})
	if _, ok := e.Session(4); !ok {
		t.Error("slot 4 missing with fallback size 5")
	}
	if _, ok := e.Session(5); ok {
		t.Error("slot 5 allocated beyond fallback size 5")
	}
	if e.Slots() != 5 {
		t.Errorf("Slots() = %d, want 5", e.Slots())
	}
}

func TestLeaveDropsSession(t *testing.T) {
	bus, e, _, n := setup(t, rulesWith(1))
	bus.Publish(game.Leave{Player: 3})
	bus.Publish(game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: 50})

	if _, ok := e.Session(3); ok {
		t.Error("session survived leave")
	}
	if len(n.got) != 0 {
		t.Errorf("event after leave raised %v", n.got)
	}
}

func TestChestOpenAndClose(t *testing.T) {
	bus, e, _, n := setup(t, rulesWith(100))
	s, _ := e.Session(3)

	bus.Publish(game.ChestOpen{Player: 3, X: 120, Y: 45})
	if open, x, y := s.Chest(); !open || x != 120 || y != 45 {
		t.Fatalf("chest after open = (%v, %d, %d)", open, x, y)
	}

	bus.Publish(game.ChestItem{Player: 3, Slot: 7, ItemType: 2, Stack: 100})
	if len(n.got) != 1 || n.got[0].msg != "<Rin> Putting 100 Dirt Block into [Chest] at 120 : 45" {
		t.Fatalf("chest detection = %v", n.got)
	}

	// A non-close chest packet leaves the chest open.
	bus.Publish(game.RawPacket{Player: 3, Type: packet.TypeChestOpen, Payload: packet.EncodeChestOpen(packet.ChestOpen{ID: 12, X: 120, Y: 45})})
	if open, _, _ := s.Chest(); !open {
		t.Fatal("chest closed by a non-close packet")
	}

	// Truncated packets are ignored.
	bus.Publish(game.RawPacket{Player: 3, Type: packet.TypeChestOpen, Payload: []byte{0xff}})
	if open, _, _ := s.Chest(); !open {
		t.Fatal("chest closed by a malformed packet")
	}

	// Other packet types are ignored.
	bus.Publish(game.RawPacket{Player: 3, Type: 5, Payload: packet.EncodeChestOpen(packet.ChestOpen{ID: -1})})
	if open, _, _ := s.Chest(); !open {
		t.Fatal("chest closed by an unrelated packet type")
	}

	bus.Publish(game.RawPacket{Player: 3, Type: packet.TypeChestOpen, Payload: packet.EncodeChestOpen(packet.ChestOpen{ID: packet.ClosedChestID})})
	if open, x, y := s.Chest(); open || x != session.NoChest || y != session.NoChest {
		t.Errorf("chest after close = (%v, %d, %d), want (false, -1, -1)", open, x, y)
	}
}

func TestChestCloseWithGarbledName(t *testing.T) {
	bus, e, _, _ := setup(t, rulesWith(100))
	s, _ := e.Session(3)

	bus.Publish(game.ChestOpen{Player: 3, X: 120, Y: 45})
	bus.Publish(game.RawPacket{
		Player:  3,
		Type:    packet.TypeChestOpen,
		Payload: []byte{0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x02, 0x02, 0xFF, 0xFE},
	})
	if open, x, y := s.Chest(); open || x != session.NoChest || y != session.NoChest {
		t.Errorf("chest after close = (%v, %d, %d), want (false, -1, -1)", open, x, y)
	}
}

func TestReloadUsesNewRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.PluginFileName)
	holder, err := config.OpenHolder(path)
	if err != nil {
		t.Fatal(err)
	}
	bus, _, host, n := setup(t, holder)

	bus.Publish(game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: 500})
	if len(n.got) != 0 {
		t.Fatalf("500 raised under default threshold: %v", n.got)
	}

	if err := os.WriteFile(path, []byte(`{"StackCheckThreshold": 200, "ExcludedItemId": [74]}`), 0644); err != nil {
		t.Fatal(err)
	}
	bus.Publish(game.ReloadRequest{Player: 3})

	bus.Publish(game.PlayerSlot{Player: 3, Slot: 0, ItemType: 2, Stack: 500})
	bus.Publish(game.PlayerSlot{Player: 3, Slot: 50, ItemType: platinumCoin, Stack: 500})
	if len(n.got) != 1 {
		t.Fatalf("after reload got %v, want one detection for the non-excluded item", n.got)
	}
	if len(host.infos) != 1 || host.infos[0] != ReloadedMessage {
		t.Errorf("requester messages = %v", host.infos)
	}
}

func TestOperatorReloadSendsNoConfirmation(t *testing.T) {
	rules := rulesWith(1)
	bus, _, host, _ := setup(t, rules)

	bus.Publish(game.ReloadRequest{Player: game.Everyone})

	if rules.reloads != 1 {
		t.Errorf("reloads = %d, want 1", rules.reloads)
	}
	if len(host.infos) != 0 {
		t.Errorf("operator reload sent %v", host.infos)
	}
}

func TestUnsubscribeStopsProcessing(t *testing.T) {
	host := newFakeHost(rin)
	n := &fakeNotifier{}
	e := NewEngine(host, rulesWith(1), n, 8)
	bus := game.NewBus()
	unsubscribe := e.Subscribe(bus)
	unsubscribe()

	for _, k := range []game.Kind{game.KindServerReady, game.KindPlayerSlot, game.KindRawPacket, game.KindReloadRequest} {
		if bus.Subscribers(k) != 0 {
			t.Errorf("%v still has subscribers", k)
		}
	}
	bus.Publish(game.ServerReady{})
	if e.Ready() {
		t.Error("engine handled an event after unsubscribe")
	}
}
