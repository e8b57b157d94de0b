// Package bridge connects the watcher to the game server. The server's shim
// dials in over a WebSocket, streams player and inventory events, and
// receives chat and combat-text commands back.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/beholder/backend/internal/game"
	"github.com/gorilla/websocket"
)

var (
	// ErrNoHost is returned by sends while no shim is connected.
	ErrNoHost = errors.New("no game server connected")
	// ErrHostTooSlow is returned when the link's send buffer is full. The
	// link is dropped.
	ErrHostTooSlow = errors.New("game server link too slow")

	errStaleLink = errors.New("frame from a replaced host link")
)

const sendBuffer = 64

type link struct {
	conn      *websocket.Conn
	b         *Bridge
	send      chan []byte
	closeOnce sync.Once
}

func newLink(b *Bridge, conn *websocket.Conn) *link {
	l := &link{
		conn: conn,
		b:    b,
		send: make(chan []byte, sendBuffer),
	}
	go l.writePump()
	return l
}

func (l *link) writePump() {
	defer l.conn.Close()
	for msg := range l.send {
		if err := l.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			l.b.Detach(l)
			return
		}
	}
}

func (l *link) close() {
	l.closeOnce.Do(func() { close(l.send) })
}

// Bridge owns the single host link and the roster built from it. It
// implements the host contract used by the detection engine and the
// notification dispatcher.
type Bridge struct {
	bus    *game.Bus
	roster *Roster

	mu   sync.Mutex
	link *link

	// frames serializes link frame handling with link replacement, so a
	// replaced link cannot publish after its players were forgotten.
	frames sync.Mutex
}

func New(bus *game.Bus) *Bridge {
	return &Bridge{
		bus:    bus,
		roster: NewRoster(),
	}
}

// Roster returns the players reported by the shim.
func (b *Bridge) Roster() *Roster {
	return b.roster
}

// Attach makes conn the host link, dropping any previous link.
func (b *Bridge) Attach(conn *websocket.Conn) *link {
	l := newLink(b, conn)

	b.frames.Lock()
	defer b.frames.Unlock()

	b.mu.Lock()
	old := b.link
	b.link = l
	b.mu.Unlock()

	if old != nil {
		log.Printf("[bridge] new host link replaces the previous one")
		old.close()
		b.forgetPlayers()
	}
	return l
}

// Detach drops l if it is still the host link.
func (b *Bridge) Detach(l *link) {
	b.mu.Lock()
	current := b.link == l
	if current {
		b.link = nil
	}
	b.mu.Unlock()

	l.close()
	if current {
		b.forgetPlayers()
	}
}

// forgetPlayers ends every known player's session; a reconnecting shim
// reports them again.
func (b *Bridge) forgetPlayers() {
	for _, index := range b.roster.Clear() {
		b.bus.Publish(game.Leave{Player: index})
	}
}

// Connected reports whether a shim is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.link != nil
}

// Serve attaches conn and processes its frames until the connection ends.
// Frames are handled in arrival order on the calling goroutine.
func (b *Bridge) Serve(conn *websocket.Conn) {
	l := b.Attach(conn)
	defer b.Detach(l)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := b.handleFrom(l, data); err != nil {
			if errors.Is(err, errStaleLink) {
				return
			}
			log.Printf("[bridge] skipping frame: %v", err)
		}
	}
}

// handleFrom applies a frame read from l, unless l has been replaced.
func (b *Bridge) handleFrom(l *link, data []byte) error {
	b.frames.Lock()
	defer b.frames.Unlock()

	b.mu.Lock()
	current := b.link == l
	b.mu.Unlock()
	if !current {
		return errStaleLink
	}
	return b.Handle(data)
}

func (b *Bridge) send(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	b.mu.Lock()
	l := b.link
	if l == nil {
		b.mu.Unlock()
		return ErrNoHost
	}
	select {
	case l.send <- data:
		b.mu.Unlock()
		return nil
	default:
	}
	b.mu.Unlock()

	log.Printf("[bridge] host link too slow, disconnecting")
	b.Detach(l)
	return ErrHostTooSlow
}

// Broadcast sends msg to every player in color c.
func (b *Bridge) Broadcast(msg string, c game.Color) error {
	return b.send(WSMessage{
		Type:    MsgBroadcast,
		Payload: BroadcastPayload{Message: msg, Color: c, Packed: c.Packed()},
	})
}

// SendInfo sends an info message to player, or to everyone for game.Everyone.
func (b *Bridge) SendInfo(player int, msg string) error {
	return b.send(WSMessage{
		Type:    MsgSendInfo,
		Payload: SendInfoPayload{Player: player, Message: msg},
	})
}

// SendCombatText shows text to player at world position (x, y).
func (b *Bridge) SendCombatText(player int, text string, c game.Color, x, y float32) error {
	return b.send(WSMessage{
		Type:    MsgCombatText,
		Payload: CombatTextPayload{Player: player, Text: text, Color: c, Packed: c.Packed(), X: x, Y: y},
	})
}

func (b *Bridge) Player(index int) (game.Player, bool) { return b.roster.Player(index) }
func (b *Bridge) Players() []game.Player               { return b.roster.Players() }
func (b *Bridge) ItemName(itemType int) string         { return b.roster.ItemName(itemType) }

func decode[T any](f inboundFrame) (T, error) {
	var v T
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return v, fmt.Errorf("%s: missing payload", f.Type)
	}
	if err := json.Unmarshal(f.Payload, &v); err != nil {
		return v, fmt.Errorf("%s payload: %w", f.Type, err)
	}
	return v, nil
}

func checkIndex(t MessageType, index int) error {
	if index < 0 {
		return fmt.Errorf("%s: negative player index %d", t, index)
	}
	return nil
}

// Handle applies one inbound frame: roster frames update the roster and
// event frames are published on the bus.
func (b *Bridge) Handle(data []byte) error {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case MsgServerReady:
		p, err := decode[ServerReadyPayload](f)
		if err != nil {
			return err
		}
		b.bus.Publish(game.ServerReady{MaxSlots: p.MaxSlots})

	case MsgItemNames:
		p, err := decode[ItemNamesPayload](f)
		if err != nil {
			return err
		}
		b.roster.SetItemNames(p.Names)

	case MsgPlayerJoin, MsgPlayerUpdate:
		p, err := decode[PlayerPayload](f)
		if err != nil {
			return err
		}
		if err := checkIndex(f.Type, p.Index); err != nil {
			return err
		}
		b.roster.Upsert(p)

	case MsgPlayerLogin:
		p, err := decode[PlayerPayload](f)
		if err != nil {
			return err
		}
		if err := checkIndex(f.Type, p.Index); err != nil {
			return err
		}
		p.LoggedIn = true
		b.roster.Upsert(p)
		b.bus.Publish(game.Login{Player: p.Index})

	case MsgPlayerLeave:
		p, err := decode[PlayerLeavePayload](f)
		if err != nil {
			return err
		}
		b.roster.Remove(p.Index)
		b.bus.Publish(game.Leave{Player: p.Index})

	case MsgPlayerSlot:
		p, err := decode[SlotPayload](f)
		if err != nil {
			return err
		}
		b.bus.Publish(game.PlayerSlot{Player: p.Player, Slot: p.Slot, ItemType: p.ItemType, Stack: p.Stack})

	case MsgChestOpen:
		p, err := decode[ChestOpenPayload](f)
		if err != nil {
			return err
		}
		b.bus.Publish(game.ChestOpen{Player: p.Player, X: p.X, Y: p.Y})

	case MsgChestItem:
		p, err := decode[SlotPayload](f)
		if err != nil {
			return err
		}
		b.bus.Publish(game.ChestItem{Player: p.Player, Slot: p.Slot, ItemType: p.ItemType, Stack: p.Stack})

	case MsgItemDrop:
		p, err := decode[ItemDropPayload](f)
		if err != nil {
			return err
		}
		b.bus.Publish(game.ItemDrop{
			Player:    p.Player,
			ItemType:  p.ItemType,
			Stack:     p.Stack,
			VelocityX: p.VelocityX,
			VelocityY: p.VelocityY,
		})

	case MsgRawPacket:
		p, err := decode[RawPacketPayload](f)
		if err != nil {
			return err
		}
		b.bus.Publish(game.RawPacket{Player: p.Player, Type: p.PacketType, Payload: p.Data})

	case MsgReload:
		req := game.ReloadRequest{Player: game.Everyone}
		if len(f.Payload) > 0 && string(f.Payload) != "null" {
			p, err := decode[ReloadPayload](f)
			if err != nil {
				return err
			}
			req.Player = p.Player
		}
		b.bus.Publish(req)

	default:
		return fmt.Errorf("unknown frame type %q", f.Type)
	}
	return nil
}
