package bridge

import (
	"encoding/json"

	"github.com/beholder/backend/internal/game"
)

type MessageType string

// Frames sent by the game-server shim.
const (
	MsgServerReady  MessageType = "server_ready"
	MsgItemNames    MessageType = "item_names"
	MsgPlayerJoin   MessageType = "player_join"
	MsgPlayerLogin  MessageType = "player_login"
	MsgPlayerUpdate MessageType = "player_update"
	MsgPlayerLeave  MessageType = "player_leave"
	MsgPlayerSlot   MessageType = "player_slot"
	MsgChestOpen    MessageType = "chest_open"
	MsgChestItem    MessageType = "chest_item"
	MsgItemDrop     MessageType = "item_drop"
	MsgRawPacket    MessageType = "raw_packet"
	MsgReload       MessageType = "reload"
)

// Frames sent to the shim.
const (
	MsgBroadcast  MessageType = "broadcast"
	MsgSendInfo   MessageType = "send_info"
	MsgCombatText MessageType = "combat_text"
)

// WSMessage is an outbound frame.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// inboundFrame defers payload decoding until the type is known.
type inboundFrame struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerReadyPayload struct {
	MaxSlots int `json:"maxSlots"`
}

type ItemNamesPayload struct {
	Names map[int]string `json:"names"`
}

// PlayerPayload carries join, login and update frames.
type PlayerPayload = game.Player

type PlayerLeavePayload struct {
	Index int `json:"index"`
}

type SlotPayload struct {
	Player   int `json:"player"`
	Slot     int `json:"slot"`
	ItemType int `json:"itemType"`
	Stack    int `json:"stack"`
}

type ChestOpenPayload struct {
	Player int `json:"player"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

type ItemDropPayload struct {
	Player    int     `json:"player"`
	ItemType  int     `json:"itemType"`
	Stack     int     `json:"stack"`
	VelocityX float32 `json:"velocityX"`
	VelocityY float32 `json:"velocityY"`
}

// RawPacketPayload carries an undecoded client packet; Data is base64 in JSON.
type RawPacketPayload struct {
	Player     int    `json:"player"`
	PacketType byte   `json:"packetType"`
	Data       []byte `json:"data"`
}

type ReloadPayload struct {
	Player int `json:"player"`
}

// Color travels both as components and in the client's packed form, so the
// shim can hand it to the game server unchanged.
type BroadcastPayload struct {
	Message string     `json:"message"`
	Color   game.Color `json:"color"`
	Packed  uint32     `json:"packed"`
}

// SendInfoPayload addresses one player, or everyone when Player is -1.
type SendInfoPayload struct {
	Player  int    `json:"player"`
	Message string `json:"message"`
}

type CombatTextPayload struct {
	Player int        `json:"player"`
	Text   string     `json:"text"`
	Color  game.Color `json:"color"`
	Packed uint32     `json:"packed"`
	X      float32    `json:"x"`
	Y      float32    `json:"y"`
}
