package game

// Kind identifies an event type on the bus.
type Kind int

const (
	KindServerReady Kind = iota + 1
	KindLogin
	KindLeave
	KindPlayerSlot
	KindChestOpen
	KindChestItem
	KindItemDrop
	KindRawPacket
	KindReloadRequest
)

var kindNames = map[Kind]string{
	KindServerReady:   "server_ready",
	KindLogin:         "login",
	KindLeave:         "leave",
	KindPlayerSlot:    "player_slot",
	KindChestOpen:     "chest_open",
	KindChestItem:     "chest_item",
	KindItemDrop:      "item_drop",
	KindRawPacket:     "raw_packet",
	KindReloadRequest: "reload_request",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is anything the host can publish.
type Event interface {
	Kind() Kind
}

// ServerReady fires once the host knows how many connection slots it has.
type ServerReady struct {
	MaxSlots int
}

// Login fires after a player authenticated.
type Login struct {
	Player int
}

// Leave fires when a connection slot is released.
type Leave struct {
	Player int
}

// PlayerSlot is a write to one of the player's own inventory slots.
type PlayerSlot struct {
	Player   int
	Slot     int
	ItemType int
	Stack    int
}

// ChestOpen fires when a player opens the chest at tile (X, Y).
type ChestOpen struct {
	Player int
	X, Y   int
}

// ChestItem is a write to a slot of the chest the player has open.
type ChestItem struct {
	Player   int
	Slot     int
	ItemType int
	Stack    int
}

// ItemDrop reports an item entity the player created or took. A zero
// velocity means the item was picked up from the ground.
type ItemDrop struct {
	Player    int
	ItemType  int
	Stack     int
	VelocityX float32
	VelocityY float32
}

// RawPacket is an undecoded packet received from the player's client.
type RawPacket struct {
	Player  int
	Type    byte
	Payload []byte
}

// ReloadRequest asks for the watcher configuration to be reread. Player is
// the requesting player, or Everyone for operator-triggered reloads.
type ReloadRequest struct {
	Player int
}

func (ServerReady) Kind() Kind   { return KindServerReady }
func (Login) Kind() Kind         { return KindLogin }
func (Leave) Kind() Kind         { return KindLeave }
func (PlayerSlot) Kind() Kind    { return KindPlayerSlot }
func (ChestOpen) Kind() Kind     { return KindChestOpen }
func (ChestItem) Kind() Kind     { return KindChestItem }
func (ItemDrop) Kind() Kind      { return KindItemDrop }
func (RawPacket) Kind() Kind     { return KindRawPacket }
func (ReloadRequest) Kind() Kind { return KindReloadRequest }
