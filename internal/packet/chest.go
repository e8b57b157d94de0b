package packet

import "fmt"

// TypeChestOpen is the id of the packet a player's client sends when a
// chest is opened or closed.
const TypeChestOpen byte = 33

// ClosedChestID is the chest id the server sends when a player's chest closes.
const ClosedChestID = -1

// maxChestNameLen is the longest chest name the server will send.
const maxChestNameLen = 20

// ChestOpen is the body of a chest-open packet.
type ChestOpen struct {
	ID   int16
	X    int16
	Y    int16
	Name string
}

// Closed reports whether the packet signals that the chest was closed.
func (c ChestOpen) Closed() bool {
	return c.ID == ClosedChestID
}

// DecodeChestOpen parses a chest-open packet body: chest id, x, y as int16,
// a uint8 name length, then the name itself when the length is in (0, 20].
func DecodeChestOpen(payload []byte) (ChestOpen, error) {
	var c ChestOpen
	r := NewReader(payload)

	var err error
	if c.ID, err = r.ReadInt16(); err != nil {
		return c, fmt.Errorf("chest id: %w", err)
	}
	if c.X, err = r.ReadInt16(); err != nil {
		return c, fmt.Errorf("chest x: %w", err)
	}
	if c.Y, err = r.ReadInt16(); err != nil {
		return c, fmt.Errorf("chest y: %w", err)
	}
	nameLen, err := r.ReadUint8()
	if err != nil {
		return c, fmt.Errorf("chest name length: %w", err)
	}
	if nameLen > 0 && nameLen <= maxChestNameLen {
		if c.Name, err = r.ReadString(); err != nil {
			return c, fmt.Errorf("chest name: %w", err)
		}
	}
	return c, nil
}

// EncodeChestOpen builds a chest-open packet body. Used by the mock host and
// tests to produce the same bytes a game server would.
func EncodeChestOpen(c ChestOpen) []byte {
	b := make([]byte, 0, 7+len(c.Name)+2)
	b = appendInt16(b, c.ID)
	b = appendInt16(b, c.X)
	b = appendInt16(b, c.Y)
	if c.Name == "" || len(c.Name) > maxChestNameLen {
		return append(b, 0)
	}
	b = append(b, byte(len(c.Name)))
	n := uint64(len(c.Name))
	for n >= 0x80 {
		b = append(b, byte(n)|0x80)
		n >>= 7
	}
	b = append(b, byte(n))
	return append(b, c.Name...)
}

func appendInt16(b []byte, v int16) []byte {
	return append(b, byte(uint16(v)), byte(uint16(v)>>8))
}
