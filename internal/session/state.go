package session

import (
	"encoding/json"
	"sync"
)

// HistorySize is how many recent actions a session keeps for correlation.
const HistorySize = 4

// NoChest is the coordinate value used while no chest is open.
const NoChest = -1

// CorrelationState is where a session stands in assembling a composite
// action out of consecutive records.
type CorrelationState int

const (
	Idle         CorrelationState = iota // nothing recorded since the last reset
	AwaitingNext                         // history holds records awaiting a follow-up
)

var correlationNames = map[CorrelationState]string{
	Idle:         "idle",
	AwaitingNext: "awaiting_next",
}

func (c CorrelationState) String() string {
	if s, ok := correlationNames[c]; ok {
		return s
	}
	return "unknown"
}

func (c CorrelationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Composite is a higher-level action inferred from several records, such as
// moving an item from the inventory into a chest.
type Composite int

const (
	NoComposite Composite = iota
)

// PlayerSession is the watcher's state for one logged-in player. Only
// handlers for the session's own slot mutate it; the mutex makes reads from
// the admin API safe.
type PlayerSession struct {
	index int

	mu        sync.Mutex
	chestOpen bool
	chestX    int
	chestY    int
	history   [HistorySize]ActionRecord
	recorded  int // total records ever written; history cursor is recorded % HistorySize
	state     CorrelationState
}

func NewPlayerSession(index int) *PlayerSession {
	return &PlayerSession{
		index:  index,
		chestX: NoChest,
		chestY: NoChest,
	}
}

// Index returns the connection slot the session belongs to.
func (s *PlayerSession) Index() int {
	return s.index
}

// OpenChest marks the chest at (x, y) as the one the player is using.
func (s *PlayerSession) OpenChest(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chestOpen = true
	s.chestX = x
	s.chestY = y
}

// CloseChest clears the chest context.
func (s *PlayerSession) CloseChest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chestOpen = false
	s.chestX = NoChest
	s.chestY = NoChest
}

// Chest returns the chest context. Coordinates are NoChest unless a chest
// was opened since the last close.
func (s *PlayerSession) Chest() (open bool, x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chestOpen, s.chestX, s.chestY
}

// RecordAction appends rec to the rolling history, overwriting the oldest
// entry once the history is full.
func (s *PlayerSession) RecordAction(rec ActionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[s.recorded%HistorySize] = rec
	s.recorded++
	s.state = AwaitingNext
	s.correlateLocked()
}

// correlateLocked is the extension point for composite-action inference.
// Intended rules (inventory->hand->chest is a move into a chest, coin plus
// hand is an NPC purchase, and so on) depend on platform-specific event
// orders that are not pinned down yet, so nothing is inferred and the
// history stays available for the next record. Caller must hold s.mu.
func (s *PlayerSession) correlateLocked() Composite {
	return NoComposite
}

// History returns the recorded actions, oldest first.
func (s *PlayerSession) History() []ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

func (s *PlayerSession) historyLocked() []ActionRecord {
	n := s.recorded
	if n > HistorySize {
		n = HistorySize
	}
	out := make([]ActionRecord, 0, n)
	start := s.recorded - n
	for i := start; i < s.recorded; i++ {
		out = append(out, s.history[i%HistorySize])
	}
	return out
}

// ResetHistory drops the rolling history and returns to Idle.
func (s *PlayerSession) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = [HistorySize]ActionRecord{}
	s.recorded = 0
	s.state = Idle
}

// State returns the correlation state.
func (s *PlayerSession) State() CorrelationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot is a read-only copy of a session, safe to retain and serialize.
type Snapshot struct {
	Index     int              `json:"index"`
	ChestOpen bool             `json:"chestOpen"`
	ChestX    int              `json:"chestX"`
	ChestY    int              `json:"chestY"`
	State     CorrelationState `json:"state"`
	History   []string         `json:"history"`
}

func (s *PlayerSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.historyLocked()
	hist := make([]string, len(recs))
	for i, r := range recs {
		hist[i] = r.String()
	}
	return Snapshot{
		Index:     s.index,
		ChestOpen: s.chestOpen,
		ChestX:    s.chestX,
		ChestY:    s.chestY,
		State:     s.state,
		History:   hist,
	}
}
