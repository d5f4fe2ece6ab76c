package game

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/vinylgrove/companion/domain/conversation"
)

// Snapshot is the server-confirmed game state derived from a tool result.
// It is replaced wholesale whenever a qualifying result is observed.
type Snapshot struct {
	Board     Board     `json:"board"`
	Raw       string    `json:"raw"`
	Message   string    `json:"message"`
	ToolName  string    `json:"toolName"`
	Timestamp time.Time `json:"timestamp"`
}

// clearTools name the tool class whose result wipes the board.
var clearTools = map[string]bool{
	"clearTicTacToeBoard": true,
}

// boardResult is the shape of a board-carrying tool result.
type boardResult struct {
	Message string `json:"message"`
	Board   string `json:"board"`
}

// ApplyTools folds a completed assistant message's tool invocations into
// the current snapshot. Board-carrying results replace it wholesale; a
// clear-class result drops it to nil; everything else leaves it alone.
func ApplyTools(current *Snapshot, msg conversation.Message, now time.Time) *Snapshot {
	for _, tool := range msg.Tools {
		if tool.Result == nil {
			continue
		}
		if clearTools[tool.ToolName] {
			current = nil
			continue
		}
		var res boardResult
		if err := json.Unmarshal(tool.Result, &res); err != nil || res.Board == "" {
			continue
		}
		current = &Snapshot{
			Board:     ParseBoard(res.Board),
			Raw:       res.Board,
			Message:   res.Message,
			ToolName:  tool.ToolName,
			Timestamp: now,
		}
	}
	return current
}

// pendingMove is the user's optimistic, unconfirmed move.
type pendingMove struct {
	Row  int
	Col  int
	Mark string
}

var (
	// ErrNoGame is returned when a move is attempted with no known board.
	ErrNoGame = errors.New("no active game")
	// ErrCellTaken is returned when the target cell is already played.
	ErrCellTaken = errors.New("cell already occupied")
	// ErrOutOfRange is returned for positions outside the grid.
	ErrOutOfRange = errors.New("position out of range")
)

// View is the UI-facing game state: the confirmed board with any
// optimistic overlay already applied.
type View struct {
	Active  bool      `json:"active"`
	Board   Board     `json:"board"`
	Message string    `json:"message"`
	Pending bool      `json:"pending"`
	Updated time.Time `json:"updated,omitempty"`
}

// Tracker holds the confirmed snapshot and the optimistic overlay. The
// overlay is discarded the instant any new confirmed snapshot (or a
// clear) arrives; server state always supersedes the local guess.
type Tracker struct {
	mu       sync.RWMutex
	snapshot *Snapshot
	pending  *pendingMove
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe folds a completed assistant message into the tracker. Any
// change to the confirmed snapshot clears the optimistic overlay.
func (t *Tracker) Observe(msg conversation.Message, now time.Time) {
	if msg.Role != conversation.RoleAssistant || msg.Status != conversation.StatusComplete {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	next := ApplyTools(t.snapshot, msg, now)
	if next != t.snapshot {
		t.pending = nil
	}
	t.snapshot = next
}

// TryMove records an optimistic move against the last known board. The
// provisional mark is whichever player's turn the board implies.
func (t *Tracker) TryMove(row, col int) error {
	if row < 0 || row > 2 || col < 0 || col > 2 {
		return ErrOutOfRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot == nil {
		return ErrNoGame
	}
	if t.snapshot.Board[row][col] != "" {
		return ErrCellTaken
	}
	t.pending = &pendingMove{Row: row, Col: col, Mark: CurrentPlayer(t.snapshot.Board)}
	return nil
}

// Reset drops both the snapshot and the overlay.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.snapshot = nil
	t.pending = nil
	t.mu.Unlock()
}

// View returns the current board with the optimistic overlay applied.
func (t *Tracker) View() View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.snapshot == nil {
		return View{}
	}
	v := View{
		Active:  true,
		Board:   t.snapshot.Board,
		Message: t.snapshot.Message,
		Updated: t.snapshot.Timestamp,
	}
	if t.pending != nil {
		v.Board[t.pending.Row][t.pending.Col] = t.pending.Mark
		v.Pending = true
	}
	return v
}
