package canvas

import "github.com/meikuraledutech/architex"

// DefaultHistoryLimit bounds the number of snapshots kept for undo/redo.
const DefaultHistoryLimit = 50

// History is a linear list of full-graph snapshots with a cursor.
// The entry under the cursor always equals the current graph.
type History struct {
	entries []architex.Snapshot
	cursor  int
	limit   int
}

// NewHistory starts a history holding only initial.
// A limit below 1 falls back to DefaultHistoryLimit.
func NewHistory(initial architex.Snapshot, limit int) *History {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	h := &History{limit: limit}
	h.Reset(initial)
	return h
}

// Reset drops every entry and starts over from s.
func (h *History) Reset(s architex.Snapshot) {
	h.entries = []architex.Snapshot{architex.NewSnapshot(s.Nodes, s.Edges)}
	h.cursor = 0
}

// Push records s as the newest entry. Entries after the cursor (the redo
// branch) are discarded and the oldest entries fall off past the limit.
func (h *History) Push(s architex.Snapshot) {
	h.entries = append(h.entries[:h.cursor+1], architex.NewSnapshot(s.Nodes, s.Edges))
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]architex.Snapshot(nil), h.entries[over:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo moves the cursor back and returns a copy of the entry there.
func (h *History) Undo() (architex.Snapshot, bool) {
	if !h.CanUndo() {
		return architex.Snapshot{}, false
	}
	h.cursor--
	return h.current(), true
}

// Redo moves the cursor forward and returns a copy of the entry there.
func (h *History) Redo() (architex.Snapshot, bool) {
	if !h.CanRedo() {
		return architex.Snapshot{}, false
	}
	h.cursor++
	return h.current(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Cursor() int   { return h.cursor }

func (h *History) current() architex.Snapshot {
	e := h.entries[h.cursor]
	return architex.NewSnapshot(e.Nodes, e.Edges)
}
