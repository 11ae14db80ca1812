package history

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vango-dev/routeagent/internal/mailbox"
	"github.com/vango-dev/routeagent/pkg/route"
)

// Entry is one slot in a Memory history.
type Entry struct {
	URL      string `json:"url"`
	State    string `json:"state,omitempty"`
	HasState bool   `json:"has_state,omitempty"`
}

type popEvent struct {
	state string
	ok    bool
}

// Memory is an in-process navigation history.
//
// It stores entries on a stack with a cursor, the way a browser tab does.
// Push discards any entries ahead of the cursor. Back, Forward and Go move
// the cursor and queue a pop-state notification that is delivered on a
// separate goroutine, never on the caller's.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	index   int
	onPop   func(state string, ok bool)
	pops    *mailbox.Mailbox[popEvent]
	closed  bool
}

// NewMemory returns a history holding a single entry for initialURL with no
// state. An empty initialURL means "/".
func NewMemory(initialURL string) *Memory {
	if initialURL == "" {
		initialURL = "/"
	}
	return &Memory{
		entries: []Entry{{URL: initialURL}},
		pops:    mailbox.New[popEvent](),
	}
}

// Location implements History.
func (m *Memory) Location() (path, query, fragment string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return route.SplitRouteString(m.entries[m.index].URL)
}

// Push implements History.
func (m *Memory) Push(url, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.entries = append(m.entries[:m.index+1], Entry{URL: url, State: state, HasState: true})
	m.index = len(m.entries) - 1
	return nil
}

// Replace implements History.
func (m *Memory) Replace(url, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.entries[m.index] = Entry{URL: url, State: state, HasState: true}
	return nil
}

// State implements History.
func (m *Memory) State() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[m.index]
	return e.State, e.HasState
}

// OnPopState implements History.
func (m *Memory) OnPopState(fn func(state string, ok bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onPop != nil {
		return ErrCallbackRegistered
	}
	if m.closed {
		return ErrClosed
	}
	m.onPop = fn
	go m.pops.Run(func(ev popEvent) { fn(ev.state, ev.ok) })
	return nil
}

// Back moves one entry back. It reports false at the first entry.
func (m *Memory) Back() bool {
	return m.Go(-1)
}

// Forward moves one entry forward. It reports false at the last entry.
func (m *Memory) Forward() bool {
	return m.Go(1)
}

// Go moves the cursor by delta entries and fires the pop-state callback.
// It reports false, and does nothing, when the target is out of range or
// delta is zero.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) || m.closed {
		m.mu.Unlock()
		return false
	}
	m.index = target
	e := m.entries[target]
	// Queued under the lock so events keep the order of the cursor moves.
	if m.onPop != nil {
		m.pops.Push(popEvent{state: e.State, ok: e.HasState})
	}
	m.mu.Unlock()
	return true
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the cursor position.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Entries returns a copy of the stack.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Close stops pop-state delivery and rejects further writes.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.pops.Close()
	return nil
}

// memorySnapshot is the persisted form of a Memory history.
type memorySnapshot struct {
	Entries []Entry `json:"entries"`
	Index   int     `json:"index"`
}

// Snapshot serializes the entries and cursor.
func (m *Memory) Snapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(memorySnapshot{Entries: m.entries, Index: m.index})
}

// RestoreMemory rebuilds a Memory history from Snapshot output.
func RestoreMemory(data []byte) (*Memory, error) {
	var snap memorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("history: restore snapshot: %w", err)
	}
	if len(snap.Entries) == 0 {
		return nil, fmt.Errorf("history: restore snapshot: no entries")
	}
	if snap.Index < 0 || snap.Index >= len(snap.Entries) {
		return nil, fmt.Errorf("history: restore snapshot: index %d out of range", snap.Index)
	}
	return &Memory{
		entries: snap.Entries,
		index:   snap.Index,
		pops:    mailbox.New[popEvent](),
	}, nil
}
