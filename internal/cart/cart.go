// Package cart is the client-held staging area for event entries. Lines are
// keyed by meeting id; adding a line for a meeting already present replaces
// it. Every mutation persists the whole cart through a Store.
package cart

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

var (
	// ErrEmptyMeeting is returned for a line without a meeting id.
	ErrEmptyMeeting = errors.New("cart line needs a meeting id")
	// ErrEntryCount is returned for a line with no entries or more than model.MaxEntries.
	ErrEntryCount = fmt.Errorf("cart line needs 1 to %d entries", model.MaxEntries)
)

// Line is the staged entry-set for one meeting.
type Line struct {
	MeetingID   string                  `json:"meetingId"`
	MeetingName string                  `json:"meetingName"`
	Entries     []model.EventEntryDraft `json:"entries"`
	TotalCost   int64                   `json:"totalCost"`
}

// NewLine builds a line and prices it at unitCost per entry.
func NewLine(meetingID, meetingName string, entries []model.EventEntryDraft, unitCost int64) Line {
	return Line{
		MeetingID:   meetingID,
		MeetingName: meetingName,
		Entries:     slices.Clone(entries),
		TotalCost:   int64(len(entries)) * unitCost,
	}
}

func (l Line) clone() Line {
	l.Entries = slices.Clone(l.Entries)
	return l
}

// Snapshot is the persisted form of a cart: meeting id to line.
type Snapshot map[string]Line

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v.clone()
	}
	return out
}

// Cart is safe for concurrent use. Concurrent writers through separate Carts
// sharing one Store are last-write-wins for the whole snapshot.
type Cart struct {
	mu    sync.Mutex
	lines Snapshot
	store Store
}

// Load rehydrates a cart from the last snapshot saved in store.
func Load(store Store) (*Cart, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return &Cart{lines: snap, store: store}, nil
}

// AddOrReplace stages line, overwriting any line for the same meeting.
func (c *Cart) AddOrReplace(line Line) error {
	line.MeetingID = strings.TrimSpace(line.MeetingID)
	if line.MeetingID == "" {
		return ErrEmptyMeeting
	}
	if n := len(line.Entries); n < 1 || n > model.MaxEntries {
		return ErrEntryCount
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutate(func(s Snapshot) { s[line.MeetingID] = line.clone() })
}

// Remove drops the line for meetingID. Removing an absent line is a no-op.
func (c *Cart) Remove(meetingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lines[meetingID]; !ok {
		return nil
	}
	return c.mutate(func(s Snapshot) { delete(s, meetingID) })
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutate(func(s Snapshot) { clear(s) })
}

// mutate applies fn to a copy, persists it, and only then swaps it in, so a
// failed save leaves the cart as it was. Caller holds c.mu.
func (c *Cart) mutate(fn func(Snapshot)) error {
	next := c.lines.clone()
	fn(next)
	if err := c.store.Save(next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	c.lines = next
	return nil
}

// Total is the sum of every line's cost.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, l := range c.lines {
		total += l.TotalCost
	}
	return total
}

// EntryCount is the number of staged entries across all lines.
func (c *Cart) EntryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += len(l.Entries)
	}
	return n
}

// Line returns the staged line for meetingID.
func (c *Cart) Line(meetingID string) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[meetingID]
	return l.clone(), ok
}

// Lines returns every line ordered by meeting id.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l.clone())
	}
	slices.SortFunc(out, func(a, b Line) int { return strings.Compare(a.MeetingID, b.MeetingID) })
	return out
}

// Snapshot returns a deep copy of the cart contents. It is never nil.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines.clone()
}
