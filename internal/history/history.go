/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history keeps the back/forward navigation history of view extents
// for one project.
package history

import (
	"sync"

	"multicanvas/internal/domain"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 50

// Tolerance is the per-bound distance under which two extents count as the same view.
const Tolerance = 1e-4

// Entry is one remembered view.
type Entry struct {
	Extent domain.Extent `json:"extent"`
	CRS    string        `json:"crs"`
}

func (e Entry) same(o Entry) bool {
	return e.CRS == o.CRS && e.Extent.Equal(o.Extent, Tolerance)
}

// History is a bounded list of entries with a cursor.
// Invariant: cursor is -1 iff entries is empty, otherwise 0 <= cursor < len(entries) <= capacity.
// It is safe for concurrent use.
type History struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	cursor   int
	updating bool
}

func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity, cursor: -1}
}

// Add records a view the user navigated to. It is a no-op while suppressed
// or when the view equals the last entry after forward entries were dropped.
func (h *History) Add(extent domain.Extent, crs string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.updating {
		return
	}
	e := Entry{Extent: extent, CRS: crs}
	// Any new view discards what was ahead of the cursor.
	if h.cursor < len(h.entries)-1 {
		h.entries = h.entries[:h.cursor+1]
	}
	if n := len(h.entries); n > 0 && h.entries[n-1].same(e) {
		return
	}
	h.entries = append(h.entries, e)
	if len(h.entries) > h.capacity {
		drop := len(h.entries) - h.capacity
		h.entries = append([]Entry(nil), h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1
}

// IsCurrent reports whether the entry under the cursor shows the same view.
func (h *History) IsCurrent(extent domain.Extent, crs string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0 && h.entries[h.cursor].same(Entry{Extent: extent, CRS: crs})
}

// CanGoBack reports whether Back would move the cursor.
func (h *History) CanGoBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanGoForward reports whether Forward would move the cursor.
func (h *History) CanGoForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0 && h.cursor < len(h.entries)-1
}

// Back moves the cursor one step towards older views and returns the entry there.
func (h *History) Back() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor <= 0 {
		return Entry{}, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Forward moves the cursor one step towards newer views and returns the entry there.
func (h *History) Forward() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor < 0 || h.cursor >= len(h.entries)-1 {
		return Entry{}, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Current returns the entry under the cursor.
func (h *History) Current() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor < 0 {
		return Entry{}, false
	}
	return h.entries[h.cursor], true
}

// Suppress runs fn with recording disabled, so views applied by navigation
// are not recorded again. The flag is cleared even if fn panics.
func (h *History) Suppress(fn func()) {
	h.mu.Lock()
	prev := h.updating
	h.updating = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.updating = prev
		h.mu.Unlock()
	}()
	fn()
}

// Updating reports whether recording is currently suppressed.
func (h *History) Updating() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updating
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) Cursor() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

func (h *History) Capacity() int { return h.capacity }

// Restore replaces the recorded views. Only the newest Capacity entries are
// kept and cursor is clamped into range.
func (h *History) Restore(entries []Entry, cursor int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if drop := len(entries) - h.capacity; drop > 0 {
		entries = entries[drop:]
		cursor -= drop
	}
	h.entries = append([]Entry(nil), entries...)
	switch {
	case len(h.entries) == 0:
		h.cursor = -1
	case cursor < 0:
		h.cursor = 0
	case cursor >= len(h.entries):
		h.cursor = len(h.entries) - 1
	default:
		h.cursor = cursor
	}
}

// Entries returns a copy of the recorded views, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}
