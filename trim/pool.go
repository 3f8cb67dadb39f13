// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"fmt"
	"sync"

	"github.com/coldvault/poold/vdev"
)

// EventBus is the pool event bus's contract (§1 "Out of scope", §6
// "spa_event_notify"): a lifecycle transition fires a named event against
// the leaf that changed.
type EventBus interface {
	Notify(event vdev.Event, guid vdev.Guid)
}

// HistoryLog is the pool's administrative history log's contract (§6
// "spa_history_log_internal"): one free-form line per lifecycle transition.
type HistoryLog interface {
	Logf(format string, args ...any)
}

// FakeEventBus records every event it is handed, for assertions in tests.
type FakeEventBus struct {
	mu     sync.Mutex
	events []FakeEvent
}

// FakeEvent is one recorded Notify call.
type FakeEvent struct {
	Event vdev.Event
	Guid  vdev.Guid
}

func (b *FakeEventBus) Notify(event vdev.Event, guid vdev.Guid) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, FakeEvent{event, guid})
}

// Events returns every event recorded so far, in order.
func (b *FakeEventBus) Events() []FakeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]FakeEvent(nil), b.events...)
}

// FakeHistoryLog records every formatted line it is handed.
type FakeHistoryLog struct {
	mu    sync.Mutex
	lines []string
}

func (h *FakeHistoryLog) Logf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, fmt.Sprintf(format, args...))
}

// Lines returns every logged line so far, in order.
func (h *FakeHistoryLog) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}
