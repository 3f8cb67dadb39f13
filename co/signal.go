// Copyright (c) 2018 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Signal is a generational broadcast: Broadcast wakes every Waiter obtained
// before that call, then moves on to a new, not-yet-fired generation. A
// Waiter obtained after a Broadcast therefore watches for the *next*
// occurrence rather than seeing the last one as already fired — the right
// fit for a recurring "this happened again" event (a worker exiting,
// possibly to be replaced and exit again later) rather than a forever-latched
// one-time event.
type Signal struct {
	mu sync.Mutex
	c  chan struct{}
}

func (s *Signal) chanLocked() chan struct{} {
	if s.c == nil {
		s.c = make(chan struct{})
	}
	return s.c
}

// Broadcast fires the current generation, waking every Waiter obtained since
// the last Broadcast, then starts a fresh generation for whatever NewWaiter
// calls come next.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	ch := s.chanLocked()
	s.c = nil
	s.mu.Unlock()
	close(ch)
}

// Waiter observes one generation of a Signal.
type Waiter struct {
	c chan struct{}
}

// C returns the channel that closes when the generation this Waiter was
// obtained for fires.
func (w Waiter) C() <-chan struct{} {
	return w.c
}

// NewWaiter returns a Waiter on the signal's current generation.
func (s *Signal) NewWaiter() Waiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Waiter{c: s.chanLocked()}
}
