// Copyright (c) 2018 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Goes manages a group of goroutines spawned together, so that callers can
// Wait for all of them, or select on Done() without blocking.
type Goes struct {
	wg sync.WaitGroup
}

// Go spawns f as a new goroutine tracked by the group.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every goroutine spawned via Go has returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel that's closed once every spawned goroutine has returned.
func (g *Goes) Done() <-chan struct{} {
	c := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(c)
	}()
	return c
}
