// Copyright (c) 2018 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Choes is like Goes, except every goroutine it spawns is handed a stop
// channel that closes exactly once, when Stop is called. Goroutines that
// cooperatively poll the channel exit promptly; Stop itself never blocks
// and is safe to call more than once or concurrently.
type Choes struct {
	wg       sync.WaitGroup
	once     sync.Once
	stopChan chan struct{}
}

// NewChoes creates a ready-to-use Choes.
func NewChoes() *Choes {
	return &Choes{stopChan: make(chan struct{})}
}

// Go spawns f, passing it the group's stop channel.
func (c *Choes) Go(f func(stopChan chan struct{})) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		f(c.stopChan)
	}()
}

// Stop closes the stop channel shared by every goroutine spawned via Go.
// It is idempotent and safe to call from any goroutine.
func (c *Choes) Stop() {
	c.once.Do(func() {
		close(c.stopChan)
	})
}

// Wait blocks until every spawned goroutine has returned.
func (c *Choes) Wait() {
	c.wg.Wait()
}
