// Copyright (c) 2018 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "runtime"

// Parallel runs functions enqueued by enqueue on a fixed-size pool of
// goroutines (sized to GOMAXPROCS), and returns a channel that closes once
// enqueue has returned and every queued function has run to completion.
func Parallel(enqueue func(queue chan<- func())) <-chan struct{} {
	queue := make(chan func())
	done := make(chan struct{})

	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}

	var g Goes
	for i := 0; i < n; i++ {
		g.Go(func() {
			for fn := range queue {
				fn()
			}
		})
	}

	go func() {
		enqueue(queue)
		close(queue)
		g.Wait()
		close(done)
	}()

	return done
}
