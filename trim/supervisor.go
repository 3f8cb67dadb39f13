// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"github.com/coldvault/poold/co"
	"github.com/coldvault/poold/vdev"
)

// Supervisor drives Controller across every top-level group of a pool at
// import time: VdevTrimRestart for each group runs concurrently rather than
// one at a time, since a group stuck re-deriving state for a large leaf
// shouldn't hold up the others.
type Supervisor struct {
	Controller *Controller
	goes       co.Goes
}

// RestartAll launches VdevTrimRestart for every group in groups on its own
// goroutine and returns immediately; call Wait to block until every group's
// restart call has returned.
func (s *Supervisor) RestartAll(groups []*vdev.TopGroup) {
	for _, top := range groups {
		top := top
		s.goes.Go(func() {
			if err := s.Controller.VdevTrimRestart(top); err != nil {
				s.Controller.logger().Error("restart failed for group", "group", top.Guid, "err", err)
			}
		})
	}
}

// Wait blocks until every goroutine started by RestartAll (or AutotrimAll)
// has returned.
func (s *Supervisor) Wait() {
	s.goes.Wait()
}

// Done returns a channel that closes once every started goroutine has
// returned, for callers that want to select on completion instead of
// blocking outright.
func (s *Supervisor) Done() <-chan struct{} {
	return s.goes.Done()
}

// AutotrimAll starts autotrim on every eligible group concurrently with any
// restart still in flight, matching how a real pool import brings up
// manual resumption and background autotrim side by side rather than in
// sequence.
func (s *Supervisor) AutotrimAll(groups []*vdev.TopGroup) {
	s.goes.Go(func() {
		s.Controller.Autotrim(groups)
	})
}
