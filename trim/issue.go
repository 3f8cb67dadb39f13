// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"errors"
	"sync"
	"time"

	"github.com/coldvault/poold/vdev"
)

// ErrNoSuchDevice is the completion error that triggers the DeviceUnavailable
// rewind policy (§4.3 on_done_manual, §7).
var ErrNoSuchDevice = errors.New("trim: no such device")

// Request is a single physical TRIM I/O (§4.3 step 11, "zio_trim").
type Request struct {
	Leaf        *vdev.Leaf
	Offset      uint64
	Size        uint64
	Secure      bool
	Type        vdev.TrimType
	SubmittedAt time.Time
}

// Result is handed to a Request's completion callback.
type Result struct {
	Request Request
	Err     error
}

// Issuer is the block-I/O issue path's contract as consumed by this
// subsystem (§1 "Out of scope", §6 "zio_trim"): submit a TRIM request with
// priority Trim and flag CanFail, and invoke done asynchronously on
// completion. Submit must not block.
type Issuer interface {
	Submit(req Request, done func(Result))
}

// FakeIssuer is an in-memory Issuer for tests. By default it completes
// every request immediately (on the calling goroutine, synchronously) with
// no error; tests that need to exercise the rate or queue gate switch it to
// held mode and release completions under their own control.
type FakeIssuer struct {
	mu        sync.Mutex
	held      bool
	forceErr  error
	pending   []func()
}

// NewFakeIssuer returns a FakeIssuer that completes every request
// immediately with no error.
func NewFakeIssuer() *FakeIssuer {
	return &FakeIssuer{}
}

func (f *FakeIssuer) Submit(req Request, done func(Result)) {
	f.mu.Lock()
	held := f.held
	err := f.forceErr
	f.mu.Unlock()

	complete := func() { done(Result{Request: req, Err: err}) }
	if !held {
		complete()
		return
	}
	f.mu.Lock()
	f.pending = append(f.pending, complete)
	f.mu.Unlock()
}

// Hold switches the issuer into held mode: subsequent Submit calls queue
// their completion instead of firing it, until Release* is called.
func (f *FakeIssuer) Hold(held bool) {
	f.mu.Lock()
	f.held = held
	f.mu.Unlock()
}

// SetForceErr makes every future completion (held or immediate) carry err.
func (f *FakeIssuer) SetForceErr(err error) {
	f.mu.Lock()
	f.forceErr = err
	f.mu.Unlock()
}

// ReleaseOne completes the oldest pending request, if any, and reports
// whether one was released.
func (f *FakeIssuer) ReleaseOne() bool {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return false
	}
	next := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	next()
	return true
}

// ReleaseAll completes every currently pending request and returns how many
// it released.
func (f *FakeIssuer) ReleaseAll() int {
	n := 0
	for f.ReleaseOne() {
		n++
	}
	return n
}

// Pending returns the number of requests awaiting release.
func (f *FakeIssuer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
