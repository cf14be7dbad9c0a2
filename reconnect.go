// Copyright 2025 The conduit authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conduit

import (
	"net/http"
	"sync"

	"github.com/PaulMaddox/conduit/transport"
)

// Reconnect is an [http.RoundTripper] that lazily builds its inner
// round-tripper on first use and replaces it after a connection-level
// failure: the failing round-tripper is discarded, and the next invocation
// builds a fresh one rather than replaying the broken connection.
//
// No delay is applied between reconnect attempts; callers own retry and
// backoff policy.
//
// TODO: add backoff between reconnect attempts.
type Reconnect struct {
	build func() http.RoundTripper

	mu sync.Mutex
	// +checklocks:mu
	current http.RoundTripper
}

// NewReconnect returns a Reconnect that obtains inner round-trippers from
// build. build must be safe to call more than once; each call must produce
// an independent, not-yet-connected round-tripper.
func NewReconnect(build func() http.RoundTripper) *Reconnect {
	return &Reconnect{build: build}
}

func (r *Reconnect) RoundTrip(req *http.Request) (*http.Response, error) {
	inner := r.acquire()
	resp, err := inner.RoundTrip(req)
	if err != nil && transport.IsConnectionError(err) {
		r.discard(inner)
	}
	return resp, err
}

// CloseIdleConnections discards the current inner round-tripper, closing its
// idle connections when it exposes a CloseIdleConnections method. The next
// invocation builds a fresh inner round-tripper.
func (r *Reconnect) CloseIdleConnections() {
	r.mu.Lock()
	inner := r.current
	r.current = nil
	r.mu.Unlock()
	closeIdle(inner)
}

func (r *Reconnect) acquire() http.RoundTripper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		r.current = r.build()
	}
	return r.current
}

// discard drops inner if it is still the current round-tripper. A concurrent
// caller may already have discarded it; replacing a newer round-tripper
// because of an older one's failure would tear down a healthy connection.
func (r *Reconnect) discard(inner http.RoundTripper) {
	r.mu.Lock()
	replaced := r.current == inner
	if replaced {
		r.current = nil
	}
	r.mu.Unlock()
	if replaced {
		closeIdle(inner)
	}
}

func closeIdle(rt http.RoundTripper) {
	if closer, ok := rt.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}
