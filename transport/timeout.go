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

package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/PaulMaddox/conduit/internal"
)

// ConnectTimeoutError is returned by a timeout-bounded connector when the
// underlying connect attempt did not complete within the configured duration.
// It is distinguishable from a refusal: use [errors.As], or the Timeout
// method, which makes it satisfy [net.Error].
type ConnectTimeoutError struct {
	After time.Duration
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("connection attempt timed out after %s", e.After)
}

// Timeout implements [net.Error].
func (e *ConnectTimeoutError) Timeout() bool { return true }

// Temporary implements [net.Error]. A timed-out attempt may well succeed if
// retried, so it is reported as temporary.
func (e *ConnectTimeoutError) Temporary() bool { return true }

var _ net.Error = (*ConnectTimeoutError)(nil)

// WithConnectTimeout wraps a Connector so that any connect attempt that does
// not complete within d fails with a *ConnectTimeoutError instead of hanging.
//
// The losing connect attempt is abandoned rather than forcibly aborted: its
// context is not cancelled, and if it does eventually produce a connection,
// that connection is closed. If clock is nil the real clock is used.
func WithConnectTimeout(inner Connector, d time.Duration, clock internal.Clock) Connector {
	if clock == nil {
		clock = internal.NewRealClock()
	}
	return &timeoutConnector{inner: inner, timeout: d, clock: clock}
}

type timeoutConnector struct {
	inner   Connector
	timeout time.Duration
	clock   internal.Clock
}

type connectResult struct {
	conn net.Conn
	err  error
}

func (c *timeoutConnector) Connect(ctx context.Context) (net.Conn, error) {
	timer := c.clock.NewTimer(c.timeout)
	defer timer.Stop()

	resultCh := make(chan connectResult, 1)
	go func() {
		conn, err := c.inner.Connect(ctx)
		resultCh <- connectResult{conn: conn, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		go drainConnect(resultCh)
		return nil, ctx.Err()
	case <-timer.Chan():
		go drainConnect(resultCh)
		return nil, &ConnectTimeoutError{After: c.timeout}
	}
}

// drainConnect reaps the result of an abandoned connect attempt so a
// late-arriving socket is not leaked.
func drainConnect(resultCh <-chan connectResult) {
	if result := <-resultCh; result.conn != nil {
		_ = result.conn.Close()
	}
}
