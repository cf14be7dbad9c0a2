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

package sensor

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/PaulMaddox/conduit/internal"
	"github.com/PaulMaddox/conduit/transport"
)

// TransportProtocol tags the application protocol spoken over a client
// connection, for event labeling.
type TransportProtocol string

// ProtocolHTTP is the only transport protocol the binding layer produces
// today.
const ProtocolHTTP TransportProtocol = "http"

// ClientContext describes one logical client connection: the proxy-wide
// context it was created under, the destination it targets, and the
// transport protocol spoken over it. The Proxy field is opaque data carried
// through for correlation; this package never inspects it.
type ClientContext struct {
	Proxy      any
	RemoteAddr netip.AddrPort
	Protocol   TransportProtocol
}

// Handler receives telemetry events from instrumented connectors and HTTP
// clients. Implementations must be safe for concurrent use and must not
// block; they observe outcomes but can never alter them.
type Handler interface {
	// ConnectOpened is called when a connect attempt succeeds. elapsed is
	// the time the attempt took.
	ConnectOpened(ctx *ClientContext, elapsed time.Duration)
	// ConnectFailed is called when a connect attempt fails.
	ConnectFailed(ctx *ClientContext, err error, elapsed time.Duration)
	// ConnectionClosed is called when an established connection is closed,
	// with the byte counts transferred over its lifetime.
	ConnectionClosed(ctx *ClientContext, bytesRead, bytesWritten uint64, lifetime time.Duration)
	// RequestStart is called before a request is dispatched. id is unique
	// and monotonically increasing across all requests observed through
	// services built from the same factory.
	RequestStart(ctx *ClientContext, id uint64, req *http.Request)
	// ResponseEnd is called once response headers arrive or the exchange
	// fails. Exactly one of resp and err is non-nil.
	ResponseEnd(ctx *ClientContext, id uint64, resp *http.Response, err error, elapsed time.Duration)
}

// Sensors instruments connectors and HTTP clients with a Handler. The zero
// value (and [Null]) is a no-op: wrapping methods return their argument
// unchanged, so un-instrumented stacks pay nothing.
type Sensors struct {
	handler Handler
	clock   internal.Clock
}

// New returns Sensors that deliver events to handler. If clock is nil the
// real clock is used; tests substitute a fake.
func New(handler Handler, clock internal.Clock) Sensors {
	if clock == nil {
		clock = internal.NewRealClock()
	}
	return Sensors{handler: handler, clock: clock}
}

// Null returns no-op Sensors for contexts without telemetry.
func Null() Sensors {
	return Sensors{}
}

// Connector wraps conn so that connect attempts and connection lifetimes are
// reported to the handler, labeled with ctx. Success, failure, and the
// connection's data are passed through untouched.
func (s Sensors) Connector(conn transport.Connector, ctx *ClientContext) transport.Connector {
	if s.handler == nil {
		return conn
	}
	return &instrumentedConnector{inner: conn, ctx: ctx, handler: s.handler, clock: s.clock}
}

// HTTP wraps rt so that every request/response exchange is reported to the
// handler, tagged with a fresh id drawn from ids.
func (s Sensors) HTTP(ids *atomic.Uint64, rt http.RoundTripper, ctx *ClientContext) http.RoundTripper {
	if s.handler == nil {
		return rt
	}
	return &instrumentedRoundTripper{inner: rt, ctx: ctx, ids: ids, handler: s.handler, clock: s.clock}
}

type instrumentedConnector struct {
	inner   transport.Connector
	ctx     *ClientContext
	handler Handler
	clock   internal.Clock
}

func (c *instrumentedConnector) Connect(ctx context.Context) (net.Conn, error) {
	start := c.clock.Now()
	conn, err := c.inner.Connect(ctx)
	elapsed := c.clock.Since(start)
	if err != nil {
		c.handler.ConnectFailed(c.ctx, err, elapsed)
		return nil, err
	}
	c.handler.ConnectOpened(c.ctx, elapsed)
	return &countingConn{
		Conn:    conn,
		ctx:     c.ctx,
		handler: c.handler,
		clock:   c.clock,
		opened:  c.clock.Now(),
	}, nil
}

// countingConn observes bytes transferred and reports a close event exactly
// once, even if Close is called multiple times.
type countingConn struct {
	net.Conn
	ctx     *ClientContext
	handler Handler
	clock   internal.Clock
	opened  time.Time

	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
	closed       atomic.Bool
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.bytesRead.Add(uint64(n))
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.bytesWritten.Add(uint64(n))
	return n, err
}

func (c *countingConn) Close() error {
	err := c.Conn.Close()
	if c.closed.CompareAndSwap(false, true) {
		c.handler.ConnectionClosed(c.ctx, c.bytesRead.Load(), c.bytesWritten.Load(), c.clock.Since(c.opened))
	}
	return err
}

type instrumentedRoundTripper struct {
	inner   http.RoundTripper
	ctx     *ClientContext
	ids     *atomic.Uint64
	handler Handler
	clock   internal.Clock
}

func (rt *instrumentedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	id := rt.ids.Add(1)
	rt.handler.RequestStart(rt.ctx, id, req)
	start := rt.clock.Now()
	resp, err := rt.inner.RoundTrip(req)
	rt.handler.ResponseEnd(rt.ctx, id, resp, err, rt.clock.Since(start))
	return resp, err
}

// CloseIdleConnections forwards to the wrapped round-tripper so teardown
// reaches the underlying transport through the instrumentation layer.
func (rt *instrumentedRoundTripper) CloseIdleConnections() {
	if closer, ok := rt.inner.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

// MultiHandler fans events out to every given handler, in order.
func MultiHandler(handlers ...Handler) Handler {
	return multiHandler(handlers)
}

type multiHandler []Handler

func (m multiHandler) ConnectOpened(ctx *ClientContext, elapsed time.Duration) {
	for _, h := range m {
		h.ConnectOpened(ctx, elapsed)
	}
}

func (m multiHandler) ConnectFailed(ctx *ClientContext, err error, elapsed time.Duration) {
	for _, h := range m {
		h.ConnectFailed(ctx, err, elapsed)
	}
}

func (m multiHandler) ConnectionClosed(ctx *ClientContext, bytesRead, bytesWritten uint64, lifetime time.Duration) {
	for _, h := range m {
		h.ConnectionClosed(ctx, bytesRead, bytesWritten, lifetime)
	}
}

func (m multiHandler) RequestStart(ctx *ClientContext, id uint64, req *http.Request) {
	for _, h := range m {
		h.RequestStart(ctx, id, req)
	}
}

func (m multiHandler) ResponseEnd(ctx *ClientContext, id uint64, resp *http.Response, err error, elapsed time.Duration) {
	for _, h := range m {
		h.ResponseEnd(ctx, id, resp, err, elapsed)
	}
}
