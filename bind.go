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
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/PaulMaddox/conduit/internal"
	"github.com/PaulMaddox/conduit/sensor"
	"github.com/PaulMaddox/conduit/transport"
)

// DefaultConnectTimeout bounds connection establishment when no explicit
// timeout is configured with [Binder.WithConnectTimeout].
const DefaultConnectTimeout = 300 * time.Millisecond

// Service is the request-routable value produced by binding: a reconnect
// wrapper around an instrumented, protocol-specific HTTP client whose
// connections are timeout-bounded and targeted at a single address. A
// Service performs no I/O until first invoked.
type Service = *Reconnect

// Binder is the unbound construction state of a connection factory: it
// carries everything except the proxy-wide context. Test and benchmark code
// can use a fresh Binder directly, since it defaults to null sensors; the
// proxy attaches its shared context with Bind once the executor and
// instrumentation are wired.
//
// The type parameter C is the proxy-wide context threaded through to
// per-connection client contexts. It is opaque to this package.
type Binder[C any] struct {
	sensors        sensor.Sensors
	clock          internal.Clock
	dial           transport.DialFunc
	connectTimeout time.Duration
	requestIDs     *atomic.Uint64
}

// NewBinder returns an unbound factory with null sensors, the real clock,
// the default dialer, the default connect timeout, and a fresh request-id
// counter.
func NewBinder[C any]() *Binder[C] {
	return &Binder[C]{
		sensors:        sensor.Null(),
		clock:          internal.NewRealClock(),
		connectTimeout: DefaultConnectTimeout,
		requestIDs:     new(atomic.Uint64),
	}
}

// WithSensors configures the instrumentation used by services built from
// this factory.
func (b *Binder[C]) WithSensors(sensors sensor.Sensors) *Binder[C] {
	b.sensors = sensors
	return b
}

// WithConnectTimeout configures how long a connect attempt may take before
// failing with a timeout error. Zero or negative durations fall back to
// [DefaultConnectTimeout].
func (b *Binder[C]) WithConnectTimeout(d time.Duration) *Binder[C] {
	if d <= 0 {
		d = DefaultConnectTimeout
	}
	b.connectTimeout = d
	return b
}

// WithDialer configures the function used to establish network connections.
func (b *Binder[C]) WithDialer(dial transport.DialFunc) *Binder[C] {
	b.dial = dial
	return b
}

// WithClock substitutes the clock driving connect timeouts. Intended for
// tests.
func (b *Binder[C]) WithClock(clock internal.Clock) *Binder[C] {
	b.clock = clock
	return b
}

// Bind attaches the proxy-wide context, transitioning to the bound state.
// The returned Bind shares this factory's request-id counter.
func (b *Binder[C]) Bind(ctx C) *Bind[C] {
	return &Bind[C]{
		ctx:            ctx,
		sensors:        b.sensors,
		clock:          b.clock,
		dial:           b.dial,
		connectTimeout: b.connectTimeout,
		requestIDs:     b.requestIDs,
	}
}

// Bind is a bound connection factory: it turns (address, protocol) pairs
// into Services. Its configuration is immutable; producing a variant
// requires a rebuild via [Bind.WithConnectTimeout]. Clones share the
// request-id counter, so ids stay globally monotonic across all services
// built from one factory lineage.
type Bind[C any] struct {
	ctx            C
	sensors        sensor.Sensors
	clock          internal.Clock
	dial           transport.DialFunc
	connectTimeout time.Duration
	requestIDs     *atomic.Uint64
}

// Clone returns a shallow copy sharing the request-id counter, sensors,
// clock, and proxy context.
func (b *Bind[C]) Clone() *Bind[C] {
	clone := *b
	return &clone
}

// WithConnectTimeout returns a new Bind with the given connect timeout. The
// receiver is unchanged; the copy shares the request-id counter.
func (b *Bind[C]) WithConnectTimeout(d time.Duration) *Bind[C] {
	if d <= 0 {
		d = DefaultConnectTimeout
	}
	clone := *b
	clone.connectTimeout = d
	return &clone
}

// BindService assembles the layered service for one destination. Assembly is
// synchronous, CPU-only work and cannot fail; connecting is deferred until
// the service is first invoked, and every failure (timeout, refusal, I/O)
// surfaces through the service's invocation error.
//
// The stack, outermost first: reconnect wrapper, instrumented HTTP client,
// protocol-specific transport, instrumented connector, timeout-bounded
// connector, raw address-targeted connector.
func (b *Bind[C]) BindService(addr netip.AddrPort, protocol Protocol) Service {
	clientCtx := &sensor.ClientContext{
		Proxy:      b.ctx,
		RemoteAddr: addr,
		Protocol:   sensor.ProtocolHTTP,
	}
	return NewReconnect(func() http.RoundTripper {
		connect := transport.NewConnector(addr, b.dial)
		connect = transport.WithConnectTimeout(connect, b.connectTimeout, b.clock)
		connect = b.sensors.Connector(connect, clientCtx)
		client := newProtocolRoundTripper(protocol, addr, connect)
		return b.sensors.HTTP(b.requestIDs, client, clientCtx)
	})
}

// WithProtocol fixes the protocol ahead of time, adapting this factory to
// the discovery layer's shape: one BindProtocol is registered per protocol
// observed on the wire, and the discovery layer supplies only the address.
func (b *Bind[C]) WithProtocol(protocol Protocol) *BindProtocol[C] {
	return &BindProtocol[C]{bind: b, protocol: protocol}
}

// BindProtocol is a bound factory with a pre-determined protocol.
type BindProtocol[C any] struct {
	bind     *Bind[C]
	protocol Protocol
}

// Bind produces a service for addr using the fixed protocol. The returned
// error is always nil; the error result exists to satisfy the discovery
// layer's binder contract.
func (p *BindProtocol[C]) Bind(addr netip.AddrPort) (Service, error) {
	return p.bind.BindService(addr, p.protocol), nil
}
