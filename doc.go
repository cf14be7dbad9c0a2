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

// Package conduit implements the protocol-aware connection binding layer of
// a transparent proxy: it turns a destination socket address and a
// classified request protocol into a request-routable [Service] that
// establishes, instruments, times out, and automatically reconnects the
// underlying network connection.
//
// To build services, construct an unbound factory with [NewBinder],
// configure it, and attach the proxy-wide context with [Binder.Bind]. The
// bound [Bind] assembles a service per destination via [Bind.BindService];
// [Bind.WithProtocol] adapts it to the discovery layer's shape, which
// supplies only an address per resolution.
//
// # Service Stack
//
// A bound service is a fixed composition of layers, outermost first:
//
//  1. A reconnect wrapper. The inner client is not connected until first
//     invoked; after a connection-level failure the next invocation builds
//     a brand-new client instead of reusing the failed one. No backoff is
//     applied between attempts.
//  2. An instrumented HTTP client that tags every request/response pair
//     with a unique, monotonically increasing id for telemetry correlation.
//  3. The protocol-specific HTTP client: an HTTP/1.x transport, or an
//     HTTP/2-over-cleartext transport for multiplexed destinations.
//  4. An instrumented connector emitting connect and connection-lifetime
//     events.
//  5. A timeout-bounded connector: a connect attempt that does not complete
//     within the configured duration (300ms unless overridden) fails with a
//     timeout error rather than hanging.
//  6. The raw connector, which dials the bound destination address.
//
// Assembly never fails and performs no I/O; every failure is deferred to
// invocation time so that services can be cached and retried without
// re-running discovery.
//
// # Protocol Classification and Key Reuse
//
// [ClassifyRequest] derives a [Protocol] for every inbound request: HTTP/2,
// or HTTP/1.x keyed by a per-destination [Host]. The derived protocol
// decides whether a routing key built from it may be shared across requests
// (see [Protocol.Cachable] and [NewRouterKey]): HTTP/2 connections are
// multiplexed and always shareable, HTTP/1.x connections are shareable only
// when a stable authority was derived, and requests forwarded by transparent
// original-destination rewriting (marked with [WithOriginalDst]) get
// single-use keys so unrelated requests never share a connection.
//
// The consumer side of this contract, a service cache that honors reusable
// versus single-use keys, lives in the router subpackage. Telemetry handlers
// live in the sensor subpackage.
package conduit
