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

// Package transport provides the lowest layer of the proxy's outbound stack:
// connectors that produce network connections to a single destination
// address. Connectors are composable; see [WithConnectTimeout].
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"syscall"
	"time"
)

//nolint:gochecknoglobals
var defaultDialer = &net.Dialer{
	Timeout:   30 * time.Second,
	KeepAlive: 30 * time.Second,
}

// DialFunc establishes network connections. It matches the signature of
// [net.Dialer.DialContext].
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Connector produces a connection to a fixed destination. Implementations
// must be safe for reuse: every call to Connect is an independent attempt.
type Connector interface {
	Connect(ctx context.Context) (net.Conn, error)
}

// NewConnector returns a Connector that dials TCP connections to addr. If
// dial is nil, a default [net.Dialer] is used that configures the connection
// to use TCP keep-alive every 30 seconds.
func NewConnector(addr netip.AddrPort, dial DialFunc) Connector {
	if dial == nil {
		dial = defaultDialer.DialContext
	}
	return &dialConnector{addr: addr, dial: dial}
}

type dialConnector struct {
	addr netip.AddrPort
	dial DialFunc
}

func (c *dialConnector) Connect(ctx context.Context) (net.Conn, error) {
	conn, err := c.dial(ctx, "tcp", c.addr.String())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.addr, err)
	}
	return conn, nil
}

// IsConnectionError reports whether err indicates a connection-level failure
// (refused, reset, unreachable, dial timeout, or a peer closing the stream
// before a response) as opposed to a protocol- or application-level failure.
// Connection-level failures mean the underlying connection is unusable and
// must be re-established before the next attempt.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var timeoutErr *ConnectTimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}
	return false
}
