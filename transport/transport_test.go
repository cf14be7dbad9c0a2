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
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectorDialsTarget(t *testing.T) {
	t.Parallel()

	addr := netip.MustParseAddrPort("10.1.2.3:8080")
	var gotNetwork, gotAddr string
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	connector := NewConnector(addr, func(_ context.Context, network, addr string) (net.Conn, error) {
		gotNetwork, gotAddr = network, addr
		return client, nil
	})
	conn, err := connector.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, conn)
	assert.Equal(t, "tcp", gotNetwork)
	assert.Equal(t, "10.1.2.3:8080", gotAddr)
}

func TestNewConnectorWrapsError(t *testing.T) {
	t.Parallel()

	addr := netip.MustParseAddrPort("10.1.2.3:8080")
	connector := NewConnector(addr, func(context.Context, string, string) (net.Conn, error) {
		return nil, syscall.ECONNREFUSED
	})
	_, err := connector.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Contains(t, err.Error(), "10.1.2.3:8080")
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connect timeout", err: &ConnectTimeoutError{After: 300 * time.Millisecond}, want: true},
		{name: "wrapped connect timeout", err: fmt.Errorf("round trip: %w", &ConnectTimeoutError{After: time.Second}), want: true},
		{name: "refused", err: syscall.ECONNREFUSED, want: true},
		{name: "wrapped refused", err: fmt.Errorf("connect 10.0.0.1:80: %w", syscall.ECONNREFUSED), want: true},
		{name: "reset", err: syscall.ECONNRESET, want: true},
		{name: "op error", err: &net.OpError{Op: "dial", Err: errors.New("unreachable")}, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: true},
		{name: "closed", err: net.ErrClosed, want: true},
		{name: "application error", err: errors.New("bad gateway"), want: false},
		{name: "context canceled", err: context.Canceled, want: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.want, IsConnectionError(testCase.err))
		})
	}
}
