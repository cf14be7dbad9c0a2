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
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolCachable(t *testing.T) {
	t.Parallel()

	authority, err := NewAuthority("svc.local:80")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		protocol Protocol
		cachable bool
	}{
		{name: "http2", protocol: HTTP2(), cachable: true},
		{name: "http1 with authority", protocol: HTTP1(authority), cachable: true},
		{name: "http1 without authority", protocol: HTTP1(NoAuthority()), cachable: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.cachable, testCase.protocol.Cachable())
		})
	}
}

func TestNewRouterKey(t *testing.T) {
	t.Parallel()

	target := Target{Addr: netip.MustParseAddrPort("10.0.0.1:80")}
	authority, err := NewAuthority("svc.local:80")
	require.NoError(t, err)

	assert.True(t, NewRouterKey(target, HTTP2()).Reusable())
	assert.True(t, NewRouterKey(target, HTTP1(authority)).Reusable())
	assert.False(t, NewRouterKey(target, HTTP1(NoAuthority())).Reusable())
}

func TestRouterKeyIdentity(t *testing.T) {
	t.Parallel()

	targetA := Target{Addr: netip.MustParseAddrPort("10.0.0.1:80")}
	targetB := Target{Addr: netip.MustParseAddrPort("10.0.0.2:80")}
	authority, err := NewAuthority("svc.local:80")
	require.NoError(t, err)

	// Keys are comparable and usable directly as map keys: equality is
	// determined by the (target, protocol) pair.
	assert.Equal(t,
		NewRouterKey(targetA, HTTP1(authority)),
		NewRouterKey(targetA, HTTP1(authority)))
	assert.NotEqual(t,
		NewRouterKey(targetA, HTTP1(authority)),
		NewRouterKey(targetB, HTTP1(authority)))
	assert.NotEqual(t,
		NewRouterKey(targetA, HTTP1(authority)),
		NewRouterKey(targetA, HTTP2()))

	seen := map[RouterKey]int{}
	seen[NewRouterKey(targetA, HTTP2())]++
	seen[NewRouterKey(targetA, HTTP2())]++
	assert.Equal(t, 2, seen[NewRouterKey(targetA, HTTP2())])
	assert.Len(t, seen, 1)
}
