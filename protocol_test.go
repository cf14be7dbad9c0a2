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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAuthority(t *testing.T, authority string) Host {
	t.Helper()
	host, err := NewAuthority(authority)
	require.NoError(t, err)
	return host
}

func TestNewAuthority(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{
		"svc.local",
		"svc.local:80",
		"10.1.2.3:8080",
		"[::1]:443",
	} {
		host, err := NewAuthority(valid)
		require.NoError(t, err, "authority %q", valid)
		authority, ok := host.Authority()
		assert.True(t, ok)
		assert.Equal(t, valid, authority)
	}

	for _, invalid := range []string{
		"",
		"http://svc.local",
		"svc.local/path",
		"user@svc.local",
		"svc.local:notaport",
	} {
		_, err := NewAuthority(invalid)
		assert.Error(t, err, "authority %q", invalid)
	}
}

func TestHostEquality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NoAuthority(), NoAuthority())
	assert.Equal(t, mustAuthority(t, "svc.local:80"), mustAuthority(t, "svc.local:80"))
	assert.NotEqual(t, mustAuthority(t, "svc.local:80"), mustAuthority(t, "other.local:80"))
	assert.NotEqual(t, mustAuthority(t, "svc.local:80"), NoAuthority())

	_, ok := NoAuthority().Authority()
	assert.False(t, ok)
}

func TestClassifyRequestHTTP2(t *testing.T) {
	t.Parallel()

	// HTTP/2 wins regardless of authority or rewrite markers.
	req := httptest.NewRequest(http.MethodGet, "http://svc.local:80/x", nil)
	req.Proto = "HTTP/2.0"
	req.ProtoMajor, req.ProtoMinor = 2, 0
	assert.Equal(t, HTTP2(), ClassifyRequest(req, NoAuthority()))
	assert.Equal(t, HTTP2(), ClassifyRequest(WithOriginalDst(req), NoAuthority()))

	noAuthority := httptest.NewRequest(http.MethodGet, "/x", nil)
	noAuthority.Host = ""
	noAuthority.URL.Host = ""
	noAuthority.ProtoMajor, noAuthority.ProtoMinor = 2, 0
	assert.Equal(t, HTTP2(), ClassifyRequest(noAuthority, NoAuthority()))
}

func TestClassifyRequestOriginalDstMarker(t *testing.T) {
	t.Parallel()

	// The rewrite marker forces a single-use identity even when the URI
	// carries an authority.
	req := httptest.NewRequest(http.MethodGet, "http://svc.local:80/x", nil)
	req = WithOriginalDst(req)
	require.True(t, IsOriginalDst(req))
	assert.Equal(t, HTTP1(NoAuthority()), ClassifyRequest(req, NoAuthority()))
}

func TestClassifyRequestAuthority(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://svc.local:80/x", nil)
	assert.Equal(t,
		HTTP1(mustAuthority(t, "svc.local:80")),
		ClassifyRequest(req, NoAuthority()))

	// An externally resolved authority takes precedence over the URI.
	known := mustAuthority(t, "resolved.example.com:8080")
	assert.Equal(t, HTTP1(known), ClassifyRequest(req, known))

	// Server-form requests carry the authority in req.Host.
	serverForm := httptest.NewRequest(http.MethodGet, "/x", nil)
	serverForm.Host = "svc.local:80"
	serverForm.URL.Host = ""
	assert.Equal(t,
		HTTP1(mustAuthority(t, "svc.local:80")),
		ClassifyRequest(serverForm, NoAuthority()))
}

func TestClassifyRequestIsTotal(t *testing.T) {
	t.Parallel()

	// No derivable host degrades to the no-authority fallback, never an error.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Host = ""
	req.URL.Host = ""
	assert.Equal(t, HTTP1(NoAuthority()), ClassifyRequest(req, NoAuthority()))
}
