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
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/PaulMaddox/conduit/transport"
	"golang.org/x/net/http2"
)

// newProtocolRoundTripper builds the HTTP client for one bound service: an
// HTTP/1.x transport or an HTTP/2-over-cleartext transport, selected by
// protocol, with every network connection obtained from the given connector.
// The connector targets a fixed address, so the dial arguments derived from
// the request URL are ignored.
func newProtocolRoundTripper(protocol Protocol, addr netip.AddrPort, connector transport.Connector) http.RoundTripper {
	if protocol.IsHTTP2() {
		rt := &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, _, _ string, _ *tls.Config) (net.Conn, error) {
				return connector.Connect(ctx)
			},
		}
		return &normalizeRequest{addr: addr, inner: rt}
	}
	rt := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return connector.Connect(ctx)
		},
		// One destination per transport; connection reuse across
		// destinations is governed by the router key, not this pool.
		MaxIdleConns:          1,
		MaxIdleConnsPerHost:   1,
		ForceAttemptHTTP2:     false,
		DisableCompression:    true,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &normalizeRequest{addr: addr, inner: rt, rewriteOriginalDst: true}
}

// normalizeRequest prepares proxied requests for a Go transport: inbound
// server requests carry no URL scheme, and requests marked as forwarded by
// transparent original-destination rewriting must have their authority
// replaced with the bound destination address (HTTP/1.x only). The request
// is cloned before any mutation.
type normalizeRequest struct {
	addr               netip.AddrPort
	inner              http.RoundTripper
	rewriteOriginalDst bool
}

func (n *normalizeRequest) RoundTrip(req *http.Request) (*http.Response, error) {
	rewrite := n.rewriteOriginalDst && IsOriginalDst(req)
	if rewrite || req.URL.Scheme == "" || req.URL.Host == "" {
		req = req.Clone(req.Context())
		if req.URL.Scheme == "" {
			req.URL.Scheme = "http"
		}
		if req.URL.Host == "" {
			req.URL.Host = req.Host
		}
		if rewrite || req.URL.Host == "" {
			req.URL.Host = n.addr.String()
			req.Host = n.addr.String()
		}
	}
	return n.inner.RoundTrip(req)
}

func (n *normalizeRequest) CloseIdleConnections() {
	closeIdle(n.inner)
}
