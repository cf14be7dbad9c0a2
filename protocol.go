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
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Host captures how an HTTP/1.x request's destination identity was derived.
// It either holds a validated authority (scheme-less host[:port]) or marks
// that no stable authority could be determined. The zero value is the
// no-authority variant. Host values are comparable; identity is purely
// data-driven.
type Host struct {
	authority string
}

// NoAuthority returns the Host used when the proxy cannot determine a stable
// per-host key for a request.
func NoAuthority() Host {
	return Host{}
}

// NewAuthority returns a Host holding the given authority. The authority
// must be a syntactically valid, scheme-less host[:port]; anything else is
// rejected.
func NewAuthority(authority string) (Host, error) {
	if err := validateAuthority(authority); err != nil {
		return Host{}, err
	}
	return Host{authority: authority}, nil
}

// Authority returns the held authority, and whether one is present.
func (h Host) Authority() (string, bool) {
	return h.authority, h.authority != ""
}

func (h Host) String() string {
	if h.authority == "" {
		return "<no authority>"
	}
	return h.authority
}

func validateAuthority(authority string) error {
	if authority == "" {
		return errors.New("authority must not be empty")
	}
	parsed, err := url.Parse("//" + authority)
	if err != nil {
		return fmt.Errorf("invalid authority %q: %w", authority, err)
	}
	// The parse must consume the whole string as the host component; user
	// info, paths, and the like are not part of an authority key.
	if parsed.Host != authority || parsed.User != nil || parsed.Path != "" {
		return fmt.Errorf("invalid authority %q", authority)
	}
	return nil
}

// Protocol identifies the wire protocol used toward a destination: HTTP/2,
// or HTTP/1.x keyed by a per-destination Host. A Protocol is derived once
// per request and never mutated; it is comparable and forms part of the
// routing key.
type Protocol struct {
	http2 bool
	host  Host
}

// HTTP2 returns the Protocol for multiplexed HTTP/2 connections. HTTP/2 is
// not keyed per logical host.
func HTTP2() Protocol {
	return Protocol{http2: true}
}

// HTTP1 returns the Protocol for HTTP/1.x connections keyed by host.
func HTTP1(host Host) Protocol {
	return Protocol{host: host}
}

// IsHTTP2 reports whether p selects HTTP/2 framing.
func (p Protocol) IsHTTP2() bool {
	return p.http2
}

// Host returns the per-destination host key for HTTP/1.x protocols. The
// second result is false for HTTP/2.
func (p Protocol) Host() (Host, bool) {
	return p.host, !p.http2
}

// Cachable reports whether a routing key built from p is safe to reuse
// across multiple logical requests. HTTP/2 connections are multiplexed and
// always safe to share. An HTTP/1.x connection is only safe to share when
// the request carried a stable authority; with no derivable authority there
// is no sharing key, and reuse could bleed one request's traffic onto a
// connection opened for an unrelated destination.
func (p Protocol) Cachable() bool {
	return p.http2 || p.host.authority != ""
}

func (p Protocol) String() string {
	if p.http2 {
		return "http/2"
	}
	return "http/1 (" + p.host.String() + ")"
}

type originalDstKey struct{}

// WithOriginalDst marks req as forwarded by transparent original-destination
// rewriting rather than an application-supplied name. Classification treats
// marked requests as having no stable per-host identity, and the HTTP/1.x
// client rewrites their authority to the bound destination address.
func WithOriginalDst(req *http.Request) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), originalDstKey{}, true))
}

// IsOriginalDst reports whether req carries the original-destination marker.
func IsOriginalDst(req *http.Request) bool {
	marked, _ := req.Context().Value(originalDstKey{}).(bool)
	return marked
}

// ClassifyRequest derives the Protocol for an inbound request. known, if
// non-zero, is an externally resolved authority for the request (such as a
// previously discovered fully-qualified name) and takes precedence over the
// request URI.
//
// Classification is total: every request maps to exactly one Protocol, with
// HTTP1(NoAuthority()) as the fallback when no stable host key can be
// derived.
func ClassifyRequest(req *http.Request, known Host) Protocol {
	if req.ProtoMajor == 2 {
		return HTTP2()
	}
	if IsOriginalDst(req) {
		// Distinct requests reaching different logical hosts may arrive with
		// no distinguishing authority, so none of them get a host key.
		return HTTP1(NoAuthority())
	}
	if _, ok := known.Authority(); ok {
		return HTTP1(known)
	}
	if req.URL != nil && req.URL.Host != "" {
		if host, err := NewAuthority(req.URL.Host); err == nil {
			return HTTP1(host)
		}
	}
	if req.Host != "" {
		if host, err := NewAuthority(req.Host); err == nil {
			return HTTP1(host)
		}
	}
	return HTTP1(NoAuthority())
}
