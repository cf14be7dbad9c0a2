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

import "net/netip"

// Target identifies the logical destination the router resolved for a
// request: the socket address traffic is forwarded to.
type Target struct {
	Addr netip.AddrPort
}

func (t Target) String() string {
	return t.Addr.String()
}

// RouterKey couples a Target with the Protocol derived for a request, plus a
// marker that tells the router whether services bound under this key may be
// shared. Keys are comparable; equality is determined by the (Target,
// Protocol) pair, and the marker is derived deterministically from the
// Protocol, so equal pairs always carry equal markers.
type RouterKey struct {
	Target   Target
	Protocol Protocol
	reusable bool
}

// NewRouterKey builds the routing key for a (target, protocol) pair. The key
// is marked reusable exactly when the protocol is cachable.
func NewRouterKey(target Target, protocol Protocol) RouterKey {
	return RouterKey{
		Target:   target,
		Protocol: protocol,
		reusable: protocol.Cachable(),
	}
}

// Reusable reports whether the router may insert this key into a shared
// cache and serve later requests from it. A single-use key (reusable ==
// false) must never be cached or looked up: the router builds a fresh
// service per request.
func (k RouterKey) Reusable() bool {
	return k.reusable
}
