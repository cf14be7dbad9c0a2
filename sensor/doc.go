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

// Package sensor instruments the proxy's outbound connections and HTTP
// exchanges without altering their behavior. A [Sensors] value wraps a
// connector or an HTTP round-tripper and delivers events to a [Handler];
// the wrappers are transparent pass-throughs with respect to success,
// failure, and data.
//
// Two handlers ship with the package: [NewLogHandler] emits structured log
// entries, and [NewMetricsHandler] exports Prometheus metrics. Use
// [MultiHandler] to combine them. [Null] produces no-op Sensors for
// contexts without telemetry, such as tests and benchmarks.
package sensor
