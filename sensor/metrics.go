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

package sensor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHandler exports connection and request telemetry as Prometheus
// metrics. Labels are kept low-cardinality: results and status classes, not
// destination addresses.
type MetricsHandler struct {
	connectsTotal    *prometheus.CounterVec
	connectDuration  prometheus.Histogram
	openConnections  prometheus.Gauge
	connectionBytes  *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	responseDuration prometheus.Histogram
}

// NewMetricsHandler creates a MetricsHandler and registers its collectors
// with registry. If namespace is empty, "conduit" is used. If registry is
// nil, the default Prometheus registerer is used.
func NewMetricsHandler(namespace string, registry prometheus.Registerer) *MetricsHandler {
	if namespace == "" {
		namespace = "conduit"
	}
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	h := &MetricsHandler{
		connectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "connects_total",
				Help:      "Total outbound connect attempts, by result.",
			},
			[]string{"result"},
		),
		connectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "connect_duration_seconds",
				Help:      "Time taken to establish outbound connections.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 1, 5},
			},
		),
		openConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "open_connections",
				Help:      "Currently open outbound connections.",
			},
		),
		connectionBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "connection_bytes_total",
				Help:      "Bytes transferred over closed outbound connections, by direction.",
			},
			[]string{"direction"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Total proxied requests, by status class.",
			},
			[]string{"status"},
		),
		responseDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "response_duration_seconds",
				Help:      "Time from request dispatch to response headers.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 1, 5, 30},
			},
		),
	}
	registry.MustRegister(
		h.connectsTotal,
		h.connectDuration,
		h.openConnections,
		h.connectionBytes,
		h.requestsTotal,
		h.responseDuration,
	)
	return h
}

func (h *MetricsHandler) ConnectOpened(_ *ClientContext, elapsed time.Duration) {
	h.connectsTotal.WithLabelValues("success").Inc()
	h.connectDuration.Observe(elapsed.Seconds())
	h.openConnections.Inc()
}

func (h *MetricsHandler) ConnectFailed(_ *ClientContext, _ error, elapsed time.Duration) {
	h.connectsTotal.WithLabelValues("failure").Inc()
	h.connectDuration.Observe(elapsed.Seconds())
}

func (h *MetricsHandler) ConnectionClosed(_ *ClientContext, bytesRead, bytesWritten uint64, _ time.Duration) {
	h.openConnections.Dec()
	h.connectionBytes.WithLabelValues("rx").Add(float64(bytesRead))
	h.connectionBytes.WithLabelValues("tx").Add(float64(bytesWritten))
}

func (h *MetricsHandler) RequestStart(_ *ClientContext, _ uint64, _ *http.Request) {}

func (h *MetricsHandler) ResponseEnd(_ *ClientContext, _ uint64, resp *http.Response, err error, elapsed time.Duration) {
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode/100) + "xx"
	}
	h.requestsTotal.WithLabelValues(status).Inc()
	h.responseDuration.Observe(elapsed.Seconds())
}

var _ Handler = (*MetricsHandler)(nil)
