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
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogHandler returns a Handler that writes one structured log entry per
// event. Connection events log at info level, per-request events at debug.
func NewLogHandler(log logrus.FieldLogger) Handler {
	return &logHandler{log: log}
}

type logHandler struct {
	log logrus.FieldLogger
}

func (h *logHandler) fields(ctx *ClientContext) logrus.FieldLogger {
	return h.log.WithFields(logrus.Fields{
		"remote": ctx.RemoteAddr.String(),
		"proto":  string(ctx.Protocol),
	})
}

func (h *logHandler) ConnectOpened(ctx *ClientContext, elapsed time.Duration) {
	h.fields(ctx).WithField("elapsed", elapsed).Info("connection established")
}

func (h *logHandler) ConnectFailed(ctx *ClientContext, err error, elapsed time.Duration) {
	h.fields(ctx).WithField("elapsed", elapsed).WithError(err).Warn("connect failed")
}

func (h *logHandler) ConnectionClosed(ctx *ClientContext, bytesRead, bytesWritten uint64, lifetime time.Duration) {
	h.fields(ctx).WithFields(logrus.Fields{
		"rx":       bytesRead,
		"tx":       bytesWritten,
		"lifetime": lifetime,
	}).Info("connection closed")
}

func (h *logHandler) RequestStart(ctx *ClientContext, id uint64, req *http.Request) {
	h.fields(ctx).WithFields(logrus.Fields{
		"id":     id,
		"method": req.Method,
		"uri":    req.URL.String(),
	}).Debug("request start")
}

func (h *logHandler) ResponseEnd(ctx *ClientContext, id uint64, resp *http.Response, err error, elapsed time.Duration) {
	entry := h.fields(ctx).WithFields(logrus.Fields{
		"id":      id,
		"elapsed": elapsed,
	})
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return
	}
	entry.WithField("status", resp.StatusCode).Debug("response end")
}
