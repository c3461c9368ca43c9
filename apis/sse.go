// Copyright 2023 The hoxy Authors
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

package apis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/registry"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// SessionRefresher restarts a member's session marker expiry
type SessionRefresher interface {
	RefreshSession(ctxt context.Context, name string) error
}

// APIRestSSEHandler handler for member live event streams
type APIRestSSEHandler struct {
	goutils.RestAPIHandler
	connections registry.Registry
	sessions    SessionRefresher
	config      common.ConnectionConfig
	baseContext context.Context
}

// GetAPIRestSSEHandler define APIRestSSEHandler
//
// Streams end when baseContext is done.
func GetAPIRestSSEHandler(
	baseContext context.Context,
	connections registry.Registry,
	sessions SessionRefresher,
	config common.ConnectionConfig,
	httpConfig *common.HTTPConfig,
) APIRestSSEHandler {
	return APIRestSSEHandler{
		RestAPIHandler: defineRestAPIHandler(
			log.Fields{"module": "apis", "component": "sse"}, httpConfig,
		),
		connections: connections,
		sessions:    sessions,
		config:      config,
		baseContext: baseContext,
	}
}

// writeSSEEvent write one event in text/event-stream framing
func writeSSEEvent(w io.Writer, ev registry.Event) error {
	var data string
	switch payload := ev.Data.(type) {
	case string:
		data = payload
	case []byte:
		data = string(payload)
	default:
		serialized, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		data = string(serialized)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Name); err != nil {
		return err
	}
	for _, line := range strings.Split(data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Connect godoc
// @Summary Open a member's live event stream
// @Description Long lived server sent event stream. The first event is "connect". Each
// nearby fan-club member status change arrives as an event named after that member. A new
// connection for the same member replaces this one.
// @tags SSE
// @Produce text/event-stream
// @Param memberName query string true "Member name"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/sse/connect [get]
func (h APIRestSSEHandler) Connect(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	name := r.URL.Query().Get("memberName")
	if name == "" {
		msg := "No member name provided"
		log.WithFields(localLogTags).Error(msg)
		if err := h.WriteRESTResponse(
			w,
			http.StatusBadRequest,
			h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, "memberName is required"),
			nil,
		); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
		return
	}
	localLogTags["member"] = name

	writeFlusher, ok := w.(http.Flusher)
	if !ok {
		msg := "Streaming not supported"
		log.WithFields(localLogTags).Error(msg)
		if err := h.WriteRESTResponse(
			w,
			http.StatusInternalServerError,
			h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, msg),
			nil,
		); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
		return
	}

	// Send support headers for SSE first
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	writeFlusher.Flush()

	stream := registry.NewStream(
		h.config.BufferSize, time.Millisecond*time.Duration(h.config.SendTimeout),
	)
	defer h.connections.RemoveIf(name, stream)
	if err := h.connections.Register(name, stream); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Unable to register stream")
		return
	}
	if err := h.sessions.RefreshSession(r.Context(), name); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Unable to refresh session")
	}
	log.WithFields(localLogTags).Infof("Opened stream %s", stream.ID)

	var heartbeat <-chan time.Time
	if h.config.HeartbeatInterval > 0 {
		ticker := time.NewTicker(time.Second * time.Duration(h.config.HeartbeatInterval))
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-h.baseContext.Done():
			log.WithFields(localLogTags).Info("Closing stream on server stop")
			return
		case <-r.Context().Done():
			log.WithFields(localLogTags).Info("Closing stream on request end")
			return
		case <-stream.Done():
			log.WithFields(localLogTags).Infof("Stream %s closed", stream.ID)
			return
		case <-heartbeat:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				log.WithError(err).WithFields(localLogTags).Error("Failed to send heartbeat")
				return
			}
			writeFlusher.Flush()
		case ev := <-stream.Events():
			if err := writeSSEEvent(w, ev); err != nil {
				log.WithError(err).WithFields(localLogTags).Errorf("Failed to send event %s", ev.Name)
				return
			}
			writeFlusher.Flush()
		}
	}
}

// ConnectHandler Wrapper around Connect
func (h APIRestSSEHandler) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Connect(w, r)
	}
}
