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
	"net/http"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
)

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctxt context.Context) error

// APIRestHealthHandler REST handler for liveness and readiness checks
type APIRestHealthHandler struct {
	goutils.RestAPIHandler
	checks map[string]ReadinessCheck
}

// GetAPIRestHealthHandler define APIRestHealthHandler
//
// The service is ready once every named check passes.
func GetAPIRestHealthHandler(
	httpConfig *common.HTTPConfig, checks map[string]ReadinessCheck,
) APIRestHealthHandler {
	return APIRestHealthHandler{
		RestAPIHandler: defineRestAPIHandler(
			log.Fields{"module": "apis", "component": "health"}, httpConfig,
		),
		checks: checks,
	}
}

// Alive godoc
// @Summary For REST API liveness check
// @Description Will return success to indicate REST API module is live
// @tags Health
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Router /v1/alive [get]
func (h APIRestHealthHandler) Alive(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h APIRestHealthHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// Ready godoc
// @Summary For REST API readiness check
// @Description Will return success if the member store and key-value store are reachable
// @tags Health
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/ready [get]
func (h APIRestHealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			msg := "not ready"
			log.WithError(err).WithFields(localLogTags).Errorf("%s is not ready", name)
			respCode = http.StatusInternalServerError
			respBody = h.GetStdRESTErrorMsg(
				r.Context(), http.StatusInternalServerError, msg, name+": "+err.Error(),
			)
			return
		}
	}
	respCode = http.StatusOK
	respBody = h.GetStdRESTSuccessMsg(r.Context())
}

// ReadyHandler Wrapper around Ready
func (h APIRestHealthHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}
