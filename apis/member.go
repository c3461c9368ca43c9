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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/member"
	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// APIRestMemberHandler REST handler for member operations
type APIRestMemberHandler struct {
	goutils.RestAPIHandler
	members  member.Service
	validate *validator.Validate
}

// GetAPIRestMemberHandler define APIRestMemberHandler
func GetAPIRestMemberHandler(
	members member.Service, httpConfig *common.HTTPConfig,
) APIRestMemberHandler {
	return APIRestMemberHandler{
		RestAPIHandler: defineRestAPIHandler(
			log.Fields{"module": "apis", "component": "member"}, httpConfig,
		),
		members:  members,
		validate: validator.New(),
	}
}

// APIRestRespMember response containing one member
type APIRestRespMember struct {
	goutils.RestAPIBaseResponse
	Member common.Member `json:"member"`
}

// APIRestRespMembers response containing a list of members
type APIRestRespMembers struct {
	goutils.RestAPIBaseResponse
	Members []common.Member `json:"members"`
}

// APIRestRespFanclubID response containing a member's fan-club ID
type APIRestRespFanclubID struct {
	goutils.RestAPIBaseResponse
	FanclubID string `json:"fanclubId"`
}

// APIRestReqStatus online status change request
type APIRestReqStatus struct {
	Online *bool `json:"online" validate:"required"`
}

// APIRestReqPoint score change request
type APIRestReqPoint struct {
	Point int `json:"point"`
}

// memberName read the member name path variable
func memberName(r *http.Request) (string, bool) {
	name, ok := mux.Vars(r)["memberName"]
	return name, ok && name != ""
}

// replyMember write a single member response, or the error response of err
func (h APIRestMemberHandler) replyMember(
	w http.ResponseWriter, r *http.Request, member common.Member, err error, op string,
) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	if err != nil {
		log.WithError(err).WithFields(localLogTags).Errorf("%s failed", op)
		respCode = errorResponseCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, fmt.Sprintf("%s failed", op), err.Error())
	} else {
		respCode = http.StatusOK
		respBody = APIRestRespMember{
			RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Member: member,
		}
	}
	if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// badRequest write a 400 response
func (h APIRestMemberHandler) badRequest(
	w http.ResponseWriter, r *http.Request, msg string, detail string,
) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	log.WithFields(localLogTags).Errorf("%s: %s", msg, detail)
	if err := h.WriteRESTResponse(
		w,
		http.StatusBadRequest,
		h.GetStdRESTErrorMsg(r.Context(), http.StatusBadRequest, msg, detail),
		nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// -----------------------------------------------------------------------

// ListMembers godoc
// @Summary List members
// @Description List every registered member
// @tags Member
// @Produce json
// @Success 200 {object} APIRestRespMembers "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member [get]
func (h APIRestMemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	members, err := h.members.ListMembers(r.Context())
	if err != nil {
		msg := "Unable to list members"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorResponseCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}
	respCode = http.StatusOK
	respBody = APIRestRespMembers{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Members: members,
	}
}

// ListMembersHandler Wrapper around ListMembers
func (h APIRestMemberHandler) ListMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.ListMembers(w, r)
	}
}

// -----------------------------------------------------------------------

// AddMember godoc
// @Summary Register a member
// @Description Register a new member of a fan-club
// @tags Member
// @Accept json
// @Produce json
// @Param member body member.NewMemberParams true "New member"
// @Success 200 {object} APIRestRespMember "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 409 {object} goutils.RestAPIBaseResponse "error"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member [post]
func (h APIRestMemberHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var params member.NewMemberParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.badRequest(w, r, "Unable to parse request body", err.Error())
		return
	}
	created, err := h.members.AddMember(r.Context(), params)
	h.replyMember(w, r, created, err, "Add member")
}

// AddMemberHandler Wrapper around AddMember
func (h APIRestMemberHandler) AddMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.AddMember(w, r)
	}
}

// -----------------------------------------------------------------------

// GetMember godoc
// @Summary Get a member
// @tags Member
// @Produce json
// @Param memberName path string true "Member name"
// @Success 200 {object} APIRestRespMember "success"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member/{memberName} [get]
func (h APIRestMemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	name, ok := memberName(r)
	if !ok {
		h.badRequest(w, r, "No member name provided", "missing path variable")
		return
	}
	found, err := h.members.GetMember(r.Context(), name)
	h.replyMember(w, r, found, err, "Get member")
}

// GetMemberHandler Wrapper around GetMember
func (h APIRestMemberHandler) GetMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetMember(w, r)
	}
}

// -----------------------------------------------------------------------

// GetNearMembers godoc
// @Summary List nearby online members
// @Description List online members within a distance of a point, excluding the named member
// @tags Member
// @Produce json
// @Param memberName path string true "Member name"
// @Param latitude query number true "Latitude in degrees"
// @Param longitude query number true "Longitude in degrees"
// @Param distance query number true "Distance in meters"
// @Success 200 {object} APIRestRespMembers "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member/{memberName}/near [get]
func (h APIRestMemberHandler) GetNearMembers(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	name, ok := memberName(r)
	if !ok {
		h.badRequest(w, r, "No member name provided", "missing path variable")
		return
	}

	query := r.URL.Query()
	values := map[string]float64{}
	for _, param := range []string{"latitude", "longitude", "distance"} {
		raw := query.Get(param)
		if raw == "" {
			h.badRequest(w, r, fmt.Sprintf("Missing %s", param), param+" is required")
			return
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.badRequest(w, r, fmt.Sprintf("Unable to parse %s", param), err.Error())
			return
		}
		values[param] = parsed
	}
	point := common.Point{Latitude: values["latitude"], Longitude: values["longitude"]}
	if err := h.validate.Struct(&point); err != nil {
		h.badRequest(w, r, "Invalid coordinates", err.Error())
		return
	}
	if values["distance"] <= 0 {
		h.badRequest(w, r, "Invalid distance", "distance must be positive")
		return
	}

	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	nearby, err := h.members.GetNearMembers(r.Context(), name, point, values["distance"])
	if err != nil {
		msg := "Unable to list nearby members"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorResponseCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}
	respCode = http.StatusOK
	respBody = APIRestRespMembers{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Members: nearby,
	}
}

// GetNearMembersHandler Wrapper around GetNearMembers
func (h APIRestMemberHandler) GetNearMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetNearMembers(w, r)
	}
}

// -----------------------------------------------------------------------

// UpdateLocation godoc
// @Summary Update a member's location
// @Description Persist the new location then notify nearby offline fan-club members
// @tags Member
// @Accept json
// @Produce json
// @Param memberName path string true "Member name"
// @Param location body common.Point true "New location"
// @Success 200 {object} APIRestRespMember "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member/{memberName}/location [put]
func (h APIRestMemberHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	name, ok := memberName(r)
	if !ok {
		h.badRequest(w, r, "No member name provided", "missing path variable")
		return
	}
	var point common.Point
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		h.badRequest(w, r, "Unable to parse request body", err.Error())
		return
	}
	updated, err := h.members.UpdateLocation(r.Context(), name, point)
	h.replyMember(w, r, updated, err, "Update location")
}

// UpdateLocationHandler Wrapper around UpdateLocation
func (h APIRestMemberHandler) UpdateLocationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateLocation(w, r)
	}
}

// -----------------------------------------------------------------------

// UpdateStatus godoc
// @Summary Update a member's online status
// @Description Persist the new status then notify nearby online fan-club members
// @tags Member
// @Accept json
// @Produce json
// @Param memberName path string true "Member name"
// @Param status body APIRestReqStatus true "New status"
// @Success 200 {object} APIRestRespMember "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member/{memberName}/status [put]
func (h APIRestMemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	name, ok := memberName(r)
	if !ok {
		h.badRequest(w, r, "No member name provided", "missing path variable")
		return
	}
	var req APIRestReqStatus
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Unable to parse request body", err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.badRequest(w, r, "Invalid request body", err.Error())
		return
	}
	updated, err := h.members.UpdateStatus(r.Context(), name, *req.Online)
	h.replyMember(w, r, updated, err, "Update status")
}

// UpdateStatusHandler Wrapper around UpdateStatus
func (h APIRestMemberHandler) UpdateStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.UpdateStatus(w, r)
	}
}

// -----------------------------------------------------------------------

// AddPoints godoc
// @Summary Add to a member's score
// @tags Member
// @Accept json
// @Produce json
// @Param memberName path string true "Member name"
// @Param point body APIRestReqPoint true "Score change"
// @Success 200 {object} APIRestRespMember "success"
// @Failure 400 {object} goutils.RestAPIBaseResponse "error"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member/{memberName}/point [put]
func (h APIRestMemberHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	name, ok := memberName(r)
	if !ok {
		h.badRequest(w, r, "No member name provided", "missing path variable")
		return
	}
	var req APIRestReqPoint
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "Unable to parse request body", err.Error())
		return
	}
	updated, err := h.members.AddPoints(r.Context(), name, req.Point)
	h.replyMember(w, r, updated, err, "Add points")
}

// AddPointsHandler Wrapper around AddPoints
func (h APIRestMemberHandler) AddPointsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.AddPoints(w, r)
	}
}

// -----------------------------------------------------------------------

// GetFanclubID godoc
// @Summary Get a member's fan-club
// @tags Member
// @Produce json
// @Param memberName path string true "Member name"
// @Success 200 {object} APIRestRespFanclubID "success"
// @Failure 404 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/member/{memberName}/fanclub [get]
func (h APIRestMemberHandler) GetFanclubID(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	name, ok := memberName(r)
	if !ok {
		h.badRequest(w, r, "No member name provided", "missing path variable")
		return
	}

	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	fanclubID, err := h.members.GetFanclubID(r.Context(), name)
	if err != nil {
		msg := "Unable to read fan-club"
		log.WithError(err).WithFields(localLogTags).Error(msg)
		respCode = errorResponseCode(err)
		respBody = h.GetStdRESTErrorMsg(r.Context(), respCode, msg, err.Error())
		return
	}
	respCode = http.StatusOK
	respBody = APIRestRespFanclubID{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), FanclubID: fanclubID,
	}
}

// GetFanclubIDHandler Wrapper around GetFanclubID
func (h APIRestMemberHandler) GetFanclubIDHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetFanclubID(w, r)
	}
}
