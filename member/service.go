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

// Package member member presence write path
package member

import (
	"context"
	"fmt"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/index"
	"github.com/Unithon10th-Team4/Hoxy-BE/storage"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
)

// SessionKey key of the member's session marker
func SessionKey(name string) string {
	return fmt.Sprintf("member:%s:session", name)
}

// EventSubmitter accepts proximity events for asynchronous processing
type EventSubmitter interface {
	Submit(ctxt context.Context, event interface{}) error
}

// NewMemberParams parameters of a member registration
type NewMemberParams struct {
	Name       string       `json:"name" validate:"required"`
	FanclubID  string       `json:"fanclubId" validate:"required"`
	PushToken  string       `json:"fcmToken"`
	ProfileURL string       `json:"profileUrl" validate:"omitempty,url"`
	Location   common.Point `json:"location" validate:"required"`
}

// Service member operations
type Service interface {
	// ListMembers fetch every member
	ListMembers(ctxt context.Context) ([]common.Member, error)
	// GetMember fetch one member. Returns common.NotFoundError if absent.
	GetMember(ctxt context.Context, name string) (common.Member, error)
	// AddMember register a new member. Returns common.ConflictError if the name is taken.
	AddMember(ctxt context.Context, params NewMemberParams) (common.Member, error)
	// GetNearMembers online members within distanceMeters of point, excluding the named member.
	// Returns common.NotFoundError if the named member does not exist.
	GetNearMembers(
		ctxt context.Context, name string, point common.Point, distanceMeters float64,
	) ([]common.Member, error)
	// UpdateLocation persist the member's new location, refresh the session, then trigger
	// proximity notifications
	UpdateLocation(ctxt context.Context, name string, point common.Point) (common.Member, error)
	// UpdateStatus persist the member's online flag then trigger proximity notifications
	UpdateStatus(ctxt context.Context, name string, online bool) (common.Member, error)
	// AddPoints add delta to the member's score
	AddPoints(ctxt context.Context, name string, delta int) (common.Member, error)
	// GetFanclubID fetch the member's fan-club ID
	GetFanclubID(ctxt context.Context, name string) (string, error)
	// RefreshSession restart the member's session marker expiry
	RefreshSession(ctxt context.Context, name string) error
}

// serviceImpl implements Service
type serviceImpl struct {
	common.Component
	store         storage.MemberStore
	nearby        index.Index
	sessions      storage.KeyValueStore
	events        EventSubmitter
	submitTimeout time.Duration
	validate      *validator.Validate
}

// NewService define a new member service
//
// Events are handed to events with at most submitTimeout of waiting for queue space. A full
// queue drops the event; the write itself has already succeeded.
func NewService(
	store storage.MemberStore,
	nearby index.Index,
	sessions storage.KeyValueStore,
	events EventSubmitter,
	submitTimeout time.Duration,
) Service {
	return &serviceImpl{
		Component: common.Component{
			LogTags: log.Fields{"module": "member", "component": "service"},
		},
		store:         store,
		nearby:        nearby,
		sessions:      sessions,
		events:        events,
		submitTimeout: submitTimeout,
		validate:      validator.New(),
	}
}

// ListMembers fetch every member
func (s *serviceImpl) ListMembers(ctxt context.Context) ([]common.Member, error) {
	return s.store.ListMembers(ctxt)
}

// GetMember fetch one member
func (s *serviceImpl) GetMember(ctxt context.Context, name string) (common.Member, error) {
	return s.store.FindByName(ctxt, name)
}

// AddMember register a new member
func (s *serviceImpl) AddMember(
	ctxt context.Context, params NewMemberParams,
) (common.Member, error) {
	if err := s.validate.Struct(&params); err != nil {
		return common.Member{}, err
	}
	member := common.Member{
		Name:       params.Name,
		FanclubID:  params.FanclubID,
		ProfileURL: params.ProfileURL,
		Location:   params.Location,
		PushToken:  params.PushToken,
	}
	if err := s.store.CreateMember(ctxt, member); err != nil {
		return common.Member{}, err
	}
	log.WithFields(s.ExtendLogTags(log.Fields{"member": member.Name})).
		Infof("Added member of fan-club %s", member.FanclubID)
	s.refreshSessionBestEffort(ctxt, member.Name)
	return member, nil
}

// GetNearMembers online members near point, excluding the named member
func (s *serviceImpl) GetNearMembers(
	ctxt context.Context, name string, point common.Point, distanceMeters float64,
) ([]common.Member, error) {
	if distanceMeters <= 0 {
		return nil, fmt.Errorf("distance must be positive")
	}
	if _, err := s.store.FindByName(ctxt, name); err != nil {
		return nil, err
	}
	nearby, err := s.nearby.FindNear(ctxt, name, point, distanceMeters)
	if err != nil {
		return nil, err
	}
	result := []common.Member{}
	for _, member := range nearby {
		if member.Online {
			result = append(result, member)
		}
	}
	return result, nil
}

// UpdateLocation persist the member's new location
func (s *serviceImpl) UpdateLocation(
	ctxt context.Context, name string, point common.Point,
) (common.Member, error) {
	if err := s.validate.Struct(&point); err != nil {
		return common.Member{}, err
	}
	member, err := s.store.FindByName(ctxt, name)
	if err != nil {
		return common.Member{}, err
	}
	member.Location = point
	if err := s.store.SaveMember(ctxt, member); err != nil {
		return common.Member{}, err
	}
	s.refreshSessionBestEffort(ctxt, name)
	s.submit(ctxt, name, common.LocationUpdated{Member: member})
	return member, nil
}

// UpdateStatus persist the member's online flag
func (s *serviceImpl) UpdateStatus(
	ctxt context.Context, name string, online bool,
) (common.Member, error) {
	member, err := s.store.FindByName(ctxt, name)
	if err != nil {
		return common.Member{}, err
	}
	member.Online = online
	if err := s.store.SaveMember(ctxt, member); err != nil {
		return common.Member{}, err
	}
	s.submit(ctxt, name, common.StatusUpdated{Member: member})
	return member, nil
}

// AddPoints add delta to the member's score
func (s *serviceImpl) AddPoints(
	ctxt context.Context, name string, delta int,
) (common.Member, error) {
	member, err := s.store.FindByName(ctxt, name)
	if err != nil {
		return common.Member{}, err
	}
	member.Point += delta
	if err := s.store.SaveMember(ctxt, member); err != nil {
		return common.Member{}, err
	}
	return member, nil
}

// GetFanclubID fetch the member's fan-club ID
func (s *serviceImpl) GetFanclubID(ctxt context.Context, name string) (string, error) {
	member, err := s.store.FindByName(ctxt, name)
	if err != nil {
		return "", err
	}
	return member.FanclubID, nil
}

// RefreshSession restart the member's session marker expiry
func (s *serviceImpl) RefreshSession(ctxt context.Context, name string) error {
	return s.sessions.Set(ctxt, SessionKey(name), "true")
}

// refreshSessionBestEffort refresh the session marker, only logging failures
func (s *serviceImpl) refreshSessionBestEffort(ctxt context.Context, name string) {
	if err := s.RefreshSession(ctxt, name); err != nil {
		log.WithError(err).WithFields(s.ExtendLogTags(log.Fields{"member": name})).
			Error("Unable to refresh session")
	}
}

// submit hand the event to the proximity pipeline, only logging failures
func (s *serviceImpl) submit(ctxt context.Context, name string, event interface{}) {
	// The event outlives the request, only the wait for queue space is bounded
	submitCtxt, cancel := context.WithTimeout(context.WithoutCancel(ctxt), s.submitTimeout)
	defer cancel()
	if err := s.events.Submit(submitCtxt, event); err != nil {
		log.WithError(err).WithFields(s.ExtendLogTags(log.Fields{"member": name})).
			Errorf("Unable to submit %T", event)
	}
}
