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

package member

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/index"
	"github.com/Unithon10th-Team4/Hoxy-BE/mocks"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestAddMember(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store := mocks.NewMemberStore(t)
	sessions := mocks.NewMemoryKeyValueStore()
	events := mocks.NewEventSubmitter(t)
	uut := NewService(store, index.NewIndex(store), sessions, events, time.Millisecond*50)

	// Case 0: invalid parameters
	{
		_, err := uut.AddMember(utCtxt, NewMemberParams{Name: "alice"})
		assert.NotNil(err)
		_, err = uut.AddMember(utCtxt, NewMemberParams{
			Name: "alice", FanclubID: "F1", Location: common.Point{Latitude: 91},
		})
		assert.NotNil(err)
	}

	// Case 1: new member
	{
		expected := common.Member{
			Name:      "alice",
			FanclubID: "F1",
			PushToken: "token-alice",
			Location:  common.Point{Latitude: 37.5, Longitude: 127.0},
		}
		store.On("CreateMember", mock.Anything, expected).Return(nil).Once()
		member, err := uut.AddMember(utCtxt, NewMemberParams{
			Name:      "alice",
			FanclubID: "F1",
			PushToken: "token-alice",
			Location:  common.Point{Latitude: 37.5, Longitude: 127.0},
		})
		assert.Nil(err)
		assert.Equal(expected, member)
		value, err := sessions.Get(utCtxt, "member:alice:session")
		assert.Nil(err)
		assert.Equal("true", value)
	}

	// Case 2: name taken
	{
		store.On("CreateMember", mock.Anything, mock.AnythingOfType("common.Member")).
			Return(&common.ConflictError{Kind: "member", ID: "alice"}).Once()
		_, err := uut.AddMember(utCtxt, NewMemberParams{
			Name: "alice", FanclubID: "F1", Location: common.Point{},
		})
		assert.True(common.IsConflict(err))
	}
}

func TestUpdateLocation(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store := mocks.NewMemberStore(t)
	sessions := mocks.NewMemoryKeyValueStore()
	events := mocks.NewEventSubmitter(t)
	uut := NewService(store, index.NewIndex(store), sessions, events, time.Millisecond*50)

	alice := common.Member{Name: "alice", FanclubID: "F1", Online: true}
	target := common.Point{Latitude: 0.5, Longitude: 0.5}
	moved := alice
	moved.Location = target

	// Case 0: unknown member
	{
		store.On("FindByName", mock.Anything, "ghost").
			Return(common.Member{}, common.NewNotFoundError("member", "ghost")).Once()
		_, err := uut.UpdateLocation(utCtxt, "ghost", target)
		assert.True(common.IsNotFound(err))
	}

	// Case 1: persisted, session refreshed, event submitted
	{
		store.On("FindByName", mock.Anything, "alice").Return(alice, nil).Once()
		store.On("SaveMember", mock.Anything, moved).Return(nil).Once()
		events.On("Submit", mock.Anything, common.LocationUpdated{Member: moved}).Return(nil).Once()
		member, err := uut.UpdateLocation(utCtxt, "alice", target)
		assert.Nil(err)
		assert.Equal(target, member.Location)
		assert.Equal(1, sessions.SetCount("member:alice:session"))
	}

	// Case 2: a full event queue does not fail the write
	{
		store.On("FindByName", mock.Anything, "alice").Return(alice, nil).Once()
		store.On("SaveMember", mock.Anything, moved).Return(nil).Once()
		events.On("Submit", mock.Anything, common.LocationUpdated{Member: moved}).
			Return(errors.New("queue full")).Once()
		_, err := uut.UpdateLocation(utCtxt, "alice", target)
		assert.Nil(err)
	}

	// Case 3: invalid coordinates
	{
		_, err := uut.UpdateLocation(utCtxt, "alice", common.Point{Longitude: 200})
		assert.NotNil(err)
	}
}

func TestUpdateStatus(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store := mocks.NewMemberStore(t)
	events := mocks.NewEventSubmitter(t)
	uut := NewService(
		store, index.NewIndex(store), mocks.NewMemoryKeyValueStore(), events, time.Millisecond*50,
	)

	alice := common.Member{Name: "alice", FanclubID: "F1", Online: false}
	online := alice
	online.Online = true

	// Case 0: store failure
	{
		store.On("FindByName", mock.Anything, "alice").Return(alice, nil).Once()
		store.On("SaveMember", mock.Anything, online).Return(errors.New("dummy")).Once()
		_, err := uut.UpdateStatus(utCtxt, "alice", true)
		assert.NotNil(err)
	}

	// Case 1: persisted then event submitted
	{
		store.On("FindByName", mock.Anything, "alice").Return(alice, nil).Once()
		store.On("SaveMember", mock.Anything, online).Return(nil).Once()
		events.On("Submit", mock.Anything, common.StatusUpdated{Member: online}).Return(nil).Once()
		member, err := uut.UpdateStatus(utCtxt, "alice", true)
		assert.Nil(err)
		assert.True(member.Online)
	}
}

func TestGetNearMembers(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	store := mocks.NewMemberStore(t)
	uut := NewService(
		store,
		index.NewIndex(store),
		mocks.NewMemoryKeyValueStore(),
		mocks.NewEventSubmitter(t),
		time.Millisecond*50,
	)
	point := common.Point{Latitude: 0, Longitude: 0}

	// Case 0: unknown member
	{
		store.On("FindByName", mock.Anything, "ghost").
			Return(common.Member{}, common.NewNotFoundError("member", "ghost")).Once()
		_, err := uut.GetNearMembers(utCtxt, "ghost", point, 10)
		assert.True(common.IsNotFound(err))
	}

	// Case 1: self and offline members excluded
	{
		store.On("FindByName", mock.Anything, "alice").
			Return(common.Member{Name: "alice", Online: true}, nil).Once()
		store.On("FindNear", mock.Anything, point, 10.0).Return([]common.Member{
			{Name: "alice", Online: true},
			{Name: "bob", Online: false},
			{Name: "carol", Online: true},
		}, nil).Once()
		result, err := uut.GetNearMembers(utCtxt, "alice", point, 10)
		assert.Nil(err)
		assert.Len(result, 1)
		assert.Equal("carol", result[0].Name)
	}

	// Case 2: invalid distance
	{
		_, err := uut.GetNearMembers(utCtxt, "alice", point, 0)
		assert.NotNil(err)
	}
}

func TestPointsAndFanclub(t *testing.T) {
	assert := assert.New(t)
	utCtxt := context.Background()

	store := mocks.NewMemberStore(t)
	uut := NewService(
		store,
		index.NewIndex(store),
		mocks.NewMemoryKeyValueStore(),
		mocks.NewEventSubmitter(t),
		time.Millisecond*50,
	)

	alice := common.Member{Name: "alice", FanclubID: "F1", Point: 10}

	// Case 0: add points
	{
		updated := alice
		updated.Point = 15
		store.On("FindByName", mock.Anything, "alice").Return(alice, nil).Once()
		store.On("SaveMember", mock.Anything, updated).Return(nil).Once()
		member, err := uut.AddPoints(utCtxt, "alice", 5)
		assert.Nil(err)
		assert.Equal(15, member.Point)
	}

	// Case 1: fan-club
	{
		store.On("FindByName", mock.Anything, "alice").Return(alice, nil).Once()
		fanclub, err := uut.GetFanclubID(utCtxt, "alice")
		assert.Nil(err)
		assert.Equal("F1", fanclub)
	}
}
