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

package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// exerciseMemberStore common behavior checks run against every MemberStore backend
func exerciseMemberStore(t *testing.T, uut MemberStore) {
	assert := assert.New(t)
	utCtxt := context.Background()

	// Unique names so a shared database can be reused between runs
	prefix := uuid.New().String()[:8]
	alice := fmt.Sprintf("%s-alice", prefix)
	bob := fmt.Sprintf("%s-bob", prefix)
	carol := fmt.Sprintf("%s-carol", prefix)
	fanclubID := fmt.Sprintf("%s-F1", prefix)

	assert.Nil(uut.Ready(utCtxt))

	// Case 0: unknown entries
	{
		_, err := uut.FindByName(utCtxt, alice)
		assert.True(common.IsNotFound(err))
		_, err = uut.FindFanclub(utCtxt, fanclubID)
		assert.True(common.IsNotFound(err))
		err = uut.SaveMember(utCtxt, common.Member{Name: alice})
		assert.True(common.IsNotFound(err))
	}

	// Case 1: create fan-club and members
	{
		assert.Nil(uut.SaveFanclub(utCtxt, common.Fanclub{ID: fanclubID, Name: "F1"}))
		fanclub, err := uut.FindFanclub(utCtxt, fanclubID)
		assert.Nil(err)
		assert.Equal("F1", fanclub.Name)

		assert.Nil(uut.CreateMember(utCtxt, common.Member{
			Name:      alice,
			FanclubID: fanclubID,
			Location:  common.Point{Latitude: 0, Longitude: 0},
			Online:    true,
			PushToken: "token-alice",
		}))
		assert.Nil(uut.CreateMember(utCtxt, common.Member{
			Name:      bob,
			FanclubID: fanclubID,
			Location:  common.Point{Latitude: 0.00001, Longitude: 0.00001},
			PushToken: "token-bob",
		}))
		assert.Nil(uut.CreateMember(utCtxt, common.Member{
			Name:      carol,
			FanclubID: fanclubID,
			Location:  common.Point{Latitude: 1, Longitude: 1},
		}))

		err = uut.CreateMember(utCtxt, common.Member{Name: alice, FanclubID: fanclubID})
		assert.True(common.IsConflict(err))

		member, err := uut.FindByName(utCtxt, alice)
		assert.Nil(err)
		assert.Equal(fanclubID, member.FanclubID)
		assert.True(member.Online)
		assert.Equal("token-alice", member.PushToken)
	}

	// Case 2: radius query
	{
		near, err := uut.FindNear(utCtxt, common.Point{Latitude: 0, Longitude: 0}, 2)
		assert.Nil(err)
		names := map[string]bool{}
		for _, member := range near {
			names[member.Name] = true
		}
		assert.True(names[alice])
		assert.True(names[bob])
		assert.False(names[carol])

		near, err = uut.FindNear(utCtxt, common.Point{Latitude: 0, Longitude: 0}, 1)
		assert.Nil(err)
		names = map[string]bool{}
		for _, member := range near {
			names[member.Name] = true
		}
		assert.True(names[alice])
		assert.False(names[bob])
	}

	// Case 3: update
	{
		member, err := uut.FindByName(utCtxt, carol)
		assert.Nil(err)
		member.Location = common.Point{Latitude: 0, Longitude: 0.00001}
		member.Online = true
		member.Point = 30
		assert.Nil(uut.SaveMember(utCtxt, member))

		member, err = uut.FindByName(utCtxt, carol)
		assert.Nil(err)
		assert.True(member.Online)
		assert.Equal(30, member.Point)
		assert.InDelta(0.00001, member.Location.Longitude, 1e-12)

		near, err := uut.FindNear(utCtxt, common.Point{Latitude: 0, Longitude: 0}, 2)
		assert.Nil(err)
		found := false
		for _, member := range near {
			if member.Name == carol {
				found = true
			}
		}
		assert.True(found)
	}

	// Case 4: list
	{
		members, err := uut.ListMembers(utCtxt)
		assert.Nil(err)
		assert.GreaterOrEqual(len(members), 3)
	}
}

func TestSQLiteMemberStore(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut, err := OpenSQLiteMemberStore(context.Background(), ":memory:")
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Close())
	}()

	exerciseMemberStore(t, uut)
}

func TestPostgresMemberStore(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	dsn, ok := common.GetUnitTestPostgresDSN()
	if !ok {
		t.Skip("UNITTEST_POSTGRES_DSN not set")
	}

	uut, err := ConnectPostgresMemberStore(context.Background(), dsn)
	assert.Nil(err)
	defer func() {
		assert.Nil(uut.Close())
	}()

	exerciseMemberStore(t, uut)
}
