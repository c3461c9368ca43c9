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

package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/mocks"
	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestThrottleStore(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	kv := mocks.NewMemoryKeyValueStore()
	current := time.Date(2023, 8, 19, 12, 0, 0, 0, time.UTC)
	uut := NewStoreWithClock(kv, func() time.Time { return current })
	cooldown := time.Hour

	// Case 0: no record
	{
		recent, err := uut.WasRecentlyNotified(utCtxt, "bob", cooldown)
		assert.Nil(err)
		assert.False(recent)
	}

	// Case 1: record then check
	{
		assert.Nil(uut.RecordNotified(utCtxt, "bob"))
		recent, err := uut.WasRecentlyNotified(utCtxt, "bob", cooldown)
		assert.Nil(err)
		assert.True(recent)
		value, err := kv.Get(utCtxt, "member:bob:recently-pushed")
		assert.Nil(err)
		assert.Equal("2023-08-19T12:00:00Z", value)
	}

	// Case 2: cooldown elapsed
	{
		current = current.Add(cooldown)
		recent, err := uut.WasRecentlyNotified(utCtxt, "bob", cooldown)
		assert.Nil(err)
		assert.False(recent)
	}

	// Case 3: recording twice only refreshes the timestamp
	{
		assert.Nil(uut.RecordNotified(utCtxt, "bob"))
		current = current.Add(time.Second)
		assert.Nil(uut.RecordNotified(utCtxt, "bob"))
		recent, err := uut.WasRecentlyNotified(utCtxt, "bob", cooldown)
		assert.Nil(err)
		assert.True(recent)
		value, err := kv.Get(utCtxt, "member:bob:recently-pushed")
		assert.Nil(err)
		assert.Equal(current.Format(time.RFC3339Nano), value)
	}

	// Case 4: unparsable record
	{
		assert.Nil(kv.Set(utCtxt, "member:carol:recently-pushed", "yesterday"))
		recent, err := uut.WasRecentlyNotified(utCtxt, "carol", cooldown)
		assert.Nil(err)
		assert.False(recent)
	}

	// Case 5: members are independent
	{
		recent, err := uut.WasRecentlyNotified(utCtxt, "alice", cooldown)
		assert.Nil(err)
		assert.False(recent)
	}
}

func TestThrottleStoreBackendError(t *testing.T) {
	assert := assert.New(t)

	kv := new(mocks.KeyValueStore)
	uut := NewStore(kv)

	kv.On("Get", mock.Anything, "member:bob:recently-pushed").Return("", errors.New("dummy")).Once()
	_, err := uut.WasRecentlyNotified(context.Background(), "bob", time.Hour)
	assert.NotNil(err)
	kv.AssertExpectations(t)
}
