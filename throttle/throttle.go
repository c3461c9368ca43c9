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

// Package throttle suppression of repeated push notifications within a cooldown window
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/storage"
	"github.com/apex/log"
)

// Store last push notification time per member
//
// WasRecentlyNotified followed by RecordNotified is not atomic. Two events for the same member
// handled concurrently, here or on another instance sharing the backend, can both pass the
// check, so a member may receive one duplicate push per cooldown window.
type Store interface {
	// WasRecentlyNotified whether the member was pushed to less than cooldown ago
	WasRecentlyNotified(ctxt context.Context, name string, cooldown time.Duration) (bool, error)
	// RecordNotified record now as the member's last push time
	RecordNotified(ctxt context.Context, name string) error
}

// RecentlyPushedKey key of the member's throttle record
func RecentlyPushedKey(name string) string {
	return fmt.Sprintf("member:%s:recently-pushed", name)
}

// kvThrottleStore Store over a KeyValueStore
type kvThrottleStore struct {
	common.Component
	kv  storage.KeyValueStore
	now func() time.Time
}

// NewStore define a throttle store over kv
func NewStore(kv storage.KeyValueStore) Store {
	return NewStoreWithClock(kv, time.Now)
}

// NewStoreWithClock define a throttle store using a custom time source
func NewStoreWithClock(kv storage.KeyValueStore, now func() time.Time) Store {
	return &kvThrottleStore{
		Component: common.Component{
			LogTags: log.Fields{"module": "throttle", "component": "throttle-store"},
		},
		kv:  kv,
		now: now,
	}
}

// WasRecentlyNotified whether the member was pushed to less than cooldown ago
func (s *kvThrottleStore) WasRecentlyNotified(
	ctxt context.Context, name string, cooldown time.Duration,
) (bool, error) {
	value, err := s.kv.Get(ctxt, RecentlyPushedKey(name))
	if err != nil {
		if common.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	last, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		log.WithError(err).WithFields(s.ExtendLogTags(log.Fields{"member": name})).
			Warnf("Ignoring unparsable throttle record '%s'", value)
		return false, nil
	}
	return s.now().Sub(last) < cooldown, nil
}

// RecordNotified record now as the member's last push time
func (s *kvThrottleStore) RecordNotified(ctxt context.Context, name string) error {
	return s.kv.Set(ctxt, RecentlyPushedKey(name), s.now().UTC().Format(time.RFC3339Nano))
}
