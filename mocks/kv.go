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

package mocks

import (
	"context"
	"sync"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
)

// MemoryKeyValueStore in-process storage.KeyValueStore for tests. Entries never expire.
type MemoryKeyValueStore struct {
	lock    sync.Mutex
	entries map[string]string
	// Sets number of Set calls per key
	Sets map[string]int
}

// NewMemoryKeyValueStore define an empty store
func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{entries: map[string]string{}, Sets: map[string]int{}}
}

// Set record a K/V pair
func (s *MemoryKeyValueStore) Set(_ context.Context, key string, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.entries[key] = value
	s.Sets[key]++
	return nil
}

// Get read a K/V pair
func (s *MemoryKeyValueStore) Get(_ context.Context, key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	value, ok := s.entries[key]
	if !ok {
		return "", common.NewNotFoundError("record", key)
	}
	return value, nil
}

// Delete remove a K/V pair
func (s *MemoryKeyValueStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.entries, key)
	return nil
}

// SetCount number of Set calls made for key
func (s *MemoryKeyValueStore) SetCount(key string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Sets[key]
}
