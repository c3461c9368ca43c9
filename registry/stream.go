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

package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event one named event written onto a live connection
type Event struct {
	// Name event name
	Name string
	// Data event payload. Strings are sent as is, anything else is JSON encoded.
	Data interface{}
}

// Stream a member's unidirectional outbound event stream
//
// Events are buffered; a single reader, the connection handler, drains Events() until Done()
// closes.
type Stream struct {
	// ID stream instance identifier
	ID        string
	createdAt time.Time
	// lastActive unix nanoseconds of the last successful write
	lastActive  atomic.Int64
	events      chan Event
	done        chan struct{}
	closeOnce   sync.Once
	writeLock   sync.Mutex
	sendTimeout time.Duration
}

// NewStream define a new stream
//
// Writes fail if the buffer of bufferSize events stays full for longer than sendTimeout.
func NewStream(bufferSize int, sendTimeout time.Duration) *Stream {
	if bufferSize < 1 {
		bufferSize = 1
	}
	now := time.Now()
	s := &Stream{
		ID:          uuid.New().String(),
		createdAt:   now,
		events:      make(chan Event, bufferSize),
		done:        make(chan struct{}),
		sendTimeout: sendTimeout,
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// Write queue an event onto the stream
func (s *Stream) Write(ev Event) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	select {
	case <-s.done:
		return fmt.Errorf("stream %s closed", s.ID)
	default:
	}
	timer := time.NewTimer(s.sendTimeout)
	defer timer.Stop()
	select {
	case s.events <- ev:
		s.lastActive.Store(time.Now().UnixNano())
		return nil
	case <-s.done:
		return fmt.Errorf("stream %s closed", s.ID)
	case <-timer.C:
		return fmt.Errorf("stream %s write timed out after %s", s.ID, s.sendTimeout)
	}
}

// Events the channel of queued events
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done closed once the stream is closed
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close close the stream. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// IsClosed whether the stream was closed
func (s *Stream) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// CreatedAt when the stream was defined
func (s *Stream) CreatedAt() time.Time {
	return s.createdAt
}

// LastActive when an event was last written onto the stream
func (s *Stream) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}
