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

// Package registry live event streams of connected members
package registry

import (
	"sync"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/observability"
	"github.com/apex/log"
)

// ConnectEventName name of the event sent when a stream is registered
const ConnectEventName = "connect"

// ConnectEventData payload of the event sent when a stream is registered
const ConnectEventData = "connected!"

// Registry map of member name to that member's single live event stream
type Registry interface {
	// Register record the member's stream, closing any stream it replaces, then send the
	// connect event on it. Returns common.DeliveryError if the connect event can't be written.
	Register(name string, stream *Stream) error
	// IsConnected whether the member has a live stream
	IsConnected(name string) bool
	// Get fetch the member's stream. Returns common.NotFoundError if not connected.
	Get(name string) (*Stream, error)
	// Remove drop and close the member's stream
	Remove(name string)
	// RemoveIf drop and close the member's stream only if it is still stream
	RemoveIf(name string, stream *Stream) bool
	// Send write an event onto the member's stream.
	// Returns common.NotFoundError if not connected, common.DeliveryError if the write failed.
	Send(name string, eventName string, payload interface{}) error
	// Count number of live streams
	Count() int
	// CloseIdle close and drop streams inactive for longer than maxIdle.
	// Returns the number of streams closed.
	CloseIdle(maxIdle time.Duration) int
	// Close close every stream
	Close()
}

// connectionRegistry Registry guarded by a RW lock
//
// Stream writes happen outside the lock; only the map is guarded.
type connectionRegistry struct {
	common.Component
	lock    sync.RWMutex
	streams map[string]*Stream
	metrics *observability.Metrics
}

// NewRegistry define a new connection registry. metrics may be nil.
func NewRegistry(metrics *observability.Metrics) Registry {
	return &connectionRegistry{
		Component: common.Component{
			LogTags: log.Fields{"module": "registry", "component": "connection-registry"},
		},
		streams: make(map[string]*Stream),
		metrics: metrics,
	}
}

// Register record the member's stream
func (r *connectionRegistry) Register(name string, stream *Stream) error {
	logTags := r.ExtendLogTags(log.Fields{"member": name, "stream": stream.ID})
	r.lock.Lock()
	old, replaced := r.streams[name]
	r.streams[name] = stream
	live := len(r.streams)
	r.lock.Unlock()

	if replaced && old != stream {
		old.Close()
		log.WithFields(logTags).Infof("Replaced stream %s", old.ID)
		r.metrics.ConnectionEvent("replace", live)
	} else {
		log.WithFields(logTags).Info("Registered stream")
		r.metrics.ConnectionEvent("register", live)
	}

	if err := stream.Write(Event{Name: ConnectEventName, Data: ConnectEventData}); err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to send connect event")
		r.RemoveIf(name, stream)
		return &common.DeliveryError{Member: name, Err: err}
	}
	return nil
}

// IsConnected whether the member has a live stream
func (r *connectionRegistry) IsConnected(name string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.streams[name]
	return ok
}

// Get fetch the member's stream
func (r *connectionRegistry) Get(name string) (*Stream, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	stream, ok := r.streams[name]
	if !ok {
		return nil, common.NewNotFoundError("connection", name)
	}
	return stream, nil
}

// Remove drop and close the member's stream
func (r *connectionRegistry) Remove(name string) {
	r.lock.Lock()
	stream, ok := r.streams[name]
	delete(r.streams, name)
	live := len(r.streams)
	r.lock.Unlock()
	if ok {
		stream.Close()
		log.WithFields(r.ExtendLogTags(log.Fields{"member": name})).Info("Removed stream")
		r.metrics.ConnectionEvent("remove", live)
	}
}

// RemoveIf drop and close the member's stream only if it is still stream
func (r *connectionRegistry) RemoveIf(name string, stream *Stream) bool {
	r.lock.Lock()
	current, ok := r.streams[name]
	if !ok || current != stream {
		r.lock.Unlock()
		stream.Close()
		return false
	}
	delete(r.streams, name)
	live := len(r.streams)
	r.lock.Unlock()
	stream.Close()
	log.WithFields(r.ExtendLogTags(log.Fields{"member": name, "stream": stream.ID})).
		Info("Removed stream")
	r.metrics.ConnectionEvent("remove", live)
	return true
}

// Send write an event onto the member's stream
func (r *connectionRegistry) Send(name string, eventName string, payload interface{}) error {
	stream, err := r.Get(name)
	if err != nil {
		r.metrics.LiveDelivery("not_connected")
		return err
	}
	if err := stream.Write(Event{Name: eventName, Data: payload}); err != nil {
		r.metrics.LiveDelivery("failed")
		return &common.DeliveryError{Member: name, Err: err}
	}
	r.metrics.LiveDelivery("sent")
	return nil
}

// Count number of live streams
func (r *connectionRegistry) Count() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.streams)
}

// CloseIdle close and drop streams inactive for longer than maxIdle
func (r *connectionRegistry) CloseIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	idle := []*Stream{}
	r.lock.Lock()
	for name, stream := range r.streams {
		if stream.LastActive().Before(cutoff) || stream.IsClosed() {
			idle = append(idle, stream)
			delete(r.streams, name)
		}
	}
	live := len(r.streams)
	r.lock.Unlock()

	for _, stream := range idle {
		stream.Close()
		r.metrics.ConnectionEvent("idle_close", live)
	}
	if len(idle) > 0 {
		log.WithFields(r.LogTags).Infof("Closed %d idle streams", len(idle))
	}
	return len(idle)
}

// Close close every stream
func (r *connectionRegistry) Close() {
	r.lock.Lock()
	streams := r.streams
	r.streams = make(map[string]*Stream)
	r.lock.Unlock()
	for _, stream := range streams {
		stream.Close()
	}
	r.metrics.ConnectionEvent("close", 0)
	log.WithFields(r.LogTags).Infof("Closed %d streams", len(streams))
}
