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
	"testing"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/observability"
	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStream(t *testing.T) {
	assert := assert.New(t)

	uut := NewStream(1, time.Millisecond*20)

	// Case 0: buffered write
	{
		assert.Nil(uut.Write(Event{Name: "a", Data: "1"}))
	}

	// Case 1: buffer full
	{
		assert.NotNil(uut.Write(Event{Name: "b", Data: "2"}))
		ev := <-uut.Events()
		assert.Equal("a", ev.Name)
	}

	// Case 2: closed
	{
		uut.Close()
		uut.Close()
		assert.True(uut.IsClosed())
		assert.NotNil(uut.Write(Event{Name: "c", Data: "3"}))
	}
}

func TestRegistryRegister(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	uut := NewRegistry(metrics)

	// Case 0: not connected
	{
		assert.False(uut.IsConnected("alice"))
		_, err := uut.Get("alice")
		assert.True(common.IsNotFound(err))
		err = uut.Send("alice", "bob", "hi")
		assert.True(common.IsNotFound(err))
	}

	// Case 1: register sends the connect event
	first := NewStream(4, time.Millisecond*50)
	{
		assert.Nil(uut.Register("alice", first))
		assert.True(uut.IsConnected("alice"))
		ev := <-first.Events()
		assert.Equal(ConnectEventName, ev.Name)
		assert.Equal(ConnectEventData, ev.Data)
		assert.Equal(1.0, testutil.ToFloat64(metrics.LiveConnections))
	}

	// Case 2: replacement closes the old stream
	second := NewStream(4, time.Millisecond*50)
	{
		assert.Nil(uut.Register("alice", second))
		assert.True(first.IsClosed())
		assert.False(second.IsClosed())
		stream, err := uut.Get("alice")
		assert.Nil(err)
		assert.Equal(second.ID, stream.ID)
		assert.Equal(1, uut.Count())
		<-second.Events()
	}

	// Case 3: send
	{
		assert.Nil(uut.Send("alice", "bob", map[string]string{"k": "v"}))
		ev := <-second.Events()
		assert.Equal("bob", ev.Name)
	}

	// Case 4: teardown of a superseded stream leaves the replacement
	{
		assert.False(uut.RemoveIf("alice", first))
		assert.True(uut.IsConnected("alice"))
		assert.True(uut.RemoveIf("alice", second))
		assert.False(uut.IsConnected("alice"))
		assert.True(second.IsClosed())
	}

	// Case 5: registering a closed stream fails
	{
		closed := NewStream(1, time.Millisecond*10)
		closed.Close()
		err := uut.Register("alice", closed)
		assert.True(common.IsDeliveryError(err))
		assert.False(uut.IsConnected("alice"))
	}
}

func TestRegistrySendFailure(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut := NewRegistry(nil)

	// Case 0: stream closed after registration
	{
		stream := NewStream(2, time.Millisecond*10)
		assert.Nil(uut.Register("alice", stream))
		stream.Close()
		err := uut.Send("alice", "bob", "hi")
		assert.True(common.IsDeliveryError(err))
	}

	// Case 1: stream never drained
	{
		stream := NewStream(1, time.Millisecond*10)
		assert.Nil(uut.Register("bob", stream))
		err := uut.Send("bob", "alice", "hi")
		assert.True(common.IsDeliveryError(err))
	}

	// Case 2: remove
	{
		uut.Remove("bob")
		assert.False(uut.IsConnected("bob"))
		uut.Remove("bob")
	}
}

func TestRegistryIdleAndClose(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	uut := NewRegistry(nil)

	stale := NewStream(4, time.Millisecond*10)
	assert.Nil(uut.Register("alice", stale))
	time.Sleep(time.Millisecond * 50)
	fresh := NewStream(4, time.Millisecond*10)
	assert.Nil(uut.Register("bob", fresh))

	// Case 0: idle sweep
	{
		assert.Equal(1, uut.CloseIdle(time.Millisecond*25))
		assert.True(stale.IsClosed())
		assert.False(uut.IsConnected("alice"))
		assert.True(uut.IsConnected("bob"))
	}

	// Case 1: close all
	{
		uut.Close()
		assert.True(fresh.IsClosed())
		assert.Equal(0, uut.Count())
	}
}

func TestRegistryConcurrent(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.InfoLevel)

	uut := NewRegistry(nil)
	members := 20

	wg := sync.WaitGroup{}
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			name := fmt.Sprintf("member-%d", idx)
			for j := 0; j < 5; j++ {
				stream := NewStream(16, time.Millisecond*10)
				assert.Nil(uut.Register(name, stream))
				_ = uut.Send(name, "ping", "pong")
				_ = uut.IsConnected(name)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(members, uut.Count())
}
