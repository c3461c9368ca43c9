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
	"sync"
	"testing"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/core"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestEncodeKey(t *testing.T) {
	assert := assert.New(t)

	for _, key := range []string{
		"member:alice:recently-pushed", "member:김철수:session", "member:a b/c.d:session",
	} {
		encoded := encodeKey(key)
		assert.Regexp(`^[-/_=.a-zA-Z0-9]+$`, encoded)
	}
	assert.NotEqual(encodeKey("member:a:session"), encodeKey("member:b:session"))
}

func TestNATSKeyValueStore(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	natsURI, ok := common.GetUnitTestNatsURI()
	if !ok {
		t.Skip("UNITTEST_NATS_URI not set")
	}

	wg := sync.WaitGroup{}
	defer wg.Wait()
	utCtxt, utCtxtCancel := context.WithCancel(context.Background())
	defer utCtxtCancel()

	logTags := log.Fields{
		"module":    "storage_test",
		"component": "NATSKeyValueStore",
		"instance":  "basic",
	}

	client, err := core.GetNatsClient(core.NATSConnectParams{
		ServerURI:           natsURI,
		ConnectTimeout:      time.Second,
		MaxReconnectAttempt: 0,
		ReconnectWait:       time.Second,
		OnDisconnectCallback: func(_ *nats.Conn, e error) {
			if e != nil {
				log.WithError(e).WithFields(logTags).Error(
					"Disconnect callback triggered with failure",
				)
			}
		},
		OnReconnectCallback: func(_ *nats.Conn) {
			log.WithFields(logTags).Debug("Reconnected with NATs server")
		},
		OnCloseCallback: func(_ *nats.Conn) {
			log.WithFields(logTags).Debug("Disconnected from NATs server")
		},
	})
	assert.Nil(err)
	defer client.Close(utCtxt)

	bucket := fmt.Sprintf("ut-%s", uuid.New().String())
	uut, err := GetNATSKeyValueStore(client, bucket, time.Second*2, time.Second*5)
	assert.Nil(err)
	defer func() {
		assert.Nil(client.JetStream().DeleteKeyValue(bucket))
	}()

	key := "member:김철수:recently-pushed"

	// Case 0: missing key
	{
		_, err := uut.Get(utCtxt, key)
		assert.True(common.IsNotFound(err))
	}

	// Case 1: write then read
	{
		assert.Nil(uut.Set(utCtxt, key, "2023-08-19T10:00:00Z"))
		value, err := uut.Get(utCtxt, key)
		assert.Nil(err)
		assert.Equal("2023-08-19T10:00:00Z", value)
	}

	// Case 2: overwrite
	{
		assert.Nil(uut.Set(utCtxt, key, "2023-08-19T11:00:00Z"))
		value, err := uut.Get(utCtxt, key)
		assert.Nil(err)
		assert.Equal("2023-08-19T11:00:00Z", value)
	}

	// Case 3: entry expires with the bucket TTL
	{
		time.Sleep(time.Second * 3)
		_, err := uut.Get(utCtxt, key)
		assert.True(common.IsNotFound(err))
	}

	// Case 4: delete
	{
		assert.Nil(uut.Set(utCtxt, key, "value"))
		assert.Nil(uut.Delete(utCtxt, key))
		_, err := uut.Get(utCtxt, key)
		assert.True(common.IsNotFound(err))
	}
}

type slowBucket struct {
	nats.KeyValue
	delay time.Duration
}

func (b slowBucket) Get(key string) (nats.KeyValueEntry, error) {
	time.Sleep(b.delay)
	return nil, nats.ErrKeyNotFound
}

func (b slowBucket) PutString(key string, value string) (uint64, error) {
	time.Sleep(b.delay)
	return 1, nil
}

func TestNATSKeyValueStoreCallTimeout(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	utCtxt := context.Background()

	uut := &natsKVStore{
		Component:   common.Component{LogTags: log.Fields{"module": "storage_test"}},
		kv:          slowBucket{delay: time.Millisecond * 500},
		callTimeout: time.Millisecond * 50,
	}

	// Case 0: slow read gives up at the call timeout
	{
		start := time.Now()
		_, err := uut.Get(utCtxt, "member:alice:session")
		assert.ErrorIs(err, context.DeadlineExceeded)
		assert.True(time.Since(start) < time.Millisecond*400)
	}

	// Case 1: slow write gives up at the call timeout
	{
		start := time.Now()
		err := uut.Set(utCtxt, "member:alice:session", "true")
		assert.ErrorIs(err, context.DeadlineExceeded)
		assert.True(time.Since(start) < time.Millisecond*400)
	}

	// Case 2: a call finishing within the timeout returns its own result
	{
		uut.kv = slowBucket{delay: time.Millisecond}
		_, err := uut.Get(utCtxt, "member:alice:session")
		assert.True(common.IsNotFound(err))
	}

	// Case 3: an already cancelled caller never reaches the bucket
	{
		cancelled, cancel := context.WithCancel(utCtxt)
		cancel()
		assert.ErrorIs(uut.Set(cancelled, "member:alice:session", "true"), context.Canceled)
	}
}
