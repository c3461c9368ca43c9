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

package core

import (
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

type stubBucketStatus struct {
	nats.KeyValueStatus
	ttl time.Duration
}

func (s stubBucketStatus) TTL() time.Duration {
	return s.ttl
}

type stubBucket struct {
	nats.KeyValue
	status    nats.KeyValueStatus
	statusErr error
}

func (b stubBucket) Status() (nats.KeyValueStatus, error) {
	return b.status, b.statusErr
}

func TestBucketTTLMatches(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)
	logTags := log.Fields{"module": "core_test", "component": "bucket-ttl"}

	// Case 0: same TTL
	assert.True(bucketTTLMatches(
		stubBucket{status: stubBucketStatus{ttl: time.Hour}}, time.Hour, logTags,
	))

	// Case 1: bucket created with an older cooldown
	assert.False(bucketTTLMatches(
		stubBucket{status: stubBucketStatus{ttl: time.Hour}}, time.Minute*30, logTags,
	))

	// Case 2: status unavailable
	assert.False(bucketTTLMatches(
		stubBucket{statusErr: errors.New("dummy")}, time.Hour, logTags,
	))
}
