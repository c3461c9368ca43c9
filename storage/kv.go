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
	"encoding/base64"
	"errors"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/Unithon10th-Team4/Hoxy-BE/core"
	"github.com/apex/log"
	"github.com/nats-io/nats.go"
)

// KeyValueStore key-value store holding short lived records
//
// Entries expire after a per-store TTL fixed when the store is defined.
type KeyValueStore interface {
	// Set record a K/V pair, replacing any prior value and restarting its expiry
	Set(ctxt context.Context, key string, value string) error
	// Get read a K/V pair. Returns common.NotFoundError if absent or expired.
	Get(ctxt context.Context, key string) (string, error)
	// Delete remove a K/V pair
	Delete(ctxt context.Context, key string) error
}

// natsKVStore KeyValueStore backed by a NATS JetStream key-value bucket
type natsKVStore struct {
	common.Component
	kv          nats.KeyValue
	callTimeout time.Duration
}

// GetNATSKeyValueStore define a NATS JetStream backed KeyValueStore
//
// Entries expire ttl after their last Set. Each operation gives up after callTimeout.
func GetNATSKeyValueStore(
	client *core.NatsClient, bucket string, ttl time.Duration, callTimeout time.Duration,
) (KeyValueStore, error) {
	logTags := log.Fields{"module": "storage", "component": "nats-kv", "instance": bucket}
	kv, err := client.KeyValueBucket(bucket, ttl)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define key-value store")
		return nil, err
	}
	return &natsKVStore{
		Component: common.Component{LogTags: logTags}, kv: kv, callTimeout: callTimeout,
	}, nil
}

// boundedCall run one bucket operation, returning early once ctxt or the call timeout expire
//
// The bucket API takes no context, so an abandoned operation finishes in the background.
func (s *natsKVStore) boundedCall(ctxt context.Context, op func() error) error {
	if err := ctxt.Err(); err != nil {
		return err
	}
	callCtxt, cancel := context.WithTimeout(ctxt, s.callTimeout)
	defer cancel()
	result := make(chan error, 1)
	go func() {
		result <- op()
	}()
	select {
	case err := <-result:
		return err
	case <-callCtxt.Done():
		return callCtxt.Err()
	}
}

// encodeKey map an arbitrary key onto the JetStream key alphabet
//
// JetStream keys only allow [-/_=.a-zA-Z0-9]; member names may contain anything.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Set record a K/V pair in the bucket
func (s *natsKVStore) Set(ctxt context.Context, key string, value string) error {
	var rev uint64
	err := s.boundedCall(ctxt, func() error {
		var err error
		rev, err = s.kv.PutString(encodeKey(key), value)
		return err
	})
	if err != nil {
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to SET %s", key)
		return err
	}
	log.WithFields(s.LogTags).Debugf("SET %s@%d <== %s", key, rev, value)
	return nil
}

// Get read a K/V pair from the bucket
func (s *natsKVStore) Get(ctxt context.Context, key string) (string, error) {
	var entry nats.KeyValueEntry
	err := s.boundedCall(ctxt, func() error {
		var err error
		entry, err = s.kv.Get(encodeKey(key))
		return err
	})
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return "", common.NewNotFoundError("record", key)
		}
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to GET %s", key)
		return "", err
	}
	return string(entry.Value()), nil
}

// Delete delete a key from the bucket
func (s *natsKVStore) Delete(ctxt context.Context, key string) error {
	err := s.boundedCall(ctxt, func() error {
		return s.kv.Delete(encodeKey(key))
	})
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		log.WithError(err).WithFields(s.LogTags).Errorf("Failed to DELETE %s", key)
		return err
	}
	return nil
}
