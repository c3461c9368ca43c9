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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"
	"github.com/nats-io/nats.go"
)

// NATSConnectParams NATS connection parameter
type NATSConnectParams struct {
	// ServerURI connect to NATS JetStream cluster with URI
	ServerURI string `validate:"required,uri"`
	// ConnectTimeout max time to wait for connection
	ConnectTimeout time.Duration
	// MaxReconnectAttempt on connection failure, max number of reconnect
	// attempt. "-1" means infinite
	MaxReconnectAttempt int
	// ReconnectWait wait duration between reconnect attempts
	ReconnectWait time.Duration
	// OnDisconnectCallback callback on disconnect
	OnDisconnectCallback func(*nats.Conn, error)
	// OnReconnectCallback callback on reconnect
	OnReconnectCallback func(*nats.Conn)
	// OnCloseCallback callback on close
	OnCloseCallback func(*nats.Conn)
}

// NatsClient NATS client backing the key-value buckets
type NatsClient struct {
	common.Component
	nc *nats.Conn
	js nats.JetStreamContext
}

// Close close a NATS client
func (c *NatsClient) Close(ctxt context.Context) {
	if err := c.nc.FlushWithContext(ctxt); err != nil {
		log.WithError(err).WithFields(c.LogTags).Errorf("NATS flush failed")
	}
	c.nc.Close()
	log.WithFields(c.LogTags).Infof("Close NATS client")
}

// JetStream fetch the JetStream client
func (c *NatsClient) JetStream() nats.JetStreamContext {
	return c.js
}

// Ready whether the client is currently connected
func (c *NatsClient) Ready(_ context.Context) error {
	if status := c.nc.Status(); status != nats.CONNECTED {
		return fmt.Errorf("NATS connection status %d", status)
	}
	return nil
}

// KeyValueBucket fetch a JetStream key-value bucket, creating it when missing
//
// Entries of the bucket expire ttl after their last write. A zero ttl keeps entries forever.
func (c *NatsClient) KeyValueBucket(bucket string, ttl time.Duration) (nats.KeyValue, error) {
	logTags := c.ExtendLogTags(log.Fields{"bucket": bucket})
	kv, err := c.js.KeyValue(bucket)
	if err == nil {
		_ = bucketTTLMatches(kv, ttl, logTags)
		return kv, nil
	}
	if !errors.Is(err, nats.ErrBucketNotFound) {
		log.WithError(err).WithFields(logTags).Error("Failed to bind key-value bucket")
		return nil, err
	}
	kv, err = c.js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:  bucket,
		TTL:     ttl,
		History: 1,
		Storage: nats.FileStorage,
	})
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to create key-value bucket")
		return nil, err
	}
	log.WithFields(logTags).Infof("Created key-value bucket with TTL %s", ttl)
	return kv, nil
}

// bucketTTLMatches whether an existing bucket expires entries after ttl
//
// A bucket keeps the TTL it was created with, so a mismatch is only reported.
func bucketTTLMatches(kv nats.KeyValue, ttl time.Duration, logTags log.Fields) bool {
	status, err := kv.Status()
	if err != nil {
		log.WithError(err).WithFields(logTags).Warn("Unable to read key-value bucket status")
		return false
	}
	if status.TTL() != ttl {
		log.WithFields(logTags).Warnf(
			"Existing key-value bucket has TTL %s instead of requested %s. "+
				"Delete the bucket to apply the new TTL.",
			status.TTL(), ttl,
		)
		return false
	}
	return true
}

// GetNatsClient define a new NATS client with JetStream enabled
func GetNatsClient(param NATSConnectParams) (*NatsClient, error) {
	logTags := log.Fields{
		"module":    "core",
		"component": "nats-client",
		"instance":  param.ServerURI,
	}
	// Create the NATS transport
	nc, err := nats.Connect(
		param.ServerURI,
		nats.Timeout(param.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(param.MaxReconnectAttempt),
		nats.ReconnectWait(param.ReconnectWait),
		nats.DisconnectErrHandler(param.OnDisconnectCallback),
		nats.ReconnectHandler(param.OnReconnectCallback),
		nats.ClosedHandler(param.OnCloseCallback),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("NATS client connect failed")
		return nil, err
	}

	// Define the JetStream client
	js, err := nc.JetStream()
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Failed to define JetStream client")
		nc.Close()
		return nil, err
	}
	log.WithFields(logTags).Info("Created JetStream client")

	return &NatsClient{
		Component: common.Component{LogTags: logTags},
		nc:        nc,
		js:        js,
	}, nil
}
