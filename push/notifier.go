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

// Package push mobile push notification delivery
package push

import (
	"context"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"
)

// Notification one push notification toward one device
type Notification struct {
	// Member recipient member name
	Member string
	// Token recipient device push token
	Token string
	// Title notification title
	Title string
	// Body notification body
	Body string
}

// Notifier push notification delivery service
//
// Delivery is fire-and-forget: an error means the push was not accepted, nothing is retried.
type Notifier interface {
	// Send deliver a notification. Returns common.PushDeliveryError on failure.
	Send(ctxt context.Context, notification Notification) error
}

// logNotifier Notifier which only logs, used when push delivery is disabled
type logNotifier struct {
	common.Component
}

// NewLogNotifier define a Notifier which logs notifications instead of sending them
func NewLogNotifier() Notifier {
	return &logNotifier{
		Component: common.Component{
			LogTags: log.Fields{"module": "push", "component": "notifier", "instance": "log"},
		},
	}
}

// Send log the notification
func (n *logNotifier) Send(_ context.Context, notification Notification) error {
	log.WithFields(n.ExtendLogTags(log.Fields{"member": notification.Member})).
		Infof("PUSH '%s' '%s'", notification.Title, notification.Body)
	return nil
}
