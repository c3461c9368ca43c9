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

package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// fcmScope OAuth2 scope of the FCM HTTP v1 API
const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// fcmMessage FCM HTTP v1 send request
type fcmMessage struct {
	Message fcmMessageBody `json:"message"`
}

type fcmMessageBody struct {
	Token        string          `json:"token"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// fcmErrorResponse FCM HTTP v1 error body
type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// fcmNotifier Notifier using the Firebase Cloud Messaging HTTP v1 API
type fcmNotifier struct {
	common.Component
	client  *http.Client
	sendURL string
}

// NewFCMNotifier define a FCM notifier authenticated with the service account credentials
// file named in the config
func NewFCMNotifier(ctxt context.Context, config common.PushConfig) (Notifier, error) {
	raw, err := os.ReadFile(config.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read push credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctxt, raw, fcmScope)
	if err != nil {
		return nil, fmt.Errorf("parse push credentials: %w", err)
	}
	client := oauth2.NewClient(ctxt, creds.TokenSource)
	client.Timeout = time.Second * time.Duration(config.RequestTimeout)
	return NewFCMNotifierWithClient(client, config.Endpoint, config.ProjectID), nil
}

// NewFCMNotifierWithClient define a FCM notifier sending through a prepared HTTP client
//
// The client is expected to attach authorization to each request.
func NewFCMNotifierWithClient(client *http.Client, endpoint, projectID string) Notifier {
	return &fcmNotifier{
		Component: common.Component{
			LogTags: log.Fields{"module": "push", "component": "notifier", "instance": "fcm"},
		},
		client: client,
		sendURL: fmt.Sprintf(
			"%s/v1/projects/%s/messages:send", strings.TrimRight(endpoint, "/"), projectID,
		),
	}
}

// Send deliver one notification
func (n *fcmNotifier) Send(ctxt context.Context, notification Notification) error {
	logTags := n.ExtendLogTags(log.Fields{"member": notification.Member})
	if notification.Token == "" {
		return &common.PushDeliveryError{
			Member: notification.Member, Err: errors.New("no push token"),
		}
	}

	payload, err := json.Marshal(fcmMessage{
		Message: fcmMessageBody{
			Token: notification.Token,
			Notification: fcmNotification{
				Title: notification.Title,
				Body:  notification.Body,
			},
		},
	})
	if err != nil {
		return &common.PushDeliveryError{Member: notification.Member, Err: err}
	}

	req, err := http.NewRequestWithContext(ctxt, http.MethodPost, n.sendURL, bytes.NewReader(payload))
	if err != nil {
		return &common.PushDeliveryError{Member: notification.Member, Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := n.client.Do(req)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Push request failed")
		return &common.PushDeliveryError{Member: notification.Member, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		reason := strings.TrimSpace(string(body))
		var parsed fcmErrorResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
			reason = fmt.Sprintf("%s: %s", parsed.Error.Status, parsed.Error.Message)
		}
		log.WithFields(logTags).Errorf("Push rejected with %d: %s", resp.StatusCode, reason)
		return &common.PushDeliveryError{
			Member: notification.Member, StatusCode: resp.StatusCode, Err: errors.New(reason),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	log.WithFields(logTags).Debug("Push accepted")
	return nil
}
