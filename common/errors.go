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

package common

import (
	"errors"
	"fmt"
)

// NotFoundError an entity being looked up does not exist
type NotFoundError struct {
	// Kind is the entity type: member, fanclub, connection, record
	Kind string
	// ID is the entity identifier
	ID string
}

// Error implements error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

// NewNotFoundError define a NotFoundError
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound whether the error chain contains a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// ConflictError an entity being created already exists
type ConflictError struct {
	Kind string
	ID   string
}

// Error implements error
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s '%s' already exists", e.Kind, e.ID)
}

// IsConflict whether the error chain contains a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// DeliveryError writing an event onto a member's live connection failed
type DeliveryError struct {
	Member string
	Err    error
}

// Error implements error
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("event delivery to '%s' failed: %s", e.Member, e.Err)
}

// Unwrap exposes the underlying cause
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError whether the error chain contains a DeliveryError
func IsDeliveryError(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}

// PushDeliveryError the external push service rejected or failed a notification
type PushDeliveryError struct {
	Member string
	// StatusCode is the push service response code, 0 if no response was received
	StatusCode int
	Err        error
}

// Error implements error
func (e *PushDeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf(
			"push delivery to '%s' failed with status %d: %s", e.Member, e.StatusCode, e.Err,
		)
	}
	return fmt.Sprintf("push delivery to '%s' failed: %s", e.Member, e.Err)
}

// Unwrap exposes the underlying cause
func (e *PushDeliveryError) Unwrap() error {
	return e.Err
}
