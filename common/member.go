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

import "fmt"

// Point a geographic coordinate in degrees
type Point struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// String toString function
func (p Point) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", p.Latitude, p.Longitude)
}

// Member presence record of one fan-club member
type Member struct {
	// Name unique member identifier
	Name string `json:"name" validate:"required"`
	// FanclubID the fan-club the member belongs to. Immutable after creation.
	FanclubID string `json:"fanclubId" validate:"required"`
	// ProfileURL location of the member's profile image
	ProfileURL string `json:"profileUrl"`
	// Location last known location
	Location Point `json:"location" validate:"required"`
	// Online last known connectivity flag
	Online bool `json:"online"`
	// PushToken opaque delivery address for push notifications
	PushToken string `json:"-"`
	// Point accumulated activity score
	Point int `json:"point"`
}

// Fanclub a fan-club members can belong to
type Fanclub struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// ========================================================================================
// Proximity pipeline events

// LocationUpdated a member's coordinates changed and were persisted
type LocationUpdated struct {
	Member Member
}

// StatusUpdated a member's online flag changed and was persisted
type StatusUpdated struct {
	Member Member
}

// EventKind kind of live event pushed to a connected member
type EventKind string

// EventKindStatus a nearby member changed online status
const EventKindStatus EventKind = "STATUS"

// StatusEventPayload live event payload sent when a nearby member changes status
type StatusEventPayload struct {
	SubjectName   string    `json:"subjectName"`
	SubjectOnline bool      `json:"subjectOnline"`
	EventKind     EventKind `json:"eventKind"`
}
