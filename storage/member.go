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

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
)

// MemberStore durable member store supporting point-radius queries
type MemberStore interface {
	// ListMembers fetch every member
	ListMembers(ctxt context.Context) ([]common.Member, error)
	// FindByName fetch one member. Returns common.NotFoundError if absent.
	FindByName(ctxt context.Context, name string) (common.Member, error)
	// CreateMember record a new member. Returns common.ConflictError if the name is taken.
	CreateMember(ctxt context.Context, member common.Member) error
	// SaveMember update an existing member. Returns common.NotFoundError if absent.
	SaveMember(ctxt context.Context, member common.Member) error
	// FindNear fetch every member within radiusMeters of point
	FindNear(ctxt context.Context, point common.Point, radiusMeters float64) ([]common.Member, error)
	// FindFanclub fetch one fan-club. Returns common.NotFoundError if absent.
	FindFanclub(ctxt context.Context, id string) (common.Fanclub, error)
	// SaveFanclub create or update a fan-club
	SaveFanclub(ctxt context.Context, fanclub common.Fanclub) error
	// Ready check the store is reachable
	Ready(ctxt context.Context) error
	// Close release the store
	Close() error
}

// memberColumns column order shared by every member SELECT
const memberColumns = `name, fanclub_id, profile_url, latitude, longitude, online, push_token, point`

// rowScanner common surface of database/sql and pgx rows
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMember read one member row selected with memberColumns
func scanMember(row rowScanner) (common.Member, error) {
	var member common.Member
	err := row.Scan(
		&member.Name,
		&member.FanclubID,
		&member.ProfileURL,
		&member.Location.Latitude,
		&member.Location.Longitude,
		&member.Online,
		&member.PushToken,
		&member.Point,
	)
	return member, err
}
