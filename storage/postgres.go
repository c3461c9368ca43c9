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
	"errors"
	"fmt"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgSchema baseline tables of the PostgreSQL member store
var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS fanclubs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS members (
		name TEXT PRIMARY KEY,
		fanclub_id TEXT NOT NULL,
		profile_url TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		online BOOLEAN NOT NULL DEFAULT FALSE,
		push_token TEXT NOT NULL DEFAULT '',
		point INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_members_lat_lon ON members(latitude, longitude);`,
}

// pgMemberStore MemberStore backed by PostgreSQL
type pgMemberStore struct {
	common.Component
	pool *pgxpool.Pool
}

// ConnectPostgresMemberStore connect to PostgreSQL and ensure the schema exists
func ConnectPostgresMemberStore(ctxt context.Context, dsn string) (MemberStore, error) {
	logTags := log.Fields{"module": "storage", "component": "member-store", "instance": "postgres"}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctxt, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	for _, stmt := range pgSchema {
		if _, err := pool.Exec(ctxt, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	log.WithFields(logTags).Info("Connected to PostgreSQL member store")
	return &pgMemberStore{Component: common.Component{LogTags: logTags}, pool: pool}, nil
}

// ListMembers fetch every member
func (s *pgMemberStore) ListMembers(ctxt context.Context) ([]common.Member, error) {
	rows, err := s.pool.Query(ctxt, `SELECT `+memberColumns+` FROM members ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	return collectMembers(rows)
}

// collectMembers drain pgx rows into members
func collectMembers(rows pgx.Rows) ([]common.Member, error) {
	result := []common.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		result = append(result, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read members: %w", err)
	}
	return result, nil
}

// FindByName fetch one member
func (s *pgMemberStore) FindByName(ctxt context.Context, name string) (common.Member, error) {
	member, err := scanMember(s.pool.QueryRow(
		ctxt, `SELECT `+memberColumns+` FROM members WHERE name = $1`, name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Member{}, common.NewNotFoundError("member", name)
		}
		return common.Member{}, fmt.Errorf("find member: %w", err)
	}
	return member, nil
}

// CreateMember record a new member
func (s *pgMemberStore) CreateMember(ctxt context.Context, member common.Member) error {
	tag, err := s.pool.Exec(
		ctxt,
		`INSERT INTO members (`+memberColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO NOTHING`,
		member.Name,
		member.FanclubID,
		member.ProfileURL,
		member.Location.Latitude,
		member.Location.Longitude,
		member.Online,
		member.PushToken,
		member.Point,
	)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &common.ConflictError{Kind: "member", ID: member.Name}
	}
	return nil
}

// SaveMember update an existing member
func (s *pgMemberStore) SaveMember(ctxt context.Context, member common.Member) error {
	tag, err := s.pool.Exec(
		ctxt,
		`UPDATE members SET profile_url = $2, latitude = $3, longitude = $4, online = $5,
		push_token = $6, point = $7 WHERE name = $1`,
		member.Name,
		member.ProfileURL,
		member.Location.Latitude,
		member.Location.Longitude,
		member.Online,
		member.PushToken,
		member.Point,
	)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("member", member.Name)
	}
	return nil
}

// FindNear fetch every member within radiusMeters of point
func (s *pgMemberStore) FindNear(
	ctxt context.Context, point common.Point, radiusMeters float64,
) ([]common.Member, error) {
	box := common.BoundingBoxAround(point, radiusMeters)
	rows, err := s.pool.Query(
		ctxt,
		`SELECT `+memberColumns+` FROM members
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`,
		box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude,
	)
	if err != nil {
		return nil, fmt.Errorf("find near: %w", err)
	}
	defer rows.Close()
	candidates, err := collectMembers(rows)
	if err != nil {
		return nil, err
	}
	return common.WithinRadius(point, radiusMeters, candidates), nil
}

// FindFanclub fetch one fan-club
func (s *pgMemberStore) FindFanclub(ctxt context.Context, id string) (common.Fanclub, error) {
	var fanclub common.Fanclub
	err := s.pool.QueryRow(
		ctxt, `SELECT id, name FROM fanclubs WHERE id = $1`, id,
	).Scan(&fanclub.ID, &fanclub.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.Fanclub{}, common.NewNotFoundError("fanclub", id)
		}
		return common.Fanclub{}, fmt.Errorf("find fanclub: %w", err)
	}
	return fanclub, nil
}

// SaveFanclub create or update a fan-club
func (s *pgMemberStore) SaveFanclub(ctxt context.Context, fanclub common.Fanclub) error {
	_, err := s.pool.Exec(
		ctxt,
		`INSERT INTO fanclubs (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		fanclub.ID, fanclub.Name,
	)
	if err != nil {
		return fmt.Errorf("save fanclub: %w", err)
	}
	return nil
}

// Ready check the store is reachable
func (s *pgMemberStore) Ready(ctxt context.Context) error {
	var one int
	return s.pool.QueryRow(ctxt, "select 1").Scan(&one)
}

// Close release the connection pool
func (s *pgMemberStore) Close() error {
	s.pool.Close()
	log.WithFields(s.LogTags).Info("Closed PostgreSQL member store")
	return nil
}
