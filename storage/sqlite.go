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
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Unithon10th-Team4/Hoxy-BE/common"
	"github.com/apex/log"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// sqliteSchema baseline tables of the SQLite member store
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS fanclubs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS members (
		name TEXT PRIMARY KEY,
		fanclub_id TEXT NOT NULL,
		profile_url TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		online INTEGER NOT NULL DEFAULT 0,
		push_token TEXT NOT NULL DEFAULT '',
		point INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_members_lat_lon ON members(latitude, longitude);`,
}

// sqliteMemberStore MemberStore backed by an embedded SQLite database
type sqliteMemberStore struct {
	common.Component
	db *sql.DB
}

// OpenSQLiteMemberStore open the SQLite database at path and ensure the schema exists.
// The path ":memory:" opens a private in-memory database.
func OpenSQLiteMemberStore(ctxt context.Context, path string) (MemberStore, error) {
	logTags := log.Fields{"module": "storage", "component": "member-store", "instance": "sqlite"}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)
	if strings.HasPrefix(path, "file:") {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctxt, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	log.WithFields(logTags).Infof("Opened SQLite member store %s", path)
	return &sqliteMemberStore{Component: common.Component{LogTags: logTags}, db: db}, nil
}

// queryMembers run a member SELECT and collect the rows
func (s *sqliteMemberStore) queryMembers(
	ctxt context.Context, query string, args ...any,
) ([]common.Member, error) {
	rows, err := s.db.QueryContext(ctxt, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []common.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

// ListMembers fetch every member
func (s *sqliteMemberStore) ListMembers(ctxt context.Context) ([]common.Member, error) {
	members, err := s.queryMembers(ctxt, `SELECT `+memberColumns+` FROM members ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// FindByName fetch one member
func (s *sqliteMemberStore) FindByName(ctxt context.Context, name string) (common.Member, error) {
	member, err := scanMember(s.db.QueryRowContext(
		ctxt, `SELECT `+memberColumns+` FROM members WHERE name = ?`, name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.Member{}, common.NewNotFoundError("member", name)
		}
		return common.Member{}, fmt.Errorf("find member: %w", err)
	}
	return member, nil
}

// CreateMember record a new member
func (s *sqliteMemberStore) CreateMember(ctxt context.Context, member common.Member) error {
	res, err := s.db.ExecContext(
		ctxt,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
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
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return &common.ConflictError{Kind: "member", ID: member.Name}
	}
	return nil
}

// SaveMember update an existing member
func (s *sqliteMemberStore) SaveMember(ctxt context.Context, member common.Member) error {
	res, err := s.db.ExecContext(
		ctxt,
		`UPDATE members SET profile_url = ?, latitude = ?, longitude = ?, online = ?,
		push_token = ?, point = ? WHERE name = ?`,
		member.ProfileURL,
		member.Location.Latitude,
		member.Location.Longitude,
		member.Online,
		member.PushToken,
		member.Point,
		member.Name,
	)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if affected == 0 {
		return common.NewNotFoundError("member", member.Name)
	}
	return nil
}

// FindNear fetch every member within radiusMeters of point
func (s *sqliteMemberStore) FindNear(
	ctxt context.Context, point common.Point, radiusMeters float64,
) ([]common.Member, error) {
	box := common.BoundingBoxAround(point, radiusMeters)
	candidates, err := s.queryMembers(
		ctxt,
		`SELECT `+memberColumns+` FROM members
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`,
		box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude,
	)
	if err != nil {
		return nil, fmt.Errorf("find near: %w", err)
	}
	return common.WithinRadius(point, radiusMeters, candidates), nil
}

// FindFanclub fetch one fan-club
func (s *sqliteMemberStore) FindFanclub(ctxt context.Context, id string) (common.Fanclub, error) {
	var fanclub common.Fanclub
	err := s.db.QueryRowContext(
		ctxt, `SELECT id, name FROM fanclubs WHERE id = ?`, id,
	).Scan(&fanclub.ID, &fanclub.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.Fanclub{}, common.NewNotFoundError("fanclub", id)
		}
		return common.Fanclub{}, fmt.Errorf("find fanclub: %w", err)
	}
	return fanclub, nil
}

// SaveFanclub create or update a fan-club
func (s *sqliteMemberStore) SaveFanclub(ctxt context.Context, fanclub common.Fanclub) error {
	_, err := s.db.ExecContext(
		ctxt,
		`INSERT INTO fanclubs (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		fanclub.ID, fanclub.Name,
	)
	if err != nil {
		return fmt.Errorf("save fanclub: %w", err)
	}
	return nil
}

// Ready check the store is reachable
func (s *sqliteMemberStore) Ready(ctxt context.Context) error {
	return s.db.PingContext(ctxt)
}

// Close release the database handle
func (s *sqliteMemberStore) Close() error {
	if s.db == nil {
		return nil
	}
	log.WithFields(s.LogTags).Info("Closing SQLite member store")
	return s.db.Close()
}
