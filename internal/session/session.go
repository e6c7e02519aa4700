/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session remembers recently used workspaces and project files
// across runs in a small bbolt database under the user config directory.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Kind selects a recent-items list.
type Kind string

const (
	KindWorkspace Kind = "workspaces"
	KindProject   Kind = "projects"
)

// FileName is the database file inside the session directory.
const FileName = "session.db"

// MaxEntries is how many items each list keeps.
const MaxEntries = 20

// ErrUnknownKind is returned for a Kind without a bucket.
var ErrUnknownKind = errors.New("unknown recent list")

var kinds = []Kind{KindWorkspace, KindProject}

// Entry is one recently used file.
type Entry struct {
	Path     string    `json:"path"`
	LastUsed time.Time `json:"last_used"`
	Uses     int       `json:"uses"`
}

// Store is the recent-items database.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filepath.Join(dir, FileName), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, k := range kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(k)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucketIfNotExists(viewsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Touch records a use of path, moving it to the front of its list.
func (s *Store) Touch(kind Kind, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}
		e := Entry{Path: path}
		if v := b.Get([]byte(path)); v != nil {
			_ = json.Unmarshal(v, &e)
		}
		e.LastUsed = s.now().UTC()
		e.Uses++
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(path), data); err != nil {
			return err
		}
		return prune(b)
	})
}

// prune drops the least recently used entries beyond MaxEntries.
func prune(b *bolt.Bucket) error {
	all, err := entries(b)
	if err != nil || len(all) <= MaxEntries {
		return err
	}
	for _, e := range all[MaxEntries:] {
		if err := b.Delete([]byte(e.Path)); err != nil {
			return err
		}
	}
	return nil
}

// entries returns the bucket content, most recent first.
func entries(b *bolt.Bucket) ([]Entry, error) {
	var out []Entry
	err := b.ForEach(func(k, v []byte) error {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			// unreadable values are dropped on the next prune
			e = Entry{Path: string(k)}
		}
		out = append(out, e)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastUsed.After(out[j].LastUsed) })
	return out, err
}

// Recent lists up to limit entries of kind, most recent first. A limit <= 0
// returns everything.
func (s *Store) Recent(kind Kind, limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}
		var err error
		out, err = entries(b)
		return err
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Forget removes path from the list of kind.
func (s *Store) Forget(kind Kind, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}
		return b.Delete([]byte(path))
	})
}
