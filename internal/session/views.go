/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"encoding/json"
	"sort"

	bolt "go.etcd.io/bbolt"

	"multicanvas/internal/history"
)

// MaxViews bounds how many per-project navigation histories are kept.
const MaxViews = 200

var viewsBucket = []byte("views")

type viewRecord struct {
	Entries []history.Entry `json:"entries"`
	Cursor  int             `json:"cursor"`
	Saved   int64           `json:"saved"`
}

// SaveHistory stores the navigation history of the project with id so the
// next run can continue back/forward navigation.
func (s *Store) SaveHistory(id string, h *history.History) error {
	rec := viewRecord{Entries: h.Entries(), Cursor: h.Cursor(), Saved: s.now().UnixNano()}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(viewsBucket)
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}
		return pruneViews(b)
	})
}

// LoadHistory restores the stored history of id into h. It reports false
// when nothing was stored.
func (s *Store) LoadHistory(id string, h *history.History) (bool, error) {
	var rec viewRecord
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(viewsBucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &rec)
	})
	if err != nil || !found {
		return false, err
	}
	h.Restore(rec.Entries, rec.Cursor)
	return true, nil
}

func pruneViews(b *bolt.Bucket) error {
	type aged struct {
		id    []byte
		saved int64
	}
	var all []aged
	err := b.ForEach(func(k, v []byte) error {
		var rec viewRecord
		_ = json.Unmarshal(v, &rec)
		all = append(all, aged{id: append([]byte(nil), k...), saved: rec.Saved})
		return nil
	})
	if err != nil || len(all) <= MaxViews {
		return err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].saved > all[j].saved })
	for _, a := range all[MaxViews:] {
		if err := b.Delete(a.id); err != nil {
			return err
		}
	}
	return nil
}
