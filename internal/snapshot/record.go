/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"strings"

	"multicanvas/internal/domain"
	applog "multicanvas/internal/log"
)

// BookmarkRecord is the stored form of a bookmark.
type BookmarkRecord struct {
	Name    string    `json:"name"`
	Extent  []float64 `json:"extent"`
	CRS     string    `json:"crs"`
	Created string    `json:"created,omitempty"`
}

// Record is the stored metadata of a snapshot. It carries neither the
// scratch location nor the extent history. Extent is null when unknown.
// Modified keeps unsaved changes pending across sessions.
type Record struct {
	Name          string           `json:"name"`
	PersistedPath *string          `json:"persisted_path"`
	SavedFile     *string          `json:"saved_file,omitempty"`
	Extent        []float64        `json:"extent"`
	CRS           string           `json:"crs"`
	LayerCount    int              `json:"layer_count"`
	Notes         string           `json:"notes"`
	Bookmarks     []BookmarkRecord `json:"bookmarks"`
	Created       string           `json:"created,omitempty"`
	LastModified  string           `json:"last_modified,omitempty"`
	Modified      bool             `json:"modified,omitempty"`
}

// ToRecord exports the durable fields of s.
func (s *Snapshot) ToRecord() Record {
	r := Record{
		Name:         s.Name,
		CRS:          s.CRS,
		LayerCount:   s.LayerCount,
		Notes:        s.Notes,
		Bookmarks:    make([]BookmarkRecord, 0, len(s.Bookmarks)),
		Created:      domain.FormatTime(s.Created),
		LastModified: domain.FormatTime(s.LastModified),
		Modified:     s.Modified,
	}
	if s.PersistedPath != "" {
		p := s.PersistedPath
		r.PersistedPath = &p
	}
	if s.Extent != nil {
		a := s.Extent.Array()
		r.Extent = a[:]
	}
	for _, b := range s.Bookmarks {
		a := b.Extent.Array()
		r.Bookmarks = append(r.Bookmarks, BookmarkRecord{
			Name:    b.Name,
			Extent:  a[:],
			CRS:     b.CRS,
			Created: domain.FormatTime(b.Created),
		})
	}
	return r
}

// FromRecord imports r into s. Missing or unusable fields fall back to
// defaults instead of failing: the name and timestamps keep their current
// values, the CRS becomes domain.DefaultCRS, and bookmarks without a usable
// extent are dropped.
func (s *Snapshot) FromRecord(r Record) {
	l := applog.WithOperation(applog.WithComponent("snapshot"), "from_record")
	if strings.TrimSpace(r.Name) != "" {
		s.Name = r.Name
	}
	s.PersistedPath = ""
	switch {
	case r.PersistedPath != nil:
		s.PersistedPath = *r.PersistedPath
	case r.SavedFile != nil:
		s.PersistedPath = *r.SavedFile
	}
	s.Extent = nil
	if len(r.Extent) == 4 {
		e := domain.ExtentFromArray([4]float64{r.Extent[0], r.Extent[1], r.Extent[2], r.Extent[3]})
		s.Extent = &e
	}
	s.CRS = domain.DefaultCRS
	if c := strings.TrimSpace(r.CRS); c != "" {
		s.CRS = c
	}
	s.LayerCount = max(r.LayerCount, 0)
	s.Notes = r.Notes
	s.Modified = r.Modified
	if t, ok := domain.ParseTime(r.Created); ok {
		s.Created = t
	}
	if t, ok := domain.ParseTime(r.LastModified); ok {
		s.LastModified = t
	}
	s.Bookmarks = nil
	for _, br := range r.Bookmarks {
		if len(br.Extent) != 4 {
			l.Warn("bookmark without usable extent dropped", "project", s.Name, "bookmark", br.Name)
			continue
		}
		b := domain.Bookmark{
			Name:    br.Name,
			Extent:  domain.ExtentFromArray([4]float64{br.Extent[0], br.Extent[1], br.Extent[2], br.Extent[3]}),
			CRS:     br.CRS,
			Created: s.opts.now(),
		}
		if b.CRS == "" {
			b.CRS = s.CRS
		}
		if t, ok := domain.ParseTime(br.Created); ok {
			b.Created = t
		}
		s.Bookmarks = append(s.Bookmarks, b)
	}
}
