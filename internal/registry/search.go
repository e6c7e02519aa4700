/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package registry

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"multicanvas/internal/domain"
	"multicanvas/internal/host"
)

// MinQueryLen is the shortest query Search answers.
const MinQueryLen = 2

// SearchHit is one search result. It is one of ProjectMatch, LayerMatch or
// BookmarkMatch.
type SearchHit interface {
	// Project is the index of the project the hit belongs to.
	Project() int
	hit()
}

// ProjectMatch is a project whose name matched.
type ProjectMatch struct {
	Index int
	Name  string
}

// LayerMatch is a layer whose name matched.
type LayerMatch struct {
	Index     int
	LayerID   string
	LayerName string
}

// BookmarkMatch is a bookmark whose name matched.
type BookmarkMatch struct {
	Index        int
	BookmarkName string
}

func (m ProjectMatch) Project() int  { return m.Index }
func (m LayerMatch) Project() int    { return m.Index }
func (m BookmarkMatch) Project() int { return m.Index }

func (ProjectMatch) hit()  {}
func (LayerMatch) hit()    {}
func (BookmarkMatch) hit() {}

// Search looks for text in project names, layer names and bookmark names
// of every open project. Results are grouped by project in display order.
func (r *Registry) Search(text string) []SearchHit {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinQueryLen {
		return nil
	}
	match := r.matcher(text)
	var hits []SearchHit
	for i, s := range r.projects {
		if match(s.Name) {
			hits = append(hits, ProjectMatch{Index: i, Name: s.Name})
		}
		for _, l := range r.layersOf(i) {
			if match(l.Name) {
				hits = append(hits, LayerMatch{Index: i, LayerID: l.ID, LayerName: l.Name})
			}
		}
		for _, b := range s.Bookmarks {
			if match(b.Name) {
				hits = append(hits, BookmarkMatch{Index: i, BookmarkName: b.Name})
			}
		}
	}
	return hits
}

func (r *Registry) matcher(text string) func(string) bool {
	if r.opts.SearchMode == SearchFuzzy {
		return func(s string) bool { return fuzzy.MatchNormalizedFold(text, s) }
	}
	q := strings.ToLower(text)
	return func(s string) bool { return strings.Contains(strings.ToLower(s), q) }
}

// layersOf lists the layers of the project at i: live for the active
// project, from the catalog or the scratch file for the others.
func (r *Registry) layersOf(i int) []domain.Layer {
	if i == r.active {
		return r.h.Project.MapLayers()
	}
	s := r.projects[i]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r.catalog != nil {
		layers, ok, err := r.catalog.Layers(ctx, s.ID)
		if err == nil && ok {
			return layers
		}
		if err != nil {
			r.log.Debug("catalog lookup failed", "project", s.Name, "err", err)
		}
	}
	if r.h.Factory == nil || !s.HasContent() {
		return nil
	}
	p := r.h.Factory()
	if err := p.Read(s.ScratchPath()); err != nil {
		r.log.Debug("scratch read failed", "project", s.Name, "err", err)
		return nil
	}
	layers := p.MapLayers()
	if r.catalog != nil {
		if err := r.catalog.PutLayers(ctx, s.ID, layers); err != nil {
			r.log.Debug("catalog layers update failed", "project", s.Name, "err", err)
		}
	}
	return layers
}

// ActivateHit switches to the hit's project and focuses the matched layer or
// bookmark.
func (r *Registry) ActivateHit(h SearchHit) error {
	if err := r.SwitchTo(h.Project()); err != nil {
		return err
	}
	switch m := h.(type) {
	case LayerMatch:
		if la, ok := r.h.Tree.(host.LayerActivator); ok {
			if !la.SetCurrentLayer(m.LayerID) {
				return fmt.Errorf("layer %q not found", m.LayerName)
			}
		}
	case BookmarkMatch:
		s := r.Active()
		bi := s.FindBookmark(m.BookmarkName)
		if bi < 0 {
			return fmt.Errorf("bookmark %q not found", m.BookmarkName)
		}
		r.ActivateBookmark(s.Bookmarks[bi])
	}
	return nil
}
