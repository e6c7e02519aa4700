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
	"os"
	"strings"
	"time"

	"multicanvas/internal/domain"
	"multicanvas/internal/host"
	"multicanvas/internal/snapshot"
)

// SwitchTo makes the project at index i the live one. Switching to the
// already active project does nothing.
func (r *Registry) SwitchTo(i int) error {
	if err := r.checkIndex(i); err != nil {
		return err
	}
	if i == r.active {
		return nil
	}
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()

	if cur := r.Active(); cur != nil {
		r.capture(cur)
	}
	target := r.projects[i]
	r.restore(target)
	r.active = i
	r.log.Debug("switched", "index", i, "project", target.Name)
	r.emit(Event{Kind: EventSwitched, Index: i, Name: target.Name})
	return nil
}

// New creates an empty project, appends it and makes it live. An empty name
// yields the next "Project N".
func (r *Registry) New(name string) (*snapshot.Snapshot, error) {
	release, err := r.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	if cur := r.Active(); cur != nil {
		r.capture(cur)
	}
	r.counter++
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.opts.Names.ProjectName(r.counter)
	}
	r.h.Project.Clear()
	r.h.Canvas.SetDestinationCRS(r.opts.DefaultCRS)
	r.h.Canvas.Refresh()
	if r.h.Tree != nil {
		r.h.Tree.SetRoot(r.h.Project)
	}

	s := snapshot.New(name, r.snap)
	r.capture(s)
	r.projects = append(r.projects, s)
	r.active = len(r.projects) - 1
	r.emit(Event{Kind: EventCreated, Index: r.active, Name: name})
	return s, nil
}

// Open reads the project file at path into a new live project. When the
// host cannot read it the registry is left unchanged and the previously
// active project is restored into the live pair.
func (r *Registry) Open(path string) (*snapshot.Snapshot, error) {
	release, err := r.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	prev := r.Active()
	if prev != nil {
		r.capture(prev)
	}
	r.h.Project.Clear()
	if err := r.h.Project.Read(path); err != nil {
		if prev != nil {
			r.restore(prev)
		}
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	if crs := r.h.Project.CRS(); domain.ValidCRS(crs) {
		r.h.Canvas.SetDestinationCRS(domain.NormalizeCRS(crs))
	}
	if fe, ok := r.h.Project.(host.FullExtenter); ok {
		if ext, ok := fe.FullExtent(); ok && !ext.IsDegenerate() {
			r.h.Canvas.SetExtent(ext)
		}
	}
	r.h.Canvas.Refresh()
	if r.h.Tree != nil {
		r.h.Tree.SetRoot(r.h.Project)
	}

	s := snapshot.New(stem(path), r.snap)
	s.PersistedPath = path
	r.capture(s)
	r.projects = append(r.projects, s)
	r.active = len(r.projects) - 1
	r.emit(Event{Kind: EventOpened, Index: r.active, Name: s.Name, Path: path})
	return s, nil
}

// Resolution is the answer to closing a project with unsaved changes.
type Resolution int

const (
	Save Resolution = iota
	Discard
	Cancel
)

// Resolver decides what happens to unsaved changes of a project being
// closed. A nil Resolver cancels.
type Resolver func(s *snapshot.Snapshot) Resolution

// Close removes the project at index i. The last project cannot be closed.
func (r *Registry) Close(i int, resolve Resolver) error {
	if err := r.checkIndex(i); err != nil {
		return err
	}
	if len(r.projects) <= 1 {
		return ErrLastProject
	}
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()

	target := r.projects[i]
	if target.Modified {
		res := Cancel
		if resolve != nil {
			res = resolve(target)
		}
		switch res {
		case Cancel:
			return ErrCanceled
		case Save:
			if err := r.saveFor(i); err != nil {
				return err
			}
		}
	}

	r.dispose(target)
	r.projects = append(r.projects[:i:i], r.projects[i+1:]...)
	switch {
	case i < r.active:
		r.active--
	case i == r.active:
		if r.active >= len(r.projects) {
			r.active = len(r.projects) - 1
		}
		r.restore(r.projects[r.active])
	}
	r.log.Debug("closed", "index", i, "project", target.Name)
	r.emit(Event{Kind: EventClosed, Index: i, Name: target.Name})
	return nil
}

// saveFor writes the project at i to its persisted path. The live project
// is written directly, inactive ones by copying their scratch content.
func (r *Registry) saveFor(i int) error {
	s := r.projects[i]
	if s.PersistedPath == "" {
		return fmt.Errorf("%w: %s", ErrNotPersisted, s.Name)
	}
	if i == r.active {
		if err := r.h.Project.Write(s.PersistedPath); err != nil {
			return fmt.Errorf("save %s: %w", s.Name, err)
		}
	} else if err := s.WriteContentTo(s.PersistedPath); err != nil {
		return fmt.Errorf("save %s: %w", s.Name, err)
	}
	s.Modified = false
	r.emit(Event{Kind: EventSaved, Index: i, Name: s.Name, Path: s.PersistedPath})
	return nil
}

// CloseOthers closes every project except the active one, discarding
// unsaved changes. It returns how many were closed.
func (r *Registry) CloseOthers() (int, error) {
	release, err := r.begin()
	if err != nil {
		return 0, err
	}
	defer release()

	keep := r.projects[r.active]
	n := 0
	for _, s := range r.projects {
		if s != keep {
			r.dispose(s)
			n++
		}
	}
	r.projects = []*snapshot.Snapshot{keep}
	r.active = 0
	if n > 0 {
		r.emit(Event{Kind: EventClosed, Index: -1, Count: n})
	}
	return n, nil
}

// Duplicate inserts a copy of the project at i right after it. The active
// project stays the same.
func (r *Registry) Duplicate(i int) (*snapshot.Snapshot, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	release, err := r.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	src := r.projects[i]
	if i == r.active {
		r.capture(src)
	}
	dup, err := src.Duplicate(r.opts.Names.CopyName(src.Name))
	if err != nil {
		return nil, err
	}
	if r.catalog != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.catalog.CopySnapshot(ctx, src.ID, dup.ID); err != nil {
			r.log.Warn("catalog copy failed", "project", dup.Name, "err", err)
		}
		cancel()
	}

	at := i + 1
	r.projects = append(r.projects, nil)
	copy(r.projects[at+1:], r.projects[at:])
	r.projects[at] = dup
	if r.active >= at {
		r.active++
	}
	r.emit(Event{Kind: EventDuplicated, Index: at, Name: dup.Name})
	return dup, nil
}

// Reorder arranges the projects in the order of ids, which must name every
// open project exactly once. The active project keeps being active.
func (r *Registry) Reorder(ids []string) error {
	if len(ids) != len(r.projects) {
		return ErrBadOrder
	}
	byID := make(map[string]*snapshot.Snapshot, len(r.projects))
	for _, s := range r.projects {
		byID[s.ID] = s
	}
	next := make([]*snapshot.Snapshot, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated id %q", ErrBadOrder, id)
		}
		delete(byID, id)
		next = append(next, s)
	}
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()

	activeID := r.projects[r.active].ID
	r.projects = next
	r.active = r.IndexOf(activeID)
	r.emit(Event{Kind: EventReordered, Index: r.active})
	return nil
}

// Move swaps the project at i with its neighbour in direction dir (negative
// moves up, positive down). Moving past either end does nothing.
func (r *Registry) Move(i, dir int) error {
	if err := r.checkIndex(i); err != nil {
		return err
	}
	j := i
	switch {
	case dir < 0:
		j = i - 1
	case dir > 0:
		j = i + 1
	}
	if j == i || j < 0 || j >= len(r.projects) {
		return nil
	}
	ids := make([]string, len(r.projects))
	for k, s := range r.projects {
		ids[k] = s.ID
	}
	ids[i], ids[j] = ids[j], ids[i]
	return r.Reorder(ids)
}

// Rename changes the display name of the project at i.
func (r *Registry) Rename(i int, name string) error {
	if err := r.checkIndex(i); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if r.state != idle {
		return ErrBusy
	}
	r.projects[i].Name = name
	r.emit(Event{Kind: EventRenamed, Index: i, Name: name})
	return nil
}

// SyncExtentToAll copies the live extent and CRS onto every other project
// and returns how many were updated. Histories are not touched.
func (r *Registry) SyncExtentToAll() int {
	if r.state != idle || len(r.projects) < 2 {
		return 0
	}
	ext := r.h.Canvas.Extent()
	crs := r.h.Canvas.DestinationCRS()
	n := 0
	for i, s := range r.projects {
		if i == r.active {
			continue
		}
		e := ext
		s.Extent = &e
		s.CRS = crs
		n++
	}
	r.emit(Event{Kind: EventSynced, Index: r.active, Count: n})
	return n
}

// Seed is one project to load: its persisted record and the content file to
// adopt into scratch ("" when there is none).
type Seed struct {
	Record      snapshot.Record
	ContentPath string
}

// ReplaceAll discards every open project and loads seeds instead, making
// seeds[current] live. An out of range current selects the first project.
// Default names continue after the loaded projects.
func (r *Registry) ReplaceAll(seeds []Seed, current int) error {
	if len(seeds) == 0 {
		return ErrNoProjects
	}
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()

	next := make([]*snapshot.Snapshot, 0, len(seeds))
	for _, sd := range seeds {
		s := snapshot.New(sd.Record.Name, r.snap)
		s.FromRecord(sd.Record)
		if sd.ContentPath != "" {
			if err := s.AdoptContent(sd.ContentPath); err != nil {
				r.log.Warn("project content not loaded", "project", s.Name, "path", sd.ContentPath, "err", err)
			}
		}
		next = append(next, s)
	}
	for _, s := range r.projects {
		r.dispose(s)
	}
	r.projects = next
	r.counter = len(next)
	if current < 0 || current >= len(next) {
		current = 0
	}
	r.active = current
	r.restore(next[current])
	r.emit(Event{Kind: EventLoaded, Index: current, Count: len(next)})
	return nil
}

// CaptureActive refreshes the active snapshot from the live pair.
func (r *Registry) CaptureActive() error {
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()
	s := r.Active()
	if err := s.Capture(r.h.Project, r.h.Canvas); err != nil {
		return err
	}
	r.catalogLive(s)
	return nil
}

// WriteLive serializes the live project to path.
func (r *Registry) WriteLive(path string) error {
	if err := r.h.Project.Write(path); err != nil {
		return fmt.Errorf("write live project: %w", err)
	}
	return nil
}

// Shutdown disposes every snapshot and releases the scratch directory. The
// registry cannot be used afterwards.
func (r *Registry) Shutdown() {
	if r.closed {
		return
	}
	for _, s := range r.projects {
		s.Dispose()
	}
	if r.catalog != nil {
		if err := r.catalog.Close(); err != nil {
			r.log.Debug("catalog close failed", "err", err)
		}
		r.catalog = nil
	}
	if r.ownsScratch {
		if err := os.RemoveAll(r.scratchDir); err != nil {
			r.log.Debug("scratch dir removal failed", "dir", r.scratchDir, "err", err)
		}
	}
	r.closed = true
}
