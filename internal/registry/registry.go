/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package registry multiplexes several projects through the host's single
// live project and canvas. It keeps the ordered list of snapshots, knows
// which one is live, and implements the switch, create, open, close,
// duplicate, reorder and sync protocols so that exactly one snapshot is
// materialized in the host at any observable moment.
//
// A Registry is driven from the host's event loop. Host notifications that
// arrive while an operation is running (the canvas reporting an extent change
// caused by a restore, for example) are ignored; concurrent operations are
// refused with ErrBusy.
package registry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multicanvas/internal/domain"
	"multicanvas/internal/host"
	applog "multicanvas/internal/log"
	"multicanvas/internal/snapshot"
	"multicanvas/internal/storage"
	"multicanvas/internal/thumbnail"
)

var (
	// ErrLastProject refuses to close the only remaining project.
	ErrLastProject = errors.New("cannot close the last project")
	// ErrBusy refuses an operation while another one is in progress.
	ErrBusy = errors.New("another project operation is in progress")
	// ErrCanceled reports that the resolver canceled a close.
	ErrCanceled = errors.New("canceled")
	// ErrIndexOutOfRange reports a project index that does not exist.
	ErrIndexOutOfRange = errors.New("project index out of range")
	// ErrBadOrder reports a reorder that is not a permutation of the current IDs.
	ErrBadOrder = errors.New("new order must contain every project exactly once")
	// ErrNotPersisted reports a save of a project that has no file yet.
	ErrNotPersisted = errors.New("project has no file to save to")
	// ErrOpen wraps host failures to read a project file.
	ErrOpen = errors.New("cannot open project")
	// ErrEmptyName rejects empty project and bookmark names.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrNoProjects rejects replacing the registry content with nothing.
	ErrNoProjects = errors.New("no projects")

	errClosed = errors.New("registry is shut down")
)

// IsRefusal reports whether err is a guard refusal rather than a failure.
// Refusals should be shown to the user but not retried automatically.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrLastProject) || errors.Is(err, ErrBusy) || errors.Is(err, ErrCanceled)
}

// Host bundles the host collaborators. Project and Canvas are required.
type Host struct {
	Project  host.Project
	Canvas   host.Canvas
	Tree     host.LayerTree
	Renderer host.ThumbnailRenderer
	// Factory creates detached projects for searching inactive content.
	Factory host.ProjectFactory
}

// Names produces the default names of new and duplicated projects.
type Names interface {
	ProjectName(n int) string
	CopyName(name string) string
}

type englishNames struct{}

func (englishNames) ProjectName(n int) string     { return fmt.Sprintf("Project %d", n) }
func (englishNames) CopyName(name string) string { return name + " (copy)" }

// Search modes.
const (
	SearchSubstring = "substring"
	SearchFuzzy     = "fuzzy"
)

// Options configures a Registry.
type Options struct {
	// ScratchDir holds scratch content and the catalog. When empty a
	// temporary directory is created and removed again by Shutdown.
	ScratchDir  string
	ContentExt  string
	HistorySize int
	ThumbSize   image.Point
	// DefaultCRS is applied to new projects, domain.DefaultCRS when empty.
	DefaultCRS string
	// SearchMode is SearchSubstring (default) or SearchFuzzy.
	SearchMode string
	// DisableCatalog skips the SQLite catalog; search then reads scratch files.
	DisableCatalog  bool
	CatalogMaxBytes int64
	Names           Names
	// Notify receives events after each successful operation.
	Notify func(Event)
	Now    func() time.Time
}

type state int

const (
	idle state = iota
	switching
)

// Registry is the ordered set of open projects and the single active one.
type Registry struct {
	h    Host
	opts Options
	snap snapshot.Options
	log  *slog.Logger

	projects []*snapshot.Snapshot
	active   int
	state    state
	tracking bool
	counter  int
	pending  []Event

	scratchDir  string
	ownsScratch bool
	catalog     *storage.Catalog
	closed      bool
}

// New creates a registry and adopts the host's current live project as its
// first snapshot.
func New(h Host, opts Options) (*Registry, error) {
	if h.Project == nil || h.Canvas == nil {
		return nil, errors.New("registry: host project and canvas are required")
	}
	if opts.Names == nil {
		opts.Names = englishNames{}
	}
	if opts.DefaultCRS == "" {
		opts.DefaultCRS = domain.DefaultCRS
	}
	if opts.SearchMode == "" {
		opts.SearchMode = SearchSubstring
	}
	r := &Registry{h: h, opts: opts, tracking: true, log: applog.WithComponent("registry")}

	if opts.ScratchDir != "" {
		if err := os.MkdirAll(opts.ScratchDir, 0o755); err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
		r.scratchDir = opts.ScratchDir
	} else {
		dir, err := os.MkdirTemp("", "multicanvas_")
		if err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
		r.scratchDir, r.ownsScratch = dir, true
	}
	r.snap = snapshot.Options{
		ScratchDir:  r.scratchDir,
		ContentExt:  opts.ContentExt,
		HistorySize: opts.HistorySize,
		ThumbSize:   opts.ThumbSize,
		Renderer:    h.Renderer,
		Now:         opts.Now,
	}
	if !opts.DisableCatalog {
		cat, err := storage.OpenCatalog(r.scratchDir, opts.CatalogMaxBytes)
		if err != nil {
			r.log.Warn("catalog unavailable, search reads scratch files", "err", err)
		} else {
			r.catalog = cat
		}
	}

	name := ""
	fn := h.Project.FileName()
	if fn != "" {
		name = stem(fn)
	} else {
		r.counter++
		name = opts.Names.ProjectName(r.counter)
	}
	first := snapshot.New(name, r.snap)
	first.PersistedPath = fn
	r.projects = []*snapshot.Snapshot{first}
	r.active = 0
	r.capture(first)
	return r, nil
}

// ScratchDir is the directory holding scratch content.
func (r *Registry) ScratchDir() string { return r.scratchDir }

// Len is the number of open projects.
func (r *Registry) Len() int { return len(r.projects) }

// ActiveIndex is the position of the live project.
func (r *Registry) ActiveIndex() int { return r.active }

// Active is the live project's snapshot.
func (r *Registry) Active() *snapshot.Snapshot {
	if r.active < 0 || r.active >= len(r.projects) {
		return nil
	}
	return r.projects[r.active]
}

// At returns the snapshot at index i.
func (r *Registry) At(i int) (*snapshot.Snapshot, error) {
	if i < 0 || i >= len(r.projects) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return r.projects[i], nil
}

// Snapshots returns the projects in display order.
func (r *Registry) Snapshots() []*snapshot.Snapshot {
	return append([]*snapshot.Snapshot(nil), r.projects...)
}

// IndexOf returns the position of the snapshot with the given ID, or -1.
func (r *Registry) IndexOf(id string) int {
	for i, s := range r.projects {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Modified lists the projects with unsaved changes.
func (r *Registry) Modified() []*snapshot.Snapshot {
	var out []*snapshot.Snapshot
	for _, s := range r.projects {
		if s.Modified {
			out = append(out, s)
		}
	}
	return out
}

// Switching reports whether an operation is in progress.
func (r *Registry) Switching() bool { return r.state == switching }

// begin moves the registry to the switching state and suspends extent
// tracking. The returned release restores idle and tracking and delivers
// queued events; callers defer it so every exit path releases.
func (r *Registry) begin() (release func(), err error) {
	if r.closed {
		return nil, errClosed
	}
	if r.state != idle {
		return nil, ErrBusy
	}
	r.state = switching
	prevTracking := r.tracking
	r.tracking = false
	return func() {
		r.state = idle
		r.tracking = prevTracking
		r.flush()
	}, nil
}

// capture captures s from the live pair and refreshes its catalog entry.
// Serialization failures are logged; the snapshot stays usable.
func (r *Registry) capture(s *snapshot.Snapshot) {
	if err := s.Capture(r.h.Project, r.h.Canvas); err != nil {
		r.log.Error("capture failed, scratch content may be stale", "project", s.Name, "err", err)
	}
	r.catalogLive(s)
}

func (r *Registry) restore(s *snapshot.Snapshot) {
	if err := s.Restore(r.h.Project, r.h.Canvas, r.h.Tree); err != nil {
		r.log.Error("restore failed", "project", s.Name, "err", err)
	}
}

// catalogLive records the live project's layers and the snapshot's preview.
func (r *Registry) catalogLive(s *snapshot.Snapshot) {
	if r.catalog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.catalog.PutLayers(ctx, s.ID, r.h.Project.MapLayers()); err != nil {
		r.log.Warn("catalog layers update failed", "project", s.Name, "err", err)
	}
	if s.Thumbnail == nil {
		return
	}
	png, err := thumbnail.EncodePNG(s.Thumbnail)
	if err != nil {
		r.log.Warn("thumbnail encode failed", "project", s.Name, "err", err)
		return
	}
	b := s.Thumbnail.Bounds()
	if err := r.catalog.PutThumbnail(ctx, s.ID, b.Dx(), b.Dy(), png); err != nil {
		r.log.Warn("catalog thumbnail update failed", "project", s.Name, "err", err)
	}
}

func (r *Registry) dispose(s *snapshot.Snapshot) {
	s.Dispose()
	if r.catalog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.catalog.DropSnapshot(ctx, s.ID); err != nil {
		r.log.Debug("catalog drop failed", "project", s.Name, "err", err)
	}
}

func (r *Registry) checkIndex(i int) error {
	if i < 0 || i >= len(r.projects) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
