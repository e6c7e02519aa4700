/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package snapshot holds the durable state of one project while it is not the
// live project of the host, together with the capture/restore protocol that
// moves state between a snapshot and the live project/canvas pair.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"multicanvas/internal/domain"
	"multicanvas/internal/history"
	"multicanvas/internal/host"
	applog "multicanvas/internal/log"
	"multicanvas/internal/storage"
	"multicanvas/internal/thumbnail"
)

var (
	// ErrCapture marks a capture whose content serialization failed. The
	// snapshot's view fields were still updated.
	ErrCapture = errors.New("capture failed")
	// ErrRestore marks a restore whose content file could not be read.
	ErrRestore = errors.New("restore failed")
)

// DefaultContentExt is the extension of scratch content files.
const DefaultContentExt = ".mcp"

// Options configures how snapshots store content and previews.
type Options struct {
	// ScratchDir holds the per-snapshot content files. Required.
	ScratchDir string
	// ContentExt is the scratch file extension, DefaultContentExt when empty.
	ContentExt string
	// HistorySize is the extent history capacity, history.DefaultCapacity when <= 0.
	HistorySize int
	// ThumbSize is the preview box, thumbnail.DefaultSize when zero.
	ThumbSize image.Point
	// Renderer produces previews on capture. Nil disables thumbnails.
	Renderer host.ThumbnailRenderer
	// Now is the clock, time.Now when nil.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) ext() string {
	if o.ContentExt == "" {
		return DefaultContentExt
	}
	return o.ContentExt
}

// Snapshot is one project while inactive. Extent is nil until the first
// capture or a record provides one.
type Snapshot struct {
	ID            string
	Name          string
	PersistedPath string
	Modified      bool
	Extent        *domain.Extent
	CRS           string
	LayerCount    int
	Thumbnail     image.Image
	Bookmarks     []domain.Bookmark
	History       *history.History
	Notes         string
	Created       time.Time
	LastModified  time.Time

	scratchPath string
	opts        Options
}

// New creates a snapshot with a fresh stable ID and an owned scratch path.
// The scratch file itself is created by the first Capture.
func New(name string, opts Options) *Snapshot {
	id := newID()
	now := opts.now()
	return &Snapshot{
		ID:           id,
		Name:         name,
		CRS:          domain.DefaultCRS,
		History:      history.New(opts.HistorySize),
		Created:      now,
		LastModified: now,
		scratchPath:  filepath.Join(opts.ScratchDir, "project_"+id+opts.ext()),
		opts:         opts,
	}
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ScratchPath is where this snapshot keeps its serialized content.
func (s *Snapshot) ScratchPath() string { return s.scratchPath }

// HasContent reports whether the scratch file exists.
func (s *Snapshot) HasContent() bool {
	_, err := os.Stat(s.scratchPath)
	return err == nil
}

// Capture reads the view state from the live pair and serializes the live
// project to the scratch file. View fields are updated even when
// serialization fails; the error then wraps ErrCapture.
func (s *Snapshot) Capture(p host.Project, c host.Canvas) error {
	l := applog.WithOperation(applog.WithComponent("snapshot"), "capture")
	ext := c.Extent()
	s.Extent = &ext
	s.CRS = c.DestinationCRS()
	s.LayerCount = len(p.MapLayers())
	s.LastModified = s.opts.now()

	if s.LayerCount > 0 && s.opts.Renderer != nil {
		size := s.opts.ThumbSize
		if size == (image.Point{}) {
			size = thumbnail.DefaultSize
		}
		if img, err := s.opts.Renderer.Generate(p, c, size); err != nil {
			l.Warn("thumbnail render failed", "project", s.Name, "err", err)
		} else {
			s.Thumbnail = thumbnail.Fit(img, size)
		}
	}

	// Capturing a view reached by back/forward must keep the redo entries.
	if !s.History.IsCurrent(ext, s.CRS) {
		s.History.Add(ext, s.CRS)
	}

	if err := p.Write(s.scratchPath); err != nil {
		return fmt.Errorf("%w: %s: write %s: %w", ErrCapture, s.Name, s.scratchPath, err)
	}
	l.Debug("captured", "project", s.Name, "layers", s.LayerCount, "extent", ext.String())
	return nil
}

// Restore materializes this snapshot into the live pair. A missing scratch
// file yields an empty live project. CRS and extent are only applied when
// usable. A failing read leaves the live project cleared and returns an error
// wrapping ErrRestore after the view has been applied.
func (s *Snapshot) Restore(p host.Project, c host.Canvas, tree host.LayerTree) error {
	l := applog.WithOperation(applog.WithComponent("snapshot"), "restore")
	p.Clear()

	var readErr error
	if _, err := os.Stat(s.scratchPath); err == nil {
		if err := p.Read(s.scratchPath); err != nil {
			p.Clear()
			readErr = fmt.Errorf("%w: %s: read %s: %w", ErrRestore, s.Name, s.scratchPath, err)
		}
	} else {
		l.Debug("no scratch content, restoring empty project", "project", s.Name)
	}

	if s.CRS != "" {
		if err := domain.ValidateCRS(s.CRS); err == nil {
			c.SetDestinationCRS(domain.NormalizeCRS(s.CRS))
		} else {
			l.Warn("stored crs not applied", "project", s.Name, "err", err)
		}
	}
	if s.Extent != nil && !s.Extent.IsDegenerate() {
		c.SetExtent(*s.Extent)
	}
	c.Refresh()
	if tree != nil {
		tree.SetRoot(p)
	}
	s.LayerCount = len(p.MapLayers())
	return readErr
}

// AddBookmark appends a bookmark created now.
func (s *Snapshot) AddBookmark(name string, extent domain.Extent, crs string) domain.Bookmark {
	b := domain.Bookmark{Name: name, Extent: extent, CRS: crs, Created: s.opts.now()}
	s.Bookmarks = append(s.Bookmarks, b)
	return b
}

// RemoveBookmark deletes the bookmark at index i. Out of range is a no-op.
func (s *Snapshot) RemoveBookmark(i int) {
	if i < 0 || i >= len(s.Bookmarks) {
		return
	}
	s.Bookmarks = append(s.Bookmarks[:i:i], s.Bookmarks[i+1:]...)
}

// RenameBookmark renames the bookmark at index i. It reports false for an
// out of range index or an empty name.
func (s *Snapshot) RenameBookmark(i int, name string) bool {
	if i < 0 || i >= len(s.Bookmarks) || name == "" {
		return false
	}
	s.Bookmarks[i].Name = name
	return true
}

// FindBookmark returns the index of the first bookmark called name, or -1.
func (s *Snapshot) FindBookmark(name string) int {
	for i, b := range s.Bookmarks {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// Duplicate returns a new snapshot named name carrying a deep copy of the
// view state and bookmarks and a byte copy of the scratch content.
func (s *Snapshot) Duplicate(name string) (*Snapshot, error) {
	d := New(name, s.opts)
	if s.Extent != nil {
		e := *s.Extent
		d.Extent = &e
	}
	d.CRS = s.CRS
	d.LayerCount = s.LayerCount
	d.Thumbnail = s.Thumbnail
	d.Bookmarks = append([]domain.Bookmark(nil), s.Bookmarks...)
	if s.HasContent() {
		if err := storage.CopyFile(s.scratchPath, d.scratchPath); err != nil {
			return nil, fmt.Errorf("duplicate %s: %w", s.Name, err)
		}
	}
	return d, nil
}

// AdoptContent copies an external content file into the scratch slot.
func (s *Snapshot) AdoptContent(src string) error {
	return storage.CopyFile(src, s.scratchPath)
}

// WriteContentTo copies the scratch content to dst.
func (s *Snapshot) WriteContentTo(dst string) error {
	return storage.CopyFile(s.scratchPath, dst)
}

// Dispose removes the scratch file. Errors are logged and swallowed.
func (s *Snapshot) Dispose() {
	if err := os.Remove(s.scratchPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.WithComponent("snapshot").Debug("scratch removal failed", "path", s.scratchPath, "err", err)
	}
}
