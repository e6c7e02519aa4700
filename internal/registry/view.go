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
	"image"
	"strings"
	"time"

	"multicanvas/internal/domain"
	"multicanvas/internal/history"
	"multicanvas/internal/thumbnail"
)

// OnModified is called by the host when the live project changed.
func (r *Registry) OnModified() {
	if r.state != idle {
		return
	}
	s := r.Active()
	if s == nil {
		return
	}
	s.Modified = true
	layers := r.h.Project.MapLayers()
	s.LayerCount = len(layers)
	if r.catalog != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.catalog.PutLayers(ctx, s.ID, layers); err != nil {
			r.log.Debug("catalog layers update failed", "project", s.Name, "err", err)
		}
	}
}

// OnExtentChanged is called by the host when the canvas extent changed. The
// new view is recorded in the active project's history unless the change was
// caused by the registry itself.
func (r *Registry) OnExtentChanged() {
	if r.state != idle || !r.tracking {
		return
	}
	s := r.Active()
	if s == nil {
		return
	}
	s.History.Add(r.h.Canvas.Extent(), r.h.Canvas.DestinationCRS())
}

// GoBack moves the live view to the previous extent of the active project.
func (r *Registry) GoBack() bool { return r.navigate((*history.History).Back) }

// GoForward moves the live view to the next extent of the active project.
func (r *Registry) GoForward() bool { return r.navigate((*history.History).Forward) }

func (r *Registry) navigate(step func(*history.History) (history.Entry, bool)) bool {
	release, err := r.begin()
	if err != nil {
		return false
	}
	defer release()
	h := r.Active().History
	e, ok := step(h)
	if !ok {
		return false
	}
	h.Suppress(func() {
		r.h.Canvas.SetExtent(e.Extent)
		r.h.Canvas.Refresh()
	})
	return true
}

// CanGoBack reports whether GoBack would move.
func (r *Registry) CanGoBack() bool { return r.Active().History.CanGoBack() }

// CanGoForward reports whether GoForward would move.
func (r *Registry) CanGoForward() bool { return r.Active().History.CanGoForward() }

// SaveCurrent writes the live project to its file.
func (r *Registry) SaveCurrent() error {
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()
	return r.saveFor(r.active)
}

// SaveCurrentAs writes the live project to path and adopts path as its file.
// The project is renamed after the file.
func (r *Registry) SaveCurrentAs(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrNotPersisted
	}
	release, err := r.begin()
	if err != nil {
		return err
	}
	defer release()
	s := r.Active()
	if err := r.h.Project.Write(path); err != nil {
		return fmt.Errorf("save %s as %s: %w", s.Name, path, err)
	}
	s.PersistedPath = path
	s.Name = stem(path)
	s.Modified = false
	r.emit(Event{Kind: EventSaved, Index: r.active, Name: s.Name, Path: path})
	return nil
}

// AddBookmark records the live view under name in the active project.
func (r *Registry) AddBookmark(name string) (domain.Bookmark, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Bookmark{}, ErrEmptyName
	}
	if r.state != idle {
		return domain.Bookmark{}, ErrBusy
	}
	s := r.Active()
	b := s.AddBookmark(name, r.h.Canvas.Extent(), r.h.Canvas.DestinationCRS())
	r.emit(Event{Kind: EventBookmark, Index: r.active, Name: name})
	return b, nil
}

// ActivateBookmark moves the live view to b.
func (r *Registry) ActivateBookmark(b domain.Bookmark) {
	if r.state != idle {
		return
	}
	if domain.ValidCRS(b.CRS) {
		if crs := domain.NormalizeCRS(b.CRS); crs != r.h.Canvas.DestinationCRS() {
			r.h.Canvas.SetDestinationCRS(crs)
		}
	}
	if !b.Extent.IsDegenerate() {
		r.h.Canvas.SetExtent(b.Extent)
	}
	r.h.Canvas.Refresh()
}

// RefreshThumbnail re-renders the active project's preview from the live view.
func (r *Registry) RefreshThumbnail() error {
	if r.h.Renderer == nil {
		return nil
	}
	s := r.Active()
	size := r.opts.ThumbSize
	if size == (image.Point{}) {
		size = thumbnail.DefaultSize
	}
	img, err := r.h.Renderer.Generate(r.h.Project, r.h.Canvas, size)
	if err != nil {
		return fmt.Errorf("render thumbnail %s: %w", s.Name, err)
	}
	s.Thumbnail = thumbnail.Fit(img, size)
	r.catalogLive(s)
	return nil
}

// ThumbnailPNG returns the PNG preview of the project at i, nil when it has
// none. The catalog copy is preferred.
func (r *Registry) ThumbnailPNG(i int) ([]byte, error) {
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	s := r.projects[i]
	if r.catalog != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if b, err := r.catalog.Thumbnail(ctx, s.ID); err == nil && len(b) > 0 {
			return b, nil
		}
	}
	if s.Thumbnail == nil {
		return nil, nil
	}
	return thumbnail.EncodePNG(s.Thumbnail)
}
