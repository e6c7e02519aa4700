/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	applog "multicanvas/internal/log"
	"multicanvas/internal/registry"
	"multicanvas/internal/storage"
)

// Save writes every project of reg into the bundle of the manifest at path.
// The active project is captured first so its stored view is current. The
// previous manifest, if any, is kept in BackupDir(path).
func Save(path string, reg *registry.Registry) error {
	l := applog.WithOperation(applog.WithComponent("workspace"), "save").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return errors.New("workspace path is required")
	}
	if err := reg.CaptureActive(); err != nil {
		l.Warn("active project capture failed, saving last known state", "err", err)
	}

	dir := filepath.Dir(path)
	contentDir := ContentDir(path)
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	m := Manifest{Version: FormatVersion, Current: reg.ActiveIndex()}
	slots := make(map[string]bool)
	for i, s := range reg.Snapshots() {
		entry := ProjectEntry{Record: s.ToRecord()}
		slot := filepath.Join(contentDir, slotName(s.Name, i, filepath.Ext(s.ScratchPath())))
		switch {
		case i == reg.ActiveIndex():
			if err := reg.WriteLive(slot); err != nil {
				return fmt.Errorf("write %s: %w", s.Name, err)
			}
		case s.HasContent():
			if err := s.WriteContentTo(slot); err != nil {
				return fmt.Errorf("write %s: %w", s.Name, err)
			}
		default:
			l.Warn("project has no content, slot skipped", "project", s.Name)
			slot = ""
		}
		if slot != "" {
			slots[filepath.Base(slot)] = true
			rel, err := filepath.Rel(dir, slot)
			if err != nil {
				rel = slot
			}
			entry.ContentFile = filepath.ToSlash(rel)
		}
		m.Projects = append(m.Projects, entry)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := storage.WriteFileAtomic(path, data, BackupDir(path)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	pruneSlots(l, contentDir, slots)
	l.Info("workspace saved", slog.Int("projects", len(m.Projects)))
	return nil
}

// pruneSlots removes content files the manifest no longer references, left
// behind by renamed, moved or closed projects. Subdirectories are kept.
func pruneSlots(l *slog.Logger, contentDir string, keep map[string]bool) {
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		l.Warn("content dir not listed, stale slots kept", "err", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(contentDir, e.Name())); err != nil {
			l.Warn("stale slot not removed", "file", e.Name(), "err", err)
		}
	}
}

// LoadOptions tunes Load.
type LoadOptions struct {
	// FallbackToBackup retries with the newest manifest backup when the
	// manifest itself cannot be read or is invalid.
	FallbackToBackup bool
}

// Load replaces the content of reg with the workspace at path. On any
// manifest problem the registry is left untouched and the error wraps
// ErrCannotLoad. Missing content files only cost the affected projects
// their layers.
func Load(path string, reg *registry.Registry, opts LoadOptions) (*Manifest, error) {
	l := applog.WithOperation(applog.WithComponent("workspace"), "load").With(slog.String("path", path))
	m, err := Read(path)
	if err != nil && opts.FallbackToBackup {
		bak, berr := storage.LatestBackup(BackupDir(path), filepath.Base(path))
		if berr == nil {
			if bm, rerr := Read(bak); rerr == nil {
				l.Warn("manifest unusable, loaded newest backup", "backup", bak, "err", err)
				m, err = bm, nil
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if m.Version != FormatVersion {
		l.Warn("unknown workspace format version", "version", m.Version)
	}

	dir := filepath.Dir(path)
	seeds := make([]registry.Seed, 0, len(m.Projects))
	for _, e := range m.Projects {
		src := e.contentPath(dir)
		if src != "" {
			if _, err := os.Stat(src); err != nil {
				l.Warn("project content missing", "project", e.Name, "content", src)
				src = ""
			}
		}
		seeds = append(seeds, registry.Seed{Record: e.Record, ContentPath: src})
	}
	if err := reg.ReplaceAll(seeds, m.Current); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCannotLoad, err)
	}
	l.Info("workspace loaded", slog.Int("projects", len(seeds)), slog.Int("current", reg.ActiveIndex()))
	return m, nil
}
