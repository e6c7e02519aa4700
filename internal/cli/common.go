/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"

	"multicanvas/internal/config"
	"multicanvas/internal/crash"
	"multicanvas/internal/domain"
	"multicanvas/internal/host/dochost"
	"multicanvas/internal/locale"
	applog "multicanvas/internal/log"
	"multicanvas/internal/registry"
	"multicanvas/internal/session"
	"multicanvas/internal/snapshot"
	"multicanvas/internal/telemetry"
	"multicanvas/internal/workspace"
)

var errNoWorkspace = errors.New("no workspace given: pass --workspace or run 'multicanvas init'")

// crashTarget is kept current by openWorkspace so a panic can still save the
// open projects.
var crashTarget crash.Target

// CrashTarget is what main hands to crash.Recover.
func CrashTarget() *crash.Target { return &crashTarget }

// live is one loaded workspace: the document host, the registry on top of
// it and the recent-items store.
type live struct {
	path   string
	doc    *dochost.Document
	canvas *dochost.Canvas
	tree   *dochost.Tree
	reg    *registry.Registry
	recent *session.Store
}

// newLive wires a registry to a fresh document host configured from appCfg.
// Registry events are printed as localized status lines.
func newLive(path string) (*live, error) {
	lv := &live{path: path, doc: dochost.NewDocument(), canvas: dochost.NewCanvas(), tree: &dochost.Tree{}}
	lv.doc.OnLayersChanged = func() { lv.reg.OnModified() }
	lv.canvas.OnExtentChanged = func() { lv.reg.OnExtentChanged() }

	h := registry.Host{
		Project: lv.doc,
		Canvas:  lv.canvas,
		Tree:    lv.tree,
		Factory: dochost.Factory,
	}
	if appCfg.Thumbnails.Enabled {
		h.Renderer = dochost.Renderer{}
	}
	reg, err := registry.New(h, registry.Options{
		ScratchDir:      appCfg.General.ScratchDir,
		ContentExt:      appCfg.Project.ContentExt,
		HistorySize:     appCfg.History.Capacity,
		ThumbSize:       image.Pt(appCfg.Thumbnails.Width, appCfg.Thumbnails.Height),
		DefaultCRS:      appCfg.Project.DefaultCRS,
		SearchMode:      appCfg.General.SearchMode,
		CatalogMaxBytes: appCfg.Thumbnails.CacheMaxBytes,
		Names:           loc,
		Notify:          lv.announce,
	})
	if err != nil {
		return nil, err
	}
	lv.reg = reg
	lv.recent = openRecent()
	crashTarget = crash.Target{Registry: reg, Workspace: path}
	return lv, nil
}

// openRecent opens the session store next to the config file. Without it
// the CLI still works, it just forgets recent files and navigation.
func openRecent() *session.Store {
	dir, err := config.Dir()
	if err != nil {
		return nil
	}
	st, err := session.Open(dir)
	if err != nil {
		applog.WithComponent("cli").Warn("session store unavailable", "err", err)
		return nil
	}
	return st
}

// openWorkspace loads the workspace named by --workspace, or the most
// recently used one.
func openWorkspace() (*live, error) {
	path, err := workspacePath()
	if err != nil {
		return nil, err
	}
	lv, err := newLive(path)
	if err != nil {
		return nil, err
	}
	if _, err := workspace.Load(path, lv.reg, workspace.LoadOptions{FallbackToBackup: true}); err != nil {
		lv.close()
		return nil, fmt.Errorf("%s %s: %w", loc.T(locale.MsgCannotLoad), path, err)
	}
	lv.loadHistories()
	telemetry.Default().Event(telemetry.EventWorkspaceLoaded, map[string]any{"projects": lv.reg.Len()})
	return lv, nil
}

func workspacePath() (string, error) {
	if workspaceFlag != "" {
		return filepath.Abs(workspaceFlag)
	}
	st := openRecent()
	if st == nil {
		return "", errNoWorkspace
	}
	defer func() { _ = st.Close() }()
	recent, err := st.Recent(session.KindWorkspace, 1)
	if err != nil || len(recent) == 0 {
		return "", errNoWorkspace
	}
	return recent[0].Path, nil
}

// commit saves the workspace and remembers it and the navigation histories
// for the next run.
func (lv *live) commit() error {
	if err := workspace.Save(lv.path, lv.reg); err != nil {
		return err
	}
	telemetry.Default().Event(telemetry.EventWorkspaceSaved, map[string]any{"projects": lv.reg.Len()})
	if lv.recent != nil {
		if err := lv.recent.Touch(session.KindWorkspace, lv.path); err != nil {
			applog.WithComponent("cli").Debug("recent workspace not recorded", "err", err)
		}
		lv.saveHistories()
	}
	return nil
}

func (lv *live) close() {
	lv.reg.Shutdown()
	if lv.recent != nil {
		_ = lv.recent.Close()
	}
	crashTarget = crash.Target{}
}

// historyKey identifies a project across runs. Creation times carry
// nanoseconds and survive renames and reordering.
func (lv *live) historyKey(s *snapshot.Snapshot) string {
	return lv.path + "#" + domain.FormatTime(s.Created)
}

func (lv *live) loadHistories() {
	if lv.recent == nil {
		return
	}
	for _, s := range lv.reg.Snapshots() {
		if _, err := lv.recent.LoadHistory(lv.historyKey(s), s.History); err != nil {
			applog.WithComponent("cli").Debug("history not restored", "project", s.Name, "err", err)
		}
	}
}

func (lv *live) saveHistories() {
	for _, s := range lv.reg.Snapshots() {
		if err := lv.recent.SaveHistory(lv.historyKey(s), s.History); err != nil {
			applog.WithComponent("cli").Debug("history not stored", "project", s.Name, "err", err)
		}
	}
}

// withWorkspace runs op on the loaded workspace and saves it afterwards.
// lv is closed on return only: a panic leaves the registry to crash.Recover.
func withWorkspace(op func(lv *live) error) error {
	lv, err := openWorkspace()
	if err != nil {
		return err
	}
	if err = op(lv); err != nil {
		err = explain(err)
	} else {
		err = lv.commit()
	}
	lv.close()
	return err
}

// readWorkspace runs op on the loaded workspace without saving.
func readWorkspace(op func(lv *live) error) error {
	lv, err := openWorkspace()
	if err != nil {
		return err
	}
	err = explain(op(lv))
	lv.close()
	return err
}

// announce prints a registry event in the user's language.
func (lv *live) announce(e registry.Event) {
	if jsonOutput {
		return
	}
	data := map[string]any{"Name": e.Name, "Path": e.Path, "Count": e.Count}
	switch e.Kind {
	case registry.EventSwitched:
		PrintSuccess(loc.Tf(locale.MsgSwitched, data))
		telemetry.Default().Event(telemetry.EventProjectSwitched, map[string]any{"projects": lv.reg.Len()})
	case registry.EventCreated:
		PrintSuccess(loc.Tf(locale.MsgCreated, data))
	case registry.EventOpened:
		PrintSuccess(loc.Tf(locale.MsgOpened, data))
	case registry.EventClosed:
		if e.Index < 0 {
			PrintSuccess(loc.Tf(locale.MsgClosedOthers, data))
		} else {
			PrintSuccess(loc.Tf(locale.MsgClosed, data))
		}
	case registry.EventDuplicated:
		PrintSuccess(loc.Tf(locale.MsgDuplicated, data))
	case registry.EventRenamed:
		PrintSuccess(loc.Tf(locale.MsgRenamed, data))
	case registry.EventSaved:
		PrintSuccess(loc.Tf(locale.MsgSaved, data))
	case registry.EventSynced:
		PrintSuccess(loc.Tf(locale.MsgExtentSynced, data))
	case registry.EventBookmark:
		PrintSuccess(loc.Tf(locale.MsgBookmarkAdded, data))
	}
}

// explain turns registry refusals into localized messages.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrLastProject):
		return errors.New(loc.T(locale.MsgCannotCloseLast))
	case errors.Is(err, registry.ErrOpen):
		return fmt.Errorf("%s: %w", loc.T(locale.MsgCannotOpen), err)
	}
	return err
}

// projectRef resolves a project given as a 1-based position, an exact name
// or an ID prefix of at least four characters.
func projectRef(reg *registry.Registry, ref string) (int, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > reg.Len() {
			return 0, fmt.Errorf("%w: %d", registry.ErrIndexOutOfRange, n)
		}
		return n - 1, nil
	}
	snaps := reg.Snapshots()
	for i, s := range snaps {
		if s.Name == ref {
			return i, nil
		}
	}
	if len(ref) >= 4 {
		for i, s := range snaps {
			if strings.HasPrefix(s.ID, ref) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("no project %q", ref)
}

// parseExtent reads "xmin,ymin,xmax,ymax".
func parseExtent(s string) (domain.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Extent{}, fmt.Errorf("extent %q: want xmin,ymin,xmax,ymax", s)
	}
	var a [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Extent{}, fmt.Errorf("extent %q: %w", s, err)
		}
		a[i] = v
	}
	e := domain.ExtentFromArray(a)
	if e.IsDegenerate() {
		return domain.Extent{}, fmt.Errorf("extent %q is empty", s)
	}
	return e, nil
}

// projectLabel is the first table cell for project i.
func projectLabel(reg *registry.Registry, i int) string {
	if i == reg.ActiveIndex() {
		return fmt.Sprintf("*%d", i+1)
	}
	return fmt.Sprintf(" %d", i+1)
}
