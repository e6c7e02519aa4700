/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"multicanvas/internal/crash"
	"multicanvas/internal/registry"
	"multicanvas/internal/workspace"
)

// setupTestEnv points config, session store and logging at a temp dir and
// returns the manifest path to use.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MPC_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("MPC_LOCALE", "en")
	t.Setenv("MPC_LOG_LEVEL", "error")
	t.Setenv("MPC_TELEMETRY_OPT_IN", "")
	color.NoColor = true
	return filepath.Join(dir, "work", "atlas.mpw")
}

// resetFlags restores flag variables, which survive between Execute calls.
func resetFlags() {
	jsonOutput, workspaceFlag, langFlag = false, "", ""
	initForce, initName = false, ""
	saveProject = false
	closeSave, closeDiscard = false, false
	layerExtent, layerSource = "", ""
	viewCRS, viewFull = "", false
	bookmarkExtent = ""
	searchGo = 0
	recentProjects, recentLimit = false, 10
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

type infoOutput struct {
	Workspace string        `json:"workspace"`
	Projects  []projectInfo `json:"projects"`
}

func info(t *testing.T, ws string) infoOutput {
	t.Helper()
	var got infoOutput
	out := mustExecute(t, "info", "--json", "-w", ws)
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("info output %q: %v", out, err)
	}
	return got
}

func activeName(got infoOutput) string {
	for _, p := range got.Projects {
		if p.Active {
			return p.Name
		}
	}
	return ""
}

func TestRootCommand_Help(t *testing.T) {
	setupTestEnv(t)
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "multicanvas") {
		t.Errorf("expected help to mention multicanvas, got %q", out)
	}
	for _, title := range []string{"Workspace:", "Projects:", "View & Navigation:"} {
		if !strings.Contains(out, title) {
			t.Errorf("help lacks group %q", title)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	setupTestEnv(t)
	SetVersion("1.2.3")
	out := mustExecute(t, "version")
	if !strings.Contains(out, "1.2.3") {
		t.Errorf("version output %q", out)
	}
}

func TestRootCommand_InvalidCommand(t *testing.T) {
	setupTestEnv(t)
	if _, err := execute(t, "invalid-command"); err == nil {
		t.Error("expected error for invalid command")
	}
}

func TestNoWorkspace(t *testing.T) {
	setupTestEnv(t)
	if _, err := execute(t, "info"); !errors.Is(err, errNoWorkspace) {
		t.Fatalf("want errNoWorkspace, got %v", err)
	}
}

func TestInitRefusesExisting(t *testing.T) {
	ws := setupTestEnv(t)
	out := mustExecute(t, "init", ws, "--name", "Roads")
	if !strings.Contains(out, "Workspace created") {
		t.Errorf("init output %q", out)
	}
	if _, err := os.Stat(ws); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if _, err := execute(t, "init", ws); err == nil {
		t.Fatalf("second init without --force succeeded")
	}
	mustExecute(t, "init", ws, "--force")

	got := info(t, ws)
	if len(got.Projects) != 1 || got.Projects[0].Name != "Project 1" {
		t.Fatalf("after forced init: %+v", got.Projects)
	}
}

func TestProjectLifecycle(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws, "--name", "Roads")
	if out := mustExecute(t, "new", "Rivers", "-w", ws); !strings.Contains(out, "New: Rivers") {
		t.Errorf("new output %q", out)
	}
	mustExecute(t, "new", "-w", ws)

	got := info(t, ws)
	if len(got.Projects) != 3 || activeName(got) != "Project 3" {
		t.Fatalf("after new: %+v", got.Projects)
	}

	mustExecute(t, "switch", "Roads", "-w", ws)
	if got := info(t, ws); activeName(got) != "Roads" {
		t.Fatalf("active after switch = %q", activeName(got))
	}

	mustExecute(t, "rename", "3", "Lakes", "-w", ws)
	mustExecute(t, "move", "Lakes", "up", "-w", ws)
	mustExecute(t, "duplicate", "-w", ws)
	got = info(t, ws)
	var names []string
	for _, p := range got.Projects {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "Roads,Roads (copy),Lakes,Rivers" {
		t.Fatalf("order = %v", names)
	}

	mustExecute(t, "close", "Rivers", "-w", ws)
	mustExecute(t, "close-others", "-w", ws)
	got = info(t, ws)
	if len(got.Projects) != 1 || got.Projects[0].Name != "Roads" {
		t.Fatalf("after close-others: %+v", got.Projects)
	}

	_, err := execute(t, "close", "1", "-w", ws)
	if err == nil || !strings.Contains(err.Error(), "Cannot close the last project") {
		t.Fatalf("closing the last project: %v", err)
	}
}

func TestCloseModifiedNeedsResolution(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws, "--name", "Roads")
	mustExecute(t, "new", "Rivers", "-w", ws)
	mustExecute(t, "layer", "add", "Danube", "-w", ws)
	mustExecute(t, "switch", "Roads", "-w", ws)

	_, err := execute(t, "close", "Rivers", "-w", ws)
	if err == nil || !strings.Contains(err.Error(), "'Rivers' has been modified") {
		t.Fatalf("closing a modified project without a choice: %v", err)
	}
	if got := info(t, ws); len(got.Projects) != 2 {
		t.Fatalf("project closed despite unsaved changes: %+v", got.Projects)
	}

	if _, err := execute(t, "close", "Rivers", "--save", "-w", ws); !errors.Is(err, registry.ErrNotPersisted) {
		t.Fatalf("--save without a project file: %v", err)
	}
	mustExecute(t, "close", "Rivers", "--discard", "-w", ws)
	if got := info(t, ws); len(got.Projects) != 1 || got.Projects[0].Name != "Roads" {
		t.Fatalf("after discard: %+v", got.Projects)
	}
}

func TestPanickingCommandLeavesCrashBundle(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws, "--name", "Roads")
	mustExecute(t, "layer", "add", "Motorways", "-w", ws)

	code := -1
	prev := crash.SetExit(func(c int) { code = c })
	defer crash.SetExit(prev)
	defer func() { crashTarget = crash.Target{} }()

	workspaceFlag = ws
	defer resetFlags()
	var opened *live
	func() {
		defer crash.Recover(CrashTarget())
		_ = withWorkspace(func(lv *live) error {
			opened = lv
			panic("boom")
		})
	}()
	if opened != nil && opened.recent != nil {
		_ = opened.recent.Close()
	}

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	bundles, err := filepath.Glob(filepath.Join(filepath.Dir(ws), "atlas.crash-*"+workspace.ManifestExt))
	if err != nil || len(bundles) != 1 {
		t.Fatalf("crash bundles = %v, %v", bundles, err)
	}
	m, err := workspace.Read(bundles[0])
	if err != nil {
		t.Fatalf("crash bundle unreadable: %v", err)
	}
	if len(m.Projects) != 1 || m.Projects[0].Name != "Roads" || m.Projects[0].LayerCount != 1 {
		t.Fatalf("crash bundle projects: %+v", m.Projects)
	}
}

func TestLayersSearchAndBookmarks(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws, "--name", "Roads")
	mustExecute(t, "layer", "add", "Motorways", "--extent", "0,0,10,10", "-w", ws)
	mustExecute(t, "new", "Rivers", "-w", ws)
	mustExecute(t, "layer", "add", "Danube", "-w", ws)
	mustExecute(t, "bookmark", "add", "delta", "--extent", "20,20,30,30", "-w", ws)

	out := mustExecute(t, "search", "motor", "--json", "-w", ws)
	var hits []searchResult
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatalf("search output %q: %v", out, err)
	}
	if len(hits) != 1 || hits[0].Kind != "layer" || hits[0].Project != 1 || hits[0].LayerID == "" {
		t.Fatalf("hits = %+v", hits)
	}

	mustExecute(t, "search", "motor", "--go", "1", "-w", ws)
	if got := info(t, ws); activeName(got) != "Roads" || got.Projects[0].Layers != 1 {
		t.Fatalf("after search --go: %+v", got.Projects)
	}

	mustExecute(t, "switch", "2", "-w", ws)
	out = mustExecute(t, "bookmark", "list", "--json", "-w", ws)
	if !strings.Contains(out, `"delta"`) {
		t.Fatalf("bookmark list %q", out)
	}
	mustExecute(t, "bookmark", "rename", "delta", "mouth", "-w", ws)
	mustExecute(t, "bookmark", "rm", "1", "-w", ws)
	if got := info(t, ws); got.Projects[1].Bookmarks != 0 {
		t.Fatalf("bookmark not removed: %+v", got.Projects[1])
	}

	if _, err := execute(t, "search", "x", "-w", ws); err == nil {
		t.Fatalf("one-letter search accepted")
	}
}

type viewOutput struct {
	Project string     `json:"project"`
	Extent  [4]float64 `json:"extent"`
	CRS     string     `json:"crs"`
}

func view(t *testing.T, args ...string) viewOutput {
	t.Helper()
	var v viewOutput
	out := mustExecute(t, append([]string{"--json"}, args...)...)
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("view output %q: %v", out, err)
	}
	return v
}

func TestBackForwardAcrossRuns(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws)
	view(t, "view", "0,0,10,10", "-w", ws)
	view(t, "view", "5,5,6,6", "-w", ws)

	if v := view(t, "back", "-w", ws); v.Extent != [4]float64{0, 0, 10, 10} {
		t.Fatalf("back = %v", v.Extent)
	}
	if v := view(t, "forward", "-w", ws); v.Extent != [4]float64{5, 5, 6, 6} {
		t.Fatalf("forward = %v", v.Extent)
	}
	if v := view(t, "view", "-w", ws); v.Extent != [4]float64{5, 5, 6, 6} {
		t.Fatalf("view after forward = %v", v.Extent)
	}
}

func TestSyncAndCRS(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws)
	mustExecute(t, "new", "-w", ws)
	view(t, "view", "1,2,3,4", "--crs", "epsg:3857", "-w", ws)
	mustExecute(t, "sync", "-w", ws)

	got := info(t, ws)
	for _, p := range got.Projects {
		if p.Extent == nil || *p.Extent != [4]float64{1, 2, 3, 4} || p.CRS != "EPSG:3857" {
			t.Fatalf("project %s not synced: %+v", p.Name, p)
		}
	}
}

func TestItalianMessages(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws)
	out := mustExecute(t, "new", "--lang", "it", "-w", ws)
	if !strings.Contains(out, "Nuovo: Progetto 2") {
		t.Fatalf("italian output %q", out)
	}
}

func TestPackUnpackAndRecent(t *testing.T) {
	ws := setupTestEnv(t)
	mustExecute(t, "init", ws, "--name", "Roads")
	mustExecute(t, "layer", "add", "Motorways", "-w", ws)
	archive := filepath.Join(t.TempDir(), "atlas.zip")
	mustExecute(t, "pack", archive, "-w", ws)

	dest := t.TempDir()
	mustExecute(t, "unpack", archive, dest)

	// the unpacked manifest is now the most recent workspace
	out := mustExecute(t, "info", "--json")
	var got infoOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("info output %q: %v", out, err)
	}
	if filepath.Dir(got.Workspace) != dest || got.Projects[0].Layers != 1 {
		t.Fatalf("unpacked workspace: %+v", got)
	}

	out = mustExecute(t, "recent", "--json")
	if !strings.Contains(out, dest) || !strings.Contains(out, filepath.Dir(ws)) {
		t.Fatalf("recent = %q", out)
	}
}

func TestProjectRef(t *testing.T) {
	setupTestEnv(t)
	lv, err := newLive(filepath.Join(t.TempDir(), "w.mpw"))
	if err != nil {
		t.Fatalf("newLive: %v", err)
	}
	defer lv.close()
	if _, err := lv.reg.New("Rivers"); err != nil {
		t.Fatalf("New: %v", err)
	}
	id := lv.reg.Snapshots()[1].ID

	cases := map[string]int{"1": 0, "2": 1, "Rivers": 1, id: 1}
	for ref, want := range cases {
		if got, err := projectRef(lv.reg, ref); err != nil || got != want {
			t.Errorf("projectRef(%q) = %d, %v; want %d", ref, got, err, want)
		}
	}
	if _, err := projectRef(lv.reg, "3"); !errors.Is(err, registry.ErrIndexOutOfRange) {
		t.Errorf("out of range: %v", err)
	}
	if _, err := projectRef(lv.reg, "Lakes"); err == nil {
		t.Errorf("unknown name resolved")
	}
}

func TestParseExtent(t *testing.T) {
	e, err := parseExtent("-10, -5, 10,5")
	if err != nil || e.Array() != [4]float64{-10, -5, 10, 5} {
		t.Fatalf("parseExtent = %v, %v", e, err)
	}
	for _, bad := range []string{"1,2,3", "a,b,c,d", "0,0,0,0"} {
		if _, err := parseExtent(bad); err == nil {
			t.Errorf("parseExtent(%q) accepted", bad)
		}
	}
}
