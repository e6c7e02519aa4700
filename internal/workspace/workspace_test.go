/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package workspace

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"multicanvas/internal/domain"
	"multicanvas/internal/host/dochost"
	"multicanvas/internal/registry"
)

type live struct {
	doc    *dochost.Document
	canvas *dochost.Canvas
	reg    *registry.Registry
}

func newLive(t *testing.T) *live {
	t.Helper()
	l := &live{doc: dochost.NewDocument(), canvas: dochost.NewCanvas()}
	reg, err := registry.New(registry.Host{
		Project: l.doc,
		Canvas:  l.canvas,
		Tree:    &dochost.Tree{},
		Factory: dochost.Factory,
	}, registry.Options{ScratchDir: t.TempDir(), DisableCatalog: true})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	l.reg = reg
	l.doc.OnLayersChanged = reg.OnModified
	l.canvas.OnExtentChanged = reg.OnExtentChanged
	t.Cleanup(reg.Shutdown)
	return l
}

// twoProjects builds [Alpha, Beta] with Beta active.
func twoProjects(t *testing.T) *live {
	t.Helper()
	l := newLive(t)
	if err := l.reg.Rename(0, "Alpha"); err != nil {
		t.Fatal(err)
	}
	l.doc.AddLayer(dochost.LayerDoc{Name: "roads"})
	l.canvas.SetExtent(domain.Extent{XMin: 0, YMin: 0, XMax: 10, YMax: 10})
	if _, err := l.reg.AddBookmark("centre"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.reg.New("Beta"); err != nil {
		t.Fatal(err)
	}
	l.doc.AddLayer(dochost.LayerDoc{Name: "rivers"})
	l.doc.AddLayer(dochost.LayerDoc{Name: "lakes"})
	l.canvas.SetDestinationCRS("EPSG:3857")
	l.canvas.SetExtent(domain.Extent{XMin: 100, YMin: 200, XMax: 300, YMax: 400})
	return l
}

func TestSaveLoadRoundTrip(t *testing.T) {
	src := twoProjects(t)
	path := filepath.Join(t.TempDir(), "survey.mpw")
	if err := Save(path, src.reg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := src.reg.Snapshots()
	src.reg.Shutdown()

	dst := newLive(t)
	m, err := Load(path, dst.reg, LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Version != FormatVersion || m.Current != 1 {
		t.Fatalf("manifest version=%q current=%d", m.Version, m.Current)
	}
	got := dst.reg.Snapshots()
	if len(got) != 2 || dst.reg.ActiveIndex() != 1 {
		t.Fatalf("loaded %d projects, active %d", len(got), dst.reg.ActiveIndex())
	}
	for i := range got {
		if got[i].Name != want[i].Name || got[i].CRS != want[i].CRS {
			t.Fatalf("project %d = %q %s, want %q %s", i, got[i].Name, got[i].CRS, want[i].Name, want[i].CRS)
		}
		if got[i].Extent == nil || !got[i].Extent.Equal(*want[i].Extent, 1e-9) {
			t.Fatalf("project %d extent = %v, want %v", i, got[i].Extent, want[i].Extent)
		}
		if len(got[i].Bookmarks) != len(want[i].Bookmarks) {
			t.Fatalf("project %d bookmarks = %d, want %d", i, len(got[i].Bookmarks), len(want[i].Bookmarks))
		}
	}
	if got[0].Bookmarks[0].Name != "centre" {
		t.Fatalf("bookmark = %+v", got[0].Bookmarks[0])
	}
	if n := len(dst.doc.MapLayers()); n != 2 {
		t.Fatalf("live project has %d layers, want 2", n)
	}
	if dst.canvas.DestinationCRS() != "EPSG:3857" {
		t.Fatalf("canvas crs = %s", dst.canvas.DestinationCRS())
	}
	if err := dst.reg.SwitchTo(0); err != nil {
		t.Fatal(err)
	}
	if ls := dst.doc.MapLayers(); len(ls) != 1 || ls[0].Name != "roads" {
		t.Fatalf("Alpha layers = %+v", ls)
	}
}

func TestManifestConformsToSchema(t *testing.T) {
	l := twoProjects(t)
	path := filepath.Join(t.TempDir(), "ws.mpw")
	if err := Save(path, l.reg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestContentFilesAreRelative(t *testing.T) {
	l := twoProjects(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ws.mpw")
	if err := Save(path, l.reg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	m, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for _, p := range m.Projects {
		if filepath.IsAbs(p.ContentFile) || !strings.HasPrefix(p.ContentFile, "ws_projects/") {
			t.Fatalf("content_file = %q", p.ContentFile)
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(p.ContentFile))); err != nil {
			t.Fatalf("content file missing: %v", err)
		}
	}
}

func TestSaveRemovesStaleSlots(t *testing.T) {
	l := twoProjects(t)
	path := filepath.Join(t.TempDir(), "ws.mpw")
	if err := Save(path, l.reg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := l.reg.Rename(0, "Gamma"); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, l.reg); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	m, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := map[string]bool{"backups": true}
	for _, p := range m.Projects {
		want[filepath.Base(filepath.FromSlash(p.ContentFile))] = true
	}
	entries, err := os.ReadDir(ContentDir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !want[e.Name()] {
			t.Errorf("stale file %q left in content dir", e.Name())
		}
	}
	if len(entries) != len(want) {
		t.Fatalf("content dir has %d entries, want %d", len(entries), len(want))
	}
}

func TestLoadInvalidManifestLeavesRegistry(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage.mpw": "not json at all",
		"empty.mpw":   `{"version":"1.0","current":0,"projects":[]}`,
		"badtype.mpw": `{"version":"1.0","current":0,"projects":[{"name":"x","layer_count":"many"}]}`,
		"noproj.mpw":  `{"version":"1.0"}`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		l := newLive(t)
		before := l.reg.Active().ID
		if _, err := Load(path, l.reg, LoadOptions{}); !errors.Is(err, ErrCannotLoad) {
			t.Fatalf("%s: want ErrCannotLoad, got %v", name, err)
		}
		if l.reg.Len() != 1 || l.reg.Active().ID != before {
			t.Fatalf("%s: registry changed by failed load", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.mpw"), newLive(t).reg, LoadOptions{}); !errors.Is(err, ErrCannotLoad) {
		t.Fatalf("missing file: want ErrCannotLoad, got %v", err)
	}
}

func TestLoadFallsBackToBackup(t *testing.T) {
	l := twoProjects(t)
	path := filepath.Join(t.TempDir(), "ws.mpw")
	if err := Save(path, l.reg); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, l.reg); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, newLive(t).reg, LoadOptions{}); !errors.Is(err, ErrCannotLoad) {
		t.Fatalf("without fallback: want ErrCannotLoad, got %v", err)
	}
	dst := newLive(t)
	if _, err := Load(path, dst.reg, LoadOptions{FallbackToBackup: true}); err != nil {
		t.Fatalf("Load with fallback: %v", err)
	}
	if dst.reg.Len() != 2 {
		t.Fatalf("loaded %d projects from backup", dst.reg.Len())
	}
}

func TestLoadLegacyManifest(t *testing.T) {
	dir := t.TempDir()
	content := filepath.Join(dir, "old_content.mcp")
	d := dochost.NewDocument()
	d.AddLayer(dochost.LayerDoc{Name: "legacy"})
	if err := d.Write(content); err != nil {
		t.Fatal(err)
	}
	quoted, _ := json.Marshal(content)
	data := []byte(`{
  "version": "7.0",
  "current": 3,
  "projects": [{
    "name": "Old",
    "saved_file": "/data/old.qgz",
    "extent": [1, 2, 3, 4],
    "crs": "EPSG:32632",
    "layer_count": 1,
    "notes": "",
    "bookmarks": [{"name": "no extent", "extent": null, "crs": ""}],
    "workspace_file": ` + string(quoted) + `
  }]
}`)
	path := filepath.Join(dir, "old.mpw")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	l := newLive(t)
	if _, err := Load(path, l.reg, LoadOptions{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := l.reg.Active()
	if l.reg.ActiveIndex() != 0 || s.Name != "Old" || s.PersistedPath != "/data/old.qgz" {
		t.Fatalf("loaded %+v at %d", s, l.reg.ActiveIndex())
	}
	if len(s.Bookmarks) != 0 {
		t.Fatalf("bookmark without extent kept: %+v", s.Bookmarks)
	}
	if ls := l.doc.MapLayers(); len(ls) != 1 || ls[0].Name != "legacy" {
		t.Fatalf("live layers = %+v", ls)
	}
}

func TestPackUnpack(t *testing.T) {
	l := twoProjects(t)
	path := filepath.Join(t.TempDir(), "field.mpw")
	if err := Save(path, l.reg); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, l.reg); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "field.zip")
	if err := Pack(path, zipPath); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range zr.File {
		if strings.Contains(f.Name, "backups") {
			t.Fatalf("pack contains backup %s", f.Name)
		}
	}
	_ = zr.Close()

	manifest, err := Unpack(zipPath, t.TempDir())
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if filepath.Base(manifest) != "field.mpw" {
		t.Fatalf("manifest = %s", manifest)
	}
	dst := newLive(t)
	if _, err := Load(manifest, dst.reg, LoadOptions{}); err != nil {
		t.Fatalf("Load unpacked: %v", err)
	}
	if dst.reg.Len() != 2 || len(dst.doc.MapLayers()) != 2 {
		t.Fatalf("unpacked workspace: %d projects, %d live layers", dst.reg.Len(), len(dst.doc.MapLayers()))
	}
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escape.mpw")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("{}"))
	_ = zw.Close()
	_ = f.Close()

	dest := t.TempDir()
	if _, err := Unpack(zipPath, dest); err == nil {
		t.Fatalf("escaping entry accepted")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "escape.mpw")); err == nil {
		t.Fatalf("file written outside destination")
	}
}

func TestSlotName(t *testing.T) {
	cases := []struct {
		name string
		i    int
		want string
	}{
		{"My Project", 0, "My_Project_0.mcp"},
		{"a/b\\c", 2, "a_b_c_2.mcp"},
		{"Città", 1, "Città_1.mcp"},
		{"   ", 3, "project_3.mcp"},
		{"..", 4, "project_4.mcp"},
	}
	for _, c := range cases {
		if got := slotName(c.name, c.i, ".mcp"); got != c.want {
			t.Fatalf("slotName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}
