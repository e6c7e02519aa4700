/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"multicanvas/internal/domain"
)

func TestWriteFileAtomicCreatesBackupOnReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "work.mpw")
	bdir := filepath.Join(dir, "work_projects", BackupsDirName)

	if err := WriteFileAtomic(path, []byte("one"), bdir); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := os.Stat(bdir); !os.IsNotExist(err) {
		t.Fatalf("no backup expected for a fresh file")
	}
	if err := WriteFileAtomic(path, []byte("two"), bdir); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, %v", b, err)
	}
	latest, err := LatestBackup(bdir, "work.mpw")
	if err != nil {
		t.Fatalf("LatestBackup: %v", err)
	}
	if bb, _ := os.ReadFile(latest); string(bb) != "one" {
		t.Fatalf("backup content = %q", bb)
	}
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLatestBackupNoneFound(t *testing.T) {
	if _, err := LatestBackup(t.TempDir(), "x.mpw"); err == nil {
		t.Fatalf("expected error without backups")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mcp")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dst := filepath.Join(dir, "nested", "b.mcp")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "payload" {
		t.Fatalf("copy content = %q", b)
	}
	if err := CopyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Fatalf("copying a missing file must fail")
	}
}

func openTestCatalog(t *testing.T, maxBytes int64) *Catalog {
	t.Helper()
	c, err := OpenCatalog(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalogSchemaIsMigrated(t *testing.T) {
	c := openTestCatalog(t, 0)
	ctx := context.Background()
	v, err := c.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d, %v", v, err)
	}
	// Reopening an existing database must keep it usable.
	dir := filepath.Dir(c.Path())
	_ = c.Close()
	c2, err := OpenCatalog(dir, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	if v, _ := c2.SchemaVersion(ctx); v != schemaVersion {
		t.Fatalf("schema version after reopen = %d", v)
	}
}

func TestCatalogLayers(t *testing.T) {
	c := openTestCatalog(t, 0)
	ctx := context.Background()
	if _, ok, err := c.Layers(ctx, "a"); ok || err != nil {
		t.Fatalf("unknown snapshot: ok=%v err=%v", ok, err)
	}
	in := []domain.Layer{{ID: "1", Name: "Roads", Source: "roads.gpkg"}, {ID: "2", Name: "Rivers"}}
	if err := c.PutLayers(ctx, "a", in); err != nil {
		t.Fatalf("PutLayers: %v", err)
	}
	got, ok, err := c.Layers(ctx, "a")
	if err != nil || !ok || len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Fatalf("Layers = %+v ok=%v err=%v", got, ok, err)
	}
	if err := c.PutLayers(ctx, "a", nil); err != nil {
		t.Fatalf("PutLayers empty: %v", err)
	}
	got, ok, _ = c.Layers(ctx, "a")
	if !ok || len(got) != 0 {
		t.Fatalf("empty layer list must still be catalogued: %+v ok=%v", got, ok)
	}

	if err := c.PutLayers(ctx, "b", in); err != nil {
		t.Fatalf("PutLayers b: %v", err)
	}
	if err := c.PutThumbnail(ctx, "b", 2, 2, []byte("png")); err != nil {
		t.Fatalf("PutThumbnail: %v", err)
	}
	if err := c.CopySnapshot(ctx, "b", "c"); err != nil {
		t.Fatalf("CopySnapshot: %v", err)
	}
	if got, ok, _ := c.Layers(ctx, "c"); !ok || len(got) != 2 {
		t.Fatalf("copied layers = %+v", got)
	}
	if th, _ := c.Thumbnail(ctx, "c"); string(th) != "png" {
		t.Fatalf("copied thumbnail = %q", th)
	}
	if err := c.DropSnapshot(ctx, "b"); err != nil {
		t.Fatalf("DropSnapshot: %v", err)
	}
	if _, ok, _ := c.Layers(ctx, "b"); ok {
		t.Fatalf("dropped snapshot still catalogued")
	}
	if th, _ := c.Thumbnail(ctx, "b"); th != nil {
		t.Fatalf("dropped thumbnail still present")
	}
}

func TestThumbnailsEvictLeastRecentlyUsed(t *testing.T) {
	c := openTestCatalog(t, 100)
	ctx := context.Background()
	blob := make([]byte, 40)
	for _, id := range []string{"a", "b"} {
		if err := c.PutThumbnail(ctx, id, 10, 10, blob); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	// touch a so that b becomes the oldest
	if th, err := c.Thumbnail(ctx, "a"); err != nil || th == nil {
		t.Fatalf("get a: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := c.PutThumbnail(ctx, "c", 10, 10, blob); err != nil {
		t.Fatalf("put c: %v", err)
	}
	total, err := c.TotalThumbnailBytes(ctx)
	if err != nil || total > 100 {
		t.Fatalf("total = %d, %v", total, err)
	}
	if th, _ := c.Thumbnail(ctx, "b"); th != nil {
		t.Fatalf("least recently used thumbnail was not evicted")
	}
	if th, _ := c.Thumbnail(ctx, "a"); th == nil {
		t.Fatalf("recently used thumbnail was evicted")
	}
}
