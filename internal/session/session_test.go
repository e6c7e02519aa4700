/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"multicanvas/internal/domain"
	"multicanvas/internal/history"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return s
}

func TestTouchOrdersByRecency(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.mpw"), filepath.Join(dir, "b.mpw")
	for _, p := range []string{a, b, a} {
		if err := s.Touch(KindWorkspace, p); err != nil {
			t.Fatalf("Touch: %v", err)
		}
	}
	got, err := s.Recent(KindWorkspace, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Path != a || got[1].Path != b {
		t.Fatalf("recent = %+v", got)
	}
	if got[0].Uses != 2 {
		t.Fatalf("uses = %d, want 2", got[0].Uses)
	}
	if p, _ := s.Recent(KindProject, 0); len(p) != 0 {
		t.Fatalf("project list not separate: %+v", p)
	}
}

func TestListsAreCapped(t *testing.T) {
	s := openStore(t)
	dir := t.TempDir()
	for i := 0; i < MaxEntries+5; i++ {
		if err := s.Touch(KindProject, filepath.Join(dir, fmt.Sprintf("p%02d.mcp", i))); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Recent(KindProject, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != MaxEntries {
		t.Fatalf("kept %d entries", len(got))
	}
	if filepath.Base(got[0].Path) != fmt.Sprintf("p%02d.mcp", MaxEntries+4) {
		t.Fatalf("newest = %s", got[0].Path)
	}
	if lim, _ := s.Recent(KindProject, 3); len(lim) != 3 {
		t.Fatalf("limit ignored: %d", len(lim))
	}
}

func TestForgetAndUnknownKind(t *testing.T) {
	s := openStore(t)
	p := filepath.Join(t.TempDir(), "x.mpw")
	if err := s.Touch(KindWorkspace, p); err != nil {
		t.Fatal(err)
	}
	if err := s.Forget(KindWorkspace, p); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Recent(KindWorkspace, 0); len(got) != 0 {
		t.Fatalf("entry not forgotten: %+v", got)
	}
	if err := s.Touch(Kind("nope"), p); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("want ErrUnknownKind, got %v", err)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	s := openStore(t)
	h := history.New(10)
	h.Add(domain.Extent{XMin: 0, YMin: 0, XMax: 1, YMax: 1}, "EPSG:4326")
	h.Add(domain.Extent{XMin: 2, YMin: 2, XMax: 3, YMax: 3}, "EPSG:4326")
	h.Back()
	if err := s.SaveHistory("p1", h); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	got := history.New(10)
	ok, err := s.LoadHistory("p1", got)
	if err != nil || !ok {
		t.Fatalf("LoadHistory = %v, %v", ok, err)
	}
	if got.Len() != 2 || got.Cursor() != 0 || !got.CanGoForward() {
		t.Fatalf("restored len=%d cursor=%d", got.Len(), got.Cursor())
	}
	if ok, _ := s.LoadHistory("unknown", history.New(10)); ok {
		t.Fatalf("unknown id reported as stored")
	}
}
