/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package locale

import "testing"

func TestEnglishDefaults(t *testing.T) {
	l := New("en")
	if got := l.T(MsgProjects); got != "Projects" {
		t.Fatalf("T = %q", got)
	}
	if got := l.ProjectName(3); got != "Project 3" {
		t.Fatalf("ProjectName = %q", got)
	}
	if got := l.CopyName("Roads"); got != "Roads (copy)" {
		t.Fatalf("CopyName = %q", got)
	}
	if got := l.Count(MsgLayerCount, 1); got != "1 layer" {
		t.Fatalf("Count(1) = %q", got)
	}
	if got := l.Count(MsgLayerCount, 4); got != "4 layers" {
		t.Fatalf("Count(4) = %q", got)
	}
	if got := l.Tf(MsgExtentSynced, map[string]any{"Count": 2}); got != "Extent synced to 2 projects" {
		t.Fatalf("Tf = %q", got)
	}
}

func TestItalian(t *testing.T) {
	l := New("it_IT.UTF-8")
	if l.Lang() != "it" {
		t.Fatalf("Lang = %q", l.Lang())
	}
	if got := l.ProjectName(2); got != "Progetto 2" {
		t.Fatalf("ProjectName = %q", got)
	}
	if got := l.CopyName("Strade"); got != "Strade (copia)" {
		t.Fatalf("CopyName = %q", got)
	}
	if got := l.Count(MsgBookmarkCount, 2); got != "2 segnalibri" {
		t.Fatalf("Count = %q", got)
	}
	if got := l.T(MsgCannotCloseLast); got != "Impossibile chiudere l'ultimo progetto" {
		t.Fatalf("T = %q", got)
	}
}

func TestUnsupportedLanguageFallsBackToEnglish(t *testing.T) {
	l := New("xx")
	if l.Lang() != "en" {
		t.Fatalf("Lang = %q", l.Lang())
	}
	if got := l.T(MsgBack); got != "Back" {
		t.Fatalf("T = %q", got)
	}
	if got := New("de").T(MsgForward); got != "Forward" {
		t.Fatalf("german T = %q", got)
	}
}

func TestUnknownMessageReturnsID(t *testing.T) {
	if got := New("en").T("NoSuchMessage"); got != "NoSuchMessage" {
		t.Fatalf("T = %q", got)
	}
}

func TestDetectPrefersConfigured(t *testing.T) {
	if got := Detect("it-CH"); got != "it" {
		t.Fatalf("Detect = %q", got)
	}
	if got := Detect(""); got == "" {
		t.Fatalf("Detect returned empty language")
	}
}
