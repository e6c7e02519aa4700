/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package locale renders user-facing text. A Localizer is created once at
// startup for the detected language and handed to whatever prints
// messages; nothing reads a global "current language".
package locale

import (
	_ "embed"
	"strings"
	"sync"

	golocale "github.com/jeandeaual/go-locale"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	applog "multicanvas/internal/log"
)

//go:embed active.it.yaml
var italian []byte

// Message IDs.
const (
	MsgProjects         = "Projects"
	MsgProject          = "Project"
	MsgProjectName      = "ProjectName"
	MsgCopyName         = "CopyName"
	MsgBack             = "Back"
	MsgForward          = "Forward"
	MsgBookmarks        = "Bookmarks"
	MsgNotSaved         = "NotSaved"
	MsgActive           = "Active"
	MsgModified         = "Modified"
	MsgCreated          = "Created"
	MsgOpened           = "Opened"
	MsgSaved            = "Saved"
	MsgDuplicated       = "Duplicated"
	MsgClosed           = "Closed"
	MsgClosedOthers     = "ClosedOthers"
	MsgRenamed          = "Renamed"
	MsgSwitched         = "Switched"
	MsgBookmarkAdded    = "BookmarkAdded"
	MsgExtentSynced     = "ExtentSynced"
	MsgWorkspaceSaved   = "WorkspaceSaved"
	MsgWorkspaceLoaded  = "WorkspaceLoaded"
	MsgWorkspaceCreated = "WorkspaceCreated"
	MsgCannotCloseLast  = "CannotCloseLast"
	MsgCannotOpen       = "CannotOpen"
	MsgCannotLoad       = "CannotLoad"
	MsgUnsavedChanges   = "UnsavedChanges"
	MsgUnsavedProjects  = "UnsavedProjects"
	MsgNoMatches        = "NoMatches"
	MsgAtStart          = "AtStart"
	MsgAtEnd            = "AtEnd"
	MsgError            = "Error"
	MsgWarning          = "Warning"
	MsgLayerCount       = "LayerCount"
	MsgBookmarkCount    = "BookmarkCount"
)

var english = []*i18n.Message{
	{ID: MsgProjects, Other: "Projects"},
	{ID: MsgProject, Other: "Project"},
	{ID: MsgProjectName, Other: "Project {{.N}}"},
	{ID: MsgCopyName, Other: "{{.Name}} (copy)"},
	{ID: "NewProject", Other: "New project"},
	{ID: "OpenProject", Other: "Open project"},
	{ID: "Save", Other: "Save"},
	{ID: "SaveAs", Other: "Save as"},
	{ID: "Duplicate", Other: "Duplicate"},
	{ID: "Close", Other: "Close"},
	{ID: "CloseOthers", Other: "Close others"},
	{ID: "Rename", Other: "Rename"},
	{ID: "MoveUp", Other: "Move up"},
	{ID: "MoveDown", Other: "Move down"},
	{ID: MsgBack, Other: "Back"},
	{ID: MsgForward, Other: "Forward"},
	{ID: "Sync", Other: "Sync"},
	{ID: MsgBookmarks, Other: "Bookmarks"},
	{ID: "AddBookmark", Other: "Add bookmark"},
	{ID: "GoTo", Other: "Go to"},
	{ID: MsgNotSaved, Other: "Not saved"},
	{ID: MsgActive, Other: "active"},
	{ID: MsgModified, Other: "modified"},
	{ID: MsgCreated, Other: "New: {{.Name}}"},
	{ID: MsgOpened, Other: "Opened: {{.Name}}"},
	{ID: MsgSaved, Other: "Saved: {{.Path}}"},
	{ID: MsgDuplicated, Other: "Duplicated: {{.Name}}"},
	{ID: MsgClosed, Other: "Closed: {{.Name}}"},
	{ID: MsgClosedOthers, Other: "Closed {{.Count}} projects"},
	{ID: MsgRenamed, Other: "Renamed: {{.Name}}"},
	{ID: MsgSwitched, Other: "Active: {{.Name}}"},
	{ID: MsgBookmarkAdded, Other: "New bookmark: {{.Name}}"},
	{ID: MsgExtentSynced, Other: "Extent synced to {{.Count}} projects"},
	{ID: MsgWorkspaceSaved, Other: "Workspace saved: {{.Path}}"},
	{ID: MsgWorkspaceLoaded, Other: "Workspace loaded: {{.Path}}"},
	{ID: MsgWorkspaceCreated, Other: "Workspace created: {{.Path}}"},
	{ID: MsgCannotCloseLast, Other: "Cannot close the last project"},
	{ID: MsgCannotOpen, Other: "Cannot open"},
	{ID: MsgCannotLoad, Other: "Cannot load"},
	{ID: MsgUnsavedChanges, Other: "'{{.Name}}' has been modified. Save?"},
	{ID: MsgUnsavedProjects, Other: "There are unsaved projects. Close anyway?"},
	{ID: MsgNoMatches, Other: "No matches"},
	{ID: MsgAtStart, Other: "No previous extent"},
	{ID: MsgAtEnd, Other: "No next extent"},
	{ID: MsgError, Other: "Error"},
	{ID: MsgWarning, Other: "Warning"},
	{ID: MsgLayerCount, One: "{{.Count}} layer", Other: "{{.Count}} layers"},
	{ID: MsgBookmarkCount, One: "{{.Count}} bookmark", Other: "{{.Count}} bookmarks"},
}

var supported = []language.Tag{language.English, language.Italian}

var bundle = sync.OnceValue(func() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	if err := b.AddMessages(language.English, english...); err != nil {
		applog.WithComponent("locale").Error("english messages rejected", "err", err)
	}
	if _, err := b.ParseMessageFileBytes(italian, "active.it.yaml"); err != nil {
		applog.WithComponent("locale").Error("italian messages rejected", "err", err)
	}
	return b
})

// Localizer renders messages in one language.
type Localizer struct {
	tag language.Tag
	loc *i18n.Localizer
}

// New returns a Localizer for lang (a BCP 47 tag or a POSIX locale such as
// it_IT.UTF-8). Unsupported languages fall back to English.
func New(lang string) *Localizer {
	m := language.NewMatcher(supported)
	tag, _, _ := m.Match(parse(lang))
	base, _ := tag.Base()
	tag = language.Make(base.String())
	return &Localizer{tag: tag, loc: i18n.NewLocalizer(bundle(), tag.String())}
}

// Lang is the language messages are rendered in.
func (l *Localizer) Lang() string { return l.tag.String() }

// T renders message id.
func (l *Localizer) T(id string) string { return l.render(&i18n.LocalizeConfig{MessageID: id}, id) }

// Tf renders message id with template data.
func (l *Localizer) Tf(id string, data map[string]any) string {
	return l.render(&i18n.LocalizeConfig{MessageID: id, TemplateData: data}, id)
}

// Count renders the plural form of id for n; the template sees n as .Count.
func (l *Localizer) Count(id string, n int) string {
	return l.render(&i18n.LocalizeConfig{
		MessageID:    id,
		PluralCount:  n,
		TemplateData: map[string]any{"Count": n},
	}, id)
}

// ProjectName is the default name of the n-th new project.
func (l *Localizer) ProjectName(n int) string { return l.Tf(MsgProjectName, map[string]any{"N": n}) }

// CopyName is the name given to a duplicate of the project called name.
func (l *Localizer) CopyName(name string) string {
	return l.Tf(MsgCopyName, map[string]any{"Name": name})
}

func (l *Localizer) render(cfg *i18n.LocalizeConfig, id string) string {
	s, err := l.loc.Localize(cfg)
	if s != "" {
		return s
	}
	if err != nil {
		applog.WithComponent("locale").Debug("message missing", "id", id, "lang", l.Lang(), "err", err)
	}
	return id
}

// Detect resolves the language to use: the configured value when set,
// otherwise the operating system locale, otherwise English.
func Detect(configured string) string {
	if c := strings.TrimSpace(configured); c != "" {
		return baseOf(c)
	}
	if sys, err := golocale.GetLocale(); err == nil && strings.TrimSpace(sys) != "" {
		return baseOf(sys)
	}
	return "en"
}

func parse(s string) language.Tag {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.English
	}
	return tag
}

func baseOf(s string) string {
	base, _ := parse(s).Base()
	return base.String()
}
