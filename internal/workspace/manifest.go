/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workspace saves and loads the whole set of open projects as a
// bundle: a JSON manifest (<stem>.mpw) next to a content directory
// (<stem>_projects/) holding one project file per snapshot.
package workspace

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"multicanvas/internal/snapshot"
)

// FormatVersion is written into every manifest.
const FormatVersion = "1.0"

// ManifestExt is the manifest file extension.
const ManifestExt = ".mpw"

// ErrCannotLoad wraps every failure to read, validate or decode a manifest.
var ErrCannotLoad = errors.New("cannot load workspace")

//go:embed workspace.schema.json
var schemaJSON []byte

// Manifest is the decoded workspace file.
type Manifest struct {
	Version  string         `json:"version"`
	Current  int            `json:"current"`
	Projects []ProjectEntry `json:"projects"`
}

// ProjectEntry is one project of a manifest: its record plus the location
// of its content inside the bundle.
type ProjectEntry struct {
	snapshot.Record
	// ContentFile is relative to the manifest directory unless absolute.
	ContentFile string `json:"content_file,omitempty"`
	// WorkspaceFile is the absolute content path written by older versions.
	WorkspaceFile *string `json:"workspace_file,omitempty"`
}

// ContentDir returns the content directory belonging to manifestPath.
func ContentDir(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), stem(manifestPath)+"_projects")
}

// BackupDir returns where previous versions of the manifest are kept.
func BackupDir(manifestPath string) string {
	return filepath.Join(ContentDir(manifestPath), "backups")
}

// contentPath resolves where the content of e lives, "" when unknown.
func (e ProjectEntry) contentPath(manifestDir string) string {
	if e.ContentFile != "" {
		p := filepath.FromSlash(e.ContentFile)
		if !filepath.IsAbs(p) {
			p = filepath.Join(manifestDir, p)
		}
		return p
	}
	if e.WorkspaceFile != nil {
		return *e.WorkspaceFile
	}
	return ""
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Validate checks data against the manifest schema.
func Validate(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Read parses and validates the manifest at path without touching any
// registry. Every failure wraps ErrCannotLoad.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCannotLoad, err)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotLoad, path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCannotLoad, path, err)
	}
	if len(m.Projects) == 0 {
		return nil, fmt.Errorf("%w: %s: no projects", ErrCannotLoad, path)
	}
	return &m, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// slotName is the content file name of the project called name at index i.
func slotName(name string, i int, ext string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	safe := strings.Trim(b.String(), ".")
	if safe == "" {
		safe = "project"
	}
	return fmt.Sprintf("%s_%d%s", safe, i, ext)
}
