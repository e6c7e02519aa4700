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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "multicanvas/internal/log"
	"multicanvas/internal/version"
)

// Pack writes the bundle of the manifest at manifestPath into a single zip
// archive. Manifest backups are left out.
func Pack(manifestPath, zipPath string) error {
	l := applog.WithOperation(applog.WithComponent("workspace"), "pack").With(slog.String("workspace", manifestPath))
	if strings.TrimSpace(zipPath) == "" {
		return errors.New("zip path is required")
	}
	if _, err := Read(manifestPath); err != nil {
		return err
	}
	root := filepath.Dir(manifestPath)
	contentDir := ContentDir(manifestPath)
	backups := BackupDir(manifestPath)

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	zf, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	if err := zw.SetComment(fmt.Sprintf("%s workspace pack\ncreated: %s", version.String(), time.Now().Format(time.RFC3339))); err != nil {
		return err
	}

	files := []string{manifestPath}
	err = filepath.WalkDir(contentDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path == backups {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk content dir: %w", err)
	}
	for _, path := range files {
		if err := addFile(zw, root, path); err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return fmt.Errorf("build zip: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	l.Info("workspace packed", slog.Int("files", len(files)), slog.String("zip", zipPath))
	return nil
}

func addFile(zw *zip.Writer, root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	fw, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(fw, f)
	return err
}

// Unpack extracts a pack created by Pack into destDir and returns the path
// of the extracted manifest. Entries that would land outside destDir are
// rejected; files that already exist are skipped.
func Unpack(zipPath, destDir string) (string, error) {
	l := applog.WithOperation(applog.WithComponent("workspace"), "unpack").With(slog.String("zip", zipPath))
	if strings.TrimSpace(destDir) == "" {
		return "", errors.New("destination dir is required")
	}
	dest, err := filepath.Abs(destDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("ensure destination: %w", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	manifest := ""
	extracted := 0
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return "", fmt.Errorf("pack entry %q escapes destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if !strings.Contains(f.Name, "/") && strings.EqualFold(filepath.Ext(f.Name), ManifestExt) {
			manifest = target
		}
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return "", fmt.Errorf("extract %s: %w", f.Name, err)
		}
		extracted++
	}
	if manifest == "" {
		return "", fmt.Errorf("%w: pack %s holds no manifest", ErrCannotLoad, zipPath)
	}
	l.Info("workspace unpacked", slog.Int("files", extracted), slog.String("manifest", manifest))
	return manifest, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
