/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupsDirName is the directory receiving timestamped copies of replaced files.
const BackupsDirName = "backups"

// backupStamp orders lexicographically by time.
const backupStamp = "20060102-150405"

// WriteFileAtomic replaces path with data: the previous file (if any) is
// copied into backupDir as <name>.<stamp>.bak, the new content is written to
// a temp file in the same directory, synced, and renamed over path.
// An empty backupDir skips the backup.
func WriteFileAtomic(path string, data []byte, backupDir string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if backupDir != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := os.MkdirAll(backupDir, 0o755); err != nil {
				return fmt.Errorf("ensure backups dir: %w", err)
			}
			bname := fmt.Sprintf("%s.%s.bak", filepath.Base(path), time.Now().Format(backupStamp))
			if err := CopyFile(path, filepath.Join(backupDir, bname)); err != nil {
				return fmt.Errorf("backup %s: %w", filepath.Base(path), err)
			}
		}
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LatestBackup returns the newest backup of a file called name in backupDir.
func LatestBackup(backupDir, name string) (string, error) {
	ents, err := os.ReadDir(backupDir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		n := e.Name()
		if strings.HasPrefix(n, name+".") && strings.HasSuffix(n, ".bak") {
			candidates = append(candidates, filepath.Join(backupDir, n))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// CopyFile copies src to dst, creating dst's directory and overwriting dst.
func CopyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
