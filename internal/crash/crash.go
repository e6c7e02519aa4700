/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic at the command boundary into a crash report
// and a rescue copy of the open workspace.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "multicanvas/internal/log"
	"multicanvas/internal/registry"
	"multicanvas/internal/telemetry"
	"multicanvas/internal/version"
	"multicanvas/internal/workspace"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// SetExit replaces the function Recover ends the process with and returns
// the previous one.
func SetExit(fn func(code int)) func(code int) {
	prev := exitFn
	exitFn = fn
	return prev
}

const stampLayout = "20060102-150405"

// Target is what a crash should rescue. Both fields are optional.
type Target struct {
	Registry *registry.Registry
	// Workspace is the manifest the registry was loaded from.
	Workspace string
}

// Recover must be deferred directly. On panic it logs the stack, writes a
// report, saves the registry as a separate crash bundle next to the
// workspace and exits with status 2.
//
// Usage: defer crash.Recover(&target)
func Recover(t *Target) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(t, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if t != nil && t.Registry != nil {
		if path, err := autosave(t); err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else {
			l.Info("crash autosave written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Open projects were saved to: %s\n", path)
		}
		t.Registry.Shutdown()
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(t *Target) string {
	if t != nil && t.Workspace != "" {
		dir := workspace.BackupDir(t.Workspace)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir
		}
	}
	return os.TempDir()
}

// autosave writes the registry as <stem>.crash-<stamp>.mpw beside the
// workspace, or into the temp dir when there is none.
func autosave(t *Target) (string, error) {
	dir, name := os.TempDir(), "multicanvas"
	if t.Workspace != "" {
		dir = filepath.Dir(t.Workspace)
		name = strings.TrimSuffix(filepath.Base(t.Workspace), filepath.Ext(t.Workspace))
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.crash-%s%s", name, time.Now().Format(stampLayout), workspace.ManifestExt))
	if err := workspace.Save(path, t.Registry); err != nil {
		return "", err
	}
	return path, nil
}

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-%s.log", time.Now().Format(stampLayout)))

	var head, body bytes.Buffer
	_, _ = fmt.Fprintf(&head, "multicanvas crash report\n")
	_, _ = fmt.Fprintf(&head, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&head, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&head, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil && t.Registry != nil {
		_, _ = fmt.Fprintf(&body, "Projects: %d (active %d, switching %t)\n",
			t.Registry.Len(), t.Registry.ActiveIndex(), t.Registry.Switching())
	}
	_, _ = fmt.Fprintf(&body, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&body, "Stack:\n%s\n", string(stack))

	// the workspace path stays local; uploads carry no user paths
	var report bytes.Buffer
	report.Write(head.Bytes())
	if t != nil && t.Workspace != "" {
		_, _ = fmt.Fprintf(&report, "Workspace: %s\n", t.Workspace)
	}
	report.Write(body.Bytes())
	if err := os.WriteFile(path, report.Bytes(), 0o644); err != nil {
		return path, err
	}

	upload := append(head.Bytes(), body.Bytes()...)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := telemetry.Default().UploadCrash(ctx, upload); err != nil {
		applog.WithComponent("crash").Debug("crash upload failed", slog.Any("err", err))
	}
	return path, nil
}
