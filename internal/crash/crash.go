/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a logged error, a crash report file
// and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "raycast/internal/log"
	"raycast/internal/telemetry"
	"raycast/internal/version"
)

// exitFn is swapped in tests to keep the process alive.
var exitFn = os.Exit

// uploadWait bounds how long Recover waits for an opted-in crash upload.
const uploadWait = 2 * time.Second

// Session describes what the process was doing, for the report.
// The CLI updates Command and ScenePath as it goes.
type Session struct {
	ReportDir string // empty means os.TempDir()
	Command   string
	ScenePath string
}

// Recover captures a panic, logs it with the stack, writes a crash report and exits
// with status 2. It must be deferred directly so recover sees the panic:
//
//	defer crash.Recover(sess)
func Recover(s *Session) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	report := buildReport(s, r, stack)
	reportPath, err := writeReport(s, report)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. The crash report could not be saved: %v\n", err); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
	} else if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}

	select {
	case <-telemetry.UploadCrash(report):
	case <-time.After(uploadWait):
	}
	exitFn(2)
}

func buildReport(s *Session, panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "raycast crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if s != nil {
		if s.Command != "" {
			fmt.Fprintf(&buf, "Command: %s\n", s.Command)
		}
		if s.ScenePath != "" {
			fmt.Fprintf(&buf, "Scene: %s\n", s.ScenePath)
		}
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)
	return buf.Bytes()
}

// writeReport saves report under the session's report dir, or os.TempDir.
func writeReport(s *Session, report []byte) (string, error) {
	dir := os.TempDir()
	if s != nil && s.ReportDir != "" {
		dir = s.ReportDir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("raycast-crash-%s-%d.log", stamp, os.Getpid()))
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}
