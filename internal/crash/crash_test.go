/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"raycast/internal/telemetry"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, buildReport(nil, "boom", []byte("stacktrace")))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "raycast crash report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportUsesSessionDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sess := &Session{ReportDir: dir, Command: "check", ScenePath: "scenes/a.rt"}

	path, err := writeReport(sess, buildReport(sess, "kaboom", []byte("stack")))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected crash report under %s, got %s", dir, path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Command: check")) || !bytes.Contains(b, []byte("Scene: scenes/a.rt")) {
		t.Fatalf("session details missing: %s", b)
	}
}

// TestRecover ensures Recover handles a panic, writes a report and requests exit 2
// without terminating the test process.
func TestRecover(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	func() {
		defer Recover(&Session{ReportDir: dir})
		panic("boom")
	}()

	files, _ := os.ReadDir(dir)
	var found string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "raycast-crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(dir, f.Name())
		}
	}
	if found == "" {
		t.Fatalf("expected crash report file in %s", dir)
	}
	b, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", b)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

// TestRecoverUnwritableReportDir covers a report dir that cannot be created: no
// path is announced and the report is still uploaded.
func TestRecoverUnwritableReportDir(t *testing.T) {
	uploads := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		uploads <- b
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	client := telemetry.New(telemetry.Config{OptIn: true, CrashURL: srv.URL, Timeout: time.Second})
	defer client.Close()
	telemetry.SetDefault(client)
	defer telemetry.SetDefault(nil)

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	out := make(chan string, 1)
	go func() {
		b, _ := io.ReadAll(r)
		out <- string(b)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(&Session{ReportDir: filepath.Join(blocker, "reports")})
		panic("boom")
	}()
	_ = w.Close()
	os.Stderr = oldStderr
	stderr := <-out

	if strings.Contains(stderr, "saved to") {
		t.Fatalf("stderr announces a report that was not written: %q", stderr)
	}
	if !strings.Contains(stderr, "could not be saved") {
		t.Fatalf("stderr does not report the failed save: %q", stderr)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
	select {
	case b := <-uploads:
		if !bytes.Contains(b, []byte("Panic: boom")) {
			t.Fatalf("uploaded report missing panic: %s", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("crash report was not uploaded")
	}
}
