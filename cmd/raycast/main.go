/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"raycast/internal/config"
	"raycast/internal/crash"
	applog "raycast/internal/log"
	"raycast/internal/telemetry"
	"raycast/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "raycast: scene file checker")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  raycast version|-v|--version                Show version")
	fmt.Fprintln(w, "  raycast check [-strict] [-camera] <file>     Parse a scene and print a summary")
	fmt.Fprintln(w, "  raycast dump [-strict] [-camera] <file>      Print the scene in canonical form")
	fmt.Fprintln(w, "  raycast export <file> [<out.json>]          Write the scene as schema-checked JSON")
	fmt.Fprintln(w, "  raycast index [-f] <file>...                Check files and record them in the catalog")
	fmt.Fprintln(w, "  raycast catalog [rm <file>...]              List or remove catalog entries")
	fmt.Fprintln(w, "  raycast config [init]                       Show the effective config or write defaults")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one CLI invocation and returns the process exit code:
// 0 on success, 1 on failure and 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("cli")

	tc := telemetry.New(telemetry.FromConfig(cfg.Telemetry))
	telemetry.SetDefault(tc)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tc.Flush(ctx)
		tc.Close()
		telemetry.SetDefault(nil)
	}()

	// Must run before the telemetry shutdown above.
	sess := &crash.Session{ReportDir: cfg.Crash.ReportDir}
	defer crash.Recover(sess)

	if cfgErr != nil {
		l.Error("load config failed", slog.Any("err", cfgErr))
		fmt.Fprintln(stderr, "Error:", cfgErr)
		return 1
	}

	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	sess.Command = args[0]
	app := &app{cfg: cfg, log: l, sess: sess, stdout: stdout, stderr: stderr}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "raycast", version.String())
		return 0
	case "check":
		return app.check(args[1:])
	case "dump":
		return app.dump(args[1:])
	case "export":
		return app.export(args[1:])
	case "index":
		return app.index(args[1:])
	case "catalog":
		return app.catalog(args[1:])
	case "config":
		return app.config(args[1:])
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	usage(stderr)
	return 2
}
