/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"raycast/internal/config"
	"raycast/internal/crash"
	"raycast/internal/export"
	"raycast/internal/scenefile"
	"raycast/internal/storage"
	"raycast/internal/telemetry"
)

type app struct {
	cfg    config.AppConfig
	log    *slog.Logger
	sess   *crash.Session
	stdout io.Writer
	stderr io.Writer
}

func (a *app) fail(op string, err error) int {
	a.log.Error(op+" failed", slog.Any("err", err), slog.String("kind", scenefile.KindName(err)))
	fmt.Fprintln(a.stderr, "Error:", err)
	return 1
}

func (a *app) usageErr(msg string) int {
	fmt.Fprintln(a.stderr, msg)
	usage(a.stderr)
	return 2
}

// parserFlags returns a flag set preloaded with the configured parser options.
func (a *app) parserFlags(name string) (*flag.FlagSet, *scenefile.Options) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	opts := a.cfg.ParserOptions()
	fs.BoolVar(&opts.Strict, "strict", opts.Strict, "treat unknown properties as errors")
	fs.BoolVar(&opts.RequireCamera, "camera", opts.RequireCamera, "reject scenes without a camera")
	return fs, &opts
}

// parseFile parses path and reports the outcome as a scene_checked event.
func (a *app) parseFile(path string, opts scenefile.Options) (*scenefile.Result, error) {
	a.sess.ScenePath = path
	res, err := scenefile.ParseFile(path, opts)
	checked(res, err)
	return res, err
}

func checked(res *scenefile.Result, err error) {
	props := map[string]any{"ok": err == nil}
	if err != nil {
		props["error_kind"] = scenefile.KindName(err)
	} else {
		props["objects"] = res.Scene.Len()
		props["warnings"] = len(res.Warnings)
	}
	telemetry.Event("scene_checked", props)
}

func (a *app) check(args []string) int {
	fs, opts := a.parserFlags("check")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return a.usageErr("check requires <file>")
	}
	path := fs.Arg(0)
	res, err := a.parseFile(path, *opts)
	if err != nil {
		return a.fail("check", err)
	}
	sc := res.Scene
	fmt.Fprintf(a.stdout, "scene: %s\n", path)
	if cam, ok := sc.Camera(); ok {
		fmt.Fprintf(a.stdout, "camera: %gx%g\n", cam.Width, cam.Height)
	} else {
		fmt.Fprintln(a.stdout, "camera: none")
	}
	spheres, planes := sc.Counts()
	fmt.Fprintf(a.stdout, "objects: %d (%d spheres, %d planes)\n", sc.Len(), spheres, planes)
	for _, w := range res.Warnings {
		fmt.Fprintln(a.stdout, "warning:", w)
	}
	return 0
}

func (a *app) dump(args []string) int {
	fs, opts := a.parserFlags("dump")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return a.usageErr("dump requires <file>")
	}
	res, err := a.parseFile(fs.Arg(0), *opts)
	if err != nil {
		return a.fail("dump", err)
	}
	if err := scenefile.Encode(a.stdout, res.Scene); err != nil {
		return a.fail("dump", err)
	}
	return 0
}

func (a *app) export(args []string) int {
	fs, opts := a.parserFlags("export")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return a.usageErr("export requires <file> [<out.json>]")
	}
	res, err := a.parseFile(fs.Arg(0), *opts)
	if err != nil {
		return a.fail("export", err)
	}
	data, err := export.Marshal(res.Scene)
	if err != nil {
		return a.fail("export", err)
	}
	if err := export.Validate(data); err != nil {
		return a.fail("export", err)
	}
	if fs.NArg() == 1 {
		if _, err := a.stdout.Write(data); err != nil {
			return a.fail("export", err)
		}
		return 0
	}
	out := fs.Arg(1)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return a.fail("export", fmt.Errorf("write %s: %w", out, err))
	}
	a.log.Info("scene exported", slog.String("out", out), slog.Int("objects", res.Scene.Len()))
	fmt.Fprintln(a.stdout, "Exported", out)
	return 0
}

func (a *app) openCatalog(ctx context.Context) (*storage.Catalog, error) {
	if a.cfg.Catalog.Path == "" {
		return nil, errors.New("no catalog path configured")
	}
	return storage.OpenCatalog(ctx, a.cfg.Catalog.Path)
}

func (a *app) index(args []string) int {
	fs, opts := a.parserFlags("index")
	force := fs.Bool("f", false, "re-check files whose content is unchanged")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		return a.usageErr("index requires at least one <file>")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cat, err := a.openCatalog(ctx)
	if err != nil {
		return a.fail("open catalog", err)
	}
	defer cat.Close()

	code := 0
	for _, path := range fs.Args() {
		status, err := a.indexOne(ctx, cat, path, *opts, *force)
		if err != nil {
			a.fail("index", err)
			code = 1
			continue
		}
		fmt.Fprintf(a.stdout, "%s: %s\n", path, status)
		if status != "ok" && status != "unchanged" {
			code = 1
		}
	}
	return code
}

// indexOne checks one file and records it. The returned status is "ok",
// "unchanged" or the parse error kind.
func (a *app) indexOne(ctx context.Context, cat *storage.Catalog, path string, opts scenefile.Options, force bool) (string, error) {
	a.sess.ScenePath = path
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read scene: %w", err)
	}
	sum, err := storage.Fingerprint(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if !force {
		if prev, err := cat.Lookup(ctx, path); err == nil && prev.SHA256 == sum {
			return "unchanged", nil
		}
	}
	opts.Logger = a.log.With(slog.String("path", path))
	res, perr := scenefile.Parse(bytes.NewReader(data), opts)
	checked(res, perr)

	var entry storage.Entry
	if perr != nil {
		kind := scenefile.KindName(perr)
		if kind == "" {
			return "", perr
		}
		fmt.Fprintln(a.stderr, path+":", perr)
		entry = storage.NewEntry(path, sum, nil, 0, kind)
	} else {
		entry = storage.NewEntry(path, sum, res.Scene, len(res.Warnings), "")
	}
	if err := cat.Record(ctx, entry); err != nil {
		return "", err
	}
	if !entry.OK() {
		return entry.ErrorKind, nil
	}
	return "ok", nil
}

func (a *app) catalog(args []string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if len(args) > 0 && args[0] != "rm" {
		return a.usageErr(fmt.Sprintf("unknown catalog command %q", args[0]))
	}
	if len(args) == 1 {
		return a.usageErr("catalog rm requires <file>")
	}
	cat, err := a.openCatalog(ctx)
	if err != nil {
		return a.fail("open catalog", err)
	}
	defer cat.Close()

	if len(args) > 0 {
		code := 0
		for _, path := range args[1:] {
			if err := cat.Remove(ctx, path); err != nil {
				a.fail("catalog rm", err)
				code = 1
				continue
			}
			fmt.Fprintln(a.stdout, "Removed", path)
		}
		return code
	}

	entries, err := cat.List(ctx)
	if err != nil {
		return a.fail("catalog", err)
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSTATUS\tCAMERA\tSPHERES\tPLANES\tWARNINGS\tCHECKED")
	for _, e := range entries {
		status := "ok"
		if !e.OK() {
			status = e.ErrorKind
		}
		cam := "-"
		if e.HasCamera {
			cam = fmt.Sprintf("%gx%g", e.Width, e.Height)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", e.Path, status, cam, e.Spheres, e.Planes, e.Warnings,
			e.CheckedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return a.fail("catalog", err)
	}
	return 0
}

var overrideKeys = []string{
	"parser.strict", "parser.require_camera", "catalog.path",
	"logging.level", "logging.format", "logging.source", "logging.file",
	"telemetry.opt_in", "telemetry.events_url", "telemetry.crash_url", "crash.report_dir",
}

func (a *app) config(args []string) int {
	path, err := config.ConfigPath()
	if err != nil {
		return a.fail("config", err)
	}
	if len(args) > 0 {
		if args[0] != "init" {
			return a.usageErr(fmt.Sprintf("unknown config command %q", args[0]))
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintln(a.stdout, "Config already exists at", path)
			return 0
		}
		if err := config.Save(config.Defaults()); err != nil {
			return a.fail("config init", err)
		}
		fmt.Fprintln(a.stdout, "Wrote default config to", path)
		return 0
	}

	fmt.Fprintf(a.stdout, "# %s\n", path)
	for _, key := range overrideKeys {
		if env, ok := config.EnvOverrideFor(key); ok {
			fmt.Fprintf(a.stdout, "# %s overridden by %s\n", key, env)
		}
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(a.cfg); err != nil {
		return a.fail("config", err)
	}
	if err := enc.Close(); err != nil {
		return a.fail("config", err)
	}
	return 0
}
