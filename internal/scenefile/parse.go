/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scenefile reads scene description files.
//
// A scene file is a JSON-like list of objects:
//
//	[
//	  { "type": "camera", "width": 200, "height": 200 },
//	  { "type": "sphere", "color": [255, 0, 0], "position": [0, 0, -10], "radius": 2 },
//	  { "type": "plane", "color": [0, 0, 255], "position": [0, -1, 0], "normal": [0, 1, 0] }
//	]
//
// The grammar is deliberately narrow: strings are printable ASCII without escapes
// and at most 128 bytes long, arrays are always 3-element numeric vectors, and
// objects do not nest. Parsing is all-or-nothing: on any error no scene is returned.
// Unknown fields are skipped with a warning.
package scenefile

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	applog "raycast/internal/log"
	"raycast/internal/scene"
)

// Options tunes validation beyond the base grammar.
type Options struct {
	// Strict turns unknown-field warnings into ErrUnknownField.
	Strict bool
	// RequireCamera rejects scenes without a camera object.
	RequireCamera bool
	// Logger receives warnings and debug output. Defaults to the scenefile component logger.
	Logger *slog.Logger
}

// Warning is a non-fatal diagnostic: a field the object type does not define.
type Warning struct {
	Field string
	Type  scene.Kind
	Line  int
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: unknown property %q on %s ignored", w.Line, w.Field, w.Type)
}

// Result is a successfully parsed scene and the warnings raised while reading it.
type Result struct {
	Scene    *scene.Scene
	Warnings []Warning
}

type parser struct {
	c        *cursor
	opts     Options
	log      *slog.Logger
	warnings []Warning
}

// Parse reads a complete scene from r.
func Parse(r io.Reader, opts Options) (*Result, error) {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("scenefile")
	}
	p := &parser{c: newCursor(r), opts: opts, log: l}
	sc, err := p.scene()
	if err != nil {
		p.log.Debug("parse failed", slog.Any("err", err))
		return nil, err
	}
	p.log.Debug("scene parsed", slog.Int("objects", sc.Len()), slog.Int("warnings", len(p.warnings)))
	return &Result{Scene: sc, Warnings: p.warnings}, nil
}

// ParseFile opens path, parses it and closes it on every return path.
func ParseFile(path string, opts Options) (res *Result, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			res, err = nil, fmt.Errorf("close scene: %w", cerr)
		}
	}()
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("scenefile")
	}
	opts.Logger = l.With(slog.String("path", path))
	return Parse(f, opts)
}

// scene parses the top-level list and merges each object into the result.
func (p *parser) scene() (*scene.Scene, error) {
	c := p.c
	if err := c.skipWhitespace(); err != nil {
		return nil, err
	}
	if err := c.expect('['); err != nil {
		return nil, err
	}
	if err := c.skipWhitespace(); err != nil {
		return nil, err
	}
	ch, err := c.peek()
	if err != nil {
		return nil, err
	}
	if ch == ']' {
		return nil, c.fail(ErrEmptyScene)
	}

	var (
		cam     *scene.Camera
		objects []scene.Shape
	)
	for {
		rec, err := p.object()
		if err != nil {
			return nil, err
		}
		switch rec.kind {
		case scene.KindCamera:
			if cam != nil {
				return nil, &Error{Kind: ErrDuplicateCamera, Line: rec.line}
			}
			v := rec.camera()
			cam = &v
		case scene.KindSphere, scene.KindPlane:
			objects = append(objects, rec.shape())
		}

		if err := c.skipWhitespace(); err != nil {
			return nil, err
		}
		ch, err := c.next()
		if err != nil {
			return nil, err
		}
		if ch == ']' {
			break
		}
		if ch != ',' {
			return nil, &Error{Kind: ErrExpectedChar, Line: c.line, Want: ']', Got: ch}
		}
		if err := c.skipWhitespace(); err != nil {
			return nil, err
		}
	}

	end := c.line
	for !c.atEOF() {
		ch, err := c.next()
		if err != nil {
			return nil, err
		}
		if !isSpace(ch) {
			return nil, &Error{Kind: ErrTrailingContent, Line: c.line, Got: ch}
		}
	}
	if p.opts.RequireCamera && cam == nil {
		return nil, &Error{Kind: ErrMissingCamera, Line: end}
	}
	return scene.New(cam, objects...), nil
}
