/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenefile

import (
	"log/slog"
	"strconv"
	"strings"

	"raycast/internal/scene"
)

// field is a bit in the presence set of an object record.
type field uint8

const (
	fieldWidth field = 1 << iota
	fieldHeight
	fieldRadius
	fieldColor
	fieldPosition
	fieldNormal
)

var fieldByName = map[string]field{
	"width":    fieldWidth,
	"height":   fieldHeight,
	"radius":   fieldRadius,
	"color":    fieldColor,
	"position": fieldPosition,
	"normal":   fieldNormal,
}

// fieldsOf lists the fields each object type accepts. All of them are mandatory.
var fieldsOf = map[scene.Kind]field{
	scene.KindCamera: fieldWidth | fieldHeight,
	scene.KindSphere: fieldColor | fieldPosition | fieldRadius,
	scene.KindPlane:  fieldColor | fieldPosition | fieldNormal,
}

// record accumulates the fields of one object between its braces.
type record struct {
	kind scene.Kind
	line int
	seen field

	width, height, radius   float64
	color, position, normal scene.Vec3
}

func (r *record) complete() bool {
	want := fieldsOf[r.kind]
	return r.seen&want == want
}

func (r *record) camera() scene.Camera {
	return scene.Camera{Width: r.width, Height: r.height}
}

func (r *record) shape() scene.Shape {
	surf := scene.Surface{Color: r.color, Position: r.position}
	switch r.kind {
	case scene.KindSphere:
		return scene.Sphere{Surface: surf, Radius: r.radius}
	case scene.KindPlane:
		return scene.Plane{Surface: surf, Normal: r.normal}
	}
	panic("scenefile: shape requested for " + string(r.kind))
}

// object parses one "{...}" entry. The "type" key must come first and selects the
// set of fields the rest of the object may use.
func (p *parser) object() (*record, error) {
	c := p.c
	if err := c.expect('{'); err != nil {
		return nil, err
	}
	if err := c.skipWhitespace(); err != nil {
		return nil, err
	}
	rec := &record{line: c.line}
	ch, err := c.peek()
	if err != nil {
		return nil, err
	}
	if ch != '"' {
		return nil, c.fail(ErrMissingTypeKey)
	}
	key, err := c.readString()
	if err != nil {
		return nil, err
	}
	if key != "type" {
		return nil, &Error{Kind: ErrMissingTypeKey, Line: rec.line, Field: key}
	}
	if err := p.colon(); err != nil {
		return nil, err
	}
	typ, err := c.readString()
	if err != nil {
		return nil, err
	}
	switch k := scene.Kind(typ); k {
	case scene.KindCamera, scene.KindSphere, scene.KindPlane:
		rec.kind = k
	default:
		return nil, &Error{Kind: ErrUnknownObjectType, Line: c.line, Value: strconv.Quote(typ)}
	}

	for {
		if err := c.skipWhitespace(); err != nil {
			return nil, err
		}
		ch, err := c.next()
		if err != nil {
			return nil, err
		}
		switch ch {
		case '}':
			if !rec.complete() {
				return nil, &Error{Kind: ErrIncompleteObject, Line: c.line, Field: string(rec.kind), Value: missingFields(rec)}
			}
			return rec, nil
		case ',':
			if err := p.field(rec); err != nil {
				return nil, err
			}
		default:
			return nil, &Error{Kind: ErrUnexpectedFieldSeparator, Line: c.line, Got: ch}
		}
	}
}

// field parses one `"key": value` pair into rec.
func (p *parser) field(rec *record) error {
	c := p.c
	if err := c.skipWhitespace(); err != nil {
		return err
	}
	line := c.line
	key, err := c.readString()
	if err != nil {
		return err
	}
	if err := p.colon(); err != nil {
		return err
	}
	if key == "type" {
		return &Error{Kind: ErrDuplicateField, Line: line, Field: key}
	}
	f, ok := fieldByName[key]
	if !ok || fieldsOf[rec.kind]&f == 0 {
		if p.opts.Strict {
			return &Error{Kind: ErrUnknownField, Line: line, Field: key, Value: string(rec.kind)}
		}
		p.warn(Warning{Field: key, Type: rec.kind, Line: line})
		return c.skipValue()
	}
	if rec.seen&f != 0 {
		return &Error{Kind: ErrDuplicateField, Line: line, Field: key}
	}

	switch f {
	case fieldWidth, fieldHeight, fieldRadius:
		v, err := c.readNumber()
		if err != nil {
			return err
		}
		if v < 1 {
			return &Error{Kind: ErrInvalidFieldValue, Line: c.line, Field: key, Value: formatFloat(v)}
		}
		switch f {
		case fieldWidth:
			rec.width = v
		case fieldHeight:
			rec.height = v
		default:
			rec.radius = v
		}
	case fieldColor, fieldPosition, fieldNormal:
		v, err := c.readVector3()
		if err != nil {
			return err
		}
		switch f {
		case fieldColor:
			for _, comp := range v {
				if comp < 0 || comp > 255 {
					return &Error{Kind: ErrInvalidColor, Line: c.line, Field: key, Value: v.String()}
				}
			}
			rec.color = v
		case fieldPosition:
			rec.position = v
		default:
			rec.normal = v
		}
	}
	rec.seen |= f
	return nil
}

// colon consumes the ':' between a key and its value along with surrounding blanks.
func (p *parser) colon() error {
	if err := p.c.skipWhitespace(); err != nil {
		return err
	}
	if err := p.c.expect(':'); err != nil {
		return err
	}
	return p.c.skipWhitespace()
}

func (p *parser) warn(w Warning) {
	p.warnings = append(p.warnings, w)
	p.log.Warn("unknown property",
		slog.String("field", w.Field),
		slog.String("type", string(w.Type)),
		slog.Int("line", w.Line),
	)
}

// missingFields names the absent mandatory fields of rec, in declaration order.
func missingFields(rec *record) string {
	var names []string
	for _, name := range []string{"width", "height", "color", "position", "radius", "normal"} {
		f := fieldByName[name]
		if fieldsOf[rec.kind]&f != 0 && rec.seen&f == 0 {
			names = append(names, name)
		}
	}
	return "missing " + strings.Join(names, ", ")
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
