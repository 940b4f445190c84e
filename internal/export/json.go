/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes scenes in a JSON form meant for tools that do not speak the
// restricted scene grammar, and validates such documents against the bundled schema.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"raycast/internal/scene"
)

type document struct {
	Camera  *camera  `json:"camera,omitempty"`
	Objects []object `json:"objects"`
}

type camera struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type object struct {
	Type     string      `json:"type"`
	Color    scene.Vec3  `json:"color"`
	Position scene.Vec3  `json:"position"`
	Radius   *float64    `json:"radius,omitempty"`
	Normal   *scene.Vec3 `json:"normal,omitempty"`
}

// WriteJSON writes sc as an indented JSON document. The camera is omitted when the
// scene has none; objects keep their order.
func WriteJSON(w io.Writer, sc *scene.Scene) error {
	b, err := Marshal(sc)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// Marshal returns the document WriteJSON would write. Scenes that fail
// sc.Validate are rejected.
func Marshal(sc *scene.Scene) ([]byte, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	doc, err := toDocument(sc)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return append(b, '\n'), nil
}

func toDocument(sc *scene.Scene) (document, error) {
	doc := document{Objects: make([]object, 0, sc.Len())}
	if cam, ok := sc.Camera(); ok {
		doc.Camera = &camera{Width: cam.Width, Height: cam.Height}
	}
	for i, sh := range sc.Objects() {
		switch s := sh.(type) {
		case scene.Sphere:
			r := s.Radius
			doc.Objects = append(doc.Objects, object{Type: string(scene.KindSphere), Color: s.Color, Position: s.Position, Radius: &r})
		case scene.Plane:
			n := s.Normal
			doc.Objects = append(doc.Objects, object{Type: string(scene.KindPlane), Color: s.Color, Position: s.Position, Normal: &n})
		default:
			return document{}, fmt.Errorf("object %d: unsupported shape %T", i, sh)
		}
	}
	return doc, nil
}
