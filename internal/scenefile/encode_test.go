/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenefile

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"raycast/internal/scene"
)

func TestEncodeRoundTrip(t *testing.T) {
	scenes := []*scene.Scene{
		scene.New(&scene.Camera{Width: 200, Height: 200}),
		scene.New(&scene.Camera{Width: 1920.5, Height: 1e21},
			scene.Sphere{Surface: scene.Surface{Color: scene.Vec3{255, 0, 0.125}, Position: scene.Vec3{0, 0, -10}}, Radius: 2},
			scene.Plane{Surface: scene.Surface{Color: scene.Vec3{0, 0, 255}, Position: scene.Vec3{0, -1e-7, 0}}, Normal: scene.Vec3{0, 1, 0}},
			scene.Sphere{Surface: scene.Surface{Color: scene.Vec3{1, 2, 3}, Position: scene.Vec3{-4.5, 3.25, 1}}, Radius: 123456789.5},
		),
		scene.New(nil,
			scene.Plane{Surface: scene.Surface{Color: scene.Vec3{9, 9, 9}, Position: scene.Vec3{1, 1, 1}}, Normal: scene.Vec3{0.5773, 0.5773, 0.5773}},
		),
	}
	for i, want := range scenes {
		var buf bytes.Buffer
		if err := Encode(&buf, want); err != nil {
			t.Fatalf("scene %d: Encode: %v", i, err)
		}
		res, err := Parse(&buf, quiet())
		if err != nil {
			t.Fatalf("scene %d: Parse of encoded output: %v", i, err)
		}
		if !reflect.DeepEqual(res.Scene, want) {
			t.Fatalf("scene %d: round trip mismatch:\n got %v\nwant %v", i, res.Scene, want)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	sc := scene.New(&scene.Camera{Width: 200, Height: 100},
		scene.Sphere{Surface: scene.Surface{Color: scene.Vec3{255, 0, 0}, Position: scene.Vec3{0, 0, -10}}, Radius: 2},
	)
	var buf bytes.Buffer
	if err := Encode(&buf, sc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := strings.Join([]string{
		`[`,
		`  {"type": "camera", "width": 200, "height": 100},`,
		`  {"type": "sphere", "color": [255, 0, 0], "position": [0, 0, -10], "radius": 2}`,
		`]`,
		``,
	}, "\n")
	if buf.String() != want {
		t.Fatalf("Encode output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestEncodeEmptyScene(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, scene.New(nil)); !errors.Is(err, ErrEmptyScene) {
		t.Fatalf("expected ErrEmptyScene, got %v", err)
	}
}

func TestEncodeRejectsInvalidScene(t *testing.T) {
	bright := scene.Sphere{Surface: scene.Surface{Color: scene.Vec3{300, 0, 0}}, Radius: 1}
	far := scene.Plane{Surface: scene.Surface{Position: scene.Vec3{math.Inf(1), 0, 0}}, Normal: scene.Vec3{0, 1, 0}}
	cases := map[string]*scene.Scene{
		"narrow camera":     scene.New(&scene.Camera{Width: 0.5, Height: 1}),
		"bright color":      scene.New(nil, bright),
		"infinite position": scene.New(nil, far),
	}
	for name, sc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Encode(&buf, sc)
			if !errors.Is(err, scene.ErrInvalid) {
				t.Fatalf("expected scene.ErrInvalid, got %v", err)
			}
			if buf.Len() != 0 {
				t.Fatalf("nothing should be written for an invalid scene: %q", buf.String())
			}
		})
	}
}
