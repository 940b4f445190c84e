/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"math"
	"testing"
)

func TestValidateAccepts(t *testing.T) {
	sc := New(&Camera{Width: 1, Height: 1080},
		Sphere{Surface: Surface{Color: Vec3{0, 128, 255}, Position: Vec3{-1e9, 0, 3}}, Radius: 1},
		Plane{Surface: Surface{Color: Vec3{255, 255, 255}}, Normal: Vec3{0, -1, 0}},
	)
	if err := sc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	var none *Scene
	if err := none.Validate(); err != nil {
		t.Fatalf("nil scene: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	inf := math.Inf(1)
	ball := func(color, pos Vec3, r float64) Shape {
		return Sphere{Surface: Surface{Color: color, Position: pos}, Radius: r}
	}
	cases := map[string]*Scene{
		"width below one":   New(&Camera{Width: 0.5, Height: 1}),
		"height zero":       New(&Camera{Width: 1, Height: 0}),
		"width infinite":    New(&Camera{Width: inf, Height: 1}),
		"width nan":         New(&Camera{Width: math.NaN(), Height: 1}),
		"radius below one":  New(nil, ball(Vec3{}, Vec3{}, 0.9)),
		"radius infinite":   New(nil, ball(Vec3{}, Vec3{}, inf)),
		"color too high":    New(nil, ball(Vec3{300, 0, 0}, Vec3{}, 1)),
		"color negative":    New(nil, ball(Vec3{0, -1, 0}, Vec3{}, 1)),
		"color nan":         New(nil, ball(Vec3{0, 0, math.NaN()}, Vec3{}, 1)),
		"position infinite": New(nil, ball(Vec3{}, Vec3{inf, 0, 0}, 1)),
		"normal nan":        New(nil, Plane{Normal: Vec3{math.NaN(), 1, 0}}),
	}
	for name, sc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := sc.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
