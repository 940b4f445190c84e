/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "testing"

func TestNewCopiesInputs(t *testing.T) {
	cam := &Camera{Width: 10, Height: 20}
	objs := []Shape{
		Sphere{Surface: Surface{Color: Vec3{1, 2, 3}}, Radius: 1},
		Plane{Normal: Vec3{0, 1, 0}},
	}
	sc := New(cam, objs...)
	cam.Width = 99
	objs[0] = Plane{}

	got, ok := sc.Camera()
	if !ok || got.Width != 10 {
		t.Fatalf("camera changed through caller pointer: %+v", got)
	}
	if _, ok := sc.Objects()[0].(Sphere); !ok {
		t.Fatalf("objects changed through caller slice")
	}

	out := sc.Objects()
	out[1] = Sphere{}
	if _, ok := sc.Objects()[1].(Plane); !ok {
		t.Fatalf("Objects should return a copy")
	}
	if s, p := sc.Counts(); s != 1 || p != 1 {
		t.Fatalf("Counts = %d, %d", s, p)
	}
}

func TestShapeKinds(t *testing.T) {
	var s Shape = Sphere{Surface: Surface{Position: Vec3{1, 0, 0}}}
	if s.Kind() != KindSphere || s.Common().Position != (Vec3{1, 0, 0}) {
		t.Fatalf("sphere kind/common mismatch")
	}
	s = Plane{}
	if s.Kind() != KindPlane {
		t.Fatalf("plane kind mismatch")
	}
}

func TestNilSceneAccessors(t *testing.T) {
	var sc *Scene
	if _, ok := sc.Camera(); ok || sc.Len() != 0 || sc.Objects() != nil {
		t.Fatalf("nil scene should be empty")
	}
}
