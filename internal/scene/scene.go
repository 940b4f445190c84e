/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the validated, in-memory scene model handed to the renderer.
// Values in this package are produced by the scenefile parser (or built directly with
// New) and are not mutated afterwards.
package scene

import "fmt"

// Vec3 is an ordered triple used for colors, positions and normals.
type Vec3 [3]float64

func (v Vec3) String() string { return fmt.Sprintf("[%g, %g, %g]", v[0], v[1], v[2]) }

// Camera describes the image plane size.
type Camera struct {
	Width  float64
	Height float64
}

// Kind names the geometric object type as it appears in the "type" field.
type Kind string

const (
	KindCamera Kind = "camera"
	KindSphere Kind = "sphere"
	KindPlane  Kind = "plane"
)

// Surface holds the fields shared by every geometric object.
type Surface struct {
	Color    Vec3 // components in [0,255]
	Position Vec3
}

// Shape is a geometric object in the scene. The set of implementations is closed:
// Sphere and Plane.
type Shape interface {
	Kind() Kind
	Common() Surface
	isShape()
}

// Sphere is a ball of Radius centred on Position.
type Sphere struct {
	Surface
	Radius float64
}

func (Sphere) Kind() Kind { return KindSphere }
func (s Sphere) Common() Surface { return s.Surface }
func (Sphere) isShape() {}
func (s Sphere) String() string {
	return fmt.Sprintf("Sphere{color:%v position:%v radius:%g}", s.Color, s.Position, s.Radius)
}

// Plane is the infinite plane through Position perpendicular to Normal.
type Plane struct {
	Surface
	Normal Vec3
}

func (Plane) Kind() Kind { return KindPlane }
func (p Plane) Common() Surface { return p.Surface }
func (Plane) isShape() {}
func (p Plane) String() string {
	return fmt.Sprintf("Plane{color:%v position:%v normal:%v}", p.Color, p.Position, p.Normal)
}

// Scene is an optional camera plus geometric objects in encounter order.
type Scene struct {
	camera  *Camera
	objects []Shape
}

// New builds a scene from a camera (nil for none) and objects. The slice is copied.
func New(cam *Camera, objects ...Shape) *Scene {
	sc := &Scene{objects: append([]Shape(nil), objects...)}
	if cam != nil {
		c := *cam
		sc.camera = &c
	}
	return sc
}

// Camera returns the scene camera and whether one was defined.
func (s *Scene) Camera() (Camera, bool) {
	if s == nil || s.camera == nil {
		return Camera{}, false
	}
	return *s.camera, true
}

// Objects returns a copy of the geometric objects in encounter order.
func (s *Scene) Objects() []Shape {
	if s == nil {
		return nil
	}
	return append([]Shape(nil), s.objects...)
}

// Len reports the number of geometric objects.
func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	return len(s.objects)
}

// Counts returns the number of spheres and planes.
func (s *Scene) Counts() (spheres, planes int) {
	for _, o := range s.Objects() {
		switch o.(type) {
		case Sphere:
			spheres++
		case Plane:
			planes++
		}
	}
	return spheres, planes
}

func (s *Scene) String() string {
	cam := "none"
	if c, ok := s.Camera(); ok {
		cam = fmt.Sprintf("{width:%g height:%g}", c.Width, c.Height)
	}
	return fmt.Sprintf("Scene{camera:%s objects:%v}", cam, s.Objects())
}
