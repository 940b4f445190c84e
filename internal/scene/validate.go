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
	"fmt"
	"math"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid scene")

// Validate checks the constraints the scene file grammar enforces: camera width and
// height and sphere radius at least 1, color components in [0,255] and every number
// finite. A nil scene is valid.
func (s *Scene) Validate() error {
	if cam, ok := s.Camera(); ok {
		if err := minOne("camera width", cam.Width); err != nil {
			return err
		}
		if err := minOne("camera height", cam.Height); err != nil {
			return err
		}
	}
	for i, o := range s.Objects() {
		surf := o.Common()
		for _, c := range surf.Color {
			if math.IsNaN(c) || c < 0 || c > 255 {
				return fmt.Errorf("%w: object %d (%s): color %v out of range [0,255]", ErrInvalid, i, o.Kind(), surf.Color)
			}
		}
		if err := finite(i, o.Kind(), "position", surf.Position); err != nil {
			return err
		}
		switch o := o.(type) {
		case Sphere:
			if err := minOne(fmt.Sprintf("object %d (sphere): radius", i), o.Radius); err != nil {
				return err
			}
		case Plane:
			if err := finite(i, o.Kind(), "normal", o.Normal); err != nil {
				return err
			}
		}
	}
	return nil
}

func minOne(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return fmt.Errorf("%w: %s %g must be a finite number >= 1", ErrInvalid, what, v)
	}
	return nil
}

func finite(i int, k Kind, name string, v Vec3) error {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: object %d (%s): %s %v is not finite", ErrInvalid, i, k, name, v)
		}
	}
	return nil
}
