/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenefile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"raycast/internal/scene"
)

// Encode writes sc in the scene file grammar, one object per line with the camera
// first. Scenes that fail sc.Validate are rejected, so parsing the output yields a
// scene equal to sc.
func Encode(w io.Writer, sc *scene.Scene) error {
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	var entries []string
	if cam, ok := sc.Camera(); ok {
		entries = append(entries, fmt.Sprintf(`{"type": "camera", "width": %s, "height": %s}`,
			formatFloat(cam.Width), formatFloat(cam.Height)))
	}
	for i, o := range sc.Objects() {
		switch o := o.(type) {
		case scene.Sphere:
			entries = append(entries, fmt.Sprintf(`{"type": "sphere", "color": %s, "position": %s, "radius": %s}`,
				formatVec(o.Color), formatVec(o.Position), formatFloat(o.Radius)))
		case scene.Plane:
			entries = append(entries, fmt.Sprintf(`{"type": "plane", "color": %s, "position": %s, "normal": %s}`,
				formatVec(o.Color), formatVec(o.Position), formatVec(o.Normal)))
		default:
			return fmt.Errorf("encode object %d: unsupported shape %T", i, o)
		}
	}
	if len(entries) == 0 {
		return fmt.Errorf("encode: %w", ErrEmptyScene)
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "[\n  %s\n]\n", strings.Join(entries, ",\n  ")); err != nil {
		return err
	}
	return bw.Flush()
}

func formatVec(v scene.Vec3) string {
	return "[" + formatFloat(v[0]) + ", " + formatFloat(v[1]) + ", " + formatFloat(v[2]) + "]"
}
