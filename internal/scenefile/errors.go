/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenefile

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every fatal parse error wraps exactly one of these, so callers can
// test with errors.Is(err, scenefile.ErrDuplicateField).
var (
	// structural
	ErrUnexpectedEOF            = errors.New("unexpected end of input")
	ErrExpectedChar             = errors.New("unexpected character")
	ErrUnexpectedFieldSeparator = errors.New("expected ',' or '}' after field")
	ErrEmptyScene               = errors.New("scene is empty")
	ErrTrailingContent          = errors.New("content after closing ']'")

	// lexical
	ErrUnterminatedString = errors.New("unterminated string")
	ErrStringTooLong      = errors.New("string too long")
	ErrUnsupportedEscape  = errors.New("escape sequences are not supported")
	ErrNonASCII           = errors.New("non-ascii character in string")
	ErrMalformedNumber    = errors.New("malformed number")
	ErrMalformedVector    = errors.New("malformed vector")

	// semantic
	ErrMissingTypeKey    = errors.New(`first key must be "type"`)
	ErrUnknownObjectType = errors.New("unknown object type")
	ErrDuplicateField    = errors.New("duplicate field")
	ErrInvalidFieldValue = errors.New("invalid field value")
	ErrInvalidColor      = errors.New("color component out of range [0,255]")
	ErrIncompleteObject  = errors.New("incomplete object")
	ErrDuplicateCamera   = errors.New("scene defines more than one camera")
	ErrMissingCamera     = errors.New("scene has no camera")
	ErrUnknownField      = errors.New("unknown field")
)

// Error is a fatal parse error with its 1-based source line.
// Field, Value, Want and Got are set when they apply to Kind.
type Error struct {
	Kind  error
	Line  int
	Field string // offending key or object type
	Value string // offending value as written
	Want  byte
	Got   byte
	Err   error // underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d: %v", e.Line, e.Kind)
	switch {
	case e.Want != 0:
		fmt.Fprintf(&b, ": want %q, got %s", e.Want, describeByte(e.Got))
	case e.Got != 0:
		fmt.Fprintf(&b, ": got %s", describeByte(e.Got))
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %q", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " = %s", e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a short stable name for the kind of err, or "" if err is not a
// parse error. Used for log attributes and telemetry.
func KindName(err error) string {
	var pe *Error
	if !errors.As(err, &pe) {
		return ""
	}
	for _, k := range kindNames {
		if pe.Kind == k.err {
			return k.name
		}
	}
	return "unknown"
}

var kindNames = []struct {
	err  error
	name string
}{
	{ErrUnexpectedEOF, "unexpected_eof"},
	{ErrExpectedChar, "expected_char"},
	{ErrUnexpectedFieldSeparator, "unexpected_field_separator"},
	{ErrEmptyScene, "empty_scene"},
	{ErrTrailingContent, "trailing_content"},
	{ErrUnterminatedString, "unterminated_string"},
	{ErrStringTooLong, "string_too_long"},
	{ErrUnsupportedEscape, "unsupported_escape"},
	{ErrNonASCII, "non_ascii_character"},
	{ErrMalformedNumber, "malformed_number"},
	{ErrMalformedVector, "malformed_vector"},
	{ErrMissingTypeKey, "missing_type_key"},
	{ErrUnknownObjectType, "unknown_object_type"},
	{ErrDuplicateField, "duplicate_field"},
	{ErrInvalidFieldValue, "invalid_field_value"},
	{ErrInvalidColor, "invalid_color"},
	{ErrIncompleteObject, "incomplete_object"},
	{ErrDuplicateCamera, "duplicate_camera"},
	{ErrMissingCamera, "missing_camera"},
	{ErrUnknownField, "unknown_field"},
}

func describeByte(c byte) string {
	if c == 0 {
		return "end of input"
	}
	if c < 32 || c > 126 {
		return fmt.Sprintf("byte 0x%02x", c)
	}
	return fmt.Sprintf("%q", c)
}
