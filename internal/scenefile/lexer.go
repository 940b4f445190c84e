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
	"strconv"
	"strings"

	"raycast/internal/scene"
)

const (
	maxStringLen = 128
	maxNumberLen = 64
)

// readString reads a double-quoted string. Only printable ASCII is allowed and
// there are no escape sequences.
func (c *cursor) readString() (string, error) {
	if err := c.expect('"'); err != nil {
		return "", err
	}
	start := c.line
	var b strings.Builder
	for {
		ch, err := c.next()
		if err != nil {
			return "", &Error{Kind: ErrUnterminatedString, Line: start, Value: quoteShort(b.String())}
		}
		switch {
		case ch == '"':
			return b.String(), nil
		case ch == '\n':
			return "", &Error{Kind: ErrUnterminatedString, Line: start, Value: quoteShort(b.String())}
		case ch == '\\':
			return "", c.fail(ErrUnsupportedEscape)
		case ch < 32 || ch > 126:
			return "", &Error{Kind: ErrNonASCII, Line: c.line, Got: ch}
		}
		if b.Len() == maxStringLen {
			return "", &Error{Kind: ErrStringTooLong, Line: c.line, Value: quoteShort(b.String())}
		}
		b.WriteByte(ch)
	}
}

// readNumber reads a decimal floating point literal. The byte that ends the literal
// is left in the input.
func (c *cursor) readNumber() (float64, error) {
	var lex []byte
	for {
		ch, err := c.next()
		if err != nil {
			return 0, &Error{Kind: ErrMalformedNumber, Line: c.line, Value: string(lex), Err: ErrUnexpectedEOF}
		}
		if !isNumberByte(ch) {
			c.unread()
			break
		}
		if len(lex) == maxNumberLen {
			return 0, &Error{Kind: ErrMalformedNumber, Line: c.line, Value: string(lex) + "..."}
		}
		lex = append(lex, ch)
	}
	if len(lex) == 0 {
		ch, _ := c.peek()
		return 0, &Error{Kind: ErrMalformedNumber, Line: c.line, Got: ch}
	}
	v, err := strconv.ParseFloat(string(lex), 64)
	if err != nil {
		return 0, &Error{Kind: ErrMalformedNumber, Line: c.line, Value: string(lex), Err: unwrapNumErr(err)}
	}
	return v, nil
}

// readVector3 reads exactly "[a, b, c]" with optional blanks around every element.
func (c *cursor) readVector3() (scene.Vec3, error) {
	var v scene.Vec3
	line := c.line
	if err := c.vectorDelim('['); err != nil {
		return v, err
	}
	for i := range v {
		if err := c.skipWhitespace(); err != nil {
			return v, err
		}
		n, err := c.readNumber()
		if err != nil {
			if isEOF(err) {
				return v, c.fail(ErrUnexpectedEOF)
			}
			return v, &Error{Kind: ErrMalformedVector, Line: line, Err: err}
		}
		v[i] = n
		if err := c.skipWhitespace(); err != nil {
			return v, err
		}
		d := byte(',')
		if i == len(v)-1 {
			d = ']'
		}
		if err := c.vectorDelim(d); err != nil {
			return v, err
		}
	}
	return v, nil
}

func (c *cursor) vectorDelim(d byte) error {
	err := c.expect(d)
	if err == nil || isEOF(err) {
		return err
	}
	pe, ok := err.(*Error)
	if !ok {
		return err
	}
	pe.Kind = ErrMalformedVector
	return pe
}

// skipValue consumes the value of an unrecognized field.
func (c *cursor) skipValue() error {
	ch, err := c.peek()
	if err != nil {
		return err
	}
	switch ch {
	case '"':
		_, err = c.readString()
	case '[':
		_, err = c.readVector3()
	default:
		_, err = c.readNumber()
	}
	return err
}

func isNumberByte(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.' || ch == 'e' || ch == 'E'
}

func isEOF(err error) bool { return errors.Is(err, ErrUnexpectedEOF) }

func unwrapNumErr(err error) error {
	if ne, ok := err.(*strconv.NumError); ok {
		return ne.Err
	}
	return err
}

func quoteShort(s string) string {
	if len(s) > 24 {
		s = s[:24] + "..."
	}
	return strconv.Quote(s)
}
