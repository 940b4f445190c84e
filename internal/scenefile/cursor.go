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
	"errors"
	"io"
)

// cursor reads the input one byte at a time and tracks the current line.
// It supports a single byte of pushback.
type cursor struct {
	r    *bufio.Reader
	line int
	last byte // most recently consumed byte, for unread
}

func newCursor(r io.Reader) *cursor {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &cursor{r: br, line: 1}
}

// next consumes one byte. End of input is always fatal at this layer.
func (c *cursor) next() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, c.fail(ErrUnexpectedEOF)
		}
		return 0, &Error{Kind: ErrUnexpectedEOF, Line: c.line, Err: err}
	}
	if b == '\n' {
		c.line++
	}
	c.last = b
	return b, nil
}

// unread pushes back the byte returned by the last call to next. Every call must
// directly follow a successful next; a second pushback would desync the line count.
func (c *cursor) unread() {
	if err := c.r.UnreadByte(); err != nil {
		panic("scenefile: unread without a preceding next: " + err.Error())
	}
	if c.last == '\n' {
		c.line--
	}
	c.last = 0
}

// peek returns the next byte without consuming it.
func (c *cursor) peek() (byte, error) {
	b, err := c.next()
	if err != nil {
		return 0, err
	}
	c.unread()
	return b, nil
}

// atEOF reports whether the input is exhausted.
func (c *cursor) atEOF() bool {
	_, err := c.r.Peek(1)
	return err != nil
}

// expect consumes one byte and requires it to be d.
func (c *cursor) expect(d byte) error {
	b, err := c.next()
	if err != nil {
		return err
	}
	if b != d {
		line := c.line
		if b == '\n' {
			line--
		}
		return &Error{Kind: ErrExpectedChar, Line: line, Want: d, Got: b}
	}
	return nil
}

// skipWhitespace consumes blanks and leaves the cursor on the first other byte.
func (c *cursor) skipWhitespace() error {
	for {
		b, err := c.next()
		if err != nil {
			return err
		}
		if !isSpace(b) {
			c.unread()
			return nil
		}
	}
}

func (c *cursor) fail(kind error) *Error { return &Error{Kind: kind, Line: c.line} }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
