// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmpty is returned when a secret source holds only whitespace.
var ErrEmpty = errors.New("secret: source is empty")

// ReadFromPath reads the file at path into a Buffer with surrounding
// whitespace trimmed. Errors from opening the file are returned
// unwrapped so callers can test for fs.ErrNotExist.
func ReadFromPath(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return protect(data)
}

// ReadLine reads the first line of r into a Buffer with surrounding
// whitespace trimmed. Used for keys piped on stdin.
func ReadLine(r io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading line: %w", err)
		}
		return nil, ErrEmpty
	}
	line := scanner.Bytes()
	buffer, err := protect(line)
	// The scanner's internal buffer still holds the line.
	Zero(line)
	return buffer, err
}

// protect moves the trimmed content of data into a Buffer and zeroes
// all of data.
func protect(data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, ErrEmpty
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
