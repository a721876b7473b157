// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFromBytes(t *testing.T) {
	source := []byte("0123456789abcdef0123456789abcdef")
	want := bytes.Clone(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), want) {
		t.Errorf("Bytes() = %q, want %q", buffer.Bytes(), want)
	}
	if buffer.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", buffer.Len(), len(want))
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d after NewFromBytes, want 0", index, value)
		}
	}
}

func TestNewFromBytes_Empty(t *testing.T) {
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) should fail")
	}
}

func TestNew_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) should fail", size)
		}
	}
}

func TestCopyTo(t *testing.T) {
	buffer, err := NewFromBytes([]byte("sealing-key"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}

	destination := make([]byte, 32)
	n, ok := buffer.CopyTo(destination)
	if !ok || n != len("sealing-key") || string(destination[:n]) != "sealing-key" {
		t.Errorf("CopyTo = %d, %v, %q", n, ok, destination[:n])
	}

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n, ok := buffer.CopyTo(destination); ok || n != 0 {
		t.Errorf("CopyTo after Close = %d, %v; want 0, false", n, ok)
	}
}

func TestClose_Idempotent(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !buffer.Closed() {
		t.Error("Closed() = false after Close")
	}
	if buffer.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", buffer.Len())
	}
}

func TestBytes_PanicsAfterClose(t *testing.T) {
	buffer, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Error("Bytes() after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestReadFromPath_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  4c0883a6\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if string(buffer.Bytes()) != "4c0883a6" {
		t.Errorf("ReadFromPath = %q, want %q", buffer.Bytes(), "4c0883a6")
	}
}

func TestReadFromPath_WhitespaceOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte(" \n\t"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath accepted a whitespace-only file")
	}
}

func TestReadFromPath_Missing(t *testing.T) {
	_, err := ReadFromPath(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFromPath(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestReadLine(t *testing.T) {
	buffer, err := ReadLine(strings.NewReader(" 0xabc \nsecond line\n"))
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	defer buffer.Close()

	if string(buffer.Bytes()) != "0xabc" {
		t.Errorf("ReadLine = %q, want %q", buffer.Bytes(), "0xabc")
	}
}

func TestReadLine_Empty(t *testing.T) {
	for _, input := range []string{"", "   \n"} {
		if _, err := ReadLine(strings.NewReader(input)); !errors.Is(err, ErrEmpty) {
			t.Errorf("ReadLine(%q) error = %v, want ErrEmpty", input, err)
		}
	}
}
