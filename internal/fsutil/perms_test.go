// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMkdirAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != PrivateDirPerm {
		t.Errorf("mode = %o, want %o", got, PrivateDirPerm)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := WriteFile(path, []byte("x")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != PrivateFilePerm {
		t.Errorf("mode = %o, want %o", got, PrivateFilePerm)
	}
}

func TestCreateFile_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	f, err := CreateFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	_ = f.Close()

	_, err = CreateFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("second CreateFile() error = %v, want os.ErrExist", err)
	}
}
