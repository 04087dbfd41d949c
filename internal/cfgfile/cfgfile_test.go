// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package cfgfile

import (
	"bytes"
	"path/filepath"
	"testing"
)

type testConfig struct {
	DataDir  string
	MaxPeers int
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gnode.toml")

	want := testConfig{DataDir: "/tmp/data", MaxPeers: 25}
	if err := Save(path, &want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got testConfig
	if err := Load(path, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	var cfg testConfig
	err := Load(filepath.Join(dir, "absent.toml"), &cfg)
	if err == nil {
		t.Fatalf("expected an error loading a missing file")
	}
	if !IsNotExist(err) {
		t.Fatalf("expected IsNotExist to recognize a missing-file error, got %v", err)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gnode.toml")
	if err := Save(path, &struct{ Typo string }{Typo: "oops"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatalf("expected an unrecognized key to be rejected")
	}
}

func TestDumpWritesTOML(t *testing.T) {
	var buf bytes.Buffer
	if err := Dump(&buf, &testConfig{DataDir: "/x", MaxPeers: 5}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected Dump to write non-empty TOML output")
	}
}
