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

// Package cfgfile loads and saves cmd/gnode's node configuration as TOML,
// the config-file half of spec.md's ambient configuration story (the flag
// half lives in cmd/gnode itself).
package cfgfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/naoina/toml"
)

// settings customizes naoina/toml's field-name mapping so config keys match
// Go field names verbatim (no case-folding surprises) and unknown keys in a
// user-supplied file are reported instead of silently ignored.
var settings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("cfgfile: field %q is not defined in %s.%s", field, rt.PkgPath(), rt.Name())
	},
}

// Load decodes the TOML file at path into cfg, which must be a pointer to a
// struct.
func Load(path string, cfg interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := settings.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("cfgfile: %s: %w", path, err)
	}
	return nil
}

// Save encodes cfg as TOML and writes it to path, creating parent
// directories as needed so a fresh datadir can bootstrap its own config.
func Save(path string, cfg interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return settings.NewEncoder(out).Encode(cfg)
}

// Dump renders cfg as TOML to w, the backing for `gnode dumpconfig`.
func Dump(w io.Writer, cfg interface{}) error {
	return settings.NewEncoder(w).Encode(cfg)
}

// IsNotExist reports whether err indicates a missing config file, letting
// callers fall back to defaults instead of failing startup.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
