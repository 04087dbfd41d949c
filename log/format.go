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

package log

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
)

const timeFormat = "2006-01-02T15:04:05-0700"
const floatFormat = 'f'
const termMsgJust = 40

// Format turns a Record into a byte slice ready to write to a Handler's
// output.
type Format interface {
	Format(r *Record) []byte
}

// FormatFunc turns a function into a Format.
type FormatFunc func(*Record) []byte

func (f FormatFunc) Format(r *Record) []byte { return f(r) }

var (
	colorBold  = []byte{0x1b, '[', '1', 'm'}
	colorReset = []byte{0x1b, '[', '0', 'm'}
)

// lvlColor maps a level to its ANSI color code, matching geth's classic
// log15 palette: magenta for crit, red for error, yellow for warn, green
// for info, cyan for debug, none for trace.
func lvlColor(l Lvl) int {
	switch l {
	case LvlCrit:
		return 35
	case LvlError:
		return 31
	case LvlWarn:
		return 33
	case LvlInfo:
		return 32
	case LvlDebug:
		return 36
	default:
		return 0
	}
}

// TerminalFormat renders a Record as a human-readable, optionally colored
// line: "LVL[timestamp] msg key=value ...". The level name is wrapped in
// ANSI color codes for every level but trace; w is not consulted, so the
// codes are written whether or not the output is a terminal.
func TerminalFormat(w io.Writer) Format {
	return FormatFunc(func(r *Record) []byte {
		var b bytes.Buffer
		color := lvlColor(r.Lvl)
		if color != 0 {
			fmt.Fprintf(&b, "\x1b[%dm%s\x1b[0m[%s] %s ", color, r.Lvl.String(), r.Time.Format(timeFormat), r.Msg)
		} else {
			fmt.Fprintf(&b, "%s[%s] %s ", r.Lvl.String(), r.Time.Format(timeFormat), r.Msg)
		}
		for i := 0; i < len(r.Ctx); i += 2 {
			k, v := r.Ctx[i], r.Ctx[i+1]
			fmt.Fprintf(&b, "%v=%s ", k, formatValue(v))
		}
		b.WriteByte('\n')
		return b.Bytes()
	})
}

// LogfmtFormat renders a Record as plain key=value pairs without color
// codes. The root logger does not install it; its default handler always
// uses TerminalFormat.
func LogfmtFormat() Format {
	return FormatFunc(func(r *Record) []byte {
		var b bytes.Buffer
		fmt.Fprintf(&b, "t=%s lvl=%s msg=%s", r.Time.Format(timeFormat), r.Lvl.String(), strconv.Quote(r.Msg))
		for i := 0; i < len(r.Ctx); i += 2 {
			fmt.Fprintf(&b, " %v=%s", r.Ctx[i], formatValue(r.Ctx[i+1]))
		}
		b.WriteByte('\n')
		return b.Bytes()
	})
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case error:
		return strconv.Quote(v.Error())
	case fmt.Stringer:
		return strconv.Quote(v.String())
	default:
		return fmt.Sprintf("%+v", v)
	}
}

// sortedKeys returns the keys of a Record's context in sorted order,
// regardless of insertion order.
func sortedKeys(ctx []interface{}) []string {
	keys := make([]string, 0, len(ctx)/2)
	for i := 0; i < len(ctx); i += 2 {
		keys = append(keys, fmt.Sprintf("%v", ctx[i]))
	}
	sort.Strings(keys)
	return keys
}
