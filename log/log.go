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

// Package log is a small, leveled, key-value logger in the shape of geth's
// classic log15 API (Trace/Debug/Info/Warn/Error/Crit, each taking a
// message and an alternating key-value varargs list). Long-lived
// components such as p2p.Server, discover.Table and the downloader hold a
// Logger scoped with their own keys; core.BlockChain logs through the
// package-level functions on the root logger.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a log severity level, ordered most to least severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "crit"
	case LvlError:
		return "eror"
	case LvlWarn:
		return "warn"
	case LvlInfo:
		return "info"
	case LvlDebug:
		return "dbug"
	case LvlTrace:
		return "trce"
	default:
		return "unkn"
	}
}

// Record is one emitted log line.
type Record struct {
	Time  time.Time
	Lvl   Lvl
	Msg   string
	Ctx   []interface{}
	Call  stack.Call
	KeyNames RecordKeyNames
}

// RecordKeyNames names the well-known positional fields of a Record so a
// Format can find them regardless of what the caller's own keys are named.
type RecordKeyNames struct {
	Time string
	Msg  string
	Lvl  string
}

// Logger emits leveled, key-value log records. A Logger's context
// (key-value pairs attached via New) is prepended to every record's own
// context.
type Logger interface {
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})

	GetHandler() Handler
	SetHandler(h Handler)
}

// Handler writes a Record somewhere (terminal, file, discard).
type Handler interface {
	Log(r *Record) error
}

// FuncHandler turns a function into a Handler.
type FuncHandler func(r *Record) error

func (h FuncHandler) Log(r *Record) error { return h(r) }

type logger struct {
	ctx []interface{}
	h   *swapHandler
}

type swapHandler struct {
	mu sync.RWMutex
	h  Handler
}

func (s *swapHandler) Log(r *Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h.Log(r)
}

func (s *swapHandler) Swap(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

func (s *swapHandler) Get() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

// New returns a Logger with ctx appended to its context. Components use
// this to scope a logger with identifying keys, e.g.
// log.New("peer", id.String()).
func New(ctx ...interface{}) Logger {
	root.mu.RLock()
	defer root.mu.RUnlock()
	return root.l.New(ctx...)
}

func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{h: l.h, ctx: newContext(l.ctx, ctx)}
	return child
}

func newContext(prefix []interface{}, suffix []interface{}) []interface{} {
	normalizedSuffix := normalize(suffix)
	newCtx := make([]interface{}, len(prefix)+len(normalizedSuffix))
	n := copy(newCtx, prefix)
	copy(newCtx[n:], normalizedSuffix)
	return newCtx
}

func normalize(ctx []interface{}) []interface{} {
	if len(ctx)%2 != 0 {
		ctx = append(ctx, nil, "LOG_ERROR: odd number of arguments")
	}
	return ctx
}

func (l *logger) write(msg string, lvl Lvl, ctx []interface{}, skip int) {
	l.h.Log(&Record{
		Time: time.Now(),
		Lvl:  lvl,
		Msg:  msg,
		Ctx:  newContext(l.ctx, ctx),
		Call: stack.Caller(skip),
	})
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(msg, LvlTrace, ctx, 2) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(msg, LvlDebug, ctx, 2) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(msg, LvlInfo, ctx, 2) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(msg, LvlWarn, ctx, 2) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(msg, LvlError, ctx, 2) }

// Crit logs at LvlCrit and terminates the process, matching geth's "this is
// unrecoverable" convention (spec.md §7 "Logical inconsistencies ... fatal
// to the process; fail fast").
func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(msg, LvlCrit, ctx, 2)
	os.Exit(1)
}

func (l *logger) GetHandler() Handler { return l.h.Get() }
func (l *logger) SetHandler(h Handler) { l.h.Swap(h) }

type rootLogger struct {
	mu sync.RWMutex
	l  *logger
}

var root = &rootLogger{l: &logger{h: new(swapHandler)}}

func init() {
	root.l.h.Swap(StreamHandler(defaultOutput(), TerminalFormat(defaultOutput())))
}

func defaultOutput() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return colorable.NewColorableStderr()
	}
	return os.Stderr
}

// Root returns the root logger, the ancestor of every Logger returned by
// New.
func Root() Logger { return root.l }

// StreamHandler writes records to w using format.
func StreamHandler(w io.Writer, fmtr Format) Handler {
	h := FuncHandler(func(r *Record) error {
		_, err := w.Write(fmtr.Format(r))
		return err
	})
	return syncHandler(h)
}

func syncHandler(h Handler) Handler {
	var mu sync.Mutex
	return FuncHandler(func(r *Record) error {
		mu.Lock()
		defer mu.Unlock()
		return h.Log(r)
	})
}

// LvlFilterHandler drops records above the given level before passing them
// to h.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		if r.Lvl > maxLvl {
			return nil
		}
		return h.Log(r)
	})
}

// Package-level convenience wrappers over Root(), the call shape every
// component's ad-hoc logging (outside its own scoped Logger) uses.
func Trace(msg string, ctx ...interface{}) { root.l.write(msg, LvlTrace, ctx, 2) }
func Debug(msg string, ctx ...interface{}) { root.l.write(msg, LvlDebug, ctx, 2) }
func Info(msg string, ctx ...interface{})  { root.l.write(msg, LvlInfo, ctx, 2) }
func Warn(msg string, ctx ...interface{})  { root.l.write(msg, LvlWarn, ctx, 2) }
func Error(msg string, ctx ...interface{}) { root.l.write(msg, LvlError, ctx, 2) }
func Crit(msg string, ctx ...interface{})  { root.l.Crit(msg, ctx...) }

// fmtErr renders a ctx value as its Error() text when it is an error, and
// with %+v otherwise.
func fmtErr(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%+v", v)
}
