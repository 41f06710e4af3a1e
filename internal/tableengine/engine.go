// Package tableengine is a pure-Go table dictionary engine that speaks the
// engine ABI.
//
// Main dictionaries use the libime text table format; the user overlay is
// kept in a SQLite file. The engine reports failures only through the
// ABI's sinks and return values, never by panicking, so the calling layer
// sees exactly what it would see from a native engine.
package tableengine

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"unicode/utf8"

	"tabledict/internal/engine"
)

// Name is the registry name of this engine.
const Name = "go"

func init() {
	engine.Register(Name, func(opts engine.Options) (engine.ABI, error) {
		return New(opts), nil
	})
}

// Engine holds every live instance, keyed by handle.
type Engine struct {
	mu     sync.Mutex
	tables map[engine.Handle]*table
	next   engine.Handle
	out    io.Writer
	log    *slog.Logger
}

var _ engine.ABI = (*Engine)(nil)

// New creates an engine with no instances.
func New(opts engine.Options) *Engine {
	e := &Engine{
		tables: make(map[engine.Handle]*table),
		out:    opts.StatOutput,
		log:    opts.Logger,
	}
	if e.out == nil {
		e.out = os.Stdout
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.log = e.log.With(slog.String("engine", Name))
	return e
}

// Live returns the number of instances not yet destroyed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tables)
}

func (e *Engine) Create() engine.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.next++
	e.tables[e.next] = newTable()
	e.log.Debug("instance created", "handle", uint64(e.next))
	return e.next
}

func (e *Engine) Destroy(h engine.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tables[h]; !ok {
		e.log.Error("destroy of unknown handle", "handle", uint64(h))
		return
	}
	delete(e.tables, h)
	e.log.Debug("instance destroyed", "handle", uint64(h))
}

func (e *Engine) lookup(h engine.Handle) *table {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.tables[h]
	if t == nil {
		e.log.Error("call on unknown handle", "handle", uint64(h))
	}
	return t
}

func (e *Engine) LoadMain(h engine.Handle, path []byte, errs *engine.Sink) {
	t := e.lookup(h)
	if t == nil {
		errs.Set("invalid handle")
		return
	}
	p, err := decodePath(path)
	if err != nil {
		errs.Set(err.Error())
		return
	}
	if err := t.loadMain(p); err != nil {
		errs.Set(err.Error())
		return
	}
	e.log.Debug("main dictionary loaded", "path", p, "entries", len(t.main))
}

func (e *Engine) LoadUser(h engine.Handle, path []byte, errs *engine.Sink) {
	t := e.lookup(h)
	if t == nil {
		errs.Set("invalid handle")
		return
	}
	p, err := decodePath(path)
	if err != nil {
		errs.Set(err.Error())
		return
	}
	if err := t.loadUser(p); err != nil {
		errs.Set(err.Error())
		return
	}
	e.log.Debug("user dictionary loaded", "path", p, "entries", len(t.user))
}

func (e *Engine) SaveUser(h engine.Handle, path []byte, errs *engine.Sink) {
	t := e.lookup(h)
	if t == nil {
		errs.Set("invalid handle")
		return
	}
	p, err := decodePath(path)
	if err != nil {
		errs.Set(err.Error())
		return
	}
	if err := t.saveUser(p); err != nil {
		errs.Set(err.Error())
		return
	}
	e.log.Debug("user dictionary saved", "path", p, "entries", len(t.user))
}

func (e *Engine) Match(h engine.Handle, key []byte, mode engine.MatchMode, cb engine.MatchFunc, ctx uintptr) bool {
	t := e.lookup(h)
	if t == nil || cb == nil {
		return false
	}
	return t.match(string(key), mode, func(code, word string, index uint32, flag engine.PhraseFlag) {
		// Views share one scratch buffer that the next entry overwrites.
		t.scratch = append(append(t.scratch[:0], code...), word...)
		cb(ctx,
			engine.ViewOf(t.scratch[:len(code):len(code)]),
			engine.ViewOf(t.scratch[len(code):]),
			index, flag)
	})
}

func (e *Engine) ReverseLookup(h engine.Handle, word []byte, flag engine.PhraseFlag, result, errs *engine.Sink) {
	t := e.lookup(h)
	if t == nil {
		errs.Set("invalid handle")
		return
	}
	switch {
	case len(word) == 0:
		errs.Set("empty word")
		return
	case !utf8.Valid(word):
		errs.Set("word is not valid UTF-8")
		return
	case !flag.Valid() || flag == engine.FlagInvalid:
		errs.Set(fmt.Sprintf("cannot look up by flag %v", flag))
		return
	}
	result.Set(t.reverseLookup(string(word), flag))
}

func (e *Engine) Insert(h engine.Handle, code, word []byte, flag engine.PhraseFlag) bool {
	t := e.lookup(h)
	if t == nil {
		return false
	}
	if err := t.insert(string(code), string(word), flag); err != nil {
		e.log.Debug("insert refused", "code", string(code), "error", err)
		return false
	}
	return true
}

func (e *Engine) Delete(h engine.Handle, code, word []byte) bool {
	t := e.lookup(h)
	if t == nil {
		return false
	}
	return t.remove(string(code), string(word))
}

func (e *Engine) Stat(h engine.Handle) {
	t := e.lookup(h)
	if t == nil {
		return
	}
	t.statistic(e.out)
}

// decodePath checks the NUL terminator the ABI requires and strips it.
func decodePath(path []byte) (string, error) {
	i := bytes.IndexByte(path, 0)
	if i < 0 {
		return "", fmt.Errorf("path is not NUL-terminated")
	}
	if i == 0 {
		return "", fmt.Errorf("empty path")
	}
	return string(path[:i]), nil
}
