//go:build libime && cgo

package libime

/*
#cgo CXXFLAGS: -std=c++17 -I/usr/include/LibIME -I/usr/include/Fcitx5/Utils
#cgo LDFLAGS: -lIMETable -lIMECore -lstdc++
#include <stdlib.h>
#include <string.h>
#include "shim.h"
*/
import "C"

import (
	"errors"
	"log/slog"
	"runtime/cgo"
	"sync"
	"unsafe"

	"tabledict/internal/engine"
)

// Name is the registry name of this engine.
const Name = "libime"

func init() {
	engine.Register(Name, func(opts engine.Options) (engine.ABI, error) {
		return New(opts), nil
	})
}

var errPath = errors.New("path is not NUL-terminated")

// Engine forwards the ABI to libime instances. Handles index a table of C
// pointers so no C address is ever reinterpreted from an integer.
type Engine struct {
	mu   sync.Mutex
	dict map[engine.Handle]*C.TableDict
	next engine.Handle
	log  *slog.Logger
}

// New returns an engine with no live instances.
func New(opts engine.Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		dict: make(map[engine.Handle]*C.TableDict),
		log:  log.With("engine", Name),
	}
}

func (e *Engine) lookup(h engine.Handle) *C.TableDict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dict[h]
}

func (e *Engine) Create() engine.Handle {
	td := C.td_new()
	if td == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.dict[e.next] = td
	return e.next
}

func (e *Engine) Destroy(h engine.Handle) {
	e.mu.Lock()
	td := e.dict[h]
	delete(e.dict, h)
	e.mu.Unlock()
	if td != nil {
		C.td_free(td)
	}
}

// cpath borrows a NUL-terminated Go slice as a C string for one call.
func cpath(path []byte) (*C.char, error) {
	if len(path) == 0 || path[len(path)-1] != 0 {
		return nil, errPath
	}
	return (*C.char)(unsafe.Pointer(&path[0])), nil
}

// cbytes borrows b for one call. Empty slices become NULL with length 0.
func cbytes(b []byte) (*C.char, C.uint) {
	if len(b) == 0 {
		return nil, 0
	}
	return (*C.char)(unsafe.Pointer(&b[0])), C.uint(len(b))
}

// takeError moves a malloc'd message into errs.
func takeError(msg *C.char, errs *engine.Sink) {
	if msg == nil {
		return
	}
	defer C.free(unsafe.Pointer(msg))
	errs.SetBytes(C.GoBytes(unsafe.Pointer(msg), C.int(C.strlen(msg))))
}

type pathCall func(*C.TableDict, *C.char) *C.char

func (e *Engine) withPath(h engine.Handle, path []byte, errs *engine.Sink, call pathCall) {
	errs.Reset()
	td := e.lookup(h)
	if td == nil {
		errs.Set("invalid handle")
		return
	}
	p, err := cpath(path)
	if err != nil {
		errs.Set(err.Error())
		return
	}
	takeError(call(td, p), errs)
}

func (e *Engine) LoadMain(h engine.Handle, path []byte, errs *engine.Sink) {
	e.withPath(h, path, errs, func(td *C.TableDict, p *C.char) *C.char { return C.td_load_main(td, p) })
}

func (e *Engine) LoadUser(h engine.Handle, path []byte, errs *engine.Sink) {
	e.withPath(h, path, errs, func(td *C.TableDict, p *C.char) *C.char { return C.td_load_user(td, p) })
}

func (e *Engine) SaveUser(h engine.Handle, path []byte, errs *engine.Sink) {
	e.withPath(h, path, errs, func(td *C.TableDict, p *C.char) *C.char { return C.td_save_user(td, p) })
}

// matchCall is what the C side carries through its opaque data word.
type matchCall struct {
	cb  engine.MatchFunc
	ctx uintptr
}

//export goMatchEntry
func goMatchEntry(data C.uintptr_t, code *C.char, codeLen C.uint, word *C.char, wordLen C.uint, index C.uint32_t, flag C.int) {
	call := cgo.Handle(data).Value().(*matchCall)
	call.cb(call.ctx,
		engine.ViewOf(unsafe.Slice((*byte)(unsafe.Pointer(code)), int(codeLen))),
		engine.ViewOf(unsafe.Slice((*byte)(unsafe.Pointer(word)), int(wordLen))),
		uint32(index), engine.PhraseFlag(flag))
}

func (e *Engine) Match(h engine.Handle, key []byte, mode engine.MatchMode, cb engine.MatchFunc, ctx uintptr) bool {
	td := e.lookup(h)
	if td == nil || cb == nil {
		return false
	}
	handle := cgo.NewHandle(&matchCall{cb: cb, ctx: ctx})
	defer handle.Delete()

	k, n := cbytes(key)
	return bool(C.td_match(td, k, n, C.int(mode), C.uintptr_t(handle)))
}

func (e *Engine) ReverseLookup(h engine.Handle, word []byte, flag engine.PhraseFlag, result, errs *engine.Sink) {
	result.Reset()
	errs.Reset()
	td := e.lookup(h)
	if td == nil {
		errs.Set("invalid handle")
		return
	}
	w, n := cbytes(word)
	var code *C.char
	takeError(C.td_reverse_lookup(td, w, n, C.int(flag), &code), errs)
	if code != nil {
		defer C.free(unsafe.Pointer(code))
		result.SetBytes(C.GoBytes(unsafe.Pointer(code), C.int(C.strlen(code))))
	}
}

func (e *Engine) Insert(h engine.Handle, code, word []byte, flag engine.PhraseFlag) bool {
	td := e.lookup(h)
	if td == nil {
		return false
	}
	c, cn := cbytes(code)
	w, wn := cbytes(word)
	return bool(C.td_insert(td, c, cn, w, wn, C.int(flag)))
}

func (e *Engine) Delete(h engine.Handle, code, word []byte) bool {
	td := e.lookup(h)
	if td == nil {
		return false
	}
	c, cn := cbytes(code)
	w, wn := cbytes(word)
	return bool(C.td_remove(td, c, cn, w, wn))
}

func (e *Engine) Stat(h engine.Handle) {
	if td := e.lookup(h); td != nil {
		C.td_statistic(td)
	} else {
		e.log.Warn("stat on invalid handle", "handle", h)
	}
}

var _ engine.ABI = (*Engine)(nil)
