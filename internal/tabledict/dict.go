// Package tabledict is the safe face of a table dictionary engine.
//
// A Dict exclusively owns one engine instance. It converts Go strings to the
// byte-and-length form the engine takes, turns out-parameter error messages
// into error values, and copies every callback result into owned memory
// before the engine call returns. Callers never see a Handle, a Sink or a
// View.
package tabledict

import (
	"fmt"
	"log/slog"
	"runtime"

	"tabledict/internal/engine"
)

// PhraseFlag tags the provenance of an entry.
type PhraseFlag = engine.PhraseFlag

const (
	FlagNone            = engine.FlagNone
	FlagPinyin          = engine.FlagPinyin
	FlagPrompt          = engine.FlagPrompt
	FlagConstructPhrase = engine.FlagConstructPhrase
	FlagUser            = engine.FlagUser
	FlagAuto            = engine.FlagAuto
	FlagInvalid         = engine.FlagInvalid
)

// MatchMode selects exact or prefix matching.
type MatchMode = engine.MatchMode

const (
	Exact  = engine.MatchExact
	Prefix = engine.MatchPrefix
)

// WordEntry is one dictionary entry. It shares no memory with the engine.
type WordEntry struct {
	Code  string
	Word  string
	Index uint32
	Flag  PhraseFlag
}

func (w WordEntry) String() string {
	return fmt.Sprintf("%s %s %d %s", w.Code, w.Word, w.Index, w.Flag)
}

// Options selects the dictionaries to load. Empty paths are not loaded.
type Options struct {
	MainPath string
	UserPath string
	Logger   *slog.Logger
}

// noCopy makes go vet flag copies of a Dict.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Dict owns one engine instance. Use it through a pointer only; Close
// releases the instance and any further use panics.
type Dict struct {
	noCopy noCopy

	abi      engine.ABI
	h        engine.Handle
	userPath string
	errs     engine.Sink
	log      *slog.Logger
	cleanup  runtime.Cleanup
}

// Open creates an engine instance and loads the main dictionary, then the
// user dictionary. If either load fails the instance is destroyed before
// Open returns the *LoadError. Open panics if the engine cannot allocate an
// instance.
func Open(abi engine.ABI, opts Options) (*Dict, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	h := abi.Create()
	if h == 0 {
		panic("tabledict: engine failed to allocate an instance")
	}
	d := &Dict{
		abi:      abi,
		h:        h,
		userPath: opts.UserPath,
		log:      log,
	}

	if err := d.load(MainDict, opts.MainPath, abi.LoadMain); err != nil {
		abi.Destroy(h)
		return nil, err
	}
	if err := d.load(UserDict, opts.UserPath, abi.LoadUser); err != nil {
		abi.Destroy(h)
		return nil, err
	}

	// Backstop for a Dict dropped without Close. Close cancels it, so the
	// instance is still destroyed once. Methods that pass d.h to the engine
	// keep d alive until the call returns.
	d.cleanup = runtime.AddCleanup(d, func(h engine.Handle) {
		log.Warn("dictionary was not closed", "handle", uint64(h))
		abi.Destroy(h)
	}, h)

	log.Debug("dictionary opened", "main", opts.MainPath, "user", opts.UserPath)
	return d, nil
}

func (d *Dict) load(which Which, path string, fn func(engine.Handle, []byte, *engine.Sink)) error {
	if path == "" {
		return nil
	}
	cpath, err := encodePath(path)
	if err != nil {
		return &LoadError{Which: which, Path: path, Err: err}
	}
	if err := d.call(func(errs *engine.Sink) { fn(d.h, cpath, errs) }); err != nil {
		return &LoadError{Which: which, Path: path, Err: err}
	}
	return nil
}

// handle returns the live instance or panics after Close.
func (d *Dict) handle() engine.Handle {
	if d.h == 0 {
		panic("tabledict: use of closed Dict")
	}
	return d.h
}

// Close destroys the engine instance. Calling it again does nothing.
func (d *Dict) Close() error {
	if d.h == 0 {
		return nil
	}
	d.cleanup.Stop()
	d.abi.Destroy(d.h)
	d.h = 0
	d.log.Debug("dictionary closed")
	return nil
}

// UserPath returns the user dictionary path given to Open, if any.
func (d *Dict) UserPath() string { return d.userPath }

// MatchWords returns the entries whose code matches query under mode. No
// match is an empty result, not an error.
func (d *Dict) MatchWords(query string, mode MatchMode) []WordEntry {
	h := d.handle()
	defer runtime.KeepAlive(d)

	var acc []WordEntry
	ctx, release := entryPins.pin(&acc)
	defer release()

	found := d.abi.Match(h, []byte(query), mode, collectEntry, ctx)
	if found != (len(acc) > 0) {
		// The engine's found flag is advisory; results are what the callback saw.
		d.log.Debug("match flag disagrees with results", "query", query, "found", found, "entries", len(acc))
	}
	return acc
}

// ReverseLookup returns the code of word among entries tagged flag
// (FlagNone for any). An empty code with a nil error means not found.
func (d *Dict) ReverseLookup(word string, flag PhraseFlag) (string, error) {
	h := d.handle()
	defer runtime.KeepAlive(d)

	var result engine.Sink
	err := d.call(func(errs *engine.Sink) {
		d.abi.ReverseLookup(h, []byte(word), flag, &result, errs)
	})
	if err != nil {
		return "", &LookupError{Word: word, Msg: err.Error()}
	}
	return result.String(), nil
}

// Insert adds (code, word) as a user entry and reports whether the engine
// applied it.
func (d *Dict) Insert(code, word string) bool {
	defer runtime.KeepAlive(d)
	return d.abi.Insert(d.handle(), []byte(code), []byte(word), FlagUser)
}

// Delete removes (code, word) and reports whether an entry went away.
func (d *Dict) Delete(code, word string) bool {
	defer runtime.KeepAlive(d)
	return d.abi.Delete(d.handle(), []byte(code), []byte(word))
}

// Save writes the user dictionary back to the path given to Open.
func (d *Dict) Save() error {
	h := d.handle()
	defer runtime.KeepAlive(d)
	if d.userPath == "" {
		return &SaveError{Err: ErrNoUserDict}
	}
	cpath, err := encodePath(d.userPath)
	if err != nil {
		return &SaveError{Path: d.userPath, Err: err}
	}
	if err := d.call(func(errs *engine.Sink) { d.abi.SaveUser(h, cpath, errs) }); err != nil {
		return &SaveError{Path: d.userPath, Err: err}
	}
	return nil
}

// Stat asks the engine to print its diagnostics.
func (d *Dict) Stat() {
	defer runtime.KeepAlive(d)
	d.abi.Stat(d.handle())
}
