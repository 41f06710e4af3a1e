package tabledict

import (
	"errors"
	"fmt"
)

// ErrNoUserDict is returned by Save when no user dictionary path was given
// at load time. It is detected without calling the engine.
var ErrNoUserDict = errors.New("user dict path not supplied")

// Which names one of the two dictionaries a Dict loads.
type Which int

const (
	MainDict Which = iota
	UserDict
)

func (w Which) String() string {
	if w == UserDict {
		return "user dict"
	}
	return "main dict"
}

// LoadError reports that a dictionary could not be loaded.
type LoadError struct {
	Which Which
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s %s: %v", e.Which, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SaveError reports that the user dictionary could not be persisted.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// LookupError reports an engine failure during reverse lookup.
type LookupError struct {
	Word string
	Msg  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %s", e.Word, e.Msg)
}

// PathEncodingError reports a path that cannot be NUL-terminated because it
// already contains a NUL byte.
type PathEncodingError struct {
	Path   string
	Offset int
}

func (e *PathEncodingError) Error() string {
	return fmt.Sprintf("path %q contains NUL byte at offset %d", e.Path, e.Offset)
}

// engineError carries a message the engine wrote to an error sink.
type engineError string

func (e engineError) Error() string { return string(e) }
