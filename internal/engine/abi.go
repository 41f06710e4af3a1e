// Package engine defines the boundary between the dictionary shell and a
// table dictionary engine.
//
// The contract is deliberately C-shaped: instances are opaque handles,
// text travels as byte slices with explicit length, failures are reported
// through out-parameter sinks, and enumeration happens through a callback
// that receives borrowed views plus an opaque context word. Implementations
// may sit behind cgo (see internal/libime) or be plain Go (see
// internal/tableengine); callers must treat both the same way.
//
// # Ownership rules
//
//   - A Handle returned by Create belongs to the caller until Destroy.
//   - Paths are NUL-terminated byte slices; every other text argument is
//     raw UTF-8 without terminator.
//   - Views passed to a MatchFunc are valid only until that invocation
//     returns. View exposes no raw bytes; String copies.
//   - A Sink is owned by the caller. Engines write into it and never keep it.
package engine

// Handle identifies one live engine instance. The zero Handle is never valid.
type Handle uintptr

// MatchMode selects the search semantics for Match.
type MatchMode int32

const (
	// MatchExact returns entries whose code equals the key.
	MatchExact MatchMode = iota
	// MatchPrefix returns entries whose code starts with the key.
	MatchPrefix
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "Exact"
	case MatchPrefix:
		return "Prefix"
	default:
		return "Unknown"
	}
}

// MatchFunc receives one matching entry. ctx is the opaque word given to
// Match. code and word are borrowed; see View.
type MatchFunc func(ctx uintptr, code, word View, index uint32, flag PhraseFlag)

// ABI is the set of calls a dictionary engine exposes.
type ABI interface {
	// Create allocates a new instance. It returns 0 when allocation fails.
	Create() Handle

	// Destroy releases an instance. It must be called exactly once per Handle.
	Destroy(h Handle)

	// LoadMain loads read-only reference data from a NUL-terminated path.
	LoadMain(h Handle, path []byte, errs *Sink)

	// LoadUser loads the mutable user overlay from a NUL-terminated path.
	LoadUser(h Handle, path []byte, errs *Sink)

	// SaveUser persists the user overlay to a NUL-terminated path.
	SaveUser(h Handle, path []byte, errs *Sink)

	// Match calls cb once per entry matching key, synchronously, before
	// returning. The result reports whether anything matched.
	Match(h Handle, key []byte, mode MatchMode, cb MatchFunc, ctx uintptr) bool

	// ReverseLookup writes the code of word into result. An empty result
	// with an empty errs sink means the word is not present.
	ReverseLookup(h Handle, word []byte, flag PhraseFlag, result, errs *Sink)

	// Insert adds (code, word) tagged with flag.
	Insert(h Handle, code, word []byte, flag PhraseFlag) bool

	// Delete removes (code, word).
	Delete(h Handle, code, word []byte) bool

	// Stat writes engine diagnostics to the engine's own output.
	Stat(h Handle)
}
