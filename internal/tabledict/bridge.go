package tabledict

import (
	"strings"
	"sync"

	"tabledict/internal/engine"
)

// encodePath turns a filesystem path into the NUL-terminated form the
// engine expects. The returned slice is freshly allocated and stays alive
// for as long as the caller holds it, which covers the engine call.
func encodePath(path string) ([]byte, error) {
	if i := strings.IndexByte(path, 0); i >= 0 {
		return nil, &PathEncodingError{Path: path, Offset: i}
	}
	b := make([]byte, len(path)+1)
	copy(b, path)
	return b, nil
}

// call runs one error-channel call. The sink is cleared on entry, so a
// message left over from an earlier failure can never be mistaken for a new
// one; a non-empty sink on exit is the failure.
func (d *Dict) call(fn func(errs *engine.Sink)) error {
	d.errs.Reset()
	fn(&d.errs)
	if d.errs.Empty() {
		return nil
	}
	return engineError(d.errs.String())
}

// pins maps opaque context words to accumulators of one concrete type. The
// engine only ever sees the word; the callback gets back a *T, so there is
// no unchecked cast on the way in or out.
type pins[T any] struct {
	mu   sync.Mutex
	next uintptr
	m    map[uintptr]*T
}

// pin registers acc and returns its context word and a release func. The
// word is never 0.
func (p *pins[T]) pin(acc *T) (uintptr, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.m == nil {
		p.m = make(map[uintptr]*T)
	}
	p.next++
	ctx := p.next
	p.m[ctx] = acc
	return ctx, func() {
		p.mu.Lock()
		delete(p.m, ctx)
		p.mu.Unlock()
	}
}

func (p *pins[T]) get(ctx uintptr) *T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.m[ctx]
}

// trampoline builds the engine callback for accumulators registered in p.
// Callbacks carrying an unknown context word are dropped.
func trampoline[T any](p *pins[T], fn func(acc *T, code, word engine.View, index uint32, flag engine.PhraseFlag)) engine.MatchFunc {
	return func(ctx uintptr, code, word engine.View, index uint32, flag engine.PhraseFlag) {
		if acc := p.get(ctx); acc != nil {
			fn(acc, code, word, index, flag)
		}
	}
}

var (
	entryPins pins[[]WordEntry]

	// collectEntry copies each borrowed view into an owned WordEntry before
	// the engine's callback returns.
	collectEntry = trampoline(&entryPins, func(acc *[]WordEntry, code, word engine.View, index uint32, flag engine.PhraseFlag) {
		*acc = append(*acc, WordEntry{
			Code:  code.String(),
			Word:  word.String(),
			Index: index,
			Flag:  flag.Normalize(),
		})
	})
)
