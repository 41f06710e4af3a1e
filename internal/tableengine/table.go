package tableengine

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"tabledict/internal/engine"
)

type entry struct {
	code  string
	word  string
	index uint32
	flag  engine.PhraseFlag
}

type pair struct {
	code string
	word string
}

// table is one engine instance.
type table struct {
	keyCode string
	maxLen  int
	meta    map[string]string

	// main and user are kept sorted by (code, index).
	main    []entry
	user    []entry
	deleted map[pair]struct{}

	nextUser uint32
	scratch  []byte
}

func newTable() *table {
	return &table{
		meta:    make(map[string]string),
		deleted: make(map[pair]struct{}),
		scratch: make([]byte, 0, 256),
	}
}

func compareEntries(a, b entry) int {
	if c := strings.Compare(a.code, b.code); c != 0 {
		return c
	}
	return cmp.Compare(a.index, b.index)
}

// matches reports whether code satisfies key under mode.
func matches(code, key string, mode engine.MatchMode) bool {
	if mode == engine.MatchPrefix {
		return strings.HasPrefix(code, key)
	}
	return code == key
}

func scan(entries []entry, key string, mode engine.MatchMode, visit func(entry)) {
	start, _ := slices.BinarySearchFunc(entries, key, func(e entry, k string) int {
		return strings.Compare(e.code, k)
	})
	for _, e := range entries[start:] {
		if !matches(e.code, key, mode) {
			return
		}
		visit(e)
	}
}

func (t *table) match(key string, mode engine.MatchMode, emit func(code, word string, index uint32, flag engine.PhraseFlag)) bool {
	found := false
	visit := func(e entry) {
		if _, gone := t.deleted[pair{e.code, e.word}]; gone {
			return
		}
		found = true
		emit(e.code, e.word, e.index, e.flag)
	}
	scan(t.main, key, mode, visit)
	scan(t.user, key, mode, visit)
	return found
}

func (t *table) reverseLookup(word string, flag engine.PhraseFlag) string {
	word = norm.NFC.String(word)
	want := func(e entry) bool {
		if e.word != word {
			return false
		}
		if _, gone := t.deleted[pair{e.code, e.word}]; gone {
			return false
		}
		return flag == engine.FlagNone || e.flag == flag
	}
	if flag != engine.FlagNone {
		for _, entries := range [][]entry{t.main, t.user} {
			for _, e := range entries {
				if want(e) {
					return e.code
				}
			}
		}
		return ""
	}

	// Plain phrases first, then the overlay, then marked main entries.
	var fallback string
	for _, e := range t.main {
		if want(e) {
			if e.flag == engine.FlagNone {
				return e.code
			}
			if fallback == "" {
				fallback = e.code
			}
		}
	}
	for _, e := range t.user {
		if want(e) {
			return e.code
		}
	}
	return fallback
}

// visible reports whether (code, word) is currently returned by match.
func (t *table) visible(code, word string) bool {
	if _, gone := t.deleted[pair{code, word}]; gone {
		return false
	}
	has := func(entries []entry) bool {
		found := false
		scan(entries, code, engine.MatchExact, func(e entry) {
			if e.word == word {
				found = true
			}
		})
		return found
	}
	return has(t.main) || has(t.user)
}

func (t *table) validCode(code string) error {
	if code == "" {
		return errors.New("empty code")
	}
	if !utf8.ValidString(code) {
		return errors.New("code is not valid UTF-8")
	}
	if t.maxLen > 0 && utf8.RuneCountInString(code) > t.maxLen {
		return fmt.Errorf("code %q longer than %d", code, t.maxLen)
	}
	if t.keyCode != "" {
		for _, r := range code {
			if !strings.ContainsRune(t.keyCode, r) {
				return fmt.Errorf("code %q uses %q outside KeyCode", code, r)
			}
		}
	}
	return nil
}

func validWord(word string) error {
	if word == "" {
		return errors.New("empty word")
	}
	if !utf8.ValidString(word) {
		return errors.New("word is not valid UTF-8")
	}
	return nil
}

func (t *table) insert(code, word string, flag engine.PhraseFlag) error {
	if err := t.validCode(code); err != nil {
		return err
	}
	if err := validWord(word); err != nil {
		return err
	}
	if !flag.Valid() || flag == engine.FlagNone || flag == engine.FlagInvalid {
		return fmt.Errorf("flag %v is not insertable", flag)
	}
	word = norm.NFC.String(word)

	p := pair{code, word}
	if _, gone := t.deleted[p]; gone {
		delete(t.deleted, p)
		if t.visible(code, word) {
			return nil
		}
	} else if t.visible(code, word) {
		return fmt.Errorf("%s %s already present", code, word)
	}

	e := entry{code: code, word: word, index: t.nextUser, flag: flag}
	t.nextUser++
	i, _ := slices.BinarySearchFunc(t.user, e, compareEntries)
	t.user = slices.Insert(t.user, i, e)
	return nil
}

func (t *table) remove(code, word string) bool {
	word = norm.NFC.String(word)
	if !t.visible(code, word) {
		return false
	}
	removed := false
	t.user = slices.DeleteFunc(t.user, func(e entry) bool {
		if e.code == code && e.word == word {
			removed = true
			return true
		}
		return false
	})
	if t.visible(code, word) {
		// Only the main dictionary still has it; mask it.
		t.deleted[pair{code, word}] = struct{}{}
		removed = true
	}
	return removed
}

func (t *table) statistic(w io.Writer) {
	fmt.Fprintf(w, "main: %d\n", len(t.main))
	fmt.Fprintf(w, "user: %d\n", len(t.user))
	fmt.Fprintf(w, "deleted: %d\n", len(t.deleted))
	keyCode := t.keyCode
	if keyCode == "" {
		keyCode = "(any)"
	}
	fmt.Fprintf(w, "keycode: %s\n", keyCode)
	fmt.Fprintf(w, "length: %d\n", t.maxLen)
}
