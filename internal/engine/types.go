package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PhraseFlag tags the provenance of a dictionary entry. The numbering is the
// engine's: the first variant is 1, 0 is reserved.
type PhraseFlag uint32

const (
	FlagNone PhraseFlag = iota + 1
	FlagPinyin
	FlagPrompt
	FlagConstructPhrase
	FlagUser
	FlagAuto
	FlagInvalid
)

var flagNames = [...]string{
	FlagNone:            "None",
	FlagPinyin:          "Pinyin",
	FlagPrompt:          "Prompt",
	FlagConstructPhrase: "ConstructPhrase",
	FlagUser:            "User",
	FlagAuto:            "Auto",
	FlagInvalid:         "Invalid",
}

// Valid reports whether f is one of the defined variants, Invalid included.
func (f PhraseFlag) Valid() bool {
	return f >= FlagNone && f <= FlagInvalid
}

// Normalize maps any tag outside the defined range to FlagInvalid.
func (f PhraseFlag) Normalize() PhraseFlag {
	if !f.Valid() {
		return FlagInvalid
	}
	return f
}

func (f PhraseFlag) String() string {
	if !f.Valid() {
		return fmt.Sprintf("PhraseFlag(%d)", uint32(f))
	}
	return flagNames[f]
}

// ParsePhraseFlag parses a variant name, ignoring case.
func ParsePhraseFlag(s string) (PhraseFlag, error) {
	for f := FlagNone; f <= FlagInvalid; f++ {
		if strings.EqualFold(flagNames[f], s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown phrase flag: %q", s)
}

// Sink is a caller-owned text buffer written by the engine. It carries
// either an error message or a result, depending on the parameter it is
// passed as.
type Sink struct {
	buf []byte
}

// Reset empties the sink, keeping its storage.
func (s *Sink) Reset() { s.buf = s.buf[:0] }

// Set replaces the content with msg.
func (s *Sink) Set(msg string) { s.buf = append(s.buf[:0], msg...) }

// SetBytes replaces the content with a copy of b.
func (s *Sink) SetBytes(b []byte) { s.buf = append(s.buf[:0], b...) }

// Empty reports whether nothing was written.
func (s *Sink) Empty() bool { return len(s.buf) == 0 }

// String returns an owned copy of the content. Invalid UTF-8 is replaced.
func (s *Sink) String() string {
	if utf8.Valid(s.buf) {
		return string(s.buf)
	}
	return strings.ToValidUTF8(string(s.buf), "�")
}

// View is a borrowed, read-only window over engine memory. It is valid only
// for the duration of the callback that received it. View hands out copies
// only, so the bytes it covers cannot escape by accident.
type View struct {
	b []byte
}

// ViewOf wraps engine memory. Only engine implementations should call it.
func ViewOf(b []byte) View { return View{b: b} }

// Len returns the length in bytes.
func (v View) Len() int { return len(v.b) }

// String copies the viewed bytes into a new string.
func (v View) String() string {
	if utf8.Valid(v.b) {
		return string(v.b)
	}
	return strings.ToValidUTF8(string(v.b), "�")
}
