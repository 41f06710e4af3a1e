// Package shell implements the interactive command loop over a dictionary.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tabledict/internal/tabledict"
)

// Outcome tells the loop whether to keep reading.
type Outcome int

const (
	Continue Outcome = iota
	Exit
)

// Dictionary is what the commands need from a dictionary.
type Dictionary interface {
	MatchWords(query string, mode tabledict.MatchMode) []tabledict.WordEntry
	ReverseLookup(word string, flag tabledict.PhraseFlag) (string, error)
	Insert(code, word string) bool
	Delete(code, word string) bool
	Save() error
	Stat()
}

// LineReader supplies input lines. It returns io.EOF when input ends.
type LineReader interface {
	ReadLine() (string, error)
}

// Shell reads commands and runs them against a Dictionary.
type Shell struct {
	dict     Dictionary
	in       LineReader
	out      io.Writer
	log      *slog.Logger
	commands []Command
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.log = l }
}

// New creates a shell writing its output to out.
func New(dict Dictionary, in LineReader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		dict:     dict,
		in:       in,
		out:      out,
		log:      slog.Default(),
		commands: commands,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the catalog entries whose name starts with token, in
// catalog order.
func (s *Shell) Resolve(token string) []Command {
	var matched []Command
	for _, c := range s.commands {
		if strings.HasPrefix(c.Name, token) {
			matched = append(matched, c)
		}
	}
	return matched
}

// Dispatch runs one input line.
func (s *Shell) Dispatch(line string) Outcome {
	words := strings.Fields(line)
	if len(words) == 0 {
		return Continue
	}

	name := words[0]
	matched := s.Resolve(name)
	switch len(matched) {
	case 0:
		s.printf("Unknown command: %s\n", name)
		return Continue
	case 1:
		s.log.Debug("dispatch", "command", matched[0].Name, "args", len(words)-1)
		return matched[0].Run(s, words[1:])
	default:
		names := make([]string, len(matched))
		for i, c := range matched {
			names[i] = c.Name
		}
		s.printf("Ambiguous command, could be: %s\n", strings.Join(names, ", "))
		return Continue
	}
}

// Run reads and dispatches lines until quit, end of input, a read error, or
// ctx is done. ctx is only checked between lines. End of input and read
// errors print a newline first; quit does not.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.in.ReadLine()
		if err != nil {
			s.printf("\n")
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Error("read line failed", "error", err)
			return fmt.Errorf("read line: %w", err)
		}

		if s.Dispatch(line) == Exit {
			return nil
		}
	}
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
