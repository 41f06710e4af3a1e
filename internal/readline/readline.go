// Package readline reads command lines from the user, with line editing and
// history when attached to a terminal.
package readline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Reader reads one line at a time. ReadLine returns io.EOF at end of input.
type Reader interface {
	ReadLine() (string, error)
	Close() error
}

// Options configures a Reader.
type Options struct {
	// Prompt is printed before each line. Trailing space is preserved.
	Prompt string

	// PromptColor is an ANSI 256 colour for the prompt; empty disables it.
	PromptColor string

	In  *os.File
	Out *os.File
}

// New returns a terminal line editor when In is a terminal, and a plain
// line reader otherwise.
func New(opts Options) (Reader, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	prompt := StylePrompt(opts.Prompt, opts.PromptColor, opts.Out)

	fd := int(opts.In.Fd())
	if !term.IsTerminal(fd) {
		if !term.IsTerminal(int(opts.Out.Fd())) {
			prompt = ""
		}
		return NewPlain(opts.In, opts.Out, prompt), nil
	}

	rw := struct {
		io.Reader
		io.Writer
	}{opts.In, opts.Out}
	return &terminalReader{
		fd:   fd,
		term: term.NewTerminal(rw, prompt),
	}, nil
}

// StylePrompt colours the non-space part of prompt for the terminal behind
// out. It returns prompt unchanged when color is empty or out has no colour
// support.
func StylePrompt(prompt, color string, out io.Writer) string {
	if color == "" {
		return prompt
	}
	body := strings.TrimRight(prompt, " ")
	style := lipgloss.NewRenderer(out).NewStyle().Foreground(lipgloss.Color(color))
	return style.Render(body) + prompt[len(body):]
}

// terminalReader edits lines in raw mode. The terminal is raw only while a
// line is being read, so command output in between prints normally.
type terminalReader struct {
	fd   int
	term *term.Terminal
}

func (r *terminalReader) ReadLine() (string, error) {
	state, err := term.MakeRaw(r.fd)
	if err != nil {
		return "", fmt.Errorf("enter raw mode: %w", err)
	}
	line, err := r.term.ReadLine()
	if rerr := term.Restore(r.fd, state); rerr != nil && err == nil {
		err = fmt.Errorf("restore terminal: %w", rerr)
	}
	return line, err
}

func (r *terminalReader) Close() error { return nil }

// plainReader reads newline-terminated lines without editing.
type plainReader struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// NewPlain returns a Reader over in that writes prompt to out before each
// line. The trailing newline (and a preceding carriage return) is stripped.
func NewPlain(in io.Reader, out io.Writer, prompt string) Reader {
	return &plainReader{in: bufio.NewReader(in), out: out, prompt: prompt}
}

func (r *plainReader) ReadLine() (string, error) {
	if r.prompt != "" {
		fmt.Fprint(r.out, r.prompt)
	}
	line, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (r *plainReader) Close() error { return nil }
