// Package lineedit reads chat input. On a terminal it offers in-line editing
// and history; otherwise it reads plain newline-terminated lines.
package lineedit

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

const maxHistory = 500

type Reader struct {
	in  *os.File
	out io.Writer
	buf *bufio.Reader
	tty bool

	mu      sync.Mutex
	restore func() error
	history []string
}

// New returns a Reader over in. Prompts and echo go to out.
func New(in *os.File, out io.Writer) *Reader {
	return &Reader{
		in:  in,
		out: out,
		buf: bufio.NewReader(in),
		tty: isTerminal(in),
	}
}

func (r *Reader) Interactive() bool { return r.tty }

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool { return isTerminal(f) }

// ReadLine prints prompt and returns the next line without its terminator.
// Ctrl+C, and Ctrl+D on an empty line, report io.EOF.
func (r *Reader) ReadLine(prompt string) (string, error) {
	if !r.tty {
		return r.readPlain(prompt)
	}
	return r.readRaw(prompt)
}

// Close restores the terminal if a read was interrupted mid-line.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.restore == nil {
		return nil
	}
	err := r.restore()
	r.restore = nil
	return err
}

func (r *Reader) readPlain(prompt string) (string, error) {
	if prompt != "" {
		_, _ = io.WriteString(r.out, prompt)
	}
	s, err := r.buf.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			return trimEOL(s), nil
		}
		return "", err
	}
	return trimEOL(s), nil
}

func (r *Reader) readRaw(prompt string) (string, error) {
	restore, err := makeRaw(r.in)
	if err != nil {
		return r.readPlain(prompt)
	}
	r.mu.Lock()
	r.restore = restore
	hist := append([]string(nil), r.history...)
	r.mu.Unlock()
	defer func() { _ = r.Close() }()

	_, _ = io.WriteString(r.out, prompt)
	ed := newEditor(r.out, prompt, hist)
	var chunk [16]byte
	for {
		n, err := r.in.Read(chunk[:])
		if err != nil {
			return "", err
		}
		for _, b := range chunk[:n] {
			done, ferr := ed.feed(b)
			if !done {
				continue
			}
			if ferr != nil {
				return "", ferr
			}
			line := ed.text()
			r.remember(line)
			return line, nil
		}
	}
}

func (r *Reader) remember(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.history); n > 0 && r.history[n-1] == line {
		return
	}
	r.history = append(r.history, line)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
