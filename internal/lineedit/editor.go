package lineedit

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

type escState int

const (
	escNone escState = iota
	escStart
	escCSI
)

// editor holds one line being edited in raw mode. It consumes input bytes,
// assembles them into runes, and repaints the line on out after each change.
// cursor is a rune index into line.
type editor struct {
	out    io.Writer
	prompt string
	line   []rune
	cursor int

	// partial collects the leading bytes of a multi-byte UTF-8 sequence.
	partial []byte

	history  []string
	histPos  int
	browsing bool
	draft    string

	esc    escState
	escBuf strings.Builder
}

func newEditor(out io.Writer, prompt string, history []string) *editor {
	return &editor{out: out, prompt: prompt, history: history, histPos: len(history)}
}

// feed applies one input byte. done is set once the line is submitted or
// aborted; err is io.EOF for Ctrl+C and for Ctrl+D on an empty line.
func (e *editor) feed(b byte) (done bool, err error) {
	switch e.esc {
	case escStart:
		e.esc = escNone
		switch b {
		case '[':
			e.esc = escCSI
			e.escBuf.Reset()
		case 'b', 'B':
			e.moveWordLeft()
		case 'f', 'F':
			e.moveWordRight()
		case 127:
			e.deleteWordBack()
		}
		return false, nil
	case escCSI:
		e.escBuf.WriteByte(b)
		if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
			e.esc = escNone
			e.csi(e.escBuf.String())
		}
		return false, nil
	}

	if b < utf8.RuneSelf && len(e.partial) > 0 {
		e.partial = e.partial[:0]
		e.insert(utf8.RuneError)
	}

	switch b {
	case 27:
		e.esc = escStart
	case '\r', '\n':
		_, _ = io.WriteString(e.out, "\r\n")
		return true, nil
	case 3: // Ctrl+C
		_, _ = io.WriteString(e.out, "^C\r\n")
		return true, io.EOF
	case 4: // Ctrl+D
		if len(e.line) == 0 {
			_, _ = io.WriteString(e.out, "\r\n")
			return true, io.EOF
		}
		e.deleteAt(e.cursor)
	case 127, 8:
		if e.cursor > 0 {
			e.cursor--
			e.deleteAt(e.cursor)
		}
	case 1: // Ctrl+A
		e.cursor = 0
		e.redraw()
	case 5: // Ctrl+E
		e.cursor = len(e.line)
		e.redraw()
	case 21: // Ctrl+U
		e.line = append(e.line[:0], e.line[e.cursor:]...)
		e.cursor = 0
		e.redraw()
	case 23: // Ctrl+W
		e.deleteWordBack()
	default:
		if b >= utf8.RuneSelf {
			e.feedUTF8(b)
		} else if b >= 32 {
			e.insert(rune(b))
		}
	}
	return false, nil
}

// feedUTF8 buffers the bytes of a multi-byte sequence and inserts the rune
// once it is complete. Invalid sequences insert utf8.RuneError.
func (e *editor) feedUTF8(b byte) {
	if utf8.RuneStart(b) {
		if len(e.partial) > 0 {
			e.insert(utf8.RuneError)
		}
		e.partial = append(e.partial[:0], b)
	} else {
		if len(e.partial) == 0 {
			e.insert(utf8.RuneError)
			return
		}
		e.partial = append(e.partial, b)
	}
	if !utf8.FullRune(e.partial) {
		return
	}
	r, _ := utf8.DecodeRune(e.partial)
	e.partial = e.partial[:0]
	e.insert(r)
}

func (e *editor) insert(r rune) {
	e.line = append(e.line, 0)
	copy(e.line[e.cursor+1:], e.line[e.cursor:])
	e.line[e.cursor] = r
	e.cursor++
	e.redraw()
}

func (e *editor) text() string { return string(e.line) }

func (e *editor) csi(seq string) {
	switch seq {
	case "A":
		e.historyUp()
	case "B":
		e.historyDown()
	case "D":
		if e.cursor > 0 {
			e.cursor--
			e.redraw()
		}
	case "C":
		if e.cursor < len(e.line) {
			e.cursor++
			e.redraw()
		}
	case "H", "1~":
		e.cursor = 0
		e.redraw()
	case "F", "4~":
		e.cursor = len(e.line)
		e.redraw()
	case "3~":
		e.deleteAt(e.cursor)
	case "1;5D", "5D":
		e.moveWordLeft()
	case "1;5C", "5C":
		e.moveWordRight()
	}
}

func (e *editor) historyUp() {
	if len(e.history) == 0 {
		return
	}
	if !e.browsing {
		e.draft = string(e.line)
		e.browsing = true
		e.histPos = len(e.history)
	}
	if e.histPos > 0 {
		e.histPos--
		e.setLine(e.history[e.histPos])
	}
}

func (e *editor) historyDown() {
	if !e.browsing {
		return
	}
	if e.histPos < len(e.history)-1 {
		e.histPos++
		e.setLine(e.history[e.histPos])
		return
	}
	e.histPos = len(e.history)
	e.browsing = false
	e.setLine(e.draft)
}

func (e *editor) setLine(s string) {
	e.line = append(e.line[:0], []rune(s)...)
	e.cursor = len(e.line)
	e.redraw()
}

func (e *editor) deleteAt(i int) {
	if i < 0 || i >= len(e.line) {
		return
	}
	e.line = append(e.line[:i], e.line[i+1:]...)
	e.redraw()
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }

func (e *editor) wordStart() int {
	i := e.cursor
	for i > 0 && isSpace(e.line[i-1]) {
		i--
	}
	for i > 0 && !isSpace(e.line[i-1]) {
		i--
	}
	return i
}

func (e *editor) moveWordLeft() {
	e.cursor = e.wordStart()
	e.redraw()
}

func (e *editor) moveWordRight() {
	for e.cursor < len(e.line) && isSpace(e.line[e.cursor]) {
		e.cursor++
	}
	for e.cursor < len(e.line) && !isSpace(e.line[e.cursor]) {
		e.cursor++
	}
	e.redraw()
}

func (e *editor) deleteWordBack() {
	start := e.wordStart()
	e.line = append(e.line[:start], e.line[e.cursor:]...)
	e.cursor = start
	e.redraw()
}

func (e *editor) redraw() {
	_, _ = fmt.Fprintf(e.out, "\r%s%s\x1b[K", e.prompt, string(e.line))
	if e.cursor < len(e.line) {
		_, _ = fmt.Fprintf(e.out, "\r%s%s", e.prompt, string(e.line[:e.cursor]))
	}
}
