// Package diag is the shared diagnostic type the lexer, parser, and emitter
// all report through, plus a colorized writer for the CLI driver.
package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Error is one positioned diagnostic. Line/Col are zero when the
// diagnostic has no source position (emission-time type/name errors are
// reported this way, preserving spec behavior: see §6.3/§9).
type Error struct {
	Line int
	Col  int
	Msg  string
}

func (e Error) Error() string {
	if e.Line == 0 && e.Col == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// New builds a positioned Error.
func New(line, col int, format string, args ...any) Error {
	return Error{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

// Unpositioned builds an Error with no source location, for type/name
// errors raised during emission per §6.3.
func Unpositioned(format string, args ...any) Error {
	return Error{Msg: fmt.Sprintf(format, args...)}
}

// Fprint writes one diagnostic to w, colorizing the "error:" tag when w is
// a terminal (the CLI driver decides that and passes a pre-configured
// *color.Color, or nil for a plain tag; with nil, Fprint writes no color
// codes, so it can be used against any io.Writer, including files).
func Fprint(w io.Writer, label *color.Color, err error) {
	if label != nil {
		label.Fprint(w, "error: ")
	} else {
		fmt.Fprint(w, "error: ")
	}
	fmt.Fprintln(w, err)
}

// FprintAll writes every error in errs, one per line, via Fprint.
func FprintAll(w io.Writer, label *color.Color, errs []error) {
	for _, err := range errs {
		Fprint(w, label, err)
	}
}
