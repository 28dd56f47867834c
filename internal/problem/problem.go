// Package problem models metric-threshold violations and the persisted
// exceptions ledger that whitelists historical ones.
package problem

import (
	"fmt"
)

// Kind classifies a problem by the metric that produced it.
type Kind string

const (
	// KindFileSize flags a file with too many lines.
	KindFileSize Kind = "file-size"

	// KindFunctionSize flags a function with too many lines.
	KindFunctionSize Kind = "function-size"

	// KindIncludeCount flags a file with too many #include directives.
	KindIncludeCount Kind = "include-count"
)

// Kinds lists every recognized problem kind in reporting order.
var Kinds = []Kind{KindFileSize, KindFunctionSize, KindIncludeCount}

// Valid reports whether k is a recognized problem kind.
func (k Kind) Valid() bool {
	switch k {
	case KindFileSize, KindFunctionSize, KindIncludeCount:
		return true
	}
	return false
}

// Key identifies a problem slot: two problems with the same kind and
// location are the same slot regardless of magnitude.
type Key struct {
	Kind     Kind
	Location string
}

// String renders the key for sorting and display.
func (k Key) String() string {
	return string(k.Kind) + " " + k.Location
}

// Problem is one detected violation: a kind, a location key, and an integer
// magnitude (line count or include count). Problems are immutable values.
type Problem struct {
	Kind      Kind
	Location  string
	Magnitude int
}

// Key returns the identity of this problem's slot.
func (p Problem) Key() Key {
	return Key{Kind: p.Kind, Location: p.Location}
}

// String renders the canonical ledger line for this problem.
func (p Problem) String() string {
	return fmt.Sprintf("problem %s %s %d", p.Kind, p.Location, p.Magnitude)
}

// NewFileSizeProblem builds a file-size problem for the file at path.
func NewFileSizeProblem(path string, lines int) Problem {
	return Problem{Kind: KindFileSize, Location: path, Magnitude: lines}
}

// NewIncludeCountProblem builds an include-count problem for the file at path.
func NewIncludeCountProblem(path string, count int) Problem {
	return Problem{Kind: KindIncludeCount, Location: path, Magnitude: count}
}

// NewFunctionSizeProblem builds a function-size problem located at
// "path:function()".
func NewFunctionSizeProblem(path, function string, lines int) Problem {
	return Problem{
		Kind:      KindFunctionSize,
		Location:  fmt.Sprintf("%s:%s()", path, function),
		Magnitude: lines,
	}
}

// ParseError describes a malformed ledger line. A corrupt ledger is never
// partially trusted; callers must abort before scanning.
type ParseError struct {
	File string
	Line int
	Msg  string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}
