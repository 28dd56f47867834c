// Package metrics extracts structural size metrics from C-like source text.
//
// The extraction is heuristic: function boundaries are detected by tracking
// brace nesting over raw lines, not by parsing a C grammar. Macros and
// conditional compilation are handled best-effort only.
package metrics

import (
	"bufio"
	"io"
	"regexp"
)

// FunctionLength is the line span of one recognized function definition.
type FunctionLength struct {
	Name  string
	Lines int
}

// Extractor computes size metrics over a single source file.
//
// Each method consumes its reader independently; callers that want multiple
// metrics for the same file should hand each call a fresh reader over the
// same content. Implementations must be side-effect free.
type Extractor interface {
	// FileLength returns the total number of lines.
	FileLength(r io.Reader) (int, error)

	// IncludeCount returns the number of #include directive lines,
	// duplicates included, regardless of position in the file.
	IncludeCount(r io.Reader) (int, error)

	// FunctionLengths returns the name and line span of every function
	// definition recognized in the file. Files with no functions yield an
	// empty slice.
	FunctionLengths(r io.Reader) ([]FunctionLength, error)
}

// BraceExtractor implements Extractor with brace-depth tracking.
//
// A function candidate is a top-level line whose head looks like
// "identifier(". A ';' before any '{' marks a bodiless prototype and the
// candidate is dropped. The function ends when brace depth returns to zero;
// string and character literals and comments are skipped so braces inside
// them do not confuse the count. A candidate still open at EOF is discarded
// rather than closed, so truncated input never reports a phantom giant
// function. Excess closing braces are ignored.
type BraceExtractor struct{}

var (
	includeLine   = regexp.MustCompile(`^\s*#\s*include\b`)
	functionStart = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// FileLength implements Extractor.
func (BraceExtractor) FileLength(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// IncludeCount implements Extractor.
func (BraceExtractor) IncludeCount(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	count := 0
	for scanner.Scan() {
		if includeLine.MatchString(scanner.Text()) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// FunctionLengths implements Extractor.
func (BraceExtractor) FunctionLengths(r io.Reader) ([]FunctionLength, error) {
	funcs := []FunctionLength{}

	var (
		depth      int
		inComment  bool // inside a /* */ block
		inFunction bool
		inBody     bool // candidate has entered its opening brace
		name       string
		startLine  int
	)

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		if !inFunction && !inComment && depth == 0 {
			if m := functionStart.FindStringSubmatch(line); m != nil {
				name = m[1]
				startLine = lineno
				inFunction = true
				inBody = false
			}
		}

		for i := 0; i < len(line); {
			c := line[i]

			if inComment {
				if c == '*' && i+1 < len(line) && line[i+1] == '/' {
					inComment = false
					i += 2
					continue
				}
				i++
				continue
			}

			switch c {
			case '/':
				if i+1 < len(line) {
					if line[i+1] == '/' {
						i = len(line)
						continue
					}
					if line[i+1] == '*' {
						inComment = true
						i += 2
						continue
					}
				}
			case '"', '\'':
				i = skipLiteral(line, i)
				continue
			case '{':
				depth++
				if inFunction {
					inBody = true
				}
			case '}':
				if depth > 0 {
					depth--
				}
				if inFunction && inBody && depth == 0 {
					funcs = append(funcs, FunctionLength{
						Name:  name,
						Lines: lineno - startLine + 1,
					})
					inFunction = false
				}
			case ';':
				if inFunction && !inBody && depth == 0 {
					// Prototype or declaration with no body.
					inFunction = false
				}
			}
			i++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// An unterminated candidate at EOF is discarded deliberately.
	return funcs, nil
}

// skipLiteral advances past a string or character literal starting at
// line[start], honoring backslash escapes. A literal left open at the end of
// the line is treated as ending there.
func skipLiteral(line string, start int) int {
	quote := line[start]
	i := start + 1
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		}
		i++
	}
	return i
}
