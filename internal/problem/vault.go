package problem

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Vault holds the exceptions ledger for one run: a mapping from problem key
// to the allowed magnitude, plus bookkeeping about which keys were actually
// observed during the scan.
//
// A Vault is created once per run and passed to the scanner; it is not safe
// for concurrent use, which is fine because scanning is strictly sequential.
type Vault struct {
	exceptions map[Key]Problem
	observed   map[Key]Problem
	warnings   []string
}

// NewVault returns an empty vault. Regeneration mode uses this so that every
// observed problem counts as new and gets written out fresh.
func NewVault() *Vault {
	return &Vault{
		exceptions: make(map[Key]Problem),
		observed:   make(map[Key]Problem),
	}
}

// LoadVault parses the ledger file at path into a vault.
//
// The ledger is line-oriented UTF-8: '#' comments and blank lines are
// ignored, every other line must have the shape
// "problem <kind> <location> <magnitude>". Any malformed line yields a
// *ParseError naming the file and line number; bad lines are never silently
// skipped. A duplicate key is recorded as a warning (last value wins) since
// it indicates a ledger-authoring mistake.
func LoadVault(path string) (*Vault, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening exceptions file: %w", err)
	}
	defer f.Close()

	v := NewVault()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p, err := parseLedgerLine(line)
		if err != nil {
			return nil, &ParseError{File: path, Line: lineno, Msg: err.Error()}
		}

		if prev, ok := v.exceptions[p.Key()]; ok {
			v.warnings = append(v.warnings, fmt.Sprintf(
				"%s:%d: duplicate entry for %q (replacing magnitude %d with %d)",
				path, lineno, p.Key(), prev.Magnitude, p.Magnitude))
		}
		v.exceptions[p.Key()] = p
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exceptions file: %w", err)
	}

	return v, nil
}

// parseLedgerLine parses one non-comment ledger line into a Problem.
func parseLedgerLine(line string) (Problem, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Problem{}, fmt.Errorf("expected 'problem <kind> <location> <magnitude>', got %q", line)
	}
	if fields[0] != "problem" {
		return Problem{}, fmt.Errorf("line must start with 'problem', got %q", fields[0])
	}

	kind := Kind(fields[1])
	if !kind.Valid() {
		return Problem{}, fmt.Errorf("unknown problem kind %q", fields[1])
	}

	magnitude, err := strconv.Atoi(fields[3])
	if err != nil || magnitude < 0 {
		return Problem{}, fmt.Errorf("magnitude must be a non-negative integer, got %q", fields[3])
	}

	return Problem{Kind: kind, Location: fields[2], Magnitude: magnitude}, nil
}

// Warnings returns non-fatal issues encountered while loading the ledger.
func (v *Vault) Warnings() []string {
	return v.warnings
}

// Len returns the number of loaded exception entries.
func (v *Vault) Len() int {
	return len(v.exceptions)
}

// SetTolerances replaces every allowed magnitude m with fns[kind](m),
// inflating the ceiling so only materially worse regressions register as
// new. Kinds without a tolerance function are left unchanged. Tolerance is
// only applied outside strict, regeneration, and over-strict-listing modes.
func (v *Vault) SetTolerances(fns map[Kind]func(int) int) {
	for key, p := range v.exceptions {
		if fn, ok := fns[p.Kind]; ok {
			p.Magnitude = fn(p.Magnitude)
			v.exceptions[key] = p
		}
	}
}

// RegisterProblem records an observed problem and reports whether it is new:
// its key is absent from the ledger, or present with an allowed magnitude
// strictly less than the observed one.
//
// The observation is remembered regardless of the verdict so that
// OverstrictExceptions can compare the ledger against reality afterwards.
// Within a run, repeated registrations for the same key keep the largest
// observed magnitude.
func (v *Vault) RegisterProblem(p Problem) bool {
	if prev, ok := v.observed[p.Key()]; !ok || p.Magnitude > prev.Magnitude {
		v.observed[p.Key()] = p
	}

	allowed, ok := v.exceptions[p.Key()]
	if ok && p.Magnitude <= allowed.Magnitude {
		return false
	}
	return true
}

// Overstrict pairs a ledger entry with what the scan actually observed.
// Observed is nil when the problem no longer exists at all.
type Overstrict struct {
	Allowed  Problem
	Observed *Problem
}

// OverstrictExceptions lists ledger entries that are now stricter than
// reality: the key was observed with a smaller magnitude than allowed, or
// never observed at all. The result is sorted by key for reproducible
// output. Only meaningful after a full scan without tolerance inflation.
func (v *Vault) OverstrictExceptions() []Overstrict {
	var out []Overstrict
	for key, allowed := range v.exceptions {
		obs, seen := v.observed[key]
		switch {
		case !seen:
			out = append(out, Overstrict{Allowed: allowed})
		case obs.Magnitude < allowed.Magnitude:
			p := obs
			out = append(out, Overstrict{Allowed: allowed, Observed: &p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Allowed.Key().String() < out[j].Allowed.Key().String()
	})
	return out
}

// DefaultTolerances returns the per-kind inflation applied to loaded
// magnitudes in normal check mode. All functions are monotonically
// non-decreasing.
func DefaultTolerances() map[Kind]func(int) int {
	return map[Kind]func(int) int{
		KindIncludeCount: func(n int) int { return int(float64(n) * 1.1) },
		KindFunctionSize: func(n int) int { return int(float64(n) * 1.1) },
		KindFileSize:     func(n int) int { return int(float64(n) * 1.02) },
	}
}

// WriteLedger serializes problems as a fresh ledger at path: the header
// first, then one line per problem sorted by key. Problems sharing a key
// are collapsed to the largest magnitude.
//
// The file is written to a temporary sibling and renamed into place so a
// crash mid-write never corrupts the existing ledger.
func WriteLedger(path, header string, problems []Problem) error {
	byKey := make(map[Key]Problem, len(problems))
	for _, p := range problems {
		if prev, ok := byKey[p.Key()]; !ok || p.Magnitude > prev.Magnitude {
			byKey[p.Key()] = p
		}
	}

	keys := lo.Keys(byKey)
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	var sb strings.Builder
	sb.WriteString(header)
	for _, key := range keys {
		sb.WriteString(byKey[key].String())
		sb.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	if err := os.WriteFile(tmp, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("writing temporary ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
