// Package scan reconciles freshly observed metrics against the exceptions
// ledger, deciding which violations are genuinely new.
package scan

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/practracker/practracker/internal/metrics"
	"github.com/practracker/practracker/internal/problem"
)

// Thresholds are the fixed policy limits a metric must stay under. They are
// policy constants, not per-ledger values; the ledger only excepts specific
// locations from them.
type Thresholds struct {
	MaxFileLength     int
	MaxFunctionLength int
	MaxIncludeCount   int
}

// DefaultThresholds returns the recommended limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFileLength:     3000,
		MaxFunctionLength: 100,
		MaxIncludeCount:   50,
	}
}

// ForKind returns the threshold that applies to a problem kind.
func (t Thresholds) ForKind(kind problem.Kind) int {
	switch kind {
	case problem.KindFileSize:
		return t.MaxFileLength
	case problem.KindFunctionSize:
		return t.MaxFunctionLength
	case problem.KindIncludeCount:
		return t.MaxIncludeCount
	}
	return 0
}

// Options selects how a run treats the ledger. The flags are fixed at
// scanner construction rather than threaded through individual calls.
type Options struct {
	// ApplyTolerance inflates loaded ledger magnitudes so only materially
	// worse regressions register as new. Never applied in strict,
	// regeneration, or over-strict-listing runs.
	ApplyTolerance bool

	// Strict disables tolerance inflation even in normal check runs.
	Strict bool
}

// Result summarizes one full scan.
type Result struct {
	// NewProblems are the violations the ledger did not already allow,
	// in scan order.
	NewProblems []problem.Problem

	// FilesScanned is the number of files considered.
	FilesScanned int
}

// NewCount returns the number of new problems; this is also the process
// exit status for a check run.
func (r *Result) NewCount() int {
	return len(r.NewProblems)
}

// Scanner walks a candidate file list, derives metrics, and registers every
// threshold violation against the vault. It owns no global state; the vault
// is created by the caller once per run and passed in.
type Scanner struct {
	vault      *problem.Vault
	extractor  metrics.Extractor
	thresholds Thresholds
	topdir     string
}

// New builds a scanner rooted at topdir. Tolerance inflation is applied to
// the vault here, once, when the options ask for it.
func New(vault *problem.Vault, extractor metrics.Extractor, thresholds Thresholds, topdir string, opts Options) *Scanner {
	if opts.ApplyTolerance && !opts.Strict {
		vault.SetTolerances(problem.DefaultTolerances())
	}
	if abs, err := filepath.Abs(topdir); err == nil {
		topdir = abs
	}
	return &Scanner{
		vault:      vault,
		extractor:  extractor,
		thresholds: thresholds,
		topdir:     topdir,
	}
}

// Thresholds returns the policy limits this scanner enforces.
func (s *Scanner) Thresholds() Thresholds {
	return s.thresholds
}

// ScanFiles considers every file strictly in order and returns the scan
// result. A file that cannot be read is fatal for the run: the tool assumes
// a stable snapshot of the tree and does not retry.
func (s *Scanner) ScanFiles(paths []string) (*Result, error) {
	result := &Result{}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if err := s.scanFile(result, path, content); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}
		result.FilesScanned++
	}

	return result, nil
}

// scanFile derives all three metrics for one file and registers each
// violation. The content is held in memory so each metric gets a fresh
// reader over the same bytes.
func (s *Scanner) scanFile(result *Result, path string, content []byte) error {
	location := s.canonicalLocation(path)

	fileLength, err := s.extractor.FileLength(bytes.NewReader(content))
	if err != nil {
		return err
	}
	if fileLength > s.thresholds.MaxFileLength {
		s.register(result, problem.NewFileSizeProblem(location, fileLength))
	}

	includeCount, err := s.extractor.IncludeCount(bytes.NewReader(content))
	if err != nil {
		return err
	}
	if includeCount > s.thresholds.MaxIncludeCount {
		s.register(result, problem.NewIncludeCountProblem(location, includeCount))
	}

	functions, err := s.extractor.FunctionLengths(bytes.NewReader(content))
	if err != nil {
		return err
	}
	for _, fn := range functions {
		if fn.Lines <= s.thresholds.MaxFunctionLength {
			continue
		}
		s.register(result, problem.NewFunctionSizeProblem(location, fn.Name, fn.Lines))
	}

	return nil
}

// register asks the vault for a verdict and accumulates new problems.
func (s *Scanner) register(result *Result, p problem.Problem) {
	if s.vault.RegisterProblem(p) {
		result.NewProblems = append(result.NewProblems, p)
	}
}

// canonicalLocation strips the topdir prefix and normalizes separators so
// ledger locations stay stable across machines and checkouts.
func (s *Scanner) canonicalLocation(path string) string {
	rel, err := filepath.Rel(s.topdir, path)
	if err != nil {
		rel = path
	}
	return "/" + filepath.ToSlash(rel)
}
