package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practracker/practracker/internal/metrics"
	"github.com/practracker/practracker/internal/problem"
)

// testThresholds keeps fixtures small.
func testThresholds() Thresholds {
	return Thresholds{
		MaxFileLength:     20,
		MaxFunctionLength: 5,
		MaxIncludeCount:   2,
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func listTree(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for name := range files {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths
}

func bigFunction(name string, bodyLines int) string {
	var sb strings.Builder
	sb.WriteString("int\n")
	sb.WriteString(name + "(void)\n")
	sb.WriteString("{\n")
	for i := 0; i < bodyLines; i++ {
		sb.WriteString("  work();\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

func TestScanFiles_DetectsAllKinds(t *testing.T) {
	tree := map[string]string{
		"src/big.c":      strings.Repeat("int x;\n", 21),
		"src/includes.c": "#include <a.h>\n#include <b.h>\n#include <c.h>\n",
		"src/funcs.c":    bigFunction("sprawl", 10),
		"src/fine.c":     "int y;\n",
	}
	dir := writeTree(t, tree)

	vault := problem.NewVault()
	scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{})

	result, err := scanner.ScanFiles(listTree(t, dir, tree))
	require.NoError(t, err)

	assert.Equal(t, 4, result.FilesScanned)
	require.Len(t, result.NewProblems, 3)

	byKind := map[problem.Kind]problem.Problem{}
	for _, p := range result.NewProblems {
		byKind[p.Kind] = p
	}

	assert.Equal(t, "/src/big.c", byKind[problem.KindFileSize].Location)
	assert.Equal(t, 21, byKind[problem.KindFileSize].Magnitude)

	assert.Equal(t, "/src/includes.c", byKind[problem.KindIncludeCount].Location)
	assert.Equal(t, 3, byKind[problem.KindIncludeCount].Magnitude)

	assert.Equal(t, "/src/funcs.c:sprawl()", byKind[problem.KindFunctionSize].Location)
	assert.Equal(t, 13, byKind[problem.KindFunctionSize].Magnitude)
}

func TestScanFiles_WithinThresholdsIsClean(t *testing.T) {
	tree := map[string]string{
		"src/ok.c": "#include <a.h>\n#include <b.h>\n" + bigFunction("small", 1),
	}
	dir := writeTree(t, tree)

	vault := problem.NewVault()
	scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{})

	result, err := scanner.ScanFiles(listTree(t, dir, tree))
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewCount())
	assert.Equal(t, 1, result.FilesScanned)
}

func TestScanFiles_LedgerSuppressesKnownProblems(t *testing.T) {
	tree := map[string]string{
		"src/big.c": strings.Repeat("int x;\n", 21),
	}
	dir := writeTree(t, tree)

	// Pre-seed via a ledger round-trip: the file is allowed at 21 lines.
	ledger := filepath.Join(t.TempDir(), "exceptions.txt")
	require.NoError(t, problem.WriteLedger(ledger, "", []problem.Problem{
		problem.NewFileSizeProblem("/src/big.c", 21),
	}))
	vault, err := problem.LoadVault(ledger)
	require.NoError(t, err)

	scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{})

	result, err := scanner.ScanFiles(listTree(t, dir, tree))
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewCount())
}

func TestScanFiles_ToleranceInflatesAllowance(t *testing.T) {
	// 102 observed lines against a ledger allowing 100: new in strict
	// mode, tolerated with the 2% file-size inflation.
	tree := map[string]string{
		"src/big.c": strings.Repeat("int x;\n", 102),
	}

	ledgerFor := func(t *testing.T) string {
		ledger := filepath.Join(t.TempDir(), "exceptions.txt")
		require.NoError(t, problem.WriteLedger(ledger, "", []problem.Problem{
			problem.NewFileSizeProblem("/src/big.c", 100),
		}))
		return ledger
	}

	t.Run("strict", func(t *testing.T) {
		dir := writeTree(t, tree)
		vault, err := problem.LoadVault(ledgerFor(t))
		require.NoError(t, err)

		scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{
			ApplyTolerance: true,
			Strict:         true,
		})
		result, err := scanner.ScanFiles(listTree(t, dir, tree))
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewCount())
	})

	t.Run("tolerant", func(t *testing.T) {
		dir := writeTree(t, tree)
		vault, err := problem.LoadVault(ledgerFor(t))
		require.NoError(t, err)

		scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{
			ApplyTolerance: true,
		})
		result, err := scanner.ScanFiles(listTree(t, dir, tree))
		require.NoError(t, err)
		assert.Equal(t, 0, result.NewCount())
	})

	t.Run("tolerance exceeded", func(t *testing.T) {
		worse := map[string]string{
			"src/big.c": strings.Repeat("int x;\n", 103),
		}
		dir := writeTree(t, worse)
		vault, err := problem.LoadVault(ledgerFor(t))
		require.NoError(t, err)

		scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{
			ApplyTolerance: true,
		})
		result, err := scanner.ScanFiles(listTree(t, dir, worse))
		require.NoError(t, err)
		assert.Equal(t, 1, result.NewCount())
	})
}

func TestScanFiles_OverstrictAfterScan(t *testing.T) {
	// foo shrank to 8 lines against a 150-line exception; gone.c vanished.
	tree := map[string]string{
		"src/a.c": bigFunction("foo", 5),
	}
	dir := writeTree(t, tree)

	ledger := filepath.Join(t.TempDir(), "exceptions.txt")
	require.NoError(t, problem.WriteLedger(ledger, "", []problem.Problem{
		problem.NewFunctionSizeProblem("/src/a.c", "foo", 150),
		problem.NewFileSizeProblem("/src/gone.c", 3200),
	}))
	vault, err := problem.LoadVault(ledger)
	require.NoError(t, err)

	thresholds := testThresholds()
	thresholds.MaxFunctionLength = 3 // make foo a violation so it registers
	scanner := New(vault, metrics.BraceExtractor{}, thresholds, dir, Options{})

	_, err = scanner.ScanFiles(listTree(t, dir, tree))
	require.NoError(t, err)

	overstrict := vault.OverstrictExceptions()
	require.Len(t, overstrict, 2)

	assert.Equal(t, "/src/gone.c", overstrict[0].Allowed.Location)
	assert.Nil(t, overstrict[0].Observed)

	assert.Equal(t, "/src/a.c:foo()", overstrict[1].Allowed.Location)
	require.NotNil(t, overstrict[1].Observed)
	assert.Equal(t, 8, overstrict[1].Observed.Magnitude)
}

func TestScanFiles_UnreadableFileIsFatal(t *testing.T) {
	dir := t.TempDir()

	vault := problem.NewVault()
	scanner := New(vault, metrics.BraceExtractor{}, testThresholds(), dir, Options{})

	_, err := scanner.ScanFiles([]string{filepath.Join(dir, "vanished.c")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vanished.c")
}

func TestThresholds_ForKind(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 3000, th.ForKind(problem.KindFileSize))
	assert.Equal(t, 100, th.ForKind(problem.KindFunctionSize))
	assert.Equal(t, 50, th.ForKind(problem.KindIncludeCount))
	assert.Equal(t, 0, th.ForKind(problem.Kind("bogus")))
}

func TestCanonicalLocation(t *testing.T) {
	dir := t.TempDir()
	scanner := New(problem.NewVault(), metrics.BraceExtractor{}, DefaultThresholds(), dir, Options{})

	loc := scanner.canonicalLocation(filepath.Join(dir, "src", "core", "main.c"))
	assert.Equal(t, "/src/core/main.c", loc)
}

func TestScanFiles_DeterministicAcrossRuns(t *testing.T) {
	tree := map[string]string{
		"src/a.c": strings.Repeat("int x;\n", 21),
		"src/b.c": strings.Repeat("int y;\n", 22),
	}
	dir := writeTree(t, tree)

	// Fixed input order: scanning is strictly sequential over the list.
	paths := listTree(t, dir, tree)
	sort.Strings(paths)

	run := func() []string {
		scanner := New(problem.NewVault(), metrics.BraceExtractor{}, testThresholds(), dir, Options{})
		result, err := scanner.ScanFiles(paths)
		require.NoError(t, err)
		var lines []string
		for _, p := range result.NewProblems {
			lines = append(lines, p.String())
		}
		return lines
	}

	assert.Equal(t, run(), run())
}
