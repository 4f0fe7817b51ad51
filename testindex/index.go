package testindex

// index.go contains the parser for test index files and the include
// index that ties a suite together.

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tpdiff/tpdiff/model"
)

// Filters select tests by name. Patterns are matched against the
// basename of the trace and of the query file (or the raw metric name),
// anchored at the start of the name.
type Filters struct {
	QueryMetric *regexp.Regexp
	Trace       *regexp.Regexp
}

// CompileFilters compiles the two filter expressions. The patterns are
// wrapped so that matching starts at the beginning of the basename, the
// same way the harness has always treated its filter flags.
func CompileFilters(queryMetric, trace string) (Filters, error) {
	qm, err := regexp.Compile("^(?:" + queryMetric + ")")
	if err != nil {
		return Filters{}, fmt.Errorf("invalid query/metric filter %q: %w", queryMetric, err)
	}
	tr, err := regexp.Compile("^(?:" + trace + ")")
	if err != nil {
		return Filters{}, fmt.Errorf("invalid trace filter %q: %w", trace, err)
	}
	return Filters{QueryMetric: qm, Trace: tr}, nil
}

// Match reports whether a test survives both filters. A nil pattern
// matches everything.
func (f Filters) Match(t model.Test) bool {
	if f.QueryMetric != nil && !f.QueryMetric.MatchString(filepath.Base(t.Query)) {
		return false
	}
	if f.Trace != nil && !f.Trace.MatchString(filepath.Base(t.Trace)) {
		return false
	}
	return true
}

// ParseIndex reads one index file and returns the tests it declares that
// survive the filters. Each non-blank, non-comment line must hold exactly
// three whitespace separated fields: trace, query-or-metric, expected.
// Relative paths resolve against the directory of the index file itself.
func ParseIndex(path string, f Filters) ([]model.Test, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer file.Close()

	indexDir := filepath.Dir(path)

	var tests []model.Test
	scanner := bufio.NewScanner(file)
	lineno := 0
	for scanner.Scan() {
		lineno++
		stripped := strings.TrimSpace(scanner.Text())
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}

		fields := strings.Fields(stripped)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s:%d: expected 3 fields (trace, query/metric, expected), got %d", path, lineno, len(fields))
		}

		test, err := newTest(indexDir, fields[0], fields[1], fields[2])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineno, err)
		}
		if !f.Match(test) {
			continue
		}
		tests = append(tests, test)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}

	return tests, nil
}

// newTest builds a test from one index line. A query field ending in
// .sql marks a query test; anything else is an opaque metric name.
func newTest(indexDir, traceField, queryField, expectedField string) (model.Test, error) {
	tracePath, err := filepath.Abs(filepath.Join(indexDir, traceField))
	if err != nil {
		return model.Test{}, fmt.Errorf("failed to resolve trace path %q: %w", traceField, err)
	}
	expectedPath, err := filepath.Abs(filepath.Join(indexDir, expectedField))
	if err != nil {
		return model.Test{}, fmt.Errorf("failed to resolve expected path %q: %w", expectedField, err)
	}

	test := model.Test{
		Trace:    tracePath,
		Expected: expectedPath,
	}
	if strings.HasSuffix(queryField, ".sql") {
		queryPath, err := filepath.Abs(filepath.Join(indexDir, queryField))
		if err != nil {
			return model.Test{}, fmt.Errorf("failed to resolve query path %q: %w", queryField, err)
		}
		test.Kind = model.TestKindQuery
		test.Query = queryPath
	} else {
		test.Kind = model.TestKindMetric
		test.Query = queryField
		if strings.HasSuffix(expectedField, ".json.out") {
			test.MetricFormat = model.MetricOutputJSON
		}
	}
	return test, nil
}

// ReadAll reads the include index under rootDir and concatenates the
// tests of every listed index file, in listed order.
func ReadAll(rootDir string, f Filters) ([]model.Test, error) {
	includeDir := filepath.Join(rootDir, "test", "trace_processor")
	includePath := filepath.Join(includeDir, "include_index")

	file, err := os.Open(includePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open include index: %w", err)
	}
	defer file.Close()

	var tests []model.Test
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		stripped := strings.TrimSpace(scanner.Text())
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		indexTests, err := ParseIndex(filepath.Join(includeDir, stripped), f)
		if err != nil {
			return nil, err
		}
		tests = append(tests, indexTests...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read include index %s: %w", includePath, err)
	}

	return tests, nil
}

// FilterKind keeps only tests of the given kind.
func FilterKind(tests []model.Test, kind model.TestKind) []model.Test {
	var kept []model.Test
	for _, t := range tests {
		if t.Kind == kind {
			kept = append(kept, t)
		}
	}
	return kept
}
