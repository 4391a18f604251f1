// Package testresult holds the canonical representation of an executed test,
// independent of the runner that produced it.
package testresult

import "strings"

// Outcomes reported by the supported runners. Any other outcome string is kept as is.
const (
	Passed      = "Passed"
	Failed      = "Failed"
	NotExecuted = "NotExecuted"
)

// TestResult is one executed test outcome.
type TestResult struct {
	ID         string
	Outcome    string
	Message    string
	StackTrace string
	ClassName  string
	// MethodName of a theory invocation includes its parameter list, e.g. Method("arg").
	MethodName string
	// Duration is formatted as mm:ss.SSS, empty when the runner did not report a usable value.
	Duration string
}

// FullName is the name results are matched on.
func (r TestResult) FullName() string {
	return r.ClassName + "." + r.MethodName
}

// MatchesTheory reports whether the result is one invocation of the parameterized method of className.
func (r TestResult) MatchesTheory(className, method string) bool {
	if !strings.HasSuffix(r.ClassName, className) {
		return false
	}
	return strings.HasPrefix(r.MethodName, method+"(") || strings.HasPrefix(r.MethodName, method+" (")
}

// Change is the notification sent when new results are available.
type Change struct {
	// ClearPrevious is set for full runs: previous results are discarded instead of merged.
	ClearPrevious bool
	Results       []TestResult
}

// FullNames returns the full name of every result in the change.
func (c Change) FullNames() []string {
	names := make([]string, 0, len(c.Results))
	for _, result := range c.Results {
		names = append(names, result.FullName())
	}
	return names
}

// Merge applies change on top of previous and returns the new result set.
// previous is never modified, so readers holding it keep a consistent snapshot.
func Merge(previous []TestResult, change Change) []TestResult {
	if change.ClearPrevious || previous == nil {
		return append([]TestResult{}, change.Results...)
	}

	merged := append([]TestResult{}, previous...)
	index := make(map[string]int, len(merged))
	for i, result := range merged {
		index[result.FullName()] = i
	}

	for _, result := range change.Results {
		if i, ok := index[result.FullName()]; ok {
			merged[i] = result
			continue
		}
		index[result.FullName()] = len(merged)
		merged = append(merged, result)
	}

	return merged
}
