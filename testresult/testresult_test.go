package testresult

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id, outcome, className, method string) TestResult {
	return TestResult{ID: id, Outcome: outcome, ClassName: className, MethodName: method}
}

func TestFullName(t *testing.T) {
	r := result("1", Passed, "MsTestTests.TestClass1", "DataTest (Second)")
	assert.Equal(t, "MsTestTests.TestClass1.DataTest (Second)", r.FullName())
}

func TestMatchesTheory(t *testing.T) {
	tests := []struct {
		name      string
		result    TestResult
		className string
		method    string
		want      bool
	}{
		{name: "theory invocation", result: result("1", Passed, "NS.MyClass", "Add(a: 1)"), className: "NS.MyClass", method: "Add", want: true},
		{name: "space before arguments", result: result("1", Passed, "NS.MyClass", "Add (1)"), className: "NS.MyClass", method: "Add", want: true},
		{name: "class suffix", result: result("1", Passed, "NS.MyClass", "Add(a: 1)"), className: "MyClass", method: "Add", want: true},
		{name: "plain test", result: result("1", Passed, "NS.MyClass", "Add"), className: "NS.MyClass", method: "Add", want: false},
		{name: "longer method name", result: result("1", Passed, "NS.MyClass", "AddAll(a: 1)"), className: "NS.MyClass", method: "Add", want: false},
		{name: "other class", result: result("1", Passed, "NS.Other", "Add(a: 1)"), className: "NS.MyClass", method: "Add", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.MatchesTheory(tt.className, tt.method))
		})
	}
}

func TestMerge(t *testing.T) {
	previous := []TestResult{
		result("1", Passed, "NS.A", "One"),
		result("2", Failed, "NS.A", "Two"),
	}

	t.Run("partial run replaces and appends", func(t *testing.T) {
		merged := Merge(previous, Change{Results: []TestResult{
			result("3", Passed, "NS.A", "Two"),
			result("4", NotExecuted, "NS.B", "Three"),
		}})

		require.Len(t, merged, 3)
		assert.Equal(t, "1", merged[0].ID)
		assert.Equal(t, "3", merged[1].ID)
		assert.Equal(t, Passed, merged[1].Outcome)
		assert.Equal(t, "4", merged[2].ID)

		assert.Equal(t, Failed, previous[1].Outcome, "previous snapshot must not change")
	})

	t.Run("full run discards previous results", func(t *testing.T) {
		merged := Merge(previous, Change{ClearPrevious: true, Results: []TestResult{
			result("5", Passed, "NS.C", "Four"),
		}})

		require.Len(t, merged, 1)
		assert.Equal(t, "5", merged[0].ID)
	})

	t.Run("no previous results", func(t *testing.T) {
		merged := Merge(nil, Change{Results: []TestResult{result("1", Passed, "NS.A", "One")}})

		require.Len(t, merged, 1)
	})

	t.Run("later result with the same name wins", func(t *testing.T) {
		merged := Merge(previous, Change{Results: []TestResult{
			result("6", Failed, "NS.A", "One"),
			result("7", Passed, "NS.A", "One"),
		}})

		require.Len(t, merged, 2)
		assert.Equal(t, "7", merged[0].ID)
	})
}

func TestChangeFullNames(t *testing.T) {
	change := Change{Results: []TestResult{result("1", Passed, "NS.A", "One"), result("2", Passed, "NS.A", "Two")}}
	assert.Equal(t, []string{"NS.A.One", "NS.A.Two"}, change.FullNames())
}
