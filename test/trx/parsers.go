package trx

import (
	"fmt"
	"strings"

	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
	"github.com/pkg/errors"
)

// ErrUnknownAdapter is returned for definitions whose adapter is not handled by any runner parser.
var ErrUnknownAdapter = errors.New("unknown test adapter")

// UnknownRunnerVersionError is returned when the adapter belongs to a known runner family
// but reports a version the parser does not understand.
type UnknownRunnerVersionError struct {
	Family string
	Runner string
}

func (e UnknownRunnerVersionError) Error() string {
	return fmt.Sprintf("unknown %s test runner version: %s", e.Family, e.Runner)
}

// runnerParser turns a result/definition pair of one runner family into a TestResult.
type runnerParser struct {
	family string
	// detectToken selects the parser for an adapter type name, versionToken must also be present.
	detectToken  string
	versionToken string
	methodName   func(definition UnitTest, className string) string
}

// Order matters: the first parser whose detect token is found in the adapter type name wins.
var runnerParsers = []runnerParser{
	{family: "XUnit", detectToken: "xunit", versionToken: "vstestrunner2", methodName: classQualifiedMethodName},
	{family: "NUnit", detectToken: "nunit", versionToken: "nunit3testexecutor", methodName: displayMethodName},
	{family: "MSTest", detectToken: "mstest", versionToken: "v2", methodName: displayMethodName},
}

// xUnit reports the class name as part of the test name.
func classQualifiedMethodName(definition UnitTest, className string) string {
	return strings.TrimPrefix(definition.Name, className+".")
}

func displayMethodName(definition UnitTest, _ string) string {
	return definition.Name
}

// parserFor selects the runner parser for an adapter type name. Detect and
// version tokens are matched case-insensitively, so executor://XUnit/VSTestRunner2
// is read like executor://xunit/VsTestRunner2.
func parserFor(adapterTypeName string) (runnerParser, error) {
	adapter := strings.ToLower(adapterTypeName)
	for _, parser := range runnerParsers {
		if strings.Contains(adapter, parser.detectToken) {
			return parser, nil
		}
	}
	return runnerParser{}, errors.Wrapf(ErrUnknownAdapter, "adapter %q", adapterTypeName)
}

func (p runnerParser) parseUnitTest(result UnitTestResult, definition UnitTest, runner string) (testresult.TestResult, error) {
	if !strings.Contains(strings.ToLower(runner), p.versionToken) {
		return testresult.TestResult{}, UnknownRunnerVersionError{Family: p.family, Runner: runner}
	}

	className := definition.TestMethod.ClassName

	return testresult.TestResult{
		ID:         result.TestID,
		Outcome:    result.Outcome,
		Message:    result.Message,
		StackTrace: result.StackTrace,
		ClassName:  className,
		MethodName: p.methodName(definition, className),
		Duration:   formatDuration(result.Duration),
	}, nil
}
