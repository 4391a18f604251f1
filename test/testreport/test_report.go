package testreport

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
)

// TestReport is the JUnit test report structure the results are exported in.
type TestReport struct {
	XMLName    xml.Name    `xml:"testsuites"`
	TestSuites []TestSuite `xml:"testsuite"`
}

type TestSuite struct {
	XMLName   xml.Name   `xml:"testsuite"`
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	Skipped   int        `xml:"skipped,attr"`
	Time      float64    `xml:"time,attr"`
	TestCases []TestCase `xml:"testcase"`
}

type TestCase struct {
	XMLName    xml.Name    `xml:"testcase"`
	Name       string      `xml:"name,attr"`
	ClassName  string      `xml:"classname,attr"`
	Time       float64     `xml:"time,attr"`
	Error      *Error      `xml:"error,omitempty"`
	Failure    *Failure    `xml:"failure,omitempty"`
	Skipped    *Skipped    `xml:"skipped,omitempty"`
	Properties *Properties `xml:"properties,omitempty"`
	SystemErr  *SystemErr  `xml:"system-err,omitempty"`
}

type Error struct {
	XMLName xml.Name `xml:"error,omitempty"`
	Value   string   `xml:",chardata"`
}

type Failure struct {
	XMLName xml.Name `xml:"failure,omitempty"`
	Value   string   `xml:",chardata"`
}

type Skipped struct {
	XMLName xml.Name `xml:"skipped,omitempty"`
	Value   string   `xml:",chardata"`
}

type Property struct {
	XMLName xml.Name `xml:"property"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

type Properties struct {
	XMLName  xml.Name   `xml:"properties"`
	Property []Property `xml:"property"`
}

type SystemErr struct {
	XMLName xml.Name `xml:"system-err,omitempty"`
	Value   string   `xml:",chardata"`
}

// FromResults groups results into one test suite per class, in the order the
// classes first appear.
func FromResults(results []testresult.TestResult) TestReport {
	var report TestReport
	suiteIndex := map[string]int{}

	for _, result := range results {
		i, ok := suiteIndex[result.ClassName]
		if !ok {
			i = len(report.TestSuites)
			suiteIndex[result.ClassName] = i
			report.TestSuites = append(report.TestSuites, TestSuite{Name: result.ClassName})
		}

		suite := &report.TestSuites[i]
		testCase := newTestCase(result)

		suite.Tests++
		suite.Time += testCase.Time
		switch {
		case testCase.Failure != nil:
			suite.Failures++
		case testCase.Skipped != nil:
			suite.Skipped++
		case testCase.Error != nil:
			suite.Errors++
		}
		suite.TestCases = append(suite.TestCases, testCase)
	}

	return report
}

func newTestCase(result testresult.TestResult) TestCase {
	testCase := TestCase{
		Name:      result.MethodName,
		ClassName: result.ClassName,
		Time:      seconds(result.Duration),
	}

	if result.ID != "" {
		testCase.Properties = &Properties{Property: []Property{{Name: "id", Value: result.ID}}}
	}

	switch result.Outcome {
	case testresult.Passed:
	case testresult.Failed:
		testCase.Failure = &Failure{Value: result.Message}
	case testresult.NotExecuted:
		testCase.Skipped = &Skipped{Value: result.Message}
	default:
		value := result.Outcome
		if result.Message != "" {
			value += ": " + result.Message
		}
		testCase.Error = &Error{Value: value}
	}

	if result.StackTrace != "" {
		testCase.SystemErr = &SystemErr{Value: result.StackTrace}
	}

	return testCase
}

// seconds converts a mm:ss.SSS duration, 0 when it is empty or invalid.
func seconds(duration string) float64 {
	minutes, rest, ok := strings.Cut(duration, ":")
	if !ok {
		return 0
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0
	}
	s, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0
	}
	return float64(m)*60 + s
}
