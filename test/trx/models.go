package trx

import "encoding/xml"

// TestRun is the root element of a Visual Studio test results (.trx) file.
type TestRun struct {
	XMLName         xml.Name         `xml:"TestRun"`
	ID              string           `xml:"id,attr"`
	Name            string           `xml:"name,attr"`
	Results         []UnitTestResult `xml:"Results>UnitTestResult"`
	TestDefinitions []UnitTest       `xml:"TestDefinitions>UnitTest"`
}

// UnitTestResult is one execution result, joined to its definition by TestID.
type UnitTestResult struct {
	XMLName    xml.Name `xml:"UnitTestResult"`
	TestID     string   `xml:"testId,attr"`
	TestName   string   `xml:"testName,attr"`
	Outcome    string   `xml:"outcome,attr"`
	Duration   string   `xml:"duration,attr"`
	Message    string   `xml:"Output>ErrorInfo>Message"`
	StackTrace string   `xml:"Output>ErrorInfo>StackTrace"`
}

// UnitTest is a test definition.
type UnitTest struct {
	XMLName    xml.Name    `xml:"UnitTest"`
	ID         string      `xml:"id,attr"`
	Name       string      `xml:"name,attr"`
	Storage    string      `xml:"storage,attr"`
	TestMethod *TestMethod `xml:"TestMethod"`
}

// TestMethod describes the method behind a definition and the adapter that ran it.
type TestMethod struct {
	XMLName         xml.Name `xml:"TestMethod"`
	CodeBase        string   `xml:"codeBase,attr"`
	AdapterTypeName string   `xml:"adapterTypeName,attr"`
	ClassName       string   `xml:"className,attr"`
	Name            string   `xml:"name,attr"`
}
