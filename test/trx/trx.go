// Package trx converts Visual Studio test result (.trx) files, as written by
// `dotnet test --logger trx`, into canonical test results.
//
// A TRX file holds two sibling collections: the execution results and the test
// definitions, joined by the test id. The adapter recorded on the definition
// decides which runner specific parser reads the pair.
package trx

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
)

// ErrMalformedResultFile is returned when a result file can not be read as a whole.
var ErrMalformedResultFile = errors.New("malformed test result file")

// FileRemover removes a parsed result file.
type FileRemover interface {
	Remove(path string) error
}

// File is the outcome of parsing one result file.
type File struct {
	Path    string
	Results []testresult.TestResult
	// EntryErrors holds the entries skipped because of an unknown adapter or runner version.
	EntryErrors []error
}

// Converter holds data of the converter
type Converter struct {
	files       []string
	fileRemover FileRemover
	logger      log.Logger
}

// NewConverter ...
func NewConverter(fileRemover FileRemover, logger log.Logger) *Converter {
	return &Converter{
		fileRemover: fileRemover,
		logger:      logger,
	}
}

// Detect return true if any of the files is a TRX file
func (c *Converter) Detect(files []string) bool {
	c.files = nil
	for _, file := range files {
		if strings.EqualFold(filepath.Ext(file), ".trx") {
			c.files = append(c.files, file)
		}
	}
	return len(c.files) > 0
}

// Files returns the detected TRX files.
func (c *Converter) Files() []string {
	return c.files
}

// ParseFile reads and parses a result file, then removes it.
// A file that fails to parse is left on disk.
func (c *Converter) ParseFile(pth string) (File, error) {
	data, err := fileutil.ReadBytesFromFile(pth)
	if err != nil {
		return File{}, errors.Wrapf(err, "failed to read test result file (%s)", pth)
	}

	c.logger.Debugf("Parsing %s (%s)", filepath.Base(pth), units.HumanSize(float64(len(data))))

	file, err := Parse(data)
	if err != nil {
		c.logger.Warnf("Failed to parse test result file (%s): %s", pth, err)
		return File{}, errors.Wrapf(err, "failed to parse test result file (%s)", pth)
	}
	file.Path = pth

	for _, entryErr := range file.EntryErrors {
		c.logger.Warnf("Skipping test result in %s: %s", filepath.Base(pth), entryErr)
	}

	if err := c.fileRemover.Remove(pth); err != nil && !os.IsNotExist(err) {
		c.logger.Warnf("Failed to remove test result file (%s): %s", pth, err)
	}

	return file, nil
}

// Parse parses the contents of a result file.
func Parse(data []byte) (File, error) {
	var run TestRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return File{}, errors.Wrap(ErrMalformedResultFile, err.Error())
	}

	return ParseTestRun(run)
}

// ParseTestRun joins the results of run with their definitions and converts them.
// Results keep the order they have in the file.
func ParseTestRun(run TestRun) (File, error) {
	definitions := make(map[string]UnitTest, len(run.TestDefinitions))
	for _, definition := range run.TestDefinitions {
		if definition.ID == "" {
			return File{}, errors.Wrap(ErrMalformedResultFile, "test definition without id")
		}
		definitions[definition.ID] = definition
	}

	var order []string
	results := make(map[string]UnitTestResult, len(run.Results))
	for _, result := range run.Results {
		if result.TestID == "" {
			return File{}, errors.Wrap(ErrMalformedResultFile, "test result without testId")
		}
		if _, ok := results[result.TestID]; !ok {
			order = append(order, result.TestID)
		}
		results[result.TestID] = result
	}

	var file File
	for _, id := range order {
		result := results[id]

		definition, ok := definitions[id]
		if !ok {
			return File{}, errors.Wrapf(ErrMalformedResultFile, "no test definition for test result %s", id)
		}
		if err := validateDefinition(definition); err != nil {
			return File{}, err
		}

		runner := definition.TestMethod.AdapterTypeName

		parser, err := parserFor(runner)
		if err != nil {
			file.EntryErrors = append(file.EntryErrors, errors.Wrapf(err, "test %s", id))
			continue
		}

		testResult, err := parser.parseUnitTest(result, definition, runner)
		if err != nil {
			file.EntryErrors = append(file.EntryErrors, errors.Wrapf(err, "test %s", id))
			continue
		}

		file.Results = append(file.Results, testResult)
	}

	return file, nil
}

func validateDefinition(definition UnitTest) error {
	var missing string
	switch {
	case definition.Name == "":
		missing = "name"
	case definition.TestMethod == nil:
		missing = "TestMethod"
	case definition.TestMethod.ClassName == "":
		missing = "TestMethod className"
	case definition.TestMethod.AdapterTypeName == "":
		missing = "TestMethod adapterTypeName"
	default:
		return nil
	}

	return errors.Wrapf(ErrMalformedResultFile, "test definition %s: missing %s", definition.ID, missing)
}
