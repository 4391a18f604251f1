package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/bitrise-io/bitrise/models"
	"github.com/bitrise-io/go-steputils/stepconf"
	"github.com/bitrise-io/go-steputils/tools"
	"github.com/bitrise-io/go-utils/fileutil"
	"github.com/bitrise-io/go-utils/log"
	fileutilV2 "github.com/bitrise-io/go-utils/v2/fileutil"
	logV2 "github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/codelens"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/discovery"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/explorer"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/fileredactor"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/symbols"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/symbols/csharp"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/test"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testtree"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Config ...
type Config struct {
	WorkspaceDir        string          `env:"workspace_dir,required"`
	TestProjectPath     string          `env:"test_project_path"`
	TestResultsDir      string          `env:"test_results_dir,required"`
	DiscoveredTestsPath string          `env:"discovered_tests_path"`
	UseTreeView         bool            `env:"use_tree_view,opt[true,false]"`
	ShowTestDuration    bool            `env:"show_test_duration,opt[true,false]"`
	GotoTest            string          `env:"goto_test"`
	TestAtPosition      string          `env:"test_at_position"`
	JUnitReportPath     string          `env:"junit_report_path"`
	ReportName          string          `env:"report_name"`
	ReportUploadURL     string          `env:"report_upload_url"`
	ReportUploadToken   stepconf.Secret `env:"report_upload_token"`
	SummaryFormat       string          `env:"summary_format,required"`
	DebugMode           bool            `env:"debug_mode,opt[true,false]"`
}

// Summary is the data the summary_format template is executed with.
type Summary struct {
	explorer.Stats
	ParseFailures int
	Location      string
}

// stepInfo is reported when the results folder has no step-info.json.
var stepInfo = models.TestResultStepInfo{
	ID:    "dotnet-test-explorer",
	Title: ".NET test explorer",
}

func fail(format string, v ...interface{}) {
	log.Errorf(format, v...)
	os.Exit(1)
}

func main() {
	var config Config
	if err := stepconf.Parse(&config); err != nil {
		fail("Issue with input: %s", err)
	}

	if err := validateGoTemplate(config.SummaryFormat); err != nil {
		fail("SummaryFormat - %s", err)
	}

	stepconf.Print(config)
	fmt.Println()
	log.SetEnableDebugLog(config.DebugMode)

	logger := logV2.NewLogger()
	logger.EnableDebugLog(config.DebugMode)

	ctx := context.Background()
	pathModifier := pathutil.NewPathModifier()
	pathChecker := pathutil.NewPathChecker()
	fileManager := fileutilV2.NewFileManager()

	workspaceDir, err := pathModifier.AbsPath(config.WorkspaceDir)
	if err != nil {
		fail("Failed to expand path: %s, error: %s", config.WorkspaceDir, err)
	}

	testExplorer := explorer.New(explorer.Options{UseTreeView: config.UseTreeView, ShowDuration: config.ShowTestDuration}, logger)
	lenses := codelens.NewProvider(config.ShowTestDuration)
	testExplorer.OnResultsChanged(lenses.AddResults)

	log.Infof("Discovering tests")
	testExplorer.DiscoveryStarted()

	directories := discovery.NewDirectories(pathModifier, pathChecker, logger)
	discovered, err := discoverTests(directories, workspaceDir, config, fileredactor.NewFilePathProcessor(pathModifier, pathChecker))
	if err != nil {
		fail("Test discovery failed: %s", err)
	}
	testExplorer.DiscoveryFinished(discovered)

	fmt.Println()
	log.Infof("Reading test results")

	collection, err := test.ParseTestResults(ctx, config.TestResultsDir, true, fileManager, logger)
	if err != nil {
		fail("Failed to read test results (%s): %s", config.TestResultsDir, err)
	}
	for _, failure := range collection.Failures {
		log.Warnf("Skipped test result file: %s", failure)
	}
	log.Printf("- %d test results from %d files", len(collection.Change.Results), len(collection.Files))
	testExplorer.ApplyResults(collection.Change)

	fmt.Println()
	log.Infof("Tests")
	for _, line := range treeLines(testExplorer.Nodes(), "") {
		log.Printf("%s", line)
	}

	provider := csharp.NewProvider(workspaceDir, logger)
	summary := Summary{Stats: testExplorer.Stats(), ParseFailures: len(collection.Failures)}

	if config.GotoTest != "" {
		fmt.Println()
		log.Infof("Locating test: %s", config.GotoTest)

		location, err := gotoTest(ctx, provider, lenses, config.GotoTest, logger)
		if err != nil {
			log.Warnf("%s", err)
		} else {
			summary.Location = location
			log.Donef("Found at %s", location)
			exportEnv("DOTNET_TEST_LOCATION", location)
		}
	}

	if config.TestAtPosition != "" {
		fmt.Println()
		log.Infof("Finding test at %s", config.TestAtPosition)

		if err := testAtPosition(ctx, provider, testExplorer, directories, config.TestAtPosition); err != nil {
			log.Warnf("%s", err)
		}
	}

	if config.JUnitReportPath != "" || config.ReportUploadURL != "" {
		fmt.Println()
		log.Infof("Exporting JUnit report")

		if err := exportReport(collection, config, fileManager, fileredactor.NewFileRedactor(fileManager, logger), logger); err != nil {
			log.Warnf("Failed to export test report: %s", err)
		} else {
			log.Donef("Success")
		}
	}

	if err := exportSummary(config.SummaryFormat, summary); err != nil {
		fail("%s", err)
	}

	if summary.Failed > 0 {
		log.Warnf("%d tests failed", summary.Failed)
	}
}

func discoverTests(directories *discovery.Directories, workspaceDir string, config Config, pathProcessor fileredactor.FilePathProcessor) ([]explorer.DiscoveredTests, error) {
	dirs, err := directories.Parse([]string{workspaceDir}, config.TestProjectPath)
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		log.Printf("- %s", dir)
	}
	directories.ClearTests()

	listFiles, err := pathProcessor.ProcessFilePaths(config.DiscoveredTestsPath)
	if err != nil {
		return nil, err
	}
	if len(listFiles) == 0 {
		return nil, nil
	}

	var discovered []explorer.DiscoveredTests
	for _, listFile := range listFiles {
		output, err := fileutil.ReadStringFromFile(listFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read test list (%s): %w", listFile, err)
		}

		list, err := discovery.ParseListOutput(output)
		if err != nil {
			return nil, fmt.Errorf("failed to parse test list (%s): %w", listFile, err)
		}
		if !list.FullyQualified() {
			log.Warnf("Test platform %s lists method names only (%s), upgrade to 15.0.0 or newer", list.PlatformVersion, listFile)
		}

		dir := ownerDirectory(dirs, listFile)
		directories.AddTests(dir, list.Names)
		discovered = append(discovered, explorer.DiscoveredTests{Directory: dir, TestNames: list.Names})
	}

	for _, dir := range dirs {
		if _, ok := directories.FirstTest(dir); !ok {
			directories.Remove(dir)
		}
	}

	return discovered, nil
}

// ownerDirectory returns the test project folder containing listFile, or its own folder.
func ownerDirectory(dirs []string, listFile string) string {
	owner := filepath.Dir(listFile)
	longest := 0
	for _, dir := range dirs {
		if strings.HasPrefix(listFile, dir+string(filepath.Separator)) && len(dir) > longest {
			owner, longest = dir, len(dir)
		}
	}
	return owner
}

func treeLines(nodes []*testtree.Node, indent string) []string {
	var lines []string
	for _, n := range nodes {
		lines = append(lines, fmt.Sprintf("%s- %s (%s)", indent, n.DisplayName(), n.Icon()))
		lines = append(lines, treeLines(n.Children, indent+"  ")...)
	}
	return lines
}

func gotoTest(ctx context.Context, provider symbols.Provider, lenses *codelens.Provider, fqn string, logger logV2.Logger) (string, error) {
	location, err := symbols.NewLocator(provider, logger).GotoTest(ctx, fqn)
	if err != nil {
		return "", err
	}

	documentLenses, err := lenses.DocumentLenses(ctx, provider, location.URI)
	if err != nil {
		return "", err
	}
	for _, lens := range documentLenses {
		log.Printf("- line %d: %s", lens.Range.Start.Line+1, lens.State)
	}

	return formatLocation(location), nil
}

func formatLocation(location protocol.Location) string {
	return fmt.Sprintf("%s:%d:%d", uri.URI(location.URI).Filename(), location.Range.Start.Line+1, location.Range.Start.Character+1)
}

// parsePosition reads a path:line:column position with 1 based line and column.
func parsePosition(position string) (string, protocol.Position, error) {
	parts := strings.Split(position, ":")
	if len(parts) < 3 {
		return "", protocol.Position{}, fmt.Errorf("invalid position (%s), expected path:line:column", position)
	}

	line, err := strconv.ParseUint(parts[len(parts)-2], 10, 32)
	if err != nil || line == 0 {
		return "", protocol.Position{}, fmt.Errorf("invalid line in position (%s)", position)
	}
	column, err := strconv.ParseUint(parts[len(parts)-1], 10, 32)
	if err != nil || column == 0 {
		return "", protocol.Position{}, fmt.Errorf("invalid column in position (%s)", position)
	}

	pth := strings.Join(parts[:len(parts)-2], ":")
	return pth, protocol.Position{Line: uint32(line - 1), Character: uint32(column - 1)}, nil
}

func testAtPosition(ctx context.Context, provider symbols.Provider, testExplorer *explorer.Explorer, directories *discovery.Directories, position string) error {
	pth, pos, err := parsePosition(position)
	if err != nil {
		return err
	}
	absPth, err := filepath.Abs(pth)
	if err != nil {
		return err
	}

	runContext, ok, err := symbols.FindTestInDocument(ctx, provider, protocol.DocumentURI(uri.File(absPth)), pos)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no test found at %s", position)
	}

	filter := "FullyQualifiedName~" + runContext.TestName
	if runContext.IsSingleTest {
		filter = "FullyQualifiedName=" + runContext.TestName
	}
	log.Donef("Test filter: %s", filter)
	exportEnv("DOTNET_TEST_FILTER", filter)

	for _, n := range testExplorer.MarkRunning(runContext) {
		log.Printf("- %s", n.FullName())
	}

	dirs := directories.TestDirectories(runContext.TestName)
	if len(dirs) > 0 {
		exportEnv("DOTNET_TEST_DIRECTORIES", strings.Join(dirs, "\n"))
	}

	return nil
}

func exportReport(collection test.Collection, config Config, fileManager fileutilV2.FileManager, redactor fileredactor.FileRedactor, logger logV2.Logger) error {
	name := config.ReportName
	if name == "" {
		name = filepath.Base(config.WorkspaceDir)
	}

	report, err := test.NewReport(name, collection, stepInfo)
	if err != nil {
		return err
	}

	var secrets []string
	if config.ReportUploadToken != "" {
		secrets = append(secrets, string(config.ReportUploadToken))
	}

	if config.JUnitReportPath != "" {
		if err := fileManager.WriteBytes(config.JUnitReportPath, report.XMLContent); err != nil {
			return fmt.Errorf("failed to write report (%s): %w", config.JUnitReportPath, err)
		}
		if err := redactor.RedactFiles([]string{config.JUnitReportPath}, secrets); err != nil {
			return err
		}
		exportEnv("DOTNET_TEST_JUNIT_REPORT_PATH", config.JUnitReportPath)
	}

	if config.ReportUploadURL == "" {
		return nil
	}

	report.XMLContent, err = redactor.Redact(report.XMLContent, secrets)
	if err != nil {
		return err
	}

	return report.Upload(string(config.ReportUploadToken), config.ReportUploadURL, logger)
}

func renderSummary(summaryFormat string, summary Summary) (string, error) {
	temp, err := template.New("Summary template").Parse(summaryFormat)
	if err != nil {
		return "", fmt.Errorf("error during parsing SummaryFormat: %s", err)
	}

	buf := new(bytes.Buffer)
	if err := temp.Execute(buf, summary); err != nil {
		return "", fmt.Errorf("execute: %s", err)
	}
	return buf.String(), nil
}

func exportSummary(summaryFormat string, summary Summary) error {
	rendered, err := renderSummary(summaryFormat, summary)
	if err != nil {
		return err
	}

	if err := tools.ExportEnvironmentWithEnvman("DOTNET_TEST_SUMMARY", rendered); err != nil {
		return fmt.Errorf("failed to export DOTNET_TEST_SUMMARY, error: %s", err)
	}
	log.Printf("The test summary is now available in the Environment Variable: DOTNET_TEST_SUMMARY (value: %s)", rendered)
	return nil
}

func exportEnv(key, value string) {
	if err := tools.ExportEnvironmentWithEnvman(key, value); err != nil {
		log.Warnf("Failed to export %s: %s", key, err)
	}
}

func validateGoTemplate(summaryFormat string) error {
	temp := template.New("Summary template")

	_, err := temp.Parse(summaryFormat)
	return err
}
