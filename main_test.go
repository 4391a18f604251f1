package main

import (
	"os"
	"path/filepath"
	"testing"

	logV2 "github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/discovery"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/explorer"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/fileredactor"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

const listOutput = `Microsoft (R) Test Execution Command Line Tool Version 17.8.0 (x64)
The following Tests are available:
    UnitTests.Calculator.Adds(a: 1)
    UnitTests.Calculator.Adds(a: 2)
    UnitTests.Calculator.Divides
`

func Test_parsePosition(t *testing.T) {
	tests := []struct {
		name     string
		position string
		wantPath string
		wantPos  protocol.Position
		wantErr  bool
	}{
		{name: "path line column", position: "src/Tests.cs:12:5", wantPath: "src/Tests.cs", wantPos: protocol.Position{Line: 11, Character: 4}},
		{name: "path with colon", position: `C:\src\Tests.cs:1:1`, wantPath: `C:\src\Tests.cs`, wantPos: protocol.Position{}},
		{name: "missing column", position: "src/Tests.cs:12", wantErr: true},
		{name: "zero line", position: "src/Tests.cs:0:1", wantErr: true},
		{name: "invalid column", position: "src/Tests.cs:1:a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pth, pos, err := parsePosition(tt.position)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, pth)
			assert.Equal(t, tt.wantPos, pos)
		})
	}
}

func Test_ownerDirectory(t *testing.T) {
	dirs := []string{"/ws/test", "/ws/test/UnitTests", "/ws/test/UnitTestsOld"}

	assert.Equal(t, "/ws/test/UnitTests", ownerDirectory(dirs, "/ws/test/UnitTests/out/tests.txt"))
	assert.Equal(t, "/ws/test", ownerDirectory(dirs, "/ws/test/tests.txt"))
	assert.Equal(t, "/tmp", ownerDirectory(dirs, "/tmp/tests.txt"))
}

func Test_treeLines(t *testing.T) {
	tree := testtree.Build([]string{"Ns.Cls.Adds(a: 1)", "Ns.Cls.Divides"}, nil, testtree.Options{})

	assert.Equal(t, []string{
		"- Ns (namespace.png)",
		"  - Cls (namespace.png)",
		"    - Adds (theory.png)",
		"      - Adds(a: 1) (run.png)",
		"    - Divides (run.png)",
	}, treeLines(tree.Roots, ""))
}

func Test_renderSummary(t *testing.T) {
	summary := Summary{Stats: explorer.Stats{Discovered: 3, Passed: 2, Failed: 1}, Location: "/ws/Tests.cs:3:5"}

	got, err := renderSummary("{{.Passed}}/{{.Discovered}} passed, {{.Failed}} failed{{if .Location}} at {{.Location}}{{end}}", summary)
	require.NoError(t, err)
	assert.Equal(t, "2/3 passed, 1 failed at /ws/Tests.cs:3:5", got)

	_, err = renderSummary("{{.Missing}}", summary)
	assert.Error(t, err)

	assert.Error(t, validateGoTemplate("{{.Passed"))
	assert.NoError(t, validateGoTemplate("{{.Passed}}"))
}

func Test_discoverTests(t *testing.T) {
	workspace := t.TempDir()
	for _, file := range []string{"test/UnitTests/UnitTests.csproj", "test/EmptyTests/EmptyTests.csproj"} {
		pth := filepath.Join(workspace, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(pth), 0755))
		require.NoError(t, os.WriteFile(pth, []byte(""), 0600))
	}
	listFile := filepath.Join(workspace, "test", "UnitTests", "tests.txt")
	require.NoError(t, os.WriteFile(listFile, []byte(listOutput), 0600))

	pathModifier := pathutil.NewPathModifier()
	pathChecker := pathutil.NewPathChecker()
	directories := discovery.NewDirectories(pathModifier, pathChecker, logV2.NewLogger())

	config := Config{DiscoveredTestsPath: listFile}
	discovered, err := discoverTests(directories, workspace, config, fileredactor.NewFilePathProcessor(pathModifier, pathChecker))
	require.NoError(t, err)

	unitTests := filepath.Join(workspace, "test", "UnitTests")
	assert.Equal(t, []explorer.DiscoveredTests{{
		Directory: unitTests,
		TestNames: []string{"UnitTests.Calculator.Adds(a: 1)", "UnitTests.Calculator.Adds(a: 2)", "UnitTests.Calculator.Divides"},
	}}, discovered)
	assert.Equal(t, []string{unitTests}, directories.TestDirectories(""))
	assert.Equal(t, []string{unitTests}, directories.TestDirectories("UnitTests.Calculator"))

	discovered, err = discoverTests(directories, workspace, Config{}, fileredactor.NewFilePathProcessor(pathModifier, pathChecker))
	require.NoError(t, err)
	assert.Nil(t, discovered)
	assert.Len(t, directories.TestDirectories(""), 2)
	assert.Empty(t, directories.TestDirectories("UnitTests.Calculator"))
}
