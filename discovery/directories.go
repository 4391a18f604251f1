// Package discovery finds the test projects of a workspace and reads the test
// names the test platform lists for them.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bmatcuk/doublestar/v4"
)

// DefaultTestProjectPattern matches the conventional test project folders.
const DefaultTestProjectPattern = "**/*Tests"

const projectFilePattern = "{*.csproj,*.sln,*.fsproj}"

type directoryTest struct {
	dir  string
	name string
}

// Directories tracks the buildable test project folders and the tests found in them.
type Directories struct {
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
	logger       log.Logger

	directories []string
	tests       []directoryTest
}

// NewDirectories ...
func NewDirectories(pathModifier pathutil.PathModifier, pathChecker pathutil.PathChecker, logger log.Logger) *Directories {
	return &Directories{
		pathModifier: pathModifier,
		pathChecker:  pathChecker,
		logger:       logger,
	}
}

// Parse evaluates testProjectPattern in every workspace folder. Matching files
// stand for their folder; folders without a project or solution file are skipped.
func (d *Directories) Parse(workspaceFolders []string, testProjectPattern string) ([]string, error) {
	if testProjectPattern == "" {
		testProjectPattern = DefaultTestProjectPattern
	}

	d.directories = nil
	seen := map[string]bool{}

	for _, folder := range workspaceFolders {
		absFolder, err := d.pathModifier.AbsPath(folder)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path (%s): %w", folder, err)
		}

		d.logger.Debugf("Finding projects for pattern %s in %s", testProjectPattern, absFolder)

		matches, err := doublestar.Glob(os.DirFS(absFolder), filepath.ToSlash(testProjectPattern))
		if err != nil {
			return nil, fmt.Errorf("invalid test project pattern (%s): %w", testProjectPattern, err)
		}

		d.logger.Debugf("Found %d matches for pattern in folder %s", len(matches), absFolder)

		for _, match := range matches {
			dir, ok, err := d.evaluate(filepath.Join(absFolder, filepath.FromSlash(match)))
			if err != nil {
				return nil, err
			}
			if ok && !seen[dir] {
				seen[dir] = true
				d.directories = append(d.directories, dir)
			}
		}
	}

	sort.Strings(d.directories)

	return d.directories, nil
}

func (d *Directories) evaluate(pth string) (string, bool, error) {
	isDir, err := d.pathChecker.IsDirExists(pth)
	if err != nil {
		return "", false, fmt.Errorf("failed to check if path (%s) is a directory: %w", pth, err)
	}
	if !isDir {
		pth = filepath.Dir(pth)
	}

	projects, err := doublestar.Glob(os.DirFS(pth), projectFilePattern)
	if err != nil {
		return "", false, fmt.Errorf("failed to search for project files in %s: %w", pth, err)
	}
	if len(projects) == 0 {
		d.logger.Warnf("Skipping path %s since it does not contain something we can build (.sln, .csproj, .fsproj)", pth)
		return "", false, nil
	}

	d.logger.Debugf("Adding directory %s", pth)
	return pth, true, nil
}

// AddTests records the tests discovered in dir.
func (d *Directories) AddTests(dir string, names []string) {
	for _, name := range names {
		d.tests = append(d.tests, directoryTest{dir: dir, name: name})
	}
}

// ClearTests forgets every discovered test.
func (d *Directories) ClearTests() {
	d.tests = nil
}

// FirstTest returns a test discovered in dir.
func (d *Directories) FirstTest(dir string) (string, bool) {
	for _, t := range d.tests {
		if t.dir == dir {
			return t.name, true
		}
	}
	return "", false
}

// TestDirectories returns the folders owning a test named like testName,
// or every folder for an empty testName.
func (d *Directories) TestDirectories(testName string) []string {
	if testName == "" {
		return d.directories
	}

	var dirs []string
	seen := map[string]bool{}
	for _, t := range d.tests {
		if strings.HasPrefix(t.name, testName) && !seen[t.dir] {
			seen[t.dir] = true
			dirs = append(dirs, t.dir)
		}
	}
	return dirs
}

// Remove drops a folder that turned out to have no tests.
func (d *Directories) Remove(dir string) {
	var kept []string
	for _, directory := range d.directories {
		if directory != dir {
			kept = append(kept, directory)
		}
	}
	d.directories = kept

	d.logger.Warnf("Removed directory %s due to it not containing any tests", dir)
}
