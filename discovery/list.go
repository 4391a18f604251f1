package discovery

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

const testListHeader = "The following Tests are available:"

var platformVersionRegexp = regexp.MustCompile(`Test Execution Command Line Tool Version (\d+(?:\.\d+)+)`)

// minimumListVersion is the first test platform listing fully qualified names.
var minimumListVersion = version.Must(version.NewVersion("15.0.0"))

// TestList is the output of `dotnet test --list-tests`.
type TestList struct {
	Names []string
	// PlatformVersion is nil when the output does not name the test platform.
	PlatformVersion *version.Version
}

// ParseListOutput reads the test names listed after the "available tests" header.
func ParseListOutput(output string) (TestList, error) {
	var list TestList
	inList := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if matches := platformVersionRegexp.FindStringSubmatch(line); matches != nil {
			v, err := version.NewVersion(matches[1])
			if err != nil {
				return TestList{}, fmt.Errorf("invalid test platform version (%s): %w", matches[1], err)
			}
			list.PlatformVersion = v
			continue
		}

		if strings.TrimSpace(line) == testListHeader {
			inList = true
			continue
		}

		if !inList {
			continue
		}

		name := strings.TrimSpace(line)
		if name == "" || !strings.HasPrefix(line, " ") {
			inList = false
			continue
		}
		list.Names = append(list.Names, name)
	}
	if err := scanner.Err(); err != nil {
		return TestList{}, err
	}

	return list, nil
}

// FullyQualified reports whether the listed names can be used as tree input as they are.
// Older test platforms list bare method names.
func (l TestList) FullyQualified() bool {
	return l.PlatformVersion == nil || l.PlatformVersion.GreaterThanOrEqual(minimumListVersion)
}
