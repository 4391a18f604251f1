package fileredactor

import (
	"fmt"
	"strings"

	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// FilePathProcessor accepts file paths separated by the newline (`\n`) character
// and returns them as absolute paths.
type FilePathProcessor interface {
	ProcessFilePaths(string) ([]string, error)
}

type filePathProcessor struct {
	pathModifier pathutil.PathModifier
	pathChecker  pathutil.PathChecker
}

// NewFilePathProcessor returns a processor expanding environment variables and
// relative paths. Every path must point to an existing file.
func NewFilePathProcessor(modifier pathutil.PathModifier, checker pathutil.PathChecker) FilePathProcessor {
	return filePathProcessor{
		pathModifier: modifier,
		pathChecker:  checker,
	}
}

func (f filePathProcessor) ProcessFilePaths(filePaths string) ([]string, error) {
	filePaths = strings.TrimSpace(filePaths)
	if filePaths == "" {
		return nil, nil
	}

	var processedFilePaths []string

	for _, item := range strings.Split(filePaths, "\n") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		path, err := f.pathModifier.AbsPath(item)
		if err != nil {
			return nil, err
		}

		exists, err := f.pathChecker.IsPathExists(path)
		if err != nil {
			return nil, fmt.Errorf("failed to check if path (%s) exists: %w", path, err)
		}
		if !exists {
			return nil, fmt.Errorf("file (%s) does not exist", path)
		}

		isDir, err := f.pathChecker.IsDirExists(path)
		if err != nil {
			return nil, fmt.Errorf("failed to check if path (%s) is a directory: %w", path, err)
		}
		if isDir {
			return nil, fmt.Errorf("path (%s) is a directory, please make sure to only provide file paths", path)
		}

		processedFilePaths = append(processedFilePaths, path)
	}

	return processedFilePaths, nil
}
