// Package fileredactor removes secrets from the exported test reports before
// they leave the machine.
package fileredactor

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/redactwriter"
)

// FileRedactor redacts secrets from report files and report contents.
type FileRedactor interface {
	RedactFiles(filePaths []string, secrets []string) error
	Redact(content []byte, secrets []string) ([]byte, error)
}

type fileRedactor struct {
	fileManager fileutil.FileManager
	logger      log.Logger
}

// NewFileRedactor ...
func NewFileRedactor(manager fileutil.FileManager, logger log.Logger) FileRedactor {
	return fileRedactor{
		fileManager: manager,
		logger:      logger,
	}
}

// RedactFiles rewrites every file in place with the secrets masked.
func (f fileRedactor) RedactFiles(filePaths []string, secrets []string) error {
	if len(secrets) == 0 {
		return nil
	}

	for _, path := range filePaths {
		if err := f.redactFile(path, secrets); err != nil {
			return fmt.Errorf("failed to redact file (%s): %w", path, err)
		}
	}

	return nil
}

// Redact returns content with the secrets masked.
func (f fileRedactor) Redact(content []byte, secrets []string) ([]byte, error) {
	if len(secrets) == 0 {
		return content, nil
	}

	var buf bytes.Buffer
	if err := f.redact(&buf, bytes.NewReader(content), secrets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f fileRedactor) redactFile(path string, secrets []string) error {
	source, err := f.fileManager.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file for redaction (%s): %w", path, err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			f.logger.Warnf("Failed to close file: %s", err)
		}
	}()

	newPath := path + ".redacted"
	destination, err := os.Create(newPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file for redaction: %w", err)
	}
	defer func() {
		if err := destination.Close(); err != nil {
			f.logger.Warnf("Failed to close file: %s", err)
		}
	}()

	if err := f.redact(destination, source, secrets); err != nil {
		return err
	}

	if err := os.Rename(newPath, path); err != nil {
		return fmt.Errorf("failed to overwrite report (%s) with the redacted one: %w", path, err)
	}

	return nil
}

func (f fileRedactor) redact(destination io.Writer, source io.Reader, secrets []string) error {
	redactWriter := redactwriter.New(secrets, destination, f.logger)
	if _, err := io.Copy(redactWriter, source); err != nil {
		return fmt.Errorf("failed to redact secrets: %w", err)
	}

	if err := redactWriter.Close(); err != nil {
		return fmt.Errorf("failed to close redact writer: %w", err)
	}

	return nil
}
