package csharp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/fileutil"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testname"
	"github.com/bmatcuk/doublestar/v4"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"
)

const (
	sourcePattern = "**/*.cs"
	maxWorkers    = 8
)

// Build output folders hold generated sources only.
var skippedDirs = map[string]bool{"bin": true, "obj": true, ".git": true}

// Provider is a symbol provider over the C# sources of a workspace folder.
type Provider struct {
	root   string
	logger log.Logger
}

// NewProvider ...
func NewProvider(root string, logger log.Logger) Provider {
	return Provider{
		root:   root,
		logger: logger,
	}
}

// DocumentSymbols parses the file behind documentURI.
func (p Provider) DocumentSymbols(ctx context.Context, documentURI protocol.DocumentURI) ([]protocol.DocumentSymbol, error) {
	pth := uri.URI(documentURI).Filename()

	source, err := fileutil.ReadBytesFromFile(pth)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pth, err)
	}

	return ParseSymbols(ctx, source)
}

// WorkspaceSymbols returns every namespace, class and method of the workspace
// whose name contains query, ignoring case and argument lists.
func (p Provider) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	files, err := p.sourceFiles()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(testname.StripArguments(query))
	perFile := make([][]protocol.SymbolInformation, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			documentURI := protocol.DocumentURI(uri.File(file))

			documentSymbols, err := p.DocumentSymbols(gCtx, documentURI)
			if err != nil {
				p.logger.Warnf("Skipping %s: %s", file, err)
				return nil
			}

			perFile[i] = matching(documentSymbols, documentURI, "", query)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var symbols []protocol.SymbolInformation
	for _, s := range perFile {
		symbols = append(symbols, s...)
	}

	p.logger.Debugf("%d workspace symbols match %q in %d files", len(symbols), query, len(files))

	return symbols, nil
}

func (p Provider) sourceFiles() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(p.root), sourcePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search for C# sources in %s: %w", p.root, err)
	}

	var files []string
	for _, match := range matches {
		if isSkipped(match) {
			continue
		}
		files = append(files, filepath.Join(p.root, filepath.FromSlash(match)))
	}
	return files, nil
}

func isSkipped(match string) bool {
	for _, dir := range strings.Split(match, "/") {
		if skippedDirs[dir] {
			return true
		}
	}
	return false
}

func matching(documentSymbols []protocol.DocumentSymbol, documentURI protocol.DocumentURI, container, query string) []protocol.SymbolInformation {
	var symbols []protocol.SymbolInformation
	for _, ds := range documentSymbols {
		if strings.Contains(strings.ToLower(testname.StripArguments(ds.Name)), query) {
			symbols = append(symbols, protocol.SymbolInformation{
				Name:          ds.Name,
				Kind:          ds.Kind,
				ContainerName: container,
				Location:      protocol.Location{URI: documentURI, Range: ds.SelectionRange},
			})
		}
		symbols = append(symbols, matching(ds.Children, documentURI, ds.Name, query)...)
	}
	return symbols
}
