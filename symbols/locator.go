package symbols

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testname"
	"go.lsp.dev/protocol"
	"golang.org/x/sync/errgroup"
)

const maxParallelFetches = 8

var (
	// ErrTestNotFound is returned when no symbol matches the test.
	ErrTestNotFound = errors.New("could not find test (no symbols found)")
	// ErrAmbiguousTest is returned when more than one distinct symbol matches the test.
	ErrAmbiguousTest = errors.New("could not find test (multiple candidates found)")
)

type locationKey struct {
	uri   protocol.DocumentURI
	start protocol.Position
	end   protocol.Position
}

// Locator resolves the source location of a test.
type Locator struct {
	provider Provider
	logger   log.Logger
}

// NewLocator returns a Locator querying provider for symbols.
func NewLocator(provider Provider, logger log.Logger) Locator {
	return Locator{
		provider: provider,
		logger:   logger,
	}
}

// GotoTest looks up the workspace symbols named like the method of fqn and
// resolves the location of the test among them.
func (l Locator) GotoTest(ctx context.Context, fqn string) (protocol.Location, error) {
	query := testname.LastSegment(fqn)

	workspaceSymbols, err := l.provider.WorkspaceSymbols(ctx, query)
	if err != nil {
		return protocol.Location{}, fmt.Errorf("failed to query workspace symbols (%s): %w", query, err)
	}

	var methods []protocol.SymbolInformation
	for _, s := range workspaceSymbols {
		if s.Kind == protocol.SymbolKindMethod {
			methods = append(methods, s)
		}
	}

	location, err := l.FindTestLocation(ctx, methods, fqn)
	if err != nil {
		l.logger.Warnf("%s", err)
		return protocol.Location{}, err
	}

	return location, nil
}

// FindTestLocation returns the unique location among workspaceSymbols whose
// document symbol has the full name fqn. Every file is fetched once; the result
// is decided only after all of them are flattened.
func (l Locator) FindTestLocation(ctx context.Context, workspaceSymbols []protocol.SymbolInformation, fqn string) (protocol.Location, error) {
	var candidates []protocol.SymbolInformation
	var uris []protocol.DocumentURI
	uriIndex := map[protocol.DocumentURI]int{}

	for _, s := range workspaceSymbols {
		if !isTestCandidate(s) {
			continue
		}
		candidates = append(candidates, s)
		if _, ok := uriIndex[s.Location.URI]; !ok {
			uriIndex[s.Location.URI] = len(uris)
			uris = append(uris, s.Location.URI)
		}
	}

	documents, err := l.fetchDocuments(ctx, uris)
	if err != nil {
		return protocol.Location{}, err
	}

	var locations []protocol.Location
	seen := map[locationKey]bool{}

	for _, candidate := range candidates {
		for _, s := range documents[uriIndex[candidate.Location.URI]] {
			if s.FullName != fqn {
				continue
			}

			key := locationKey{uri: candidate.Location.URI, start: s.Document.Range.Start, end: s.Document.Range.End}
			if seen[key] {
				continue
			}
			seen[key] = true

			locations = append(locations, protocol.Location{URI: candidate.Location.URI, Range: s.Document.Range})
		}
	}

	switch len(locations) {
	case 0:
		return protocol.Location{}, fmt.Errorf("%w: %s", ErrTestNotFound, fqn)
	case 1:
		return locations[0], nil
	default:
		return protocol.Location{}, fmt.Errorf("%w: %s (%d locations)", ErrAmbiguousTest, fqn, len(locations))
	}
}

func (l Locator) fetchDocuments(ctx context.Context, uris []protocol.DocumentURI) ([][]Symbol, error) {
	documents := make([][]Symbol, len(uris))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)

	for i, uri := range uris {
		i, uri := i, uri
		g.Go(func() error {
			flattened, err := DocumentTestSymbols(gCtx, l.provider, uri)
			if err != nil {
				return fmt.Errorf("failed to get document symbols (%s): %w", uri, err)
			}
			documents[i] = flattened
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return documents, nil
}

// F# tests are let-bound values, reported as variables.
func isTestCandidate(s protocol.SymbolInformation) bool {
	if strings.HasSuffix(string(s.Location.URI), ".fs") {
		return s.Kind == protocol.SymbolKindVariable
	}
	return s.Kind == protocol.SymbolKindMethod
}
