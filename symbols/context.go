package symbols

import (
	"context"

	"go.lsp.dev/protocol"
)

// RunContext names the tests a run started from a source position targets.
type RunContext struct {
	TestName string
	// IsSingleTest is set when TestName is one test, otherwise every test with the TestName prefix runs.
	IsSingleTest bool
}

// FindTestInContext returns the tests to run for position: the method under it,
// or the innermost class containing it.
func FindTestInContext(flattened []Symbol, position protocol.Position) (RunContext, bool) {
	var inRange []Symbol
	for _, s := range flattened {
		if contains(s.Document.Range, position) {
			inRange = append(inRange, s)
		}
	}

	for _, s := range inRange {
		if s.Document.Kind == protocol.SymbolKindMethod {
			return RunContext{TestName: s.FullName, IsSingleTest: true}, true
		}
	}

	// Flattened symbols list parents first.
	for i := len(inRange) - 1; i >= 0; i-- {
		if inRange[i].Document.Kind == protocol.SymbolKindClass {
			return RunContext{TestName: inRange[i].FullName}, true
		}
	}

	return RunContext{}, false
}

// FindTestInDocument fetches the symbols of uri and looks up the tests at position.
func FindTestInDocument(ctx context.Context, provider Provider, uri protocol.DocumentURI, position protocol.Position) (RunContext, bool, error) {
	flattened, err := DocumentTestSymbols(ctx, provider, uri)
	if err != nil {
		return RunContext{}, false, err
	}

	runContext, ok := FindTestInContext(flattened, position)
	return runContext, ok, nil
}

func contains(r protocol.Range, p protocol.Position) bool {
	return !before(p, r.Start) && !before(r.End, p)
}

func before(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}
