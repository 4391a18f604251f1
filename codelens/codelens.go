// Package codelens maps the latest test results onto the test methods of a source file.
package codelens

import (
	"context"
	"sync"

	"github.com/bitrise-steplib/steps-dotnet-test-explorer/symbols"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testname"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
	"go.lsp.dev/protocol"
)

// Lens states.
const (
	StatePassed  = "passed"
	StateFailed  = "failed"
	StateSkipped = "skipped"
)

// Lens is the status shown above a test method.
type Lens struct {
	Range protocol.Range
	State string
}

// Provider remembers the latest result of every test, including tests not part
// of the last run, so a single test run keeps the other lenses.
type Provider struct {
	mu           sync.RWMutex
	results      map[string]testresult.TestResult
	showDuration bool
}

// NewProvider ...
func NewProvider(showDuration bool) *Provider {
	return &Provider{
		results:      map[string]testresult.TestResult{},
		showDuration: showDuration,
	}
}

// AddResults stores the results of a run.
func (p *Provider) AddResults(change testresult.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, result := range change.Results {
		p.results[result.FullName()] = result
	}
}

// DocumentLenses fetches the symbols of uri and returns its lenses.
func (p *Provider) DocumentLenses(ctx context.Context, provider symbols.Provider, uri protocol.DocumentURI) ([]Lens, error) {
	flattened, err := symbols.DocumentTestSymbols(ctx, provider, uri)
	if err != nil {
		return nil, err
	}
	return p.Lenses(flattened), nil
}

// Lenses returns a lens for every method symbol with a known result. A theory
// method gets one lens for all its invocations, failed if any of them failed.
func (p *Provider) Lenses(flattened []symbols.Symbol) []Lens {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var lenses []Lens
	for _, s := range flattened {
		if s.Document.Kind != protocol.SymbolKindMethod {
			continue
		}

		method := testname.StripArguments(s.Document.Name)

		if result, ok := p.results[s.ParentName+"."+method]; ok {
			if state := parseOutcome(result.Outcome); state != "" {
				if p.showDuration && result.Duration != "" {
					state += " [" + result.Duration + "]"
				}
				lenses = append(lenses, Lens{Range: s.Document.SelectionRange, State: state})
			}
			continue
		}

		if state := p.theoryState(s.ParentName, method); state != "" {
			lenses = append(lenses, Lens{Range: s.Document.SelectionRange, State: state})
		}
	}
	return lenses
}

func (p *Provider) theoryState(className, method string) string {
	var found, notExecuted bool
	for _, result := range p.results {
		if !result.MatchesTheory(className, method) {
			continue
		}
		found = true

		switch result.Outcome {
		case testresult.Failed:
			return StateFailed
		case testresult.NotExecuted:
			notExecuted = true
		}
	}

	switch {
	case !found:
		return ""
	case notExecuted:
		return StateSkipped
	default:
		return StatePassed
	}
}

func parseOutcome(outcome string) string {
	switch outcome {
	case testresult.Passed:
		return StatePassed
	case testresult.Failed:
		return StateFailed
	case testresult.NotExecuted:
		return StateSkipped
	default:
		return ""
	}
}
