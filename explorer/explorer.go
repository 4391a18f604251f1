// Package explorer keeps the discovered tests and the latest results of a
// workspace together and renders them as test tree nodes.
package explorer

import (
	"slices"
	"sort"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/symbols"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testtree"
)

// Placeholder node names.
const (
	DiscoveringMessage     = "Discovering tests"
	NoProjectMessage       = "Please open or set the test project"
	ProjectCompilesMessage = "and ensure your project compiles."
)

// DiscoveredTests are the test names listed for one test project folder.
type DiscoveredTests struct {
	Directory string
	TestNames []string
}

// Options select the tree layout and whether durations are shown.
type Options struct {
	UseTreeView  bool
	ShowDuration bool
}

// ResultsListener is notified after a result change has been applied.
type ResultsListener func(change testresult.Change)

// Explorer owns the discovered test names and the merged result set.
// Readers always get a snapshot: a result slice is never modified once published.
type Explorer struct {
	opts   Options
	logger log.Logger

	mu         sync.RWMutex
	discovered []string
	results    []testresult.TestResult
	tree       *testtree.Tree
	listeners  []ResultsListener
}

// New returns an explorer waiting for discovery to finish.
func New(opts Options, logger log.Logger) *Explorer {
	return &Explorer{
		opts:   opts,
		logger: logger,
	}
}

// OnResultsChanged registers listener for every applied result change.
func (e *Explorer) OnResultsChanged(listener ResultsListener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners, listener)
}

// DiscoveryStarted forgets the discovered tests until DiscoveryFinished.
func (e *Explorer) DiscoveryStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.discovered = nil
	e.tree = nil
}

// DiscoveryFinished stores the tests of every discovered folder.
func (e *Explorer) DiscoveryFinished(discovered []DiscoveredTests) {
	names := []string{}
	for _, d := range discovered {
		names = append(names, d.TestNames...)
	}

	e.mu.Lock()
	e.discovered = names
	e.tree = nil
	e.mu.Unlock()

	e.logger.Debugf("Discovered %d tests", len(names))
}

// ApplyResults merges change into the result set. A full run replaces the
// discovered tests with the ones it reported; otherwise unknown tests are added.
// The built tree only has its icons refreshed while the test names stay the same.
func (e *Explorer) ApplyResults(change testresult.Change) {
	e.mu.Lock()

	previous := e.discovered
	var discovered []string
	if !change.ClearPrevious {
		discovered = append(discovered, e.discovered...)
	}
	e.discovered = appendMissing(discovered, change.FullNames())
	sort.Strings(e.discovered)

	e.results = testresult.Merge(e.results, change)
	if e.tree != nil && slices.Equal(previous, e.discovered) {
		e.tree.Refresh(e.results)
	} else {
		e.tree = nil
	}

	listeners := append([]ResultsListener{}, e.listeners...)
	e.mu.Unlock()

	e.logger.Debugf("Applied %d test results", len(change.Results))

	for _, listener := range listeners {
		listener(change)
	}
}

func appendMissing(names, newNames []string) []string {
	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}
	if names == nil {
		names = []string{}
	}
	for _, name := range newNames {
		if !known[name] {
			known[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Nodes returns the root nodes to display. Until discovery finishes a single
// loading node is returned; without any test two error nodes explain what to do.
func (e *Explorer) Nodes() []*testtree.Node {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.discovered == nil {
		n := testtree.NewNode("", DiscoveringMessage, ".", e.results)
		n.SetAsLoading()
		return []*testtree.Node{n}
	}

	if len(e.discovered) == 0 {
		var nodes []*testtree.Node
		for _, message := range []string{NoProjectMessage, ProjectCompilesMessage} {
			n := testtree.NewNode("", message, ".", e.results)
			n.SetAsError(message)
			nodes = append(nodes, n)
		}
		return nodes
	}

	return e.buildTree().Roots
}

func (e *Explorer) buildTree() *testtree.Tree {
	if e.tree != nil {
		return e.tree
	}

	opts := testtree.Options{ShowDuration: e.opts.ShowDuration}
	if e.opts.UseTreeView {
		e.tree = testtree.Build(e.discovered, e.results, opts)
	} else {
		e.tree = testtree.BuildFlat(e.discovered, e.results, opts)
	}
	return e.tree
}

// MarkRunning shows the tests of runContext as running and returns them.
func (e *Explorer) MarkRunning(runContext symbols.RunContext) []*testtree.Node {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.discovered == nil {
		return nil
	}

	running := e.buildTree().MarkRunning(runContext.TestName, runContext.IsSingleTest)
	e.logger.Debugf("Running %d tests", len(running))
	return running
}

// Stats counts the discovered tests and the outcomes of the result set.
type Stats struct {
	Discovered  int
	Passed      int
	Failed      int
	NotExecuted int
}

// Stats counts the discovered tests and the current outcomes.
func (e *Explorer) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Stats{Discovered: len(e.discovered)}
	for _, result := range e.results {
		switch result.Outcome {
		case testresult.Passed:
			stats.Passed++
		case testresult.Failed:
			stats.Failed++
		case testresult.NotExecuted:
			stats.NotExecuted++
		}
	}
	return stats
}
