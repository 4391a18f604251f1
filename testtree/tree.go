// Package testtree builds the namespace/class/method tree shown for the
// discovered tests and keeps its icons in sync with the latest results.
package testtree

import (
	"sort"
	"strings"

	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testname"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
)

// Options control how the nodes of a tree are labelled.
type Options struct {
	// ShowDuration appends the duration of the last run to test names.
	ShowDuration bool
}

// Tree is the built forest plus a flat registry of every node in it.
type Tree struct {
	Roots []*Node
	All   []*Node
}

type branch struct {
	tests    []string
	seen     map[string]bool
	children map[string]*branch
	// nested is set on classes reached through a + segment other than the first.
	nested bool
}

func newBranch(nested bool) *branch {
	return &branch{
		seen:     map[string]bool{},
		children: map[string]*branch{},
		nested:   nested,
	}
}

// Build turns fully qualified test names into a tree. Dots outside argument
// lists separate namespaces, classes and the method; + separates nested classes.
// Parameterized invocations of one method are grouped under a theory node.
// results is the snapshot icons are computed from, nil when nothing ran yet.
func Build(names []string, results []testresult.TestResult, opts Options) *Tree {
	root := newBranch(false)
	for _, name := range names {
		root.add(testname.SplitRespectingParens(name, '.'))
	}

	t := &Tree{}
	t.Roots = t.nodes("", root, results, opts)
	return t
}

// BuildFlat lists every test name as a root leaf.
func BuildFlat(names []string, results []testresult.TestResult, opts Options) *Tree {
	t := &Tree{}
	for _, name := range names {
		n := t.leaf("", name, ".", results, opts)
		t.Roots = append(t.Roots, n)
	}
	return t
}

func (b *branch) add(segments []string) {
	if len(segments) == 1 {
		if !b.seen[segments[0]] {
			b.seen[segments[0]] = true
			b.tests = append(b.tests, segments[0])
		}
		return
	}

	current := b
	for i, class := range strings.Split(segments[0], "+") {
		child, ok := current.children[class]
		if !ok {
			child = newBranch(i > 0)
			current.children[class] = child
		}
		current = child
	}

	current.add(segments[1:])
}

func (t *Tree) nodes(parentPath string, b *branch, results []testresult.TestResult, opts Options) []*Node {
	keys := make([]string, 0, len(b.children))
	for key := range b.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var nodes []*Node
	for _, key := range keys {
		child := b.children[key]

		separator := "."
		if child.nested {
			separator = "+"
		}

		path := key
		if parentPath != "" {
			path = parentPath + separator + key
		}

		n := newNode(parentPath, key, separator, t.nodes(path, child, results, opts))
		n.showDuration = opts.ShowDuration
		n.Refresh(results)

		t.All = append(t.All, n)
		nodes = append(nodes, n)
	}

	tests := append([]string{}, b.tests...)
	sort.Strings(tests)

	theories := map[string]*Node{}
	for _, test := range tests {
		method, parameters, ok := testname.SplitTheory(test)
		if !ok {
			nodes = append(nodes, t.leaf(parentPath, test, ".", results, opts))
			continue
		}

		theory, ok := theories[method]
		if !ok {
			theory = newNode(parentPath, method, ".", nil)
			theory.IsTheory = true
			theory.showDuration = opts.ShowDuration
			theories[method] = theory

			t.All = append(t.All, theory)
			nodes = append(nodes, theory)
		}

		invocation := newNode(parentPath, method, ".", nil)
		invocation.Parameters = parameters
		invocation.showDuration = opts.ShowDuration
		invocation.Refresh(results)

		t.All = append(t.All, invocation)
		theory.Children = append(theory.Children, invocation)
	}

	// The theory icon depends on its children.
	for _, theory := range theories {
		theory.Refresh(results)
	}

	return nodes
}

func (t *Tree) leaf(parentPath, name, separator string, results []testresult.TestResult, opts Options) *Node {
	n := newNode(parentPath, name, separator, nil)
	n.showDuration = opts.ShowDuration
	n.Refresh(results)

	t.All = append(t.All, n)
	return n
}

// Refresh recomputes every icon from results.
func (t *Tree) Refresh(results []testresult.TestResult) {
	for _, n := range t.All {
		n.Refresh(results)
	}
}

// MarkRunning shows a spinner on the tests a run covers and returns them.
// A single test is matched on its FQN, otherwise every test under testName runs.
func (t *Tree) MarkRunning(testName string, isSingleTest bool) []*Node {
	var running []*Node
	for _, n := range t.All {
		if n.IsFolder() {
			continue
		}

		matches := strings.HasPrefix(n.FullName(), testName)
		if isSingleTest {
			matches = n.FQN() == testName
		}
		if !matches {
			continue
		}

		n.SetAsLoading()
		running = append(running, n)
	}
	return running
}
