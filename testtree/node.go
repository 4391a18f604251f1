package testtree

import (
	"strings"

	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testname"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testresult"
)

// Icons of the tree nodes.
const (
	IconSpinner = "spinner.svg"
	IconRun     = "run.png"
	IconNotRun  = "testNotRun.png"

	namespaceIconPrefix = "namespace"
	theoryIconPrefix    = "theory"
	testIconPrefix      = "test"
)

// Node is a namespace, class, nested class, test method, theory or theory invocation.
type Node struct {
	ParentPath string
	Name       string
	// Separator joins ParentPath and Name: + for nested classes, . otherwise.
	Separator string
	// Parameters is the argument list of a theory invocation, including a leading space if the runner reports one.
	Parameters string
	Children   []*Node
	IsTheory   bool

	icon         string
	duration     string
	showDuration bool
	isError      bool
	isLoading    bool
}

func newNode(parentPath, name, separator string, children []*Node) *Node {
	return &Node{
		ParentPath: parentPath,
		Name:       name,
		Separator:  separator,
		Children:   children,
	}
}

// NewNode creates a standalone leaf with its icon computed from results.
func NewNode(parentPath, name, separator string, results []testresult.TestResult) *Node {
	n := newNode(parentPath, name, separator, nil)
	n.Refresh(results)
	return n
}

// FullName is the name test results are matched against.
func (n *Node) FullName() string {
	if n.ParentPath == "" {
		return n.Name + n.Parameters
	}
	return n.ParentPath + n.Separator + n.Name + n.Parameters
}

// FQN is the full name without argument lists, as the runner filter and the symbol providers name the test.
func (n *Node) FQN() string {
	return strings.TrimRight(testname.StripArguments(n.FullName()), " ")
}

// DisplayName is the label of the node.
func (n *Node) DisplayName() string {
	name := n.Name + n.Parameters
	if n.showDuration && n.duration != "" {
		name += " [" + n.duration + "]"
	}
	return name
}

// IsFolder reports whether the node has children.
func (n *Node) IsFolder() bool {
	return len(n.Children) > 0
}

// IsError reports whether the node is a placeholder carrying a message.
func (n *Node) IsError() bool {
	return n.isError
}

// Icon returns the icon of the node, a spinner while its test is running.
func (n *Node) Icon() string {
	if n.isLoading {
		return IconSpinner
	}
	return n.icon
}

// Duration of the matching result, empty for folders and tests without one.
func (n *Node) Duration() string {
	return n.duration
}

// SetAsError turns the node into a placeholder showing message.
func (n *Node) SetAsError(message string) {
	n.isError = true
	n.Name = message
}

// SetAsLoading shows a spinner until the next Refresh.
func (n *Node) SetAsLoading() {
	n.isLoading = true
}

// Refresh recomputes the icon and the duration from results.
// A nil results means no result set is available yet.
func (n *Node) Refresh(results []testresult.TestResult) {
	n.isLoading = false
	n.icon, n.duration = Icon(n, results)
}

// Icon derives the icon and duration of node from results.
func Icon(node *Node, results []testresult.TestResult) (icon, duration string) {
	prefix := namespaceIconPrefix
	if node.IsTheory {
		prefix = theoryIconPrefix
	}

	if results == nil {
		if node.IsFolder() || node.IsTheory {
			return prefix + ".png", ""
		}
		return IconRun, ""
	}

	if !node.IsFolder() && !node.IsTheory {
		fullName := node.FullName()
		for _, result := range results {
			if result.FullName() == fullName {
				return testIconPrefix + result.Outcome + ".png", result.Duration
			}
		}
		return IconNotRun, ""
	}

	var failed, notExecuted, passed bool
	for _, result := range results {
		if !node.covers(result) {
			continue
		}
		switch result.Outcome {
		case testresult.Failed:
			failed = true
		case testresult.NotExecuted:
			notExecuted = true
		case testresult.Passed:
			passed = true
		}
	}

	switch {
	case failed:
		return prefix + testresult.Failed + ".png", ""
	case notExecuted:
		return prefix + testresult.NotExecuted + ".png", ""
	case passed:
		return prefix + testresult.Passed + ".png", ""
	default:
		return prefix + ".png", ""
	}
}

// covers reports whether result belongs under the folder node.
// A theory only covers invocations of its own class, which ParentPath names in full.
func (n *Node) covers(result testresult.TestResult) bool {
	if n.IsTheory {
		return result.ClassName == n.ParentPath &&
			(strings.HasPrefix(result.MethodName, n.Name+"(") || strings.HasPrefix(result.MethodName, n.Name+" ("))
	}
	return strings.HasPrefix(result.FullName(), n.FullName())
}
