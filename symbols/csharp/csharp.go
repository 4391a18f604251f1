// Package csharp reports the namespaces, classes and methods of C# sources
// the way the C# language server does, so they can be fed to the symbols package.
package csharp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"go.lsp.dev/protocol"
)

// C# AST node types.
const (
	nodeNamespaceDeclaration = "namespace_declaration"
	nodeFileScopedNamespace  = "file_scoped_namespace_declaration"
	nodeClassDeclaration     = "class_declaration"
	nodeRecordDeclaration    = "record_declaration"
	nodeStructDeclaration    = "struct_declaration"
	nodeMethodDeclaration    = "method_declaration"
	nodeParameter            = "parameter"
)

// ParseSymbols parses source and returns its symbol hierarchy.
//
// Classes are reported qualified with their namespace, nested classes with
// their enclosing class and a + separator. Methods are reported as
// Name(ParamType, ...).
func ParseSymbols(ctx context.Context, source []byte) ([]protocol.DocumentSymbol, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(csharp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse C# source: %w", err)
	}
	defer tree.Close()

	w := walker{source: source}
	return w.compilationUnit(tree.RootNode()), nil
}

type walker struct {
	source []byte
}

// compilationUnit handles file scoped namespaces: depending on the grammar
// version the declarations after them are either their children or their siblings.
func (w walker) compilationUnit(root *sitter.Node) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol
	fileScoped := -1

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)

		if child.Type() == nodeFileScopedNamespace {
			name := w.text(child.ChildByFieldName("name"))
			namespace := w.symbol(child, child.ChildByFieldName("name"), name, protocol.SymbolKindNamespace)
			namespace.Children = w.members(child, name, "")
			symbols = append(symbols, namespace)
			fileScoped = len(symbols) - 1
			continue
		}

		if fileScoped >= 0 {
			namespace := &symbols[fileScoped]
			members := w.member(child, namespace.Name, "")
			if len(members) > 0 {
				namespace.Children = append(namespace.Children, members...)
				namespace.Range.End = position(child.EndPoint())
			}
			continue
		}

		symbols = append(symbols, w.member(child, "", "")...)
	}

	return symbols
}

func (w walker) members(node *sitter.Node, namespace, enclosingClass string) []protocol.DocumentSymbol {
	if node == nil {
		return nil
	}

	var symbols []protocol.DocumentSymbol
	for i := 0; i < int(node.NamedChildCount()); i++ {
		symbols = append(symbols, w.member(node.NamedChild(i), namespace, enclosingClass)...)
	}
	return symbols
}

func (w walker) member(node *sitter.Node, namespace, enclosingClass string) []protocol.DocumentSymbol {
	switch node.Type() {
	case nodeNamespaceDeclaration:
		nameNode := node.ChildByFieldName("name")
		name := w.text(nameNode)
		qualified := name
		if namespace != "" {
			qualified = namespace + "." + name
		}

		symbol := w.symbol(node, nameNode, name, protocol.SymbolKindNamespace)
		symbol.Children = w.members(node.ChildByFieldName("body"), qualified, "")
		return []protocol.DocumentSymbol{symbol}

	case nodeClassDeclaration, nodeRecordDeclaration, nodeStructDeclaration:
		nameNode := node.ChildByFieldName("name")
		name := w.text(nameNode)
		switch {
		case enclosingClass != "":
			name = enclosingClass + "+" + name
		case namespace != "":
			name = namespace + "." + name
		}

		symbol := w.symbol(node, nameNode, name, protocol.SymbolKindClass)
		symbol.Children = w.members(node.ChildByFieldName("body"), namespace, name)
		return []protocol.DocumentSymbol{symbol}

	case nodeMethodDeclaration:
		nameNode := node.ChildByFieldName("name")
		name := w.text(nameNode) + "(" + strings.Join(w.parameterTypes(node.ChildByFieldName("parameters")), ", ") + ")"
		return []protocol.DocumentSymbol{w.symbol(node, nameNode, name, protocol.SymbolKindMethod)}
	}

	return nil
}

func (w walker) parameterTypes(parameters *sitter.Node) []string {
	if parameters == nil {
		return nil
	}

	var types []string
	for i := 0; i < int(parameters.NamedChildCount()); i++ {
		parameter := parameters.NamedChild(i)
		if parameter.Type() != nodeParameter {
			continue
		}
		if typeNode := parameter.ChildByFieldName("type"); typeNode != nil {
			types = append(types, w.text(typeNode))
		} else {
			types = append(types, w.text(parameter))
		}
	}
	return types
}

func (w walker) symbol(node, nameNode *sitter.Node, name string, kind protocol.SymbolKind) protocol.DocumentSymbol {
	selection := nodeRange(node)
	if nameNode != nil {
		selection = nodeRange(nameNode)
	}

	return protocol.DocumentSymbol{
		Name:           name,
		Kind:           kind,
		Range:          nodeRange(node),
		SelectionRange: selection,
	}
}

func (w walker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(w.source)
}

func nodeRange(node *sitter.Node) protocol.Range {
	return protocol.Range{Start: position(node.StartPoint()), End: position(node.EndPoint())}
}

func position(p sitter.Point) protocol.Position {
	return protocol.Position{Line: p.Row, Character: p.Column}
}
