// Package symbols reconciles the symbols reported by a language's symbol
// provider with fully qualified test names.
package symbols

import (
	"context"
	"strings"

	"github.com/bitrise-steplib/steps-dotnet-test-explorer/testname"
	"go.lsp.dev/protocol"
)

// Provider is the symbol oracle of a workspace.
type Provider interface {
	// DocumentSymbols returns the hierarchical symbols of one file.
	DocumentSymbols(ctx context.Context, uri protocol.DocumentURI) ([]protocol.DocumentSymbol, error)
	// WorkspaceSymbols returns the symbols matching query across the workspace.
	WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error)
}

// Symbol is a flattened document symbol.
type Symbol struct {
	FullName   string
	ParentName string
	Document   protocol.DocumentSymbol
}

// Flatten turns a symbol forest into a flat list, parents first.
//
// Method names lose their argument list. A class nested in a class is named
// parentName+"+"+ownName, where a pre-qualified own name is stripped of the
// parent prefix first. Any other class keeps its reported name, since providers
// report those already qualified. Everything else is parentName+"."+name.
func Flatten(documentSymbols []protocol.DocumentSymbol, parentName string, parentIsClass bool) []Symbol {
	var flattened []Symbol

	for _, ds := range documentSymbols {
		name := ds.Name
		if ds.Kind == protocol.SymbolKindMethod {
			name = testname.StripArguments(name)
		}

		var fullName string
		switch {
		case ds.Kind == protocol.SymbolKindClass && parentIsClass && parentName != "":
			own := strings.TrimPrefix(name, parentName+".")
			own = strings.TrimPrefix(own, parentName+"+")
			fullName = parentName + "+" + own
		case ds.Kind == protocol.SymbolKindClass:
			fullName = name
		case parentName != "":
			fullName = parentName + "." + name
		default:
			fullName = name
		}

		flattened = append(flattened, Symbol{FullName: fullName, ParentName: parentName, Document: ds})
		flattened = append(flattened, Flatten(ds.Children, fullName, ds.Kind == protocol.SymbolKindClass)...)
	}

	return flattened
}

// DocumentTestSymbols fetches and flattens the symbols of one file.
func DocumentTestSymbols(ctx context.Context, provider Provider, uri protocol.DocumentURI) ([]Symbol, error) {
	documentSymbols, err := provider.DocumentSymbols(ctx, uri)
	if err != nil {
		return nil, err
	}
	return Flatten(documentSymbols, "", false), nil
}
