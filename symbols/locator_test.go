package symbols

import (
	"context"
	"errors"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-dotnet-test-explorer/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

func workspaceSymbol(name string, kind protocol.SymbolKind, pth string) protocol.SymbolInformation {
	return protocol.SymbolInformation{
		Name: name,
		Kind: kind,
		Location: protocol.Location{
			URI: protocol.DocumentURI(uri.File(pth)),
			Range: protocol.Range{
				Start: protocol.Position{Line: 10, Character: 10},
				End:   protocol.Position{Line: 20, Character: 20},
			},
		},
	}
}

func TestLocator_FindTestLocation(t *testing.T) {
	tests := []struct {
		name      string
		symbols   []protocol.SymbolInformation
		documents map[string][]protocol.DocumentSymbol
		fqn       string
		wantPath  string
		wantErr   error
	}{
		{
			name:    "no symbols",
			fqn:     "Test",
			wantErr: ErrTestNotFound,
		},
		{
			name:    "no symbol matching",
			symbols: []protocol.SymbolInformation{workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.cs")},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test.cs": {documentSymbol("Test", protocol.SymbolKindMethod)},
			},
			fqn:     "NotFound",
			wantErr: ErrTestNotFound,
		},
		{
			name:    "one symbol matching",
			symbols: []protocol.SymbolInformation{workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.cs")},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test.cs": {documentSymbol("Test", protocol.SymbolKindMethod)},
			},
			fqn:      "Test",
			wantPath: "/tmp/test.cs",
		},
		{
			name:    "one F# symbol with spaces matching",
			symbols: []protocol.SymbolInformation{workspaceSymbol("Test with spaces", protocol.SymbolKindVariable, "/tmp/test.fs")},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test.fs": {documentSymbol("Test with spaces", protocol.SymbolKindVariable)},
			},
			fqn:      "Test with spaces",
			wantPath: "/tmp/test.fs",
		},
		{
			name:    "F# methods are not candidates",
			symbols: []protocol.SymbolInformation{workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.fs")},
			fqn:     "Test",
			wantErr: ErrTestNotFound,
		},
		{
			name: "multiple files matching",
			symbols: []protocol.SymbolInformation{
				workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test3.cs"),
				workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/myfolder/test.cs"),
				workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/folderx/test.cs"),
			},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test3.cs":         {documentSymbol("Test", protocol.SymbolKindMethod)},
				"/tmp/myfolder/test.cs": {documentSymbol("Test", protocol.SymbolKindMethod)},
				"/tmp/folderx/test.cs":  {documentSymbol("Test", protocol.SymbolKindMethod)},
			},
			fqn:     "Test",
			wantErr: ErrAmbiguousTest,
		},
		{
			name: "the same symbol reported twice",
			symbols: []protocol.SymbolInformation{
				workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.cs"),
				workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.cs"),
			},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test.cs": {documentSymbol("Test", protocol.SymbolKindMethod)},
			},
			fqn:      "Test",
			wantPath: "/tmp/test.cs",
		},
		{
			name: "classes are not matches",
			symbols: []protocol.SymbolInformation{
				workspaceSymbol("Test", protocol.SymbolKindClass, "/tmp/test2.cs"),
				workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.cs"),
			},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test.cs": {documentSymbol("Test", protocol.SymbolKindMethod)},
			},
			fqn:      "Test",
			wantPath: "/tmp/test.cs",
		},
		{
			name: "theory method matching",
			symbols: []protocol.SymbolInformation{
				workspaceSymbol("Test2", protocol.SymbolKindMethod, "/tmp/test2.cs"),
				workspaceSymbol("Test(param: value)", protocol.SymbolKindMethod, "/tmp/test.cs"),
			},
			documents: map[string][]protocol.DocumentSymbol{
				"/tmp/test2.cs": {documentSymbol("Test2", protocol.SymbolKindMethod)},
				"/tmp/test.cs":  {documentSymbol("Test(string param)", protocol.SymbolKindMethod)},
			},
			fqn:      "Test",
			wantPath: "/tmp/test.cs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(mocks.SymbolProvider)
			for pth, documentSymbols := range tt.documents {
				provider.On("DocumentSymbols", mock.Anything, protocol.DocumentURI(uri.File(pth))).Return(documentSymbols, nil)
			}

			locator := NewLocator(provider, log.NewLogger())
			got, err := locator.FindTestLocation(context.Background(), tt.symbols, tt.fqn)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got error: %s", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, protocol.DocumentURI(uri.File(tt.wantPath)), got.URI)
			assert.Equal(t, documentSymbol("Test", protocol.SymbolKindMethod).Range, got.Range)
		})
	}
}

func TestLocator_FindTestLocation_ProviderError(t *testing.T) {
	provider := new(mocks.SymbolProvider)
	provider.On("DocumentSymbols", mock.Anything, mock.Anything).Return(nil, errors.New("server not running"))

	locator := NewLocator(provider, log.NewLogger())
	_, err := locator.FindTestLocation(context.Background(), []protocol.SymbolInformation{
		workspaceSymbol("Test", protocol.SymbolKindMethod, "/tmp/test.cs"),
	}, "Test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server not running")
}

func TestLocator_GotoTest(t *testing.T) {
	testsURI := protocol.DocumentURI(uri.File("/src/Tests.cs"))

	provider := new(mocks.SymbolProvider)
	provider.On("WorkspaceSymbols", mock.Anything, "Adds").Return([]protocol.SymbolInformation{
		workspaceSymbol("Adds", protocol.SymbolKindClass, "/src/Adds.cs"),
		workspaceSymbol("Adds(int)", protocol.SymbolKindMethod, "/src/Tests.cs"),
	}, nil)
	provider.On("DocumentSymbols", mock.Anything, testsURI).Return([]protocol.DocumentSymbol{
		documentSymbol("Ns", protocol.SymbolKindNamespace,
			documentSymbol("Ns.Tests", protocol.SymbolKindClass,
				documentSymbol("Adds(int)", protocol.SymbolKindMethod))),
	}, nil)

	locator := NewLocator(provider, log.NewLogger())

	got, err := locator.GotoTest(context.Background(), "Ns.Tests.Adds")
	require.NoError(t, err)
	assert.Equal(t, testsURI, got.URI)

	_, err = locator.GotoTest(context.Background(), "Ns.Other.Adds")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTestNotFound))

	provider.AssertNotCalled(t, "DocumentSymbols", mock.Anything, protocol.DocumentURI(uri.File("/src/Adds.cs")))
}
