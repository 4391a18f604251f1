package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.lsp.dev/protocol"
)

type SymbolProvider struct {
	mock.Mock
}

func (_m *SymbolProvider) DocumentSymbols(ctx context.Context, uri protocol.DocumentURI) ([]protocol.DocumentSymbol, error) {
	args := _m.Called(ctx, uri)
	var symbols []protocol.DocumentSymbol
	if s := args.Get(0); s != nil {
		symbols = s.([]protocol.DocumentSymbol)
	}
	return symbols, args.Error(1)
}

func (_m *SymbolProvider) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	args := _m.Called(ctx, query)
	var symbols []protocol.SymbolInformation
	if s := args.Get(0); s != nil {
		symbols = s.([]protocol.SymbolInformation)
	}
	return symbols, args.Error(1)
}
