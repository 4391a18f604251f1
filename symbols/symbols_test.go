package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func documentSymbol(name string, kind protocol.SymbolKind, children ...protocol.DocumentSymbol) protocol.DocumentSymbol {
	r := protocol.Range{Start: protocol.Position{Line: 1, Character: 1}, End: protocol.Position{Line: 1, Character: 1}}
	return protocol.DocumentSymbol{Name: name, Kind: kind, Range: r, SelectionRange: r, Children: children}
}

func TestFlatten_NestedClasses(t *testing.T) {
	methodOne := documentSymbol("MyMethodOne", protocol.SymbolKindMethod)
	methodTwo := documentSymbol("MyMethodTwo", protocol.SymbolKindMethod)
	nested := documentSymbol("MyNameSpace.MyClass+MyNestedClass", protocol.SymbolKindClass, methodOne, methodTwo)
	class := documentSymbol("MyNameSpace.MyClass", protocol.SymbolKindClass, methodOne, methodTwo, nested)
	namespace := documentSymbol("MyNameSpace", protocol.SymbolKindNamespace, class)

	flattened := Flatten([]protocol.DocumentSymbol{namespace}, "", false)

	want := []struct {
		fullName   string
		parentName string
	}{
		{"MyNameSpace", ""},
		{"MyNameSpace.MyClass", "MyNameSpace"},
		{"MyNameSpace.MyClass.MyMethodOne", "MyNameSpace.MyClass"},
		{"MyNameSpace.MyClass.MyMethodTwo", "MyNameSpace.MyClass"},
		{"MyNameSpace.MyClass+MyNestedClass", "MyNameSpace.MyClass"},
		{"MyNameSpace.MyClass+MyNestedClass.MyMethodOne", "MyNameSpace.MyClass+MyNestedClass"},
		{"MyNameSpace.MyClass+MyNestedClass.MyMethodTwo", "MyNameSpace.MyClass+MyNestedClass"},
	}

	require.Len(t, flattened, len(want))
	for i, w := range want {
		assert.Equal(t, w.fullName, flattened[i].FullName, "entry %d", i)
		assert.Equal(t, w.parentName, flattened[i].ParentName, "entry %d", i)
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name    string
		symbols []protocol.DocumentSymbol
		want    []string
	}{
		{
			name:    "method without arguments",
			symbols: []protocol.DocumentSymbol{documentSymbol("MyMethodOne", protocol.SymbolKindMethod)},
			want:    []string{"MyMethodOne"},
		},
		{
			name:    "method arguments are removed",
			symbols: []protocol.DocumentSymbol{documentSymbol("MyMethodOne(TestCase: Something)", protocol.SymbolKindMethod)},
			want:    []string{"MyMethodOne"},
		},
		{
			name: "nested class reported with its own name only",
			symbols: []protocol.DocumentSymbol{
				documentSymbol("Outer", protocol.SymbolKindClass,
					documentSymbol("Inner", protocol.SymbolKindClass,
						documentSymbol("Test()", protocol.SymbolKindMethod))),
			},
			want: []string{"Outer", "Outer+Inner", "Outer+Inner.Test"},
		},
		{
			name: "nested class reported dot qualified",
			symbols: []protocol.DocumentSymbol{
				documentSymbol("Ns.Outer", protocol.SymbolKindClass,
					documentSymbol("Ns.Outer.Inner", protocol.SymbolKindClass)),
			},
			want: []string{"Ns.Outer", "Ns.Outer+Inner"},
		},
		{
			name: "classes in different root namespaces keep their names",
			symbols: []protocol.DocumentSymbol{
				documentSymbol("First", protocol.SymbolKindNamespace,
					documentSymbol("First.Tests", protocol.SymbolKindClass,
						documentSymbol("Run", protocol.SymbolKindMethod))),
				documentSymbol("Second", protocol.SymbolKindNamespace,
					documentSymbol("Tests", protocol.SymbolKindClass,
						documentSymbol("Run", protocol.SymbolKindMethod))),
			},
			want: []string{"First", "First.Tests", "First.Tests.Run", "Second", "Tests", "Tests.Run"},
		},
		{
			name: "F# test values",
			symbols: []protocol.DocumentSymbol{
				documentSymbol("Tests", protocol.SymbolKindModule,
					documentSymbol("my test", protocol.SymbolKindVariable)),
			},
			want: []string{"Tests", "Tests.my test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range Flatten(tt.symbols, "", false) {
				got = append(got, s.FullName)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindTestInContext(t *testing.T) {
	method := protocol.DocumentSymbol{
		Name:  "Test(int)",
		Kind:  protocol.SymbolKindMethod,
		Range: protocol.Range{Start: protocol.Position{Line: 10}, End: protocol.Position{Line: 14}},
	}
	inner := protocol.DocumentSymbol{
		Name:     "Inner",
		Kind:     protocol.SymbolKindClass,
		Range:    protocol.Range{Start: protocol.Position{Line: 8}, End: protocol.Position{Line: 20}},
		Children: []protocol.DocumentSymbol{method},
	}
	outer := protocol.DocumentSymbol{
		Name:     "Ns.Outer",
		Kind:     protocol.SymbolKindClass,
		Range:    protocol.Range{Start: protocol.Position{Line: 2}, End: protocol.Position{Line: 30}},
		Children: []protocol.DocumentSymbol{inner},
	}
	flattened := Flatten([]protocol.DocumentSymbol{outer}, "", false)

	tests := []struct {
		name     string
		position protocol.Position
		want     RunContext
		wantOK   bool
	}{
		{
			name:     "method",
			position: protocol.Position{Line: 12, Character: 4},
			want:     RunContext{TestName: "Ns.Outer+Inner.Test", IsSingleTest: true},
			wantOK:   true,
		},
		{
			name:     "innermost class",
			position: protocol.Position{Line: 18},
			want:     RunContext{TestName: "Ns.Outer+Inner"},
			wantOK:   true,
		},
		{
			name:     "outer class",
			position: protocol.Position{Line: 25},
			want:     RunContext{TestName: "Ns.Outer"},
			wantOK:   true,
		},
		{
			name:     "outside of any class",
			position: protocol.Position{Line: 40},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindTestInContext(flattened, tt.position)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
