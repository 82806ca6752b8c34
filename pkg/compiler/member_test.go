package compiler

import (
	"testing"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAccessEmitsGet(t *testing.T) {
	a := newAST()
	declL := a.Decl(a.Ident("l"), a.List(a.Int("1"), a.Int("2")))
	idx := a.b.Node(ast.KArrayAccess, -1, ast.Bin{L: a.Ident("l"), R: a.Int("0")})
	useResult := a.Decl(a.Ident("r"), idx)
	bc, err := NewCompiler().Compile(a.Module(declL, useResult))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpGet {
			found = true
		}
	}
	assert.True(t, found)
}

// memberAccess builds a KMemberAccess node whose primary token spans name
// and whose object child is obj.
func memberAccess(a *astBuilder, obj ast.NodeID, name string) ast.NodeID {
	mod := a.b.Build()
	start := len(mod.Tokens.Source)
	mod.Tokens.Source = append(mod.Tokens.Source, name...)
	tok := a.b.Token(ast.TokIdent, start, start+len(name))
	return a.b.Node(ast.KMemberAccess, tok, ast.Un{X: obj})
}

func TestMemberAccessInternsFieldNameAsStringKey(t *testing.T) {
	a := newAST()
	declM := a.Decl(a.Ident("m"), a.Map(a.MapItem(a.Str("\"x\""), a.Int("1"))))
	useResult := a.Decl(a.Ident("r"), memberAccess(a, a.Ident("m"), "x"))
	bc, err := NewCompiler().Compile(a.Module(declM, useResult))
	require.NoError(t, err)

	getFound, strFound := false, false
	for _, i := range bc.Code {
		if i.Op == ir.OpGet {
			getFound = true
		}
		if i.Op == ir.OpConstStr {
			s := i.Data.(ir.Str)
			if string(bc.Strings[s.Offset:s.Offset+s.Len]) == "x" {
				strFound = true
			}
		}
	}
	assert.True(t, getFound)
	assert.True(t, strFound)
}

func TestMemberAccessOnIntConstIsCompileError(t *testing.T) {
	a := newAST()
	useResult := a.Decl(a.Ident("r"), memberAccess(a, a.Int("5"), "foo"))
	_, err := NewCompiler().Compile(a.Module(useResult))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestMemberAccessOnBoolConstIsCompileError(t *testing.T) {
	a := newAST()
	useResult := a.Decl(a.Ident("r"), memberAccess(a, a.True(), "foo"))
	_, err := NewCompiler().Compile(a.Module(useResult))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestMemberAccessOnNullConstIsCompileError(t *testing.T) {
	a := newAST()
	useResult := a.Decl(a.Ident("r"), memberAccess(a, a.Null(), "foo"))
	_, err := NewCompiler().Compile(a.Module(useResult))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestMemberAccessOnStringConstIsAllowed(t *testing.T) {
	a := newAST()
	useResult := a.Decl(a.Ident("r"), memberAccess(a, a.Str("\"hi\""), "length"))
	_, err := NewCompiler().Compile(a.Module(useResult))
	require.NoError(t, err)
}
