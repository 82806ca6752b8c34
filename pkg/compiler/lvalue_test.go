package compiler

import (
	"testing"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutDeclCopiesOnBind(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.MutIdent("x"), a.Int("1"))
	use := a.Ident("x")
	bc, err := NewCompiler().Compile(a.Module(decl, use))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpCopyUn {
			found = true
		}
	}
	assert.True(t, found, "mut declaration must copy_un its initializer")
}

func TestAssignToNonMutIsCompileError(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.Ident("x"), a.Int("1"))
	assign := a.Assign(a.Ident("x"), a.Int("2"))
	_, err := NewCompiler().Compile(a.Module(decl, assign))
	require.Error(t, err)
}

func TestAssignToMutWritesInPlace(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.MutIdent("x"), a.Int("1"))
	assign := a.Assign(a.Ident("x"), a.Int("2"))
	bc, err := NewCompiler().Compile(a.Module(decl, assign))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpMove {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAugAssignToNonMutIsCompileError(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.Ident("x"), a.Int("1"))
	aug := a.AugAssign(ast.KAugAdd, a.Ident("x"), a.Int("1"))
	_, err := NewCompiler().Compile(a.Module(decl, aug))
	require.Error(t, err)
}

func TestMutKeywordInAssignTargetIsCompileError(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.MutIdent("x"), a.Int("1"))
	assign := a.Assign(a.MutIdent("x"), a.Int("2"))
	_, err := NewCompiler().Compile(a.Module(decl, assign))
	require.Error(t, err)
}

func TestDiscardPatternAcceptsAnyValue(t *testing.T) {
	a := newAST()
	// A bare `_` declaration is rejected by lowerDecl; assignment to `_`
	// reaches the pattern itself.
	assign := a.Assign(a.Discard(), a.Int("1"))
	bc, err := NewCompiler().Compile(a.Module(assign))
	require.NoError(t, err)
	assert.Empty(t, bc.Code)
}

func TestDiscardAsAugAssignTargetIsCompileError(t *testing.T) {
	a := newAST()
	aug := a.AugAssign(ast.KAugAdd, a.Discard(), a.Int("1"))
	_, err := NewCompiler().Compile(a.Module(aug))
	require.Error(t, err)
}

func TestDestructuringPatternsAreNotYetImplemented(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.Tuple(a.Ident("x"), a.Ident("y")), a.Tuple(a.Int("1"), a.Int("2")))
	_, err := NewCompiler().Compile(a.Module(decl))
	require.Error(t, err)
}

func TestErrorPatternUnwrapsRuntimeError(t *testing.T) {
	a := newAST()
	declErr := a.Decl(a.Ident("e"), a.Call(a.Ident("mayFail")))
	pattern := a.b.Node(ast.KErrorPattern, -1, ast.Un{X: a.Ident("inner")})
	declInner := a.Decl(pattern, a.Ident("e"))
	bc, err := NewCompiler().Compile(a.Module(declErr, declInner))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpUnwrapError {
			found = true
		}
	}
	assert.True(t, found)
}

func TestErrorPatternRejectsConstantValue(t *testing.T) {
	a := newAST()
	pattern := a.b.Node(ast.KErrorPattern, -1, ast.Un{X: a.Ident("inner")})
	decl := a.Decl(pattern, a.Int("1"))
	_, err := NewCompiler().Compile(a.Module(decl))
	require.Error(t, err)
}
