package compiler

import (
	"testing"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallZeroArity(t *testing.T) {
	a := newAST()
	declF := a.Decl(a.Ident("f"), a.Fn(a.Int("1")))
	call := a.Call(a.Ident("f"))
	useResult := a.Decl(a.Ident("r"), call)
	bc, err := NewCompiler().Compile(a.Module(declF, useResult))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpCallZero {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCallOneArity(t *testing.T) {
	a := newAST()
	declF := a.Decl(a.Ident("f"), a.Fn(a.Ident("p"), a.Ident("p")))
	call := a.Call(a.Ident("f"), a.Int("5"))
	useResult := a.Decl(a.Ident("r"), call)
	bc, err := NewCompiler().Compile(a.Module(declF, useResult))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpCallOne {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCallManyArityUsesExtra(t *testing.T) {
	a := newAST()
	declF := a.Decl(a.Ident("f"), a.Fn(a.Int("1"), a.Ident("p0"), a.Ident("p1"), a.Ident("p2")))
	call := a.Call(a.Ident("f"), a.Int("1"), a.Int("2"), a.Int("3"))
	useResult := a.Decl(a.Ident("r"), call)
	bc, err := NewCompiler().Compile(a.Module(declF, useResult))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpCall {
			e := i.Data.(ir.Extra)
			assert.Equal(t, 4, e.Len) // callee + 3 args
			found = true
		}
	}
	assert.True(t, found)
}

func TestCallingNonCallableExpressionIsCompileError(t *testing.T) {
	a := newAST()
	call := a.Call(a.Int("1"))
	_, err := NewCompiler().Compile(a.Module(call))
	require.Error(t, err)
}

func TestCallWithMutArgumentCopiesBeforeCall(t *testing.T) {
	a := newAST()
	declX := a.Decl(a.MutIdent("x"), a.Int("1"))
	declF := a.Decl(a.Ident("f"), a.Fn(a.Ident("p"), a.Ident("p")))
	call := a.Call(a.Ident("f"), a.Ident("x"))
	useResult := a.Decl(a.Ident("r"), call)
	bc, err := NewCompiler().Compile(a.Module(declX, declF, useResult))
	require.NoError(t, err)

	count := 0
	for _, i := range bc.Code {
		if i.Op == ir.OpCopyUn {
			count++
		}
	}
	// one copy_un for the mut declaration itself, one more for passing it
	// into the call so the callee can't observe later caller-side mutation.
	assert.Equal(t, 2, count)
}

func TestFunctionHeaderPacksArityAndCaptureCount(t *testing.T) {
	a := newAST()
	declX := a.Decl(a.Ident("x"), a.Int("1"))
	fn := a.Fn(a.Bin(ast.KAdd, a.Ident("p"), a.Ident("x")), a.Ident("p"))
	declF := a.Decl(a.Ident("f"), fn)
	bc, err := NewCompiler().Compile(a.Module(declX, declF))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpBuildFunc {
			found = true
			e := i.Data.(ir.Extra)
			header := bc.Extra[e.Start]
			args, captures := ir.UnpackFuncHeader(header)
			assert.Equal(t, 1, args)
			assert.Equal(t, 1, captures)
		}
	}
	assert.True(t, found)
}
