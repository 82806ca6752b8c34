package compiler

import (
	"testing"

	"github.com/emberscript/emberc/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRuntimeAndIsConstant(t *testing.T) {
	assert.True(t, IsRuntime(RuntimeValue{}))
	assert.True(t, IsRuntime(MutValue{}))
	assert.False(t, IsRuntime(IntConst{}))
	assert.False(t, IsRuntime(Empty{}))

	assert.True(t, IsConstant(IntConst{}))
	assert.True(t, IsConstant(NumConst{}))
	assert.True(t, IsConstant(BoolConst{}))
	assert.True(t, IsConstant(StrConst{}))
	assert.True(t, IsConstant(NullConst{}))
	assert.False(t, IsConstant(RuntimeValue{}))
	assert.False(t, IsConstant(Empty{}))
}

func TestMaterializeEmitsConstInstructionsForScalars(t *testing.T) {
	c := NewCompiler()
	c.scope.pushFrame()

	ref := c.materialize(IntConst{V: 7})
	assert.Equal(t, ir.OpConstInt, c.code[ref].Op)

	ref2 := c.materialize(NumConst{V: 1.5})
	assert.Equal(t, ir.OpConstNum, c.code[ref2].Op)

	ref3 := c.materialize(BoolConst{V: true})
	assert.Equal(t, ir.OpConstPrimitive, c.code[ref3].Op)
	assert.Equal(t, ir.PrimTrue, c.code[ref3].Data.(ir.PrimitiveOperand).V)

	ref4 := c.materialize(NullConst{})
	assert.Equal(t, ir.PrimNull, c.code[ref4].Data.(ir.PrimitiveOperand).V)

	ref5 := c.materialize(StrConst{V: []byte("hi")})
	assert.Equal(t, ir.OpConstStr, c.code[ref5].Op)
}

func TestMaterializeOfRuntimeValueIsANoop(t *testing.T) {
	c := NewCompiler()
	c.scope.pushFrame()
	before := len(c.code)
	ref := c.materialize(RuntimeValue{Ref: ir.Ref(42)})
	assert.Equal(t, ir.Ref(42), ref)
	assert.Equal(t, before, len(c.code), "materializing an already-runtime value emits nothing")
}

func TestWrapResultRejectsEmptyOutsideDiscard(t *testing.T) {
	c := NewCompiler()
	c.scope.pushFrame()
	_, err := c.wrapResult(Empty{}, ModeValue{}, 0)
	require.Error(t, err)

	_, err = c.wrapResult(Empty{}, ModeDiscard{}, 0)
	require.NoError(t, err)
}

func TestWrapResultRefModeMovesIntoTarget(t *testing.T) {
	c := NewCompiler()
	c.scope.pushFrame()
	target := c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: ir.PrimNull})
	v, err := c.wrapResult(IntConst{V: 9}, ModeRef{Target: target}, 0)
	require.NoError(t, err)
	rv, ok := v.(RuntimeValue)
	require.True(t, ok)
	assert.Equal(t, target, rv.Ref)

	found := false
	for _, i := range c.code {
		if i.Op == ir.OpMove {
			b := i.Data.(ir.Bin)
			assert.Equal(t, target, b.L)
			found = true
		}
	}
	assert.True(t, found)
}

func TestWrapResultRefModeOfMutValueUsesCopy(t *testing.T) {
	c := NewCompiler()
	c.scope.pushFrame()
	src := c.appendInstr(ir.OpConstInt, ir.Int{V: 1})
	target := c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: ir.PrimNull})
	_, err := c.wrapResult(MutValue{Ref: src}, ModeRef{Target: target}, 0)
	require.NoError(t, err)

	found := false
	for _, i := range c.code {
		if i.Op == ir.OpCopy {
			found = true
		}
	}
	assert.True(t, found)
}

func TestWrapResultDiscardEmitsDiscardForUnusedRuntimeValue(t *testing.T) {
	c := NewCompiler()
	c.scope.pushFrame()
	src := c.appendInstr(ir.OpConstInt, ir.Int{V: 1})
	_, err := c.wrapResult(RuntimeValue{Ref: src}, ModeDiscard{}, 0)
	require.NoError(t, err)

	found := false
	for _, i := range c.code {
		if i.Op == ir.OpDiscard {
			found = true
		}
	}
	assert.True(t, found)
}
