package compiler

import (
	"testing"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opSeq(code []ir.Instruction) []ir.Opcode {
	out := make([]ir.Opcode, len(code))
	for i, c := range code {
		out[i] = c.Op
	}
	return out
}

// TestIfConstantConditionStillEmitsRealJump verifies §4.8's explicit
// Non-goal carryover: there is no dead-code elimination, so a
// compile-time-constant condition still emits a genuine conditional jump
// rather than folding away the unreachable branch.
func TestIfConstantConditionStillEmitsRealJump(t *testing.T) {
	a := newAST()
	ifExpr := a.If(a.True(), a.Int("1"), a.Int("2"))
	mod := a.Module(ifExpr)

	bc, err := NewCompiler().Compile(mod)
	require.NoError(t, err)

	ops := opSeq(bc.Code)
	assert.Contains(t, ops, ir.OpJumpIfFalse)
	assert.Contains(t, ops, ir.OpJump)
}

// TestIfMergesBranchesIntoSameTarget verifies §4.8: a reserved placeholder
// instruction is the target of both branches' ModeRef, so the if-expression
// yields a single coherent Ref regardless of which branch ran.
func TestIfMergesBranchesIntoSameTarget(t *testing.T) {
	a := newAST()
	cond := a.Ident("flag")
	declFlag := a.Decl(a.MutIdent("flag"), a.True())
	ifExpr := a.If(cond, a.Int("1"), a.Int("2"))
	useAssign := a.Decl(a.Ident("result"), ifExpr)

	bc, err := NewCompiler().Compile(a.Module(declFlag, useAssign))
	require.NoError(t, err)
	require.NotEmpty(t, bc.Code)

	moveOrCopyCount := 0
	for _, i := range bc.Code {
		if i.Op == ir.OpMove || i.Op == ir.OpCopy {
			moveOrCopyCount++
		}
	}
	assert.GreaterOrEqual(t, moveOrCopyCount, 2, "both branches must write into the same merged target")
}

func TestIfWithoutElseYieldsNull(t *testing.T) {
	a := newAST()
	declFlag := a.Decl(a.MutIdent("flag"), a.False())
	ifExpr := a.If(a.Ident("flag"), a.Int("1"), ast.NoNode)
	result := a.Decl(a.Ident("r"), ifExpr)

	bc, err := NewCompiler().Compile(a.Module(declFlag, result))
	require.NoError(t, err)

	found := false
	for _, i := range bc.Code {
		if i.Op == ir.OpConstPrimitive && i.Data.(ir.PrimitiveOperand).V == ir.PrimNull {
			found = true
		}
	}
	assert.True(t, found, "absent else must reserve a null placeholder")
}

// TestMatchAdditionalArmAfterCatchAllErrors covers spec §8 scenario 4.
func TestMatchAdditionalArmAfterCatchAllErrors(t *testing.T) {
	a := newAST()
	catchAll := a.LetArm(a.Ident("x"), ast.NoNode, a.Int("1"))
	another := a.ValueArm(a.Int("2"), a.Int("5"))
	m := a.Match(a.Int("1"), catchAll, another)

	_, err := NewCompiler().Compile(a.Module(m))
	require.Error(t, err)
}

func TestMatchValueListArmFallsThrough(t *testing.T) {
	a := newAST()
	arm1 := a.ValueArm(a.Int("100"), a.Int("1"))
	arm2 := a.LetArm(a.Discard(), ast.NoNode, a.Int("200"))
	m := a.Match(a.Int("1"), arm1, arm2)
	decl := a.Decl(a.Ident("r"), m)

	bc, err := NewCompiler().Compile(a.Module(decl))
	require.NoError(t, err)
	ops := opSeq(bc.Code)
	assert.Contains(t, ops, ir.OpEq)
	assert.Contains(t, ops, ir.OpJumpIfFalse)
}

func TestMatchTwoValueCandidateArm(t *testing.T) {
	a := newAST()
	arm1 := a.ValueArm(a.Int("1"), a.Int("1"), a.Int("2"))
	arm2 := a.LetArm(a.Discard(), ast.NoNode, a.Int("0"))
	m := a.Match(a.Int("1"), arm1, arm2)
	decl := a.Decl(a.Ident("r"), m)

	bc, err := NewCompiler().Compile(a.Module(decl))
	require.NoError(t, err)
	eqCount := 0
	for _, i := range bc.Code {
		if i.Op == ir.OpEq {
			eqCount++
		}
	}
	assert.Equal(t, 2, eqCount)
}

func TestMatchTooManyCandidatesErrors(t *testing.T) {
	a := newAST()
	arm := a.ValueArm(a.Int("1"), a.Int("1"), a.Int("2"), a.Int("3"))
	m := a.Match(a.Int("1"), arm)
	_, err := NewCompiler().Compile(a.Module(m))
	require.Error(t, err)
}

func TestWhileLoopCompileTimeFalseStillEmitsJump(t *testing.T) {
	a := newAST()
	w := a.While(ast.NoNode, a.False(), a.Block())
	bc, err := NewCompiler().Compile(a.Module(w))
	require.NoError(t, err)
	ops := opSeq(bc.Code)
	assert.Contains(t, ops, ir.OpJumpIfFalse)
	assert.Contains(t, ops, ir.OpJump)
}

func TestBreakContinueOutsideLoopIsError(t *testing.T) {
	a := newAST()
	brk := a.b.Node(ast.KBreak, -1, ast.None{})
	_, err := NewCompiler().Compile(a.Module(brk))
	require.Error(t, err)

	a2 := newAST()
	cont := a2.b.Node(ast.KContinue, -1, ast.None{})
	_, err = NewCompiler().Compile(a2.Module(cont))
	require.Error(t, err)
}

func TestBreakInsideLoopBackpatchesToExit(t *testing.T) {
	a := newAST()
	body := a.Block(a.b.Node(ast.KBreak, -1, ast.None{}))
	w := a.While(ast.NoNode, a.True(), body)
	bc, err := NewCompiler().Compile(a.Module(w))
	require.NoError(t, err)

	var breakRef ir.Ref = -1
	for i, instr := range bc.Code {
		if instr.Op == ir.OpJump {
			if j, ok := instr.Data.(ir.Jump); ok && j.Offset == len(bc.Main) {
				breakRef = ir.Ref(i)
			}
		}
	}
	// The break's jump must have been backpatched to the stream's final
	// length (the loop's exit point).
	assert.NotEqual(t, ir.Ref(-1), breakRef)
}

// TestForComprehension covers spec §8 scenario 5: `for (c in "ab") c` in
// value mode builds a result list, iterates via iter_init/iter_next, and
// appends each iteration's body value.
func TestForComprehension(t *testing.T) {
	a := newAST()
	forExpr := a.For(a.Ident("c"), a.Str("\"ab\""), a.Ident("c"))
	decl := a.Decl(a.Ident("result"), forExpr)

	bc, err := NewCompiler().Compile(a.Module(decl))
	require.NoError(t, err)

	ops := opSeq(bc.Code)
	assert.Equal(t, ir.OpBuildList, ops[0])
	assert.Contains(t, ops, ir.OpConstStr)
	assert.Contains(t, ops, ir.OpIterInit)
	assert.Contains(t, ops, ir.OpIterNext)
	assert.Contains(t, ops, ir.OpAppend)
	assert.Contains(t, ops, ir.OpJump)
}

func TestForDiscardModeDoesNotBuildList(t *testing.T) {
	a := newAST()
	forExpr := a.For(a.Ident("c"), a.Str("\"ab\""), a.Ident("c"))
	// Wrapped in a block: a module's last root is lowered in value mode,
	// while a block lowers its items in discard mode.
	mod := a.Module(a.Block(forExpr))
	bc, err := NewCompiler().Compile(mod)
	require.NoError(t, err)
	ops := opSeq(bc.Code)
	assert.NotContains(t, ops, ir.OpBuildList)
	assert.NotContains(t, ops, ir.OpAppend)
}

func TestEmptyCollectionsHaveZeroLengthExtras(t *testing.T) {
	a := newAST()
	decl := a.Decl(a.Ident("t"), a.Tuple())
	decl2 := a.Decl(a.Ident("l"), a.List())
	decl3 := a.Decl(a.Ident("m"), a.Map())
	bc, err := NewCompiler().Compile(a.Module(decl, decl2, decl3))
	require.NoError(t, err)

	count := 0
	for _, i := range bc.Code {
		if e, ok := i.Data.(ir.Extra); ok {
			assert.Equal(t, 0, e.Len)
			count++
		}
	}
	assert.Equal(t, 3, count)
}
