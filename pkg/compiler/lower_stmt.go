package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lowerBlock lowers a `{ ... }` body (spec §4.11): every statement is
// lowered in discard mode and a block never itself produces a value — a
// function body ending in a block needs an explicit return. Locals declared
// inside the block go out of scope at its close so a sibling block can
// reuse the same name without tripping the redeclaration check.
func (c *Compiler) lowerBlock(node ast.NodeID) (Value, error) {
	items := c.mod.Node(node).Data.(ast.List).Items
	depth := c.scope.depth()
	for _, item := range items {
		if _, err := c.lower(item, ModeDiscard{}); err != nil {
			return nil, err
		}
	}
	c.scope.popTo(depth)
	return Empty{}, nil
}

// lowerDecl implements `let pattern = expr` (spec §4.6): the initializer is
// lowered in value mode, then bound through the Lvalue engine in let mode.
// A bare `_` pattern is rejected here, at the statement's own top level,
// even though the Lvalue engine treats `_` as a no-op when it appears
// nested inside a composite or error pattern.
func (c *Compiler) lowerDecl(node ast.NodeID) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Bin)
	if c.mod.Node(d.L).Kind == ast.KDiscard {
		return nil, c.fail(c.offset(node), "'_' cannot be the sole target of a declaration: nothing would be declared")
	}
	v, err := c.lower(d.R, ModeValue{})
	if err != nil {
		return nil, err
	}
	return c.genLval(d.L, lvLet{Value: v})
}

// lowerAssign implements `pattern = expr` (spec §4.6).
func (c *Compiler) lowerAssign(node ast.NodeID) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Bin)
	v, err := c.lower(d.R, ModeValue{})
	if err != nil {
		return nil, err
	}
	return c.genLval(d.L, lvAssign{Value: v})
}

// lowerAugAssign implements `pattern op= expr` (spec §4.6, §4.9): the
// Lvalue engine resolves the existing mutable slot without emitting
// anything, the current and right-hand values are combined with the
// corresponding binary opcode, and the result is moved back into that same
// slot. Combination never folds at compile time, since a mut symbol's
// current value is only known at runtime regardless of how it was
// initialized.
func (c *Compiler) lowerAugAssign(node ast.NodeID, kind ast.Kind) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Bin)

	var out resolveResult
	if _, err := c.genLval(d.L, lvAugAssign{Out: &out}); err != nil {
		return nil, err
	}

	rhs, err := c.lower(d.R, ModeValue{})
	if err != nil {
		return nil, err
	}

	current := RuntimeValue{Ref: out.Ref}
	combined := c.runtimeBinary(augBinKind(kind), current, rhs)
	c.emitBinary(ir.OpMove, out.Ref, refOf(combined))
	return Empty{}, nil
}

func augBinKind(kind ast.Kind) ast.Kind {
	switch kind {
	case ast.KAugAdd:
		return ast.KAdd
	case ast.KAugSub:
		return ast.KSub
	case ast.KAugMul:
		return ast.KMul
	case ast.KAugDiv:
		return ast.KDiv
	case ast.KAugFloorDiv:
		return ast.KFloorDiv
	case ast.KAugMod:
		return ast.KMod
	case ast.KAugPow:
		return ast.KPow
	case ast.KAugBitAnd:
		return ast.KBitAnd
	case ast.KAugBitOr:
		return ast.KBitOr
	case ast.KAugBitXor:
		return ast.KBitXor
	case ast.KAugShl:
		return ast.KShl
	case ast.KAugShr:
		return ast.KShr
	default:
		panic("augBinKind: not a compound-assignment kind")
	}
}

// lowerReturn implements `return [expr]` (spec §4.6): an absent operand
// emits ret_null, otherwise the operand is lowered in value mode,
// materialized, and emitted as ret(ref).
func (c *Compiler) lowerReturn(node ast.NodeID) (Value, error) {
	x := c.mod.Node(node).Data.(ast.Un).X
	if x == ast.NoNode {
		c.emitNullary(ir.OpRetNull)
		return Empty{}, nil
	}
	v, err := c.lower(x, ModeValue{})
	if err != nil {
		return nil, err
	}
	c.emitUnary(ir.OpRet, c.materialize(v))
	return Empty{}, nil
}

// lowerBreak implements `break` (spec §4.6, §4.7): an unconditional jump is
// appended to the enclosing loop's break list, to be backpatched once the
// loop's exit point is known.
func (c *Compiler) lowerBreak(node ast.NodeID) (Value, error) {
	loop := c.currentLoop()
	if loop == nil {
		return nil, c.fail(c.offset(node), "break outside of a loop")
	}
	loop.breakJumps = append(loop.breakJumps, c.emitJump(ir.OpJump))
	return Empty{}, nil
}

// lowerContinue implements `continue` (spec §4.6, §4.7): an unconditional
// jump straight back to the loop's start offset, already known.
func (c *Compiler) lowerContinue(node ast.NodeID) (Value, error) {
	loop := c.currentLoop()
	if loop == nil {
		return nil, c.fail(c.offset(node), "continue outside of a loop")
	}
	c.appendInstr(ir.OpJump, ir.Jump{Offset: loop.startOffset})
	return Empty{}, nil
}
