package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lowerIf implements `if cond then [else else_]` (spec §4.8). There is no
// dead-code elimination in this compiler (an explicit Non-goal), so a
// compile-time-constant condition still emits a real conditional jump over
// a materialized constant rather than folding away whichever branch cannot
// run. In value mode, a dummy placeholder — a materialized null — is
// reserved before either branch runs and both branches write into it via
// ModeRef, so an absent else arm naturally yields null without any extra
// fallback code.
func (c *Compiler) lowerIf(node ast.NodeID, mode ResultMode) (Value, error) {
	d := c.mod.Node(node).Data.(ast.If)

	condV, err := c.lower(d.Cond, ModeValue{})
	if err != nil {
		return nil, err
	}
	condRef := c.materialize(condV)
	jmpFalse := c.emitJumpCond(ir.OpJumpIfFalse, condRef)

	_, discard := mode.(ModeDiscard)
	var branchMode ResultMode = ModeDiscard{}
	var target ir.Ref
	if !discard {
		target = c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: ir.PrimNull})
		branchMode = ModeRef{Target: target}
	}

	if _, err := c.lower(d.Then, branchMode); err != nil {
		return nil, err
	}
	jmpOverElse := c.emitJump(ir.OpJump)
	c.finalizeJump(jmpFalse, c.codeStreamLen())

	if d.Else != ast.NoNode {
		if _, err := c.lower(d.Else, branchMode); err != nil {
			return nil, err
		}
	}
	c.finalizeJump(jmpOverElse, c.codeStreamLen())

	if discard {
		return Empty{}, nil
	}
	return RuntimeValue{Ref: target}, nil
}

// lowerWhile implements both `while cond body` and `while let pattern =
// cond body` (spec §4.7). The loop's start offset is captured before the
// condition is lowered, so continue and the loop-back jump both re-enter
// right before the next condition test. A while loop is always a
// statement: its body lowers in discard mode regardless of the caller's
// mode, and it never yields a value.
func (c *Compiler) lowerWhile(node ast.NodeID, _ ResultMode) (Value, error) {
	d := c.mod.Node(node).Data.(ast.While)

	startOffset := c.codeStreamLen()
	loop := &loopScope{startOffset: startOffset}
	c.pushLoop(loop)
	defer c.popLoop()

	condV, err := c.lower(d.Cond, ModeValue{})
	if err != nil {
		return nil, err
	}
	condRef := c.materialize(condV)

	depth := c.scope.depth()
	var exitJump ir.Ref
	if d.Pattern != ast.NoNode {
		exitJump = c.emitJumpCond(ir.OpJumpIfNull, condRef)
		if _, err := c.genLval(d.Pattern, lvLet{Value: RuntimeValue{Ref: condRef}}); err != nil {
			return nil, err
		}
	} else {
		exitJump = c.emitJumpCond(ir.OpJumpIfFalse, condRef)
	}

	if _, err := c.lower(d.Body, ModeDiscard{}); err != nil {
		return nil, err
	}
	c.scope.popTo(depth)

	c.appendInstr(ir.OpJump, ir.Jump{Offset: startOffset})
	exitOffset := c.codeStreamLen()
	c.finalizeJump(exitJump, exitOffset)
	for _, b := range loop.breakJumps {
		c.finalizeJump(b, exitOffset)
	}
	return Empty{}, nil
}

// lowerFor implements `for (pattern in iterable) body` (spec §4.7). The
// iterable is lowered once and handed to a fallible iter_init (subject to
// the try-scope hook, §4.3); each iteration's iter_next doubles as the
// exit test and the producer of the next element, whose own Ref is bound
// by the loop pattern when one is given. In value mode the loop builds a
// result list by appending each iteration's body value — the for-expression
// form used as a comprehension (spec §8 scenario 5).
func (c *Compiler) lowerFor(node ast.NodeID, mode ResultMode) (Value, error) {
	d := c.mod.Node(node).Data.(ast.For)

	_, discard := mode.(ModeDiscard)
	var resultRef ir.Ref
	if !discard {
		resultRef = c.emitExtra(ir.OpBuildList, nil)
	}

	iterableV, err := c.lower(d.Iterable, ModeValue{})
	if err != nil {
		return nil, err
	}
	iterableRef := c.materialize(iterableV)

	initV, err := c.emitFallible(node, ir.OpIterInit, ir.Un{X: iterableRef})
	if err != nil {
		return nil, err
	}
	iterRef := refOf(initV)

	startOffset := c.codeStreamLen()
	loop := &loopScope{startOffset: startOffset}
	c.pushLoop(loop)
	defer c.popLoop()

	exitJump := c.emitJumpCond(ir.OpIterNext, iterRef)

	depth := c.scope.depth()
	if d.Pattern != ast.NoNode {
		if _, err := c.genLval(d.Pattern, lvLet{Value: RuntimeValue{Ref: exitJump}}); err != nil {
			return nil, err
		}
	}

	if discard {
		if _, err := c.lower(d.Body, ModeDiscard{}); err != nil {
			return nil, err
		}
	} else {
		bodyV, err := c.lower(d.Body, ModeValue{})
		if err != nil {
			return nil, err
		}
		c.emitBinary(ir.OpAppend, resultRef, c.materialize(bodyV))
	}
	c.scope.popTo(depth)

	c.appendInstr(ir.OpJump, ir.Jump{Offset: startOffset})
	exitOffset := c.codeStreamLen()
	c.finalizeJump(exitJump, exitOffset)
	for _, b := range loop.breakJumps {
		c.finalizeJump(b, exitOffset)
	}

	if discard {
		return Empty{}, nil
	}
	return RuntimeValue{Ref: resultRef}, nil
}

// lowerMatch implements match/arms (spec §4.8). The subject is lowered
// once; each arm in turn tests its candidates (one or two, compared with
// the shared equality opcode) or binds its let pattern, then an optional
// guard, falling through into the arm's body on success or jumping ahead
// to the next arm's test on failure. Exactly as in lowerIf, a dummy
// placeholder null reserved before the first arm runs lets a
// non-exhaustive match yield null with no separate fallback path, and a
// catch-all arm (an unguarded let pattern) must be the last one.
func (c *Compiler) lowerMatch(node ast.NodeID, mode ResultMode) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Match)

	subjectV, err := c.lower(d.Subject, ModeValue{})
	if err != nil {
		return nil, err
	}
	subjectRef := c.materialize(subjectV)

	_, discard := mode.(ModeDiscard)
	var branchMode ResultMode = ModeDiscard{}
	var target ir.Ref
	if !discard {
		target = c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: ir.PrimNull})
		branchMode = ModeRef{Target: target}
	}

	var exitJumps []ir.Ref
	hasCatchAll := false

	for _, armNode := range d.Arms {
		if hasCatchAll {
			return nil, c.fail(c.offset(armNode), "unreachable match arm after a catch-all arm")
		}
		arm := c.mod.Node(armNode).Data.(ast.MatchArm)
		armDepth := c.scope.depth()

		var failJumps []ir.Ref
		isCatchAll := false

		switch {
		case len(arm.Candidates) > 0:
			failJumps, err = c.lowerMatchCandidates(subjectRef, arm.Candidates)
			if err != nil {
				return nil, err
			}
		case arm.LetPattern != ast.NoNode:
			if _, err := c.genLval(arm.LetPattern, lvLet{Value: RuntimeValue{Ref: subjectRef}}); err != nil {
				return nil, err
			}
			isCatchAll = arm.Guard == ast.NoNode
		default:
			return nil, c.fail(c.offset(armNode), "match arm has neither a pattern nor any candidates")
		}

		if arm.Guard != ast.NoNode {
			guardV, err := c.lower(arm.Guard, ModeValue{})
			if err != nil {
				return nil, err
			}
			guardRef := c.materialize(guardV)
			failJumps = append(failJumps, c.emitJumpCond(ir.OpJumpIfFalse, guardRef))
		}
		if isCatchAll {
			hasCatchAll = true
		}

		if _, err := c.lower(arm.Body, branchMode); err != nil {
			return nil, err
		}
		c.scope.popTo(armDepth)

		exitJumps = append(exitJumps, c.emitJump(ir.OpJump))

		nextArmStart := c.codeStreamLen()
		for _, fj := range failJumps {
			c.finalizeJump(fj, nextArmStart)
		}
	}

	matchExit := c.codeStreamLen()
	for _, ej := range exitJumps {
		c.finalizeJump(ej, matchExit)
	}

	if discard {
		return Empty{}, nil
	}
	return RuntimeValue{Ref: target}, nil
}

// lowerMatchCandidates tests a value-list arm's one or two candidates
// against the subject with the shared equality opcode, returning the
// failure jumps to backpatch to the next arm's test.
func (c *Compiler) lowerMatchCandidates(subjectRef ir.Ref, candidates []ast.NodeID) ([]ir.Ref, error) {
	if len(candidates) > 2 {
		return nil, c.fail(c.offset(candidates[0]), "match arm may have at most two value candidates")
	}

	candV, err := c.lower(candidates[0], ModeValue{})
	if err != nil {
		return nil, err
	}
	eq0 := c.emitBinary(ir.OpEq, subjectRef, c.materialize(candV))

	if len(candidates) == 1 {
		return []ir.Ref{c.emitJumpCond(ir.OpJumpIfFalse, eq0)}, nil
	}

	jumpToBody := c.emitJumpCond(ir.OpJumpIfTrue, eq0)
	cand1V, err := c.lower(candidates[1], ModeValue{})
	if err != nil {
		return nil, err
	}
	eq1 := c.emitBinary(ir.OpEq, subjectRef, c.materialize(cand1V))
	failJump := c.emitJumpCond(ir.OpJumpIfFalse, eq1)
	c.finalizeJump(jumpToBody, c.codeStreamLen())
	return []ir.Ref{failJump}, nil
}
