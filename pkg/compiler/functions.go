package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lowerFn implements function-literal lowering (spec §4.11). A fresh
// FunctionFrame is pushed with its own code stream; each parameter pattern
// is bound, via the Lvalue engine in let mode, to a synthetic Ref reserved
// as a placeholder the calling convention fills with the matching argument
// before the body runs — the same reserved-slot trick lowerIf/lowerMatch
// use for their merge target, just filled by the caller instead of by a
// Move/Copy this compiler emits itself. The body's final node follows
// lowerImplicitReturn's rule, which differs from a module's last root in
// materializing and returning a folded constant. Once the frame is popped,
// build_func packs {args, captures} into its header word and carries the
// body's whole code stream as its extra payload; each capture is then
// wired to its enclosing value with a store_capture emitted back in the
// *outer* stream, in capture order.
func (c *Compiler) lowerFn(node ast.NodeID) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Fn)
	if len(d.Params) > c.opts.MaxParams {
		return nil, c.fail(c.offset(node), "function has too many parameters (max %d)", c.opts.MaxParams)
	}

	markDepth := c.scope.depth()
	c.scope.pushFrame()

	for _, param := range d.Params {
		slot := c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: ir.PrimNull})
		if _, err := c.genLval(param, lvLet{Value: RuntimeValue{Ref: slot}}); err != nil {
			return nil, err
		}
	}

	if err := c.lowerImplicitReturn(d.Body); err != nil {
		return nil, err
	}

	frame := c.scope.popFrame(markDepth)

	header := ir.PackFuncHeader(len(d.Params), len(frame.Captures))
	start := len(c.extra)
	c.extra = append(c.extra, header)
	c.extra = append(c.extra, frame.Stream...)
	funcRef := c.appendInstr(ir.OpBuildFunc, ir.Extra{Start: start, Len: len(frame.Stream) + 1})

	for _, cap := range frame.Captures {
		c.emitBinary(ir.OpStoreCapture, funcRef, cap.ParentRef)
	}

	return RuntimeValue{Ref: funcRef}, nil
}

// lowerCall implements call lowering (spec §4.12): the callee is lowered
// and must already be runtime (function literals never fold to a
// compile-time constant); each argument is lowered in value mode, with a
// mut-aliased argument cloned via copy_un so the callee can't observe
// mutations the caller makes afterward to its own binding. The call itself
// picks call_zero/call_one/call by arity and goes through the fallible-
// instruction hook so it participates in an enclosing try scope.
func (c *Compiler) lowerCall(node ast.NodeID) (Value, error) {
	items := c.mod.Node(node).Data.(ast.List).Items
	calleeNode, argNodes := items[0], items[1:]
	if len(argNodes) > c.opts.MaxParams {
		return nil, c.fail(c.offset(node), "call has too many arguments (max %d)", c.opts.MaxParams)
	}

	calleeV, err := c.lower(calleeNode, ModeValue{})
	if err != nil {
		return nil, err
	}
	if !IsRuntime(calleeV) {
		return nil, c.fail(c.offset(node), "expression is not callable")
	}
	calleeRef := refOf(calleeV)

	argRefs := make([]ir.Ref, 0, len(argNodes))
	for _, argNode := range argNodes {
		argV, err := c.lower(argNode, ModeValue{})
		if err != nil {
			return nil, err
		}
		if _, isMut := argV.(MutValue); isMut {
			argRefs = append(argRefs, c.emitUnary(ir.OpCopyUn, refOf(argV)))
		} else {
			argRefs = append(argRefs, c.materialize(argV))
		}
	}

	switch len(argRefs) {
	case 0:
		return c.emitFallible(node, ir.OpCallZero, ir.Un{X: calleeRef})
	case 1:
		return c.emitFallible(node, ir.OpCallOne, ir.Bin{L: calleeRef, R: argRefs[0]})
	default:
		start := len(c.extra)
		c.extra = append(c.extra, calleeRef)
		c.extra = append(c.extra, argRefs...)
		return c.emitFallible(node, ir.OpCall, ir.Extra{Start: start, Len: len(argRefs) + 1})
	}
}
