package compiler

import "github.com/emberscript/emberc/pkg/ir"

// appendInstr is the shared tail of every primitive emitter (spec §4.2):
// compute the new Ref as the instruction buffer's current length, append
// the record, append the Ref to the active function's code stream, and
// return it. The active stream is the topmost FunctionFrame's Stream (see
// scope.go); Compile seeds a top-level frame before lowering begins so
// module-level code always has one to write into.
func (c *Compiler) appendInstr(op ir.Opcode, data ir.Operand) ir.Ref {
	ref := ir.Ref(len(c.code))
	c.code = append(c.code, ir.Instruction{Op: op, Data: data})
	c.scope.curFrame.Stream = append(c.scope.curFrame.Stream, ref)
	return ref
}

func (c *Compiler) emitNullary(op ir.Opcode) ir.Ref {
	return c.appendInstr(op, ir.None{})
}

func (c *Compiler) emitUnary(op ir.Opcode, x ir.Ref) ir.Ref {
	return c.appendInstr(op, ir.Un{X: x})
}

func (c *Compiler) emitBinary(op ir.Opcode, l, r ir.Ref) ir.Ref {
	return c.appendInstr(op, ir.Bin{L: l, R: r})
}

// emitJump appends an unconditional jump with an undefined target, to be
// fixed up later by finalizeJump.
func (c *Compiler) emitJump(op ir.Opcode) ir.Ref {
	return c.appendInstr(op, ir.Jump{Offset: -1})
}

// emitJumpCond appends a conditional jump tested on cond, target undefined.
func (c *Compiler) emitJumpCond(op ir.Opcode, cond ir.Ref) ir.Ref {
	return c.appendInstr(op, ir.JumpCond{Cond: cond, Offset: -1})
}

// emitExtra writes refs into the Extra Operand Buffer before appending the
// instruction that references them, per §4.2's "operand payload is written
// before the instruction is appended".
func (c *Compiler) emitExtra(op ir.Opcode, refs []ir.Ref) ir.Ref {
	start := len(c.extra)
	c.extra = append(c.extra, refs...)
	return c.appendInstr(op, ir.Extra{Start: start, Len: len(refs)})
}

// finalizeJump backpatches a previously emitted jump's target, distinguishing
// unconditional from conditional by inspecting the opcode's operand shape.
func (c *Compiler) finalizeJump(jumpRef ir.Ref, target int) {
	switch d := c.code[jumpRef].Data.(type) {
	case ir.Jump:
		d.Offset = target
		c.code[jumpRef].Data = d
	case ir.JumpCond:
		d.Offset = target
		c.code[jumpRef].Data = d
	default:
		panic("finalizeJump: instruction has no jump operand")
	}
}

// codeStreamLen is the active function's code-stream length, the authority
// for jump-offset computation (spec §9 "Backpatching & code streams").
func (c *Compiler) codeStreamLen() int { return len(c.scope.curFrame.Stream) }
