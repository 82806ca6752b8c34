package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// emitFallible appends a fallible instruction (iter_init, an `as` cast, or
// a call) and, when an active try scope exists, wires in the
// fallible-instruction hook of spec §4.3: the result is moved into the try
// scope's error slot and a jump_if_error is appended to its error jump
// list, independent of whether the instruction actually faults at runtime.
func (c *Compiler) emitFallible(node ast.NodeID, op ir.Opcode, data ir.Operand) (Value, error) {
	ref := c.appendInstr(op, data)
	if try := c.currentTry(); try != nil {
		c.emitBinary(ir.OpMove, try.errSlot, ref)
		jmp := c.emitJumpCond(ir.OpJumpIfError, ref)
		try.errorJumpList = append(try.errorJumpList, jmp)
	}
	return RuntimeValue{Ref: ref}, nil
}
