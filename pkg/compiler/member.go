package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lowerIndexAccess implements `expr[index]` (spec §4.13). Member and index
// access share the get opcode; neither participates in the fallible-
// instruction hook (§4.3 names only iter_init, as-casts, and calls).
func (c *Compiler) lowerIndexAccess(node ast.NodeID) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Bin)

	objV, err := c.lower(d.L, ModeValue{})
	if err != nil {
		return nil, err
	}
	idxV, err := c.lower(d.R, ModeValue{})
	if err != nil {
		return nil, err
	}
	ref := c.emitBinary(ir.OpGet, c.materialize(objV), c.materialize(idxV))
	return RuntimeValue{Ref: ref}, nil
}

// lowerMemberAccess implements `expr.name` (spec §4.13): the member name is
// the node's own primary token and is materialized as a string constant so
// it shares the get opcode with index access. The object must be runtime or
// a string constant (spec §4.13); a statically-known non-indexable object
// (int, num, bool, or null) is rejected here per spec §7's mandatory
// "non-indexable member access" CompileError, the same way lvalue.go's
// lvalErrorPattern rejects a non-runtime bound value before emitting any
// instruction for it.
func (c *Compiler) lowerMemberAccess(node ast.NodeID) (Value, error) {
	obj := c.mod.Node(node).Data.(ast.Un).X
	name := c.mod.TokenText(node)

	objV, err := c.lower(obj, ModeValue{})
	if err != nil {
		return nil, err
	}
	if !IsRuntime(objV) {
		if _, isStr := objV.(StrConst); !isStr {
			return nil, c.fail(c.offset(obj), "non-indexable member access: %s", describeValueKind(objV))
		}
	}
	keyRef := c.materialize(StrConst{V: append([]byte(nil), name...)})
	ref := c.emitBinary(ir.OpGet, c.materialize(objV), keyRef)
	return RuntimeValue{Ref: ref}, nil
}

// describeValueKind names v's concrete kind for diagnostics.
func describeValueKind(v Value) string {
	switch v.(type) {
	case NullConst:
		return "null"
	case IntConst:
		return "int"
	case NumConst:
		return "num"
	case BoolConst:
		return "bool"
	case Empty:
		return "no value"
	default:
		return "this value"
	}
}
