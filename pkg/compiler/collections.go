package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lowerTuple and lowerList share the same shape (spec §4.10): every element
// is lowered in value mode; in discard mode elements still run for their
// side effects but no build instruction is emitted.
func (c *Compiler) lowerTuple(node ast.NodeID, mode ResultMode) (Value, error) {
	return c.lowerSequence(node, mode, ir.OpBuildTuple)
}

func (c *Compiler) lowerList(node ast.NodeID, mode ResultMode) (Value, error) {
	return c.lowerSequence(node, mode, ir.OpBuildList)
}

func (c *Compiler) lowerSequence(node ast.NodeID, mode ResultMode, op ir.Opcode) (Value, error) {
	items := c.mod.Node(node).Data.(ast.List).Items
	_, discard := mode.(ModeDiscard)

	var refs []ir.Ref
	for _, item := range items {
		v, err := c.lower(item, ModeValue{})
		if err != nil {
			return nil, err
		}
		if !discard {
			refs = append(refs, c.materialize(v))
		}
	}
	if discard {
		return Empty{}, nil
	}
	return RuntimeValue{Ref: c.emitExtra(op, refs)}, nil
}

// lowerMap implements map-literal lowering (spec §4.10): each KMapItem
// child supplies a key/value pair, flattened [k0,v0,k1,v1,...] into the
// Extra Operand Buffer. An omitted key (the shorthand `{x}` ≡ `{"x": x}`
// form) is only supported when the value expression is a plain identifier,
// whose name becomes the string key — a deliberately narrower reading than
// the general "value expression ending in an identifier" phrasing, since
// member/index-access lowering doesn't expose a trailing name to borrow.
func (c *Compiler) lowerMap(node ast.NodeID, mode ResultMode) (Value, error) {
	items := c.mod.Node(node).Data.(ast.List).Items
	_, discard := mode.(ModeDiscard)

	var refs []ir.Ref
	for _, itemNode := range items {
		item := c.mod.Node(itemNode).Data.(ast.Bin)

		var keyRef ir.Ref
		if item.L != ast.NoNode {
			keyV, err := c.lower(item.L, ModeValue{})
			if err != nil {
				return nil, err
			}
			keyRef = c.materialize(keyV)
		} else {
			valueNode := c.mod.Node(item.R)
			if valueNode.Kind != ast.KIdent {
				return nil, c.fail(c.offset(itemNode), "map entry requires an explicit key unless the value is a plain identifier")
			}
			keyRef = c.materialize(StrConst{V: append([]byte(nil), c.mod.TokenText(item.R)...)})
		}

		valueV, err := c.lower(item.R, ModeValue{})
		if err != nil {
			return nil, err
		}
		if !discard {
			refs = append(refs, keyRef, c.materialize(valueV))
		}
	}

	if discard {
		return Empty{}, nil
	}
	return RuntimeValue{Ref: c.emitExtra(ir.OpBuildMap, refs)}, nil
}
