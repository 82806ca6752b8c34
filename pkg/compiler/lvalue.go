package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lvMode selects which of the three lvalue operations genLval performs
// (spec §4.9): let binds a fresh Symbol, assign writes into an existing
// mutable slot, augAssign only resolves the existing slot and hands its
// Ref back through Out so the caller can combine and write back itself.
type lvMode interface{ isLvMode() }

type (
	lvLet       struct{ Value Value }
	lvAssign    struct{ Value Value }
	lvAugAssign struct{ Out *resolveResult }
)

func (lvLet) isLvMode()       {}
func (lvAssign) isLvMode()    {}
func (lvAugAssign) isLvMode() {}

// genLval implements the Lvalue engine of spec §4.9. It dispatches on the
// pattern node's own Kind rather than the expression dispatch in
// lower_expr.go, since a pattern position accepts node shapes (mut ident,
// discard, error-pattern destructuring) that are rejected everywhere else.
func (c *Compiler) genLval(node ast.NodeID, mode lvMode) (Value, error) {
	n := c.mod.Node(node)

	switch n.Kind {
	case ast.KIdent:
		return c.lvalIdent(node, string(c.mod.TokenText(node)), false, mode)
	case ast.KMutIdent:
		return c.lvalIdent(node, string(c.mod.TokenText(node)), true, mode)

	case ast.KDiscard:
		if _, ok := mode.(lvAugAssign); ok {
			return nil, c.fail(c.offset(node), "'_' cannot be the target of a compound assignment")
		}
		return Empty{}, nil

	case ast.KErrorPattern:
		if _, ok := mode.(lvAugAssign); ok {
			return nil, c.fail(c.offset(node), "an error pattern cannot be the target of a compound assignment")
		}
		return c.lvalErrorPattern(node, mode)

	case ast.KParen:
		return c.genLval(n.Data.(ast.Un).X, mode)

	case ast.KTuple, ast.KList, ast.KMap:
		return nil, c.fail(c.offset(node), "destructuring patterns are not yet implemented by this compiler core")

	default:
		return nil, c.fail(c.offset(node), "invalid assignment target")
	}
}

func (c *Compiler) lvalIdent(node ast.NodeID, name string, mut bool, mode lvMode) (Value, error) {
	switch m := mode.(type) {
	case lvLet:
		if err := c.checkRedeclaration(name, c.offset(node)); err != nil {
			return nil, err
		}
		sym := &Symbol{Name: name, Mut: mut}
		if mut {
			sym.Ref = c.emitUnary(ir.OpCopyUn, c.materialize(m.Value))
		} else if IsConstant(m.Value) {
			sym.Ref = ir.NoRef
			sym.ConstantValue = m.Value
		} else {
			sym.Ref = c.materialize(m.Value)
		}
		c.scope.pushSymbol(sym)
		return Empty{}, nil

	case lvAssign:
		if mut {
			return nil, c.fail(c.offset(node), "'mut' is only valid in a declaration")
		}
		res, err := c.resolve(name, c.scope.depth())
		if err != nil {
			return nil, err
		}
		if res.Global {
			if _, err := c.wrapResult(m.Value, ModeRef{Target: res.Ref}, c.offset(node)); err != nil {
				return nil, err
			}
			return Empty{}, nil
		}
		if !res.Mut {
			return nil, c.fail(c.offset(node), "cannot assign to %q: not declared mut", name)
		}
		if _, err := c.wrapResult(m.Value, ModeRef{Target: res.Ref}, c.offset(node)); err != nil {
			return nil, err
		}
		return Empty{}, nil

	case lvAugAssign:
		if mut {
			return nil, c.fail(c.offset(node), "'mut' is only valid in a declaration")
		}
		res, err := c.resolve(name, c.scope.depth())
		if err != nil {
			return nil, err
		}
		if !res.Mut && !res.Global {
			return nil, c.fail(c.offset(node), "cannot assign to %q: not declared mut", name)
		}
		*m.Out = res
		return Empty{}, nil

	default:
		panic("lvalIdent: unknown lvMode")
	}
}

// lvalErrorPattern implements the error(inner) destructuring pattern (spec
// §4.9): the bound value must already be a runtime error, and unwrap_error
// is emitted before recursing into the inner pattern with the unwrapped
// value.
func (c *Compiler) lvalErrorPattern(node ast.NodeID, mode lvMode) (Value, error) {
	inner := c.mod.Node(node).Data.(ast.Un).X

	var value Value
	switch m := mode.(type) {
	case lvLet:
		value = m.Value
	case lvAssign:
		value = m.Value
	default:
		panic("lvalErrorPattern: unreachable lvMode")
	}

	if !IsRuntime(value) {
		return nil, c.fail(c.offset(node), "expected a runtime error value for error pattern")
	}
	unwrapped := c.emitUnary(ir.OpUnwrapError, refOf(value))

	switch mode.(type) {
	case lvLet:
		return c.genLval(inner, lvLet{Value: RuntimeValue{Ref: unwrapped}})
	case lvAssign:
		return c.genLval(inner, lvAssign{Value: RuntimeValue{Ref: unwrapped}})
	}
	panic("unreachable")
}
