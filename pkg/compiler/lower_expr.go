package compiler

import (
	"math"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// lower is the Lowering Engine's single entry point (spec §2 item 7, §4.5):
// it dispatches on the node's Kind, then applies wrap_result to whatever
// raw Value the dispatch produced. Every recursive call into a sub-node
// goes through lower, except that a parenthesized expression hands its
// inner node straight to lowerRaw, so wrap_result runs exactly once for a
// node and any parentheses around it.
func (c *Compiler) lower(node ast.NodeID, mode ResultMode) (Value, error) {
	v, err := c.lowerRaw(node, mode)
	if err != nil {
		return nil, err
	}
	return c.wrapResult(v, mode, c.offset(node))
}

func (c *Compiler) lowerRaw(node ast.NodeID, mode ResultMode) (Value, error) {
	n := c.mod.Node(node)
	switch n.Kind {
	case ast.KInt:
		return c.lowerIntLiteral(node)
	case ast.KNum:
		return c.lowerNumLiteral(node)
	case ast.KStr:
		return c.lowerStrLiteral(node)
	case ast.KTrue:
		return BoolConst{V: true}, nil
	case ast.KFalse:
		return BoolConst{V: false}, nil
	case ast.KNull:
		return NullConst{}, nil
	case ast.KIdent:
		return c.lowerIdent(node)
	case ast.KMutIdent:
		return nil, c.fail(c.offset(node), "'mut' cannot be used as a value")
	case ast.KDiscard:
		return nil, c.fail(c.offset(node), "'_' cannot be used as a value")
	case ast.KErrorPattern:
		return nil, c.fail(c.offset(node), "an error pattern is only valid in a declaration, assignment, or match arm")

	case ast.KParen:
		return c.lowerRaw(n.Data.(ast.Un).X, mode)

	case ast.KBoolNot, ast.KBitNot, ast.KNegate:
		return c.lowerUnaryOp(node, n.Kind)

	case ast.KAdd, ast.KSub, ast.KMul, ast.KDiv, ast.KFloorDiv, ast.KMod, ast.KPow,
		ast.KEq, ast.KNe, ast.KLt, ast.KLe, ast.KGt, ast.KGe,
		ast.KBitAnd, ast.KBitOr, ast.KBitXor, ast.KShl, ast.KShr:
		return c.lowerBinaryOp(node, n.Kind)

	case ast.KAs, ast.KIs:
		return c.lowerAsIs(node, n.Kind)

	case ast.KArrayAccess:
		return c.lowerIndexAccess(node)
	case ast.KMemberAccess:
		return c.lowerMemberAccess(node)

	case ast.KBlock:
		return c.lowerBlock(node)

	case ast.KDecl:
		return c.lowerDecl(node)
	case ast.KAssign:
		return c.lowerAssign(node)
	case ast.KAugAdd, ast.KAugSub, ast.KAugMul, ast.KAugDiv, ast.KAugFloorDiv,
		ast.KAugMod, ast.KAugPow, ast.KAugBitAnd, ast.KAugBitOr, ast.KAugBitXor,
		ast.KAugShl, ast.KAugShr:
		return c.lowerAugAssign(node, n.Kind)

	case ast.KReturn:
		return c.lowerReturn(node)
	case ast.KBreak:
		return c.lowerBreak(node)
	case ast.KContinue:
		return c.lowerContinue(node)

	case ast.KIf:
		return c.lowerIf(node, mode)
	case ast.KWhile:
		return c.lowerWhile(node, mode)
	case ast.KFor:
		return c.lowerFor(node, mode)
	case ast.KMatch:
		return c.lowerMatch(node, mode)

	case ast.KTuple:
		return c.lowerTuple(node, mode)
	case ast.KList:
		return c.lowerList(node, mode)
	case ast.KMap:
		return c.lowerMap(node, mode)

	case ast.KFn:
		return c.lowerFn(node)
	case ast.KCall:
		return c.lowerCall(node)

	case ast.KImport:
		return nil, c.fail(c.offset(node), "import is not implemented by this compiler core")
	case ast.KThrow:
		return nil, c.fail(c.offset(node), "throw is not implemented by this compiler core")

	default:
		return nil, c.fail(c.offset(node), "unsupported node kind %d", n.Kind)
	}
}

func (c *Compiler) lowerIntLiteral(node ast.NodeID) (Value, error) {
	text := c.mod.TokenText(node)
	v, err := parseInt(text)
	if err != nil {
		return nil, c.fail(c.offset(node), "invalid integer literal %q", text)
	}
	return IntConst{V: v}, nil
}

func (c *Compiler) lowerNumLiteral(node ast.NodeID) (Value, error) {
	text := c.mod.TokenText(node)
	v, err := parseFloat(text)
	if err != nil {
		return nil, c.fail(c.offset(node), "invalid number literal %q", text)
	}
	return NumConst{V: v}, nil
}

func (c *Compiler) lowerStrLiteral(node ast.NodeID) (Value, error) {
	raw := c.mod.TokenText(node)
	bytes, err := unescapeStringLiteral(raw)
	if err != nil {
		return nil, c.fail(c.offset(node), "%s", err.Error())
	}
	return StrConst{V: bytes}, nil
}

func (c *Compiler) lowerIdent(node ast.NodeID) (Value, error) {
	name := string(c.mod.TokenText(node))
	res, err := c.resolve(name, c.scope.depth())
	if err != nil {
		return nil, err
	}
	if res.Const != nil {
		return res.Const, nil
	}
	if res.Mut {
		return MutValue{Ref: res.Ref}, nil
	}
	return RuntimeValue{Ref: res.Ref}, nil
}

// lowerUnaryOp handles !, ~, - with constant folding (spec §4.5).
func (c *Compiler) lowerUnaryOp(node ast.NodeID, kind ast.Kind) (Value, error) {
	x := c.mod.Node(node).Data.(ast.Un).X
	v, err := c.lower(x, ModeValue{})
	if err != nil {
		return nil, err
	}

	switch kind {
	case ast.KBoolNot:
		if b, ok := v.(BoolConst); ok {
			return BoolConst{V: !b.V}, nil
		}
		return c.emitUnaryRuntime(ir.OpBoolNot, v, node, "boolean")
	case ast.KBitNot:
		if i, ok := v.(IntConst); ok {
			return IntConst{V: ^i.V}, nil
		}
		return c.emitUnaryRuntime(ir.OpBitNot, v, node, "integer")
	case ast.KNegate:
		switch x := v.(type) {
		case IntConst:
			return IntConst{V: -x.V}, nil
		case NumConst:
			return NumConst{V: -x.V}, nil
		}
		return c.emitUnaryRuntimeAny(ir.OpNeg, v)
	}
	panic("unreachable")
}

func (c *Compiler) emitUnaryRuntimeAny(op ir.Opcode, v Value) (Value, error) {
	ref := c.materialize(v)
	return RuntimeValue{Ref: c.emitUnary(op, ref)}, nil
}

func (c *Compiler) emitUnaryRuntime(op ir.Opcode, v Value, node ast.NodeID, want string) (Value, error) {
	if IsConstant(v) {
		if !operandMatchesScalar(v, want) {
			return nil, c.fail(c.offset(node), "expected a %s", want)
		}
	}
	ref := c.materialize(v)
	return RuntimeValue{Ref: c.emitUnary(op, ref)}, nil
}

func operandMatchesScalar(v Value, want string) bool {
	switch want {
	case "boolean":
		_, ok := v.(BoolConst)
		return ok
	case "integer":
		_, ok := v.(IntConst)
		return ok
	default:
		return true
	}
}

// lowerBinaryOp handles arithmetic/comparison/bitwise/shift with constant
// folding (spec §4.5).
func (c *Compiler) lowerBinaryOp(node ast.NodeID, kind ast.Kind) (Value, error) {
	d := c.mod.Node(node).Data.(ast.Bin)
	l, err := c.lower(d.L, ModeValue{})
	if err != nil {
		return nil, err
	}
	r, err := c.lower(d.R, ModeValue{})
	if err != nil {
		return nil, err
	}

	switch kind {
	case ast.KAdd, ast.KSub, ast.KMul, ast.KDiv, ast.KFloorDiv, ast.KMod, ast.KPow:
		return c.foldArith(node, kind, l, r)
	case ast.KEq, ast.KNe, ast.KLt, ast.KLe, ast.KGt, ast.KGe:
		return c.foldCompare(node, kind, l, r)
	case ast.KBitAnd, ast.KBitOr, ast.KBitXor:
		return c.foldBitwise(node, kind, l, r)
	case ast.KShl, ast.KShr:
		return c.foldShift(node, kind, l, r)
	}
	panic("unreachable")
}

func binOpcode(kind ast.Kind) ir.Opcode {
	switch kind {
	case ast.KAdd:
		return ir.OpAdd
	case ast.KSub:
		return ir.OpSub
	case ast.KMul:
		return ir.OpMul
	case ast.KDiv:
		return ir.OpDiv
	case ast.KFloorDiv:
		return ir.OpFloorDiv
	case ast.KMod:
		return ir.OpMod
	case ast.KPow:
		return ir.OpPow
	case ast.KEq:
		return ir.OpEq
	case ast.KNe:
		return ir.OpNe
	case ast.KLt:
		return ir.OpLt
	case ast.KLe:
		return ir.OpLe
	case ast.KGt:
		return ir.OpGt
	case ast.KGe:
		return ir.OpGe
	case ast.KBitAnd:
		return ir.OpBitAnd
	case ast.KBitOr:
		return ir.OpBitOr
	case ast.KBitXor:
		return ir.OpBitXor
	case ast.KShl:
		return ir.OpShl
	case ast.KShr:
		return ir.OpShr
	default:
		panic("binOpcode: not a binary opcode kind")
	}
}

func (c *Compiler) runtimeBinary(kind ast.Kind, l, r Value) Value {
	lr, rr := c.materialize(l), c.materialize(r)
	return RuntimeValue{Ref: c.emitBinary(binOpcode(kind), lr, rr)}
}

// foldArith implements the arithmetic folding table: promotion to num iff
// either operand is num, overflow escapes to runtime rather than folding a
// wrong answer, division always produces num, floor-div/mod produce int
// only when both operands are int.
func (c *Compiler) foldArith(node ast.NodeID, kind ast.Kind, l, r Value) (Value, error) {
	li, lIsInt := l.(IntConst)
	ri, rIsInt := r.(IntConst)
	ln, lIsNum := numOf(l)
	rn, rIsNum := numOf(r)

	bothScalarConst := (lIsInt || lIsNum) && (rIsInt || rIsNum)
	if !bothScalarConst {
		return c.runtimeBinary(kind, l, r), nil
	}

	if kind == ast.KDiv {
		if rn == 0 {
			return nil, c.fail(c.offset(node), "division by zero")
		}
		return NumConst{V: ln / rn}, nil
	}

	if lIsInt && rIsInt {
		v, ok := foldIntArith(kind, li.V, ri.V)
		if !ok {
			// Overflow (or division/modulo by zero at the int level):
			// fall through to runtime emission rather than fold a wrong
			// or undefined answer (spec §4.5, §8 boundary behaviors).
			return c.runtimeBinary(kind, l, r), nil
		}
		return IntConst{V: v}, nil
	}

	switch kind {
	case ast.KFloorDiv:
		if rn == 0 {
			return nil, c.fail(c.offset(node), "division by zero")
		}
		return NumConst{V: math.Floor(ln / rn)}, nil
	case ast.KMod:
		if rn == 0 {
			return nil, c.fail(c.offset(node), "division by zero")
		}
		return NumConst{V: math.Mod(ln, rn)}, nil
	case ast.KAdd:
		return NumConst{V: ln + rn}, nil
	case ast.KSub:
		return NumConst{V: ln - rn}, nil
	case ast.KMul:
		return NumConst{V: ln * rn}, nil
	case ast.KPow:
		return NumConst{V: math.Pow(ln, rn)}, nil
	}
	panic("unreachable")
}

func numOf(v Value) (float64, bool) {
	switch x := v.(type) {
	case IntConst:
		return float64(x.V), true
	case NumConst:
		return x.V, true
	default:
		return 0, false
	}
}

// foldIntArith evaluates one arithmetic op over two known int64s, returning
// ok=false when the host i64 would overflow or the operation is undefined
// for runtime (division/modulo by zero), signaling the caller to fall
// through to runtime emission instead of folding.
func foldIntArith(kind ast.Kind, l, r int64) (int64, bool) {
	switch kind {
	case ast.KAdd:
		sum := l + r
		if (sum-r != l) || ((l > 0 && r > 0 && sum < 0) || (l < 0 && r < 0 && sum > 0)) {
			return 0, false
		}
		return sum, true
	case ast.KSub:
		diff := l - r
		if (l >= 0 && r < 0 && diff < 0) || (l < 0 && r > 0 && diff > 0) {
			return 0, false
		}
		return diff, true
	case ast.KMul:
		if l == 0 || r == 0 {
			return 0, true
		}
		prod := l * r
		if prod/r != l {
			return 0, false
		}
		return prod, true
	case ast.KFloorDiv:
		if r == 0 {
			return 0, false
		}
		if l == math.MinInt64 && r == -1 {
			return 0, false
		}
		q := l / r
		if (l%r != 0) && ((l < 0) != (r < 0)) {
			q--
		}
		return q, true
	case ast.KMod:
		if r == 0 {
			return 0, false
		}
		if l == math.MinInt64 && r == -1 {
			return 0, true
		}
		m := l % r
		if m != 0 && ((m < 0) != (r < 0)) {
			m += r
		}
		return m, true
	case ast.KPow:
		if r < 0 {
			return 0, false
		}
		result := int64(1)
		base := l
		exp := r
		for exp > 0 {
			if exp&1 == 1 {
				next := result * base
				if base != 0 && next/base != result {
					return 0, false
				}
				result = next
			}
			exp >>= 1
			if exp > 0 {
				next := base * base
				if base != 0 && next/base != base {
					return 0, false
				}
				base = next
			}
		}
		return result, true
	default:
		panic("foldIntArith: not an arithmetic kind")
	}
}

func (c *Compiler) foldCompare(node ast.NodeID, kind ast.Kind, l, r Value) (Value, error) {
	if IsConstant(l) && IsConstant(r) && sameScalarType(l, r) {
		result, ok := compareConst(kind, l, r)
		if ok {
			return BoolConst{V: result}, nil
		}
	}
	return c.runtimeBinary(kind, l, r), nil
}

func sameScalarType(l, r Value) bool {
	_, ln := numOf(l)
	_, rn := numOf(r)
	if ln && rn {
		return true
	}
	switch l.(type) {
	case BoolConst:
		_, ok := r.(BoolConst)
		return ok
	case StrConst:
		_, ok := r.(StrConst)
		return ok
	case NullConst:
		_, ok := r.(NullConst)
		return ok
	default:
		return false
	}
}

func compareConst(kind ast.Kind, l, r Value) (bool, bool) {
	if ln, lok := numOf(l); lok {
		rn, _ := numOf(r)
		switch kind {
		case ast.KEq:
			return ln == rn, true
		case ast.KNe:
			return ln != rn, true
		case ast.KLt:
			return ln < rn, true
		case ast.KLe:
			return ln <= rn, true
		case ast.KGt:
			return ln > rn, true
		case ast.KGe:
			return ln >= rn, true
		}
	}
	if lb, ok := l.(BoolConst); ok {
		rb := r.(BoolConst)
		switch kind {
		case ast.KEq:
			return lb.V == rb.V, true
		case ast.KNe:
			return lb.V != rb.V, true
		}
		return false, false
	}
	if ls, ok := l.(StrConst); ok {
		rs := r.(StrConst)
		switch kind {
		case ast.KEq:
			return string(ls.V) == string(rs.V), true
		case ast.KNe:
			return string(ls.V) != string(rs.V), true
		case ast.KLt:
			return string(ls.V) < string(rs.V), true
		case ast.KLe:
			return string(ls.V) <= string(rs.V), true
		case ast.KGt:
			return string(ls.V) > string(rs.V), true
		case ast.KGe:
			return string(ls.V) >= string(rs.V), true
		}
	}
	if _, ok := l.(NullConst); ok {
		switch kind {
		case ast.KEq:
			return true, true
		case ast.KNe:
			return false, true
		}
	}
	return false, false
}

func (c *Compiler) foldBitwise(node ast.NodeID, kind ast.Kind, l, r Value) (Value, error) {
	li, lok := l.(IntConst)
	ri, rok := r.(IntConst)
	if !lok || !rok {
		return c.runtimeBinary(kind, l, r), nil
	}
	switch kind {
	case ast.KBitAnd:
		return IntConst{V: li.V & ri.V}, nil
	case ast.KBitOr:
		return IntConst{V: li.V | ri.V}, nil
	case ast.KBitXor:
		return IntConst{V: li.V ^ ri.V}, nil
	}
	panic("unreachable")
}

// foldShift implements §4.5/§8's shift rules: both operands must be
// int-typed constants to fold; a negative shift amount is a compile error;
// a count ≥ 64 saturates (left → 0, right → max_i64, sign-preserving per
// spec §9's recommendation for arithmetic right shift).
func (c *Compiler) foldShift(node ast.NodeID, kind ast.Kind, l, r Value) (Value, error) {
	li, lok := l.(IntConst)
	ri, rok := r.(IntConst)
	if !lok || !rok {
		return c.runtimeBinary(kind, l, r), nil
	}
	if ri.V < 0 {
		return nil, c.fail(c.offset(node), "shift by negative amount")
	}
	if ri.V >= 64 {
		if kind == ast.KShl {
			return IntConst{V: 0}, nil
		}
		if li.V < 0 {
			return IntConst{V: -1}, nil
		}
		return IntConst{V: math.MaxInt64}, nil
	}
	if kind == ast.KShl {
		return IntConst{V: li.V << uint(ri.V)}, nil
	}
	return IntConst{V: li.V >> uint(ri.V)}, nil
}

// lowerAsIs implements the cast table and `is` type-query folding (spec
// §4.5, §6.4).
func (c *Compiler) lowerAsIs(node ast.NodeID, kind ast.Kind) (Value, error) {
	d := c.mod.Node(node).Data.(ast.TyBin)
	typeName := string(c.mod.Tokens.Slice(d.TypeTok))
	tag, ok := ast.TypeTagByName(typeName)
	if !ok {
		return nil, c.fail(c.offset(node), "unknown type name %q", typeName)
	}

	v, err := c.lower(d.X, ModeValue{})
	if err != nil {
		return nil, err
	}

	if kind == ast.KAs {
		return c.lowerCast(node, v, tag)
	}
	return c.lowerIsQuery(node, v, tag)
}

func (c *Compiler) lowerCast(node ast.NodeID, v Value, to ast.TypeTag) (Value, error) {
	switch to {
	case ast.TyFunc, ast.TyErr, ast.TyRange, ast.TyTuple, ast.TyMap, ast.TyList, ast.TyTagged:
		return nil, c.fail(c.offset(node), "cannot cast to %s", typeTagName(to))
	}

	if IsConstant(v) {
		folded, ok, err := foldCast(v, to)
		if err != nil {
			return nil, c.fail(c.offset(node), "%s", err.Error())
		}
		if ok {
			return folded, nil
		}
	}

	ref := c.materialize(v)
	result, err := c.emitFallible(node, ir.OpAs, ir.TyBin{X: ref, Type: to})
	return result, err
}

func (c *Compiler) lowerIsQuery(node ast.NodeID, v Value, want ast.TypeTag) (Value, error) {
	if IsConstant(v) {
		return BoolConst{V: constScalarTag(v) == want}, nil
	}
	ref := c.materialize(v)
	return RuntimeValue{Ref: c.appendInstr(ir.OpIs, ir.TyBin{X: ref, Type: want})}, nil
}

func constScalarTag(v Value) ast.TypeTag {
	switch v.(type) {
	case NullConst:
		return ast.TyNull
	case IntConst:
		return ast.TyInt
	case NumConst:
		return ast.TyNum
	case BoolConst:
		return ast.TyBool
	case StrConst:
		return ast.TyStr
	default:
		panic("constScalarTag: not a scalar constant")
	}
}
