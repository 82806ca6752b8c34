package compiler

import (
	"fmt"
	"strconv"

	"github.com/emberscript/emberc/pkg/ast"
)

// foldCast implements the compile-time cast table of spec §4.5. Callers
// must only invoke it when v is already known to be a scalar constant;
// forbidden destination types (func/err/range/composites) are rejected by
// the caller before this is reached.
func foldCast(v Value, to ast.TypeTag) (Value, bool, error) {
	if to == ast.TyNull {
		return NullConst{}, true, nil
	}

	if _, isNull := v.(NullConst); isNull {
		return nil, false, fmt.Errorf("cannot cast null to %s", typeTagName(to))
	}

	switch to {
	case ast.TyInt:
		return castToInt(v)
	case ast.TyNum:
		return castToNum(v)
	case ast.TyBool:
		return castToBool(v)
	case ast.TyStr:
		return castToStr(v)
	default:
		return nil, false, fmt.Errorf("cannot cast to %s", typeTagName(to))
	}
}

func castToInt(v Value) (Value, bool, error) {
	switch x := v.(type) {
	case IntConst:
		return x, true, nil
	case NumConst:
		return IntConst{V: int64(x.V)}, true, nil
	case BoolConst:
		if x.V {
			return IntConst{V: 1}, true, nil
		}
		return IntConst{V: 0}, true, nil
	case StrConst:
		n, err := parseInt(x.V)
		if err != nil {
			return nil, false, fmt.Errorf("cannot parse %q as int", x.V)
		}
		return IntConst{V: n}, true, nil
	default:
		return nil, false, fmt.Errorf("cannot cast to int")
	}
}

func castToNum(v Value) (Value, bool, error) {
	switch x := v.(type) {
	case IntConst:
		return NumConst{V: float64(x.V)}, true, nil
	case NumConst:
		return x, true, nil
	case BoolConst:
		if x.V {
			return NumConst{V: 1}, true, nil
		}
		return NumConst{V: 0}, true, nil
	case StrConst:
		f, err := parseFloat(x.V)
		if err != nil {
			return nil, false, fmt.Errorf("cannot parse %q as num", x.V)
		}
		return NumConst{V: f}, true, nil
	default:
		return nil, false, fmt.Errorf("cannot cast to num")
	}
}

func castToBool(v Value) (Value, bool, error) {
	switch x := v.(type) {
	case IntConst:
		return BoolConst{V: x.V != 0}, true, nil
	case NumConst:
		return BoolConst{V: x.V != 0}, true, nil
	case BoolConst:
		return x, true, nil
	case StrConst:
		switch string(x.V) {
		case "true":
			return BoolConst{V: true}, true, nil
		case "false":
			return BoolConst{V: false}, true, nil
		default:
			return nil, false, fmt.Errorf("cannot cast %q to bool", x.V)
		}
	default:
		return nil, false, fmt.Errorf("cannot cast to bool")
	}
}

func castToStr(v Value) (Value, bool, error) {
	switch x := v.(type) {
	case IntConst:
		return StrConst{V: []byte(strconv.FormatInt(x.V, 10))}, true, nil
	case NumConst:
		return StrConst{V: []byte(strconv.FormatFloat(x.V, 'g', -1, 64))}, true, nil
	case BoolConst:
		if x.V {
			return StrConst{V: []byte("true")}, true, nil
		}
		return StrConst{V: []byte("false")}, true, nil
	case StrConst:
		return x, true, nil
	default:
		return nil, false, fmt.Errorf("cannot cast to str")
	}
}

func typeTagName(t ast.TypeTag) string {
	switch t {
	case ast.TyNull:
		return "null"
	case ast.TyInt:
		return "int"
	case ast.TyNum:
		return "num"
	case ast.TyBool:
		return "bool"
	case ast.TyStr:
		return "str"
	case ast.TyTuple:
		return "tuple"
	case ast.TyMap:
		return "map"
	case ast.TyList:
		return "list"
	case ast.TyErr:
		return "err"
	case ast.TyRange:
		return "range"
	case ast.TyFunc:
		return "func"
	case ast.TyTagged:
		return "tagged"
	default:
		return "?"
	}
}
