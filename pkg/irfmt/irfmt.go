// Package irfmt serializes an ir.Bytecode to and from a flat JSON form.
//
// ir.Instruction's Data field is a tagged-union Operand, the same
// polymorphic-interface shape pkg/ast uses for node payloads (see
// pkg/unitfmt for that side); encoding/json can't decode into an interface
// field on its own; so irfmt encodes each Instruction's operand from its
// concrete type and decodes it from whichever operand fields are present,
// emitting a flat {op, ...operand fields} object per instruction instead of
// a nested discriminated union.
//
// This is what pkg/artifactstore persists as an Artifact's Bytecode bytes,
// and what `emberc compile` writes to its output file.
package irfmt

import (
	"encoding/json"
	"fmt"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

type instructionDoc struct {
	Op string `json:"op"`

	X      *ir.Ref `json:"x,omitempty"`
	L      *ir.Ref `json:"l,omitempty"`
	R      *ir.Ref `json:"r,omitempty"`
	Offset *int    `json:"offset,omitempty"`
	Cond   *ir.Ref `json:"cond,omitempty"`
	Int    *int64  `json:"int,omitempty"`
	Num    *float64 `json:"num,omitempty"`
	Prim   *string `json:"prim,omitempty"`
	StrOff *uint32 `json:"str_offset,omitempty"`
	StrLen *uint32 `json:"str_len,omitempty"`
	Type   *string `json:"type,omitempty"`
	Start  *int    `json:"start,omitempty"`
	Len    *int    `json:"len,omitempty"`
}

type unresolvedGlobalDoc struct {
	Token       int    `json:"token"`
	Placeholder ir.Ref `json:"placeholder"`
}

type bytecodeDoc struct {
	Code              []instructionDoc      `json:"code"`
	Extra             []ir.Ref              `json:"extra"`
	Strings           []byte                `json:"strings"`
	Main              []ir.Ref              `json:"main"`
	UnresolvedGlobals []unresolvedGlobalDoc `json:"unresolved_globals"`
}

// Encode serializes a compiled Bytecode to its JSON wire form.
func Encode(bc *ir.Bytecode) ([]byte, error) {
	doc := bytecodeDoc{
		Extra:   bc.Extra,
		Strings: bc.Strings,
		Main:    bc.Main,
	}
	doc.Code = make([]instructionDoc, len(bc.Code))
	for i, instr := range bc.Code {
		d, err := encodeInstruction(instr)
		if err != nil {
			return nil, fmt.Errorf("irfmt: instruction %d: %w", i, err)
		}
		doc.Code[i] = d
	}
	for _, g := range bc.UnresolvedGlobals {
		doc.UnresolvedGlobals = append(doc.UnresolvedGlobals, unresolvedGlobalDoc{
			Token: g.Token, Placeholder: g.Placeholder,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses the JSON wire form back into an ir.Bytecode.
func Decode(data []byte) (*ir.Bytecode, error) {
	var doc bytecodeDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("irfmt: invalid document: %w", err)
	}

	bc := &ir.Bytecode{
		Extra:   doc.Extra,
		Strings: doc.Strings,
		Main:    doc.Main,
	}
	bc.Code = make([]ir.Instruction, len(doc.Code))
	for i, d := range doc.Code {
		instr, err := decodeInstruction(d)
		if err != nil {
			return nil, fmt.Errorf("irfmt: instruction %d: %w", i, err)
		}
		bc.Code[i] = instr
	}
	for _, g := range doc.UnresolvedGlobals {
		bc.UnresolvedGlobals = append(bc.UnresolvedGlobals, ir.UnresolvedGlobal{
			Token: g.Token, Placeholder: g.Placeholder,
		})
	}
	return bc, nil
}

var opNames = map[ir.Opcode]string{
	ir.OpConstInt: "const_int", ir.OpConstNum: "const_num",
	ir.OpConstPrimitive: "const_primitive", ir.OpConstStr: "const_str",
	ir.OpMove: "move", ir.OpCopy: "copy", ir.OpCopyUn: "copy_un",
	ir.OpDiscard: "discard",
	ir.OpLoadGlobal: "load_global", ir.OpLoadCapture: "load_capture",
	ir.OpStoreCapture: "store_capture",
	ir.OpBuildFunc:    "build_func",
	ir.OpCallZero:     "call_zero", ir.OpCallOne: "call_one", ir.OpCall: "call",
	ir.OpBuildTuple: "build_tuple", ir.OpBuildList: "build_list",
	ir.OpBuildMap: "build_map", ir.OpAppend: "append", ir.OpGet: "get",
	ir.OpIterInit: "iter_init", ir.OpIterNext: "iter_next",
	ir.OpJump: "jump", ir.OpJumpIfFalse: "jump_if_false",
	ir.OpJumpIfTrue: "jump_if_true", ir.OpJumpIfNull: "jump_if_null",
	ir.OpJumpIfError: "jump_if_error",
	ir.OpRet:          "ret", ir.OpRetNull: "ret_null",
	ir.OpUnwrapError:  "unwrap_error",
	ir.OpBoolNot:      "bool_not", ir.OpBitNot: "bit_not", ir.OpNeg: "neg",
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div",
	ir.OpFloorDiv: "floor_div", ir.OpMod: "mod", ir.OpPow: "pow",
	ir.OpEq: "eq", ir.OpNe: "ne", ir.OpLt: "lt", ir.OpLe: "le",
	ir.OpGt: "gt", ir.OpGe: "ge",
	ir.OpBitAnd: "bit_and", ir.OpBitOr: "bit_or", ir.OpBitXor: "bit_xor",
	ir.OpShl: "shl", ir.OpShr: "shr",
	ir.OpAs: "as", ir.OpIs: "is",
}

var namesToOp = func() map[string]ir.Opcode {
	m := make(map[string]ir.Opcode, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

var primNames = map[ir.Primitive]string{
	ir.PrimNull: "null", ir.PrimTrue: "true", ir.PrimFalse: "false",
}
var namesToPrim = map[string]ir.Primitive{
	"null": ir.PrimNull, "true": ir.PrimTrue, "false": ir.PrimFalse,
}

var typeTagNames = map[ast.TypeTag]string{
	ast.TyNull: "null", ast.TyInt: "int", ast.TyNum: "num", ast.TyBool: "bool",
	ast.TyStr: "str", ast.TyTuple: "tuple", ast.TyMap: "map", ast.TyList: "list",
	ast.TyErr: "err", ast.TyRange: "range", ast.TyFunc: "func", ast.TyTagged: "tagged",
}

func encodeInstruction(instr ir.Instruction) (instructionDoc, error) {
	name, ok := opNames[instr.Op]
	if !ok {
		return instructionDoc{}, fmt.Errorf("unknown opcode %d", instr.Op)
	}
	d := instructionDoc{Op: name}

	switch data := instr.Data.(type) {
	case ir.None:
	case ir.Un:
		d.X = &data.X
	case ir.Bin:
		d.L, d.R = &data.L, &data.R
	case ir.Jump:
		d.Offset = &data.Offset
	case ir.JumpCond:
		d.Cond, d.Offset = &data.Cond, &data.Offset
	case ir.Int:
		d.Int = &data.V
	case ir.Num:
		d.Num = &data.V
	case ir.PrimitiveOperand:
		name, ok := primNames[data.V]
		if !ok {
			return instructionDoc{}, fmt.Errorf("unknown primitive %d", data.V)
		}
		d.Prim = &name
	case ir.Str:
		d.StrOff, d.StrLen = &data.Offset, &data.Len
	case ir.TyBin:
		d.X = &data.X
		name, ok := typeTagNames[data.Type]
		if !ok {
			return instructionDoc{}, fmt.Errorf("unknown type tag %d", data.Type)
		}
		d.Type = &name
	case ir.Extra:
		d.Start, d.Len = &data.Start, &data.Len
	default:
		return instructionDoc{}, fmt.Errorf("unsupported operand %T", data)
	}
	return d, nil
}

func decodeInstruction(d instructionDoc) (ir.Instruction, error) {
	op, ok := namesToOp[d.Op]
	if !ok {
		return ir.Instruction{}, fmt.Errorf("unknown opcode %q", d.Op)
	}

	var data ir.Operand
	switch {
	case d.Prim != nil:
		prim, ok := namesToPrim[*d.Prim]
		if !ok {
			return ir.Instruction{}, fmt.Errorf("unknown primitive %q", *d.Prim)
		}
		data = ir.PrimitiveOperand{V: prim}
	case d.Int != nil:
		data = ir.Int{V: *d.Int}
	case d.Num != nil:
		data = ir.Num{V: *d.Num}
	case d.StrOff != nil:
		data = ir.Str{Offset: *d.StrOff, Len: valOr(d.StrLen, 0)}
	case d.Type != nil:
		tag, ok := typeTagByName(*d.Type)
		if !ok {
			return ir.Instruction{}, fmt.Errorf("unknown type tag %q", *d.Type)
		}
		data = ir.TyBin{X: valOr(d.X, 0), Type: tag}
	case d.Start != nil:
		data = ir.Extra{Start: *d.Start, Len: valOr(d.Len, 0)}
	case d.Cond != nil:
		data = ir.JumpCond{Cond: *d.Cond, Offset: valOr(d.Offset, 0)}
	case d.Offset != nil:
		data = ir.Jump{Offset: *d.Offset}
	case d.L != nil:
		data = ir.Bin{L: *d.L, R: valOr(d.R, 0)}
	case d.X != nil:
		data = ir.Un{X: *d.X}
	default:
		data = ir.None{}
	}

	return ir.Instruction{Op: op, Data: data}, nil
}

func typeTagByName(name string) (ast.TypeTag, bool) {
	for tag, n := range typeTagNames {
		if n == name {
			return tag, true
		}
	}
	return 0, false
}

func valOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
