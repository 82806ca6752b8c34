// Package ir defines the register-style bytecode intermediate
// representation produced by pkg/compiler: the instruction buffer, the
// extra-operand side table, and the tagged-union operand payloads each
// opcode carries.
//
// ir has no dependency on pkg/ast or pkg/compiler; it is the leaf of the
// compiler core, the same way vm.Value is the leaf of the teacher's
// stack-based bytecode.
package ir

import "github.com/emberscript/emberc/pkg/ast"

// Ref is a dense, monotonically issued identifier for an instruction. There
// is a bijection between a Ref and its index in a Bytecode's Code slice:
// Ref(3) always names Code[3]. Refs are stable for the life of a
// compilation unit — backpatching rewrites operand fields in place, never
// the Code slice's length or order.
type Ref int32

// NoRef marks the absence of an optional Ref-valued field.
const NoRef Ref = -1

// Opcode tags an Instruction's operation.
type Opcode uint8

const (
	// Constant materialization. Each wraps a compile-time-known value into
	// a fresh runtime Ref, used when wrap_result must hand the caller a Ref
	// rather than a compile-time Value (e.g. a literal assigned to a target
	// slot, or a literal that survives folding to become the `main` stream's
	// final discarded value).
	OpConstInt Opcode = iota
	OpConstNum
	OpConstPrimitive // null / true / false, see Primitive
	OpConstStr       // offset+len into the string pool

	OpMove    // move dst ← src, overwriting the slot named by dst: bin(dst, src)
	OpCopy    // copy dst ← src (alias-safe value copy), overwriting dst's slot: bin(dst, src)
	OpCopyUn  // clone-by-value of a mut alias into a fresh slot: un(src)
	OpDiscard // statement-level discard of an unused runtime value: un(src)

	OpLoadGlobal   // placeholder; operand is none, fixed up via UnresolvedGlobals
	OpLoadCapture  // operand: int(k), k = ordinal position in the enclosing FunctionFrame's capture list
	OpStoreCapture // emitted in the outer stream right after build_func: bin(func_ref, parent_ref)

	OpBuildFunc // extra(start,len): word0 packed header, words 1.. the body's code stream

	OpCallZero // un(callee)
	OpCallOne  // bin(callee, arg)
	OpCall     // extra(start,len): [callee, arg0, arg1, ...]

	OpBuildTuple // extra(start,len)
	OpBuildList  // extra(start,len)
	OpBuildMap   // extra(start,len): [k0,v0,k1,v1,...]
	OpAppend     // bin(list, value)
	OpGet        // bin(obj, key) — member access and index access share this opcode

	OpIterInit // un(iterable) — fallible
	OpIterNext // jump_cond(iter, exit_offset) — conditional on whether iteration is exhausted

	OpJump        // jump(offset) — unconditional
	OpJumpIfFalse // jump_cond(cond, offset)
	OpJumpIfTrue  // jump_cond(cond, offset)
	OpJumpIfNull  // jump_cond(cond, offset)
	OpJumpIfError // jump_cond(cond, offset) — fallible-instruction hook, §4.3

	OpRet     // un(value)
	OpRetNull // none

	OpUnwrapError // un(value) — lvalue error-pattern destructuring

	OpBoolNot // un
	OpBitNot  // un
	OpNeg     // un

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr

	OpAs // ty_bin(value, type)
	OpIs // ty_bin(value, type)
)

// Primitive is the payload of OpConstPrimitive.
type Primitive uint8

const (
	PrimNull Primitive = iota
	PrimTrue
	PrimFalse
)

// Operand is the tagged-union payload of an Instruction (spec §3 "Operand").
// Concrete types are consumed via type switch, matching the ast.Data
// convention in pkg/ast.
type Operand interface{ isOperand() }

type (
	// None carries no payload (OpRetNull, an unresolved OpLoadGlobal).
	None struct{}

	// Un is a single-operand payload.
	Un struct{ X Ref }

	// Bin is a two-operand payload.
	Bin struct{ L, R Ref }

	// Jump is an unconditional jump's target: an absolute offset into the
	// code stream. Offset is -1 until finalize_jump backpatches it.
	Jump struct{ Offset int }

	// JumpCond is a conditional jump: tested on Cond, target Offset is -1
	// until backpatched.
	JumpCond struct {
		Cond   Ref
		Offset int
	}

	// Int is a compile-time-known 64-bit integer constant.
	Int struct{ V int64 }

	// Num is a compile-time-known floating point constant.
	Num struct{ V float64 }

	// PrimitiveOperand carries null/true/false.
	PrimitiveOperand struct{ V Primitive }

	// Str is an offset+length slice into the Bytecode's string pool.
	Str struct{ Offset, Len uint32 }

	// TyBin pairs a value Ref with a type tag, used by OpAs/OpIs.
	TyBin struct {
		X    Ref
		Type ast.TypeTag
	}

	// Extra is a (start, len) slice into the Extra Operand Buffer, used by
	// every variable-arity opcode.
	Extra struct{ Start, Len int }
)

func (None) isOperand()             {}
func (Un) isOperand()               {}
func (Bin) isOperand()              {}
func (Jump) isOperand()             {}
func (JumpCond) isOperand()         {}
func (Int) isOperand()              {}
func (Num) isOperand()              {}
func (PrimitiveOperand) isOperand() {}
func (Str) isOperand()              {}
func (TyBin) isOperand()            {}
func (Extra) isOperand()            {}

// Instruction is one record of the instruction buffer.
type Instruction struct {
	Op   Opcode
	Data Operand
}

// PackFuncHeader encodes build_func's word-0 header: {args: u8, captures:
// u24}, stored as a Ref-typed slot of the Extra Operand Buffer the same way
// the teacher's compiler packs jump targets into a 4-byte operand.
func PackFuncHeader(args, captures int) Ref {
	return Ref(int32(uint32(args&0xFF) | uint32(captures&0xFFFFFF)<<8))
}

// UnpackFuncHeader reverses PackFuncHeader.
func UnpackFuncHeader(r Ref) (args, captures int) {
	v := uint32(int32(r))
	return int(v & 0xFF), int(v >> 8)
}
