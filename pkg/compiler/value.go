package compiler

import "github.com/emberscript/emberc/pkg/ir"

// Value is the compile-time tagged union of spec §3: either a known
// constant, a runtime reference (possibly a mutable alias), or the `empty`
// sentinel meaning "this statement produced no value". Implementers are
// told to use a sealed sum with a small is_runtime() discriminator rather
// than inheritance (spec §9) — IsRuntime below is that discriminator, and
// the concrete types are otherwise marker structs consumed by type switch,
// matching the vm.Value convention of the teacher's bytecode VM.
type Value interface{ isValue() }

type (
	// Empty means a statement produced no value. It must never reach
	// wrapResult with a mode other than discard — that is a compile error.
	Empty struct{}

	// RuntimeValue names the instruction that produced a fresh runtime
	// value: assignment moves it.
	RuntimeValue struct{ Ref ir.Ref }

	// MutValue is a runtime value bound to a mutable storage slot:
	// assignment and argument passing copy it instead of moving it, so two
	// bindings never alias the same slot (spec §9 "mut aliasing").
	MutValue struct{ Ref ir.Ref }

	// NullConst is the compile-time constant null.
	NullConst struct{}

	// IntConst is a compile-time-known 64-bit integer.
	IntConst struct{ V int64 }

	// NumConst is a compile-time-known float.
	NumConst struct{ V float64 }

	// BoolConst is a compile-time-known boolean.
	BoolConst struct{ V bool }

	// StrConst is a compile-time-known string, held as raw bytes until
	// materialized into the interner.
	StrConst struct{ V []byte }
)

func (Empty) isValue()        {}
func (RuntimeValue) isValue() {}
func (MutValue) isValue()     {}
func (NullConst) isValue()    {}
func (IntConst) isValue()     {}
func (NumConst) isValue()     {}
func (BoolConst) isValue()    {}
func (StrConst) isValue()     {}

// IsRuntime reports whether v is already backed by a runtime Ref (RuntimeValue
// or MutValue), as opposed to a compile-time constant or Empty.
func IsRuntime(v Value) bool {
	switch v.(type) {
	case RuntimeValue, MutValue:
		return true
	default:
		return false
	}
}

// IsConstant reports whether v is a compile-time scalar constant.
func IsConstant(v Value) bool {
	switch v.(type) {
	case NullConst, IntConst, NumConst, BoolConst, StrConst:
		return true
	default:
		return false
	}
}

// refOf extracts the underlying Ref of a runtime value; callers must check
// IsRuntime first.
func refOf(v Value) ir.Ref {
	switch x := v.(type) {
	case RuntimeValue:
		return x.Ref
	case MutValue:
		return x.Ref
	default:
		panic("refOf: value is not runtime")
	}
}

// ResultMode is the caller's expectation for a lowered expression (spec §3
// "ResultMode").
type ResultMode interface{ isResultMode() }

type (
	// ModeDiscard means no value is required.
	ModeDiscard struct{}

	// ModeValue accepts any Value, constant or runtime.
	ModeValue struct{}

	// ModeRef requires the result materialized into the caller-allocated
	// Target slot.
	ModeRef struct{ Target ir.Ref }
)

func (ModeDiscard) isResultMode() {}
func (ModeValue) isResultMode()   {}
func (ModeRef) isResultMode()     {}

// materialize ensures v is available at runtime as a single Ref, emitting a
// const instruction for compile-time scalars (spec GLOSSARY "Materialize").
func (c *Compiler) materialize(v Value) ir.Ref {
	switch x := v.(type) {
	case RuntimeValue:
		return x.Ref
	case MutValue:
		return x.Ref
	case NullConst:
		return c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: ir.PrimNull})
	case BoolConst:
		p := ir.PrimFalse
		if x.V {
			p = ir.PrimTrue
		}
		return c.appendInstr(ir.OpConstPrimitive, ir.PrimitiveOperand{V: p})
	case IntConst:
		return c.appendInstr(ir.OpConstInt, ir.Int{V: x.V})
	case NumConst:
		return c.appendInstr(ir.OpConstNum, ir.Num{V: x.V})
	case StrConst:
		off, ln := c.interner.intern(x.V)
		return c.appendInstr(ir.OpConstStr, ir.Str{Offset: off, Len: ln})
	default:
		panic("materialize: empty value")
	}
}

// wrapResult is the final step of every lowered expression (spec §4.5
// `wrap_result`): it enforces that `empty` never escapes into a value
// context, discards an unused runtime value, and materializes into a
// caller-supplied target slot when one was requested.
func (c *Compiler) wrapResult(value Value, mode ResultMode, offset int) (Value, error) {
	if _, isEmpty := value.(Empty); isEmpty {
		if _, discard := mode.(ModeDiscard); !discard {
			return nil, c.fail(offset, "expected a value")
		}
		return value, nil
	}

	switch m := mode.(type) {
	case ModeDiscard:
		if IsRuntime(value) {
			c.emitUnary(ir.OpDiscard, refOf(value))
		}
		return value, nil
	case ModeValue:
		return value, nil
	case ModeRef:
		ref := c.materialize(value)
		if ref != m.Target {
			if _, isMut := value.(MutValue); isMut {
				c.emitBinary(ir.OpCopy, m.Target, ref)
			} else {
				c.emitBinary(ir.OpMove, m.Target, ref)
			}
		}
		// The logical result of a ref-mode lowering is "whatever now lives
		// in Target", not the source value — callers that merge two
		// branches into one target (if/match) rely on this to get a single
		// coherent Value back regardless of which branch ran.
		return RuntimeValue{Ref: m.Target}, nil
	default:
		panic("wrapResult: unknown ResultMode")
	}
}
