// Package compiler implements the AST→bytecode lowering engine: the
// scope stack and capture lifting, compile-time constant folding, control
// flow via backpatched jumps, and the lvalue/collection/function lowering
// passes that together translate an ast.Module into an ir.Bytecode.
package compiler

import (
	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/ir"
)

// Options carries the knobs the core itself exposes — everything else
// (log level, cache backend, tracing exporter...) lives in pkg/emberconfig
// one layer up, since the core is meant to stay a pure function of
// AST→Bytecode-or-error.
type Options struct {
	// MaxParams bounds both function parameter counts and call argument
	// counts (spec §4.11 "implementation-defined, 32 is a reasonable
	// choice").
	MaxParams int
}

// DefaultOptions returns the spec-recommended defaults.
func DefaultOptions() Options {
	return Options{MaxParams: 32}
}

// Compiler holds all state for a single compilation: the shared instruction
// and extra-operand buffers, the string interner, the scope stack, the
// diagnostic collector, and the loop/try "current" pointers (spec §3, §9).
// A Compiler is single-use; construct a fresh one per compilation via
// NewCompiler rather than resetting and reusing one, since capture lifting
// and backpatching both assume a clean Ref space.
type Compiler struct {
	opts Options

	code     []ir.Instruction
	extra    []ir.Ref
	interner *interner

	scope *scopeStack

	loopStack []*loopScope
	tryStack  []*tryScope

	diags             Diagnostics
	unresolvedGlobals []ir.UnresolvedGlobal

	mod      *ast.Module
	curToken int
}

// NewCompiler constructs a Compiler with default options.
func NewCompiler() *Compiler {
	return NewCompilerWithOptions(DefaultOptions())
}

// NewCompilerWithOptions constructs a Compiler with explicit options.
func NewCompilerWithOptions(opts Options) *Compiler {
	return &Compiler{
		opts:     opts,
		interner: newInterner(),
		scope:    &scopeStack{},
	}
}

// Compile lowers a complete ast.Module into an ir.Bytecode (spec §2, §6.2).
// It is the core's sole public entry point: a pure function from AST to
// Bytecode-or-error, with no file I/O, logging, or VM execution of its own
// (those are out of scope per spec §1 and live in the ambient/domain
// packages one layer up).
func (c *Compiler) Compile(mod *ast.Module) (*ir.Bytecode, error) {
	c.mod = mod
	top := c.scope.pushFrame()

	roots := mod.Root
	for i, node := range roots {
		last := i == len(roots)-1
		if err := c.lowerRoot(node, last); err != nil {
			return nil, err
		}
	}

	return &ir.Bytecode{
		Code:              c.code,
		Extra:             c.extra,
		Strings:           c.interner.bytes(),
		Main:              top.Stream,
		UnresolvedGlobals: c.unresolvedGlobals,
	}, nil
}

// lowerRoot lowers one top-level statement. Every root is lowered in
// discard mode except the last, which gets its own finalization rule
// (lowerModuleFinalRoot) distinct from a function body's: nothing in the
// module ever consumes a root's value the way a caller consumes a
// function's return value, so the module-final-root and function-body
// cases diverge on exactly one point — what happens to a compile-time
// constant (see lowerModuleFinalRoot's comment).
func (c *Compiler) lowerRoot(node ast.NodeID, last bool) error {
	if !last {
		_, err := c.lower(node, ModeDiscard{})
		return err
	}
	return c.lowerModuleFinalRoot(node)
}

// lowerImplicitReturn lowers a function body's final node (spec §4.11 step
// 4): a block- or assignment-shaped node stays in discard mode and gets no
// explicit ret at all (falling off the end means an implicit null at
// execution, spec §8 scenario 3), while any other expression is lowered in
// value mode, materialized, and terminated with an explicit ret — ret_null
// when the resolved value is Empty or the constant null, ret(ref)
// otherwise. Unlike a module's last root, the function's caller consumes
// this value as the call's result, so even a folded scalar constant must be
// materialized and returned rather than elided.
func (c *Compiler) lowerImplicitReturn(node ast.NodeID) error {
	if isDiscardShaped(c.mod.Node(node).Kind) {
		_, err := c.lower(node, ModeDiscard{})
		return err
	}

	v, err := c.lower(node, ModeValue{})
	if err != nil {
		return err
	}
	switch v.(type) {
	case Empty, NullConst:
		c.emitNullary(ir.OpRetNull)
	default:
		ref := c.materialize(v)
		c.emitUnary(ir.OpRet, ref)
	}
	return nil
}

// lowerModuleFinalRoot lowers a module's last root (spec §8 scenario 1). A
// block- or assignment-shaped node stays in discard mode, same as
// lowerImplicitReturn. Otherwise, unlike a function body, nothing in the
// module reads this value — so a value that folded entirely to a
// compile-time constant (int, num, bool, string, or null) is simply dead
// and gets ret_null with nothing materialized. A value that still requires
// runtime computation is materialized and ret'd anyway, not because
// anything consumes it but because the computation itself may carry
// observable side effects (spec §8 scenario 2's overflow case is exactly
// this: the add must still execute even though its result goes unused).
func (c *Compiler) lowerModuleFinalRoot(node ast.NodeID) error {
	if isDiscardShaped(c.mod.Node(node).Kind) {
		_, err := c.lower(node, ModeDiscard{})
		return err
	}

	v, err := c.lower(node, ModeValue{})
	if err != nil {
		return err
	}
	if _, empty := v.(Empty); empty || IsConstant(v) {
		c.emitNullary(ir.OpRetNull)
		return nil
	}
	ref := c.materialize(v)
	c.emitUnary(ir.OpRet, ref)
	return nil
}

// isDiscardShaped reports whether a root/body-final node's own grammar
// shape is "a block or any assignment" per §4.11 step 4 — i.e. whether it
// is a statement whose purpose is an effect, not a value.
func isDiscardShaped(k ast.Kind) bool {
	switch k {
	case ast.KBlock, ast.KDecl, ast.KAssign,
		ast.KAugAdd, ast.KAugSub, ast.KAugMul, ast.KAugDiv, ast.KAugFloorDiv,
		ast.KAugMod, ast.KAugPow, ast.KAugBitAnd, ast.KAugBitOr, ast.KAugBitXor,
		ast.KAugShl, ast.KAugShr,
		ast.KReturn, ast.KBreak, ast.KContinue, ast.KImport, ast.KWhile:
		return true
	default:
		return false
	}
}

// offset returns the source byte offset of a node's primary token, for
// stamping diagnostics, and records it as the current token for any
// unresolved-global entry resolve() might enqueue while lowering it.
func (c *Compiler) offset(node ast.NodeID) int {
	n := c.mod.Node(node)
	if n.Token >= 0 {
		c.curToken = n.Token
	}
	return c.mod.TokenOffset(node)
}

// Diagnostics returns every diagnostic accumulated during Compile, whether
// or not it ultimately succeeded.
func (c *Compiler) Diagnostics() []Diagnostic { return c.diags.Items() }
