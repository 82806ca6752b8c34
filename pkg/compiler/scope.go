package compiler

import "github.com/emberscript/emberc/pkg/ir"

// Symbol is a binding pushed onto the Scope Stack on declaration and popped
// on leaving its scope (spec §3 "Symbol"). ConstantValue is non-nil when the
// binding's initializer folded to a compile-time constant, letting later
// uses of the name fold further (`let x = 5; x + 1` still folds to 6).
type Symbol struct {
	Name          string
	Ref           ir.Ref
	Mut           bool
	ConstantValue Value
}

// Capture lifts an outer symbol into a function's local environment (spec
// §3 "Capture", GLOSSARY). ParentRef names the instruction in the enclosing
// scope chain that produces the captured value; LocalRef is this function's
// own `load_capture` instruction, whose operand is this capture's ordinal
// position.
type Capture struct {
	Name      string
	ParentRef ir.Ref
	LocalRef  ir.Ref
	Mut       bool
}

// FunctionFrame is pushed onto the Scope Stack when entering a function
// body and popped on exit (spec §3). It owns the code stream for that
// function body — distinct from the shared instruction/extra buffers — so
// that capture resolution can append a `load_capture` to the correct
// function's stream even while a deeper nested function is actively being
// lowered (spec §9 "Backpatching & code streams").
type FunctionFrame struct {
	Stream   []ir.Ref
	Captures []Capture
}

// scopeEntry is either a *Symbol binding or a *FunctionFrame marker, mixed
// in a single stack exactly as spec §3/§4.4 describes, so that resolve can
// walk it uniformly and redeclaration checks can stop at function
// boundaries without a second data structure.
type scopeEntry interface{ isScopeEntry() }

func (*Symbol) isScopeEntry()        {}
func (*FunctionFrame) isScopeEntry() {}

// scopeStack is the Scope Stack of spec §3/§4.4.
type scopeStack struct {
	entries []scopeEntry
	// curFrame caches the topmost FunctionFrame so emission doesn't have to
	// scan the stack on every instruction; kept in sync by pushFrame/popFrame.
	curFrame *FunctionFrame
}

func (s *scopeStack) depth() int { return len(s.entries) }

func (s *scopeStack) pushSymbol(sym *Symbol) {
	s.entries = append(s.entries, sym)
}

// pushFrame enters a new function body: a fresh FunctionFrame marker (with
// its own empty Stream) is pushed and becomes the active emission target.
func (s *scopeStack) pushFrame() *FunctionFrame {
	f := &FunctionFrame{}
	s.entries = append(s.entries, f)
	s.curFrame = f
	return f
}

// popFrame leaves the current function body, restoring the nearest
// enclosing frame (or nil at the top level) as the active emission target.
// It truncates every entry pushed since the matching pushFrame, including
// the frame marker itself and any symbols (parameters, locals) declared
// inside it.
func (s *scopeStack) popFrame(markDepth int) *FunctionFrame {
	f := s.entries[markDepth].(*FunctionFrame)
	s.entries = s.entries[:markDepth]
	s.curFrame = nil
	for i := len(s.entries) - 1; i >= 0; i-- {
		if outer, ok := s.entries[i].(*FunctionFrame); ok {
			s.curFrame = outer
			break
		}
	}
	return f
}

// popTo truncates the stack back to depth, popping ordinary block-scoped
// symbols (used on leaving an `if`/loop/match body's lexical scope).
func (s *scopeStack) popTo(depth int) {
	s.entries = s.entries[:depth]
}

// resolveResult is what resolve() returns: the Ref to use at the use site,
// whether it names a mutable slot, and whether it was a deferred global.
type resolveResult struct {
	Ref    ir.Ref
	Mut    bool
	Global bool
	// Const is non-nil only when name resolved directly to a Symbol in the
	// current function's own scope segment (no frame crossing) whose
	// initializer was itself a compile-time constant, enabling further
	// folding at the use site.
	Const Value
}

// resolve walks the scope stack from fromDepth-1 down to 0 (spec §4.4). It
// lifts captures through every intervening FunctionFrame it crosses,
// mutating each frame's capture list as it goes — the "stateful recursion"
// spec §9 calls out explicitly.
func (c *Compiler) resolve(name string, fromDepth int) (resolveResult, error) {
	for i := fromDepth - 1; i >= 0; i-- {
		switch e := c.scope.entries[i].(type) {
		case *Symbol:
			if e.Name == name {
				return resolveResult{Ref: e.Ref, Mut: e.Mut, Const: e.ConstantValue}, nil
			}
		case *FunctionFrame:
			for _, cap := range e.Captures {
				if cap.Name == name {
					return resolveResult{Ref: cap.LocalRef, Mut: cap.Mut}, nil
				}
			}
			outer, err := c.resolve(name, i)
			if err != nil {
				return resolveResult{}, err
			}
			if outer.Global {
				// Globals are visible everywhere without lexical capture.
				return outer, nil
			}
			if outer.Const != nil && outer.Ref == ir.NoRef {
				// A constant-folded binding has emitted nothing yet: give it an
				// instruction in its own frame's stream so the capture has a
				// parent Ref to name.
				saved := c.scope.curFrame
				for j := i - 1; j >= 0; j-- {
					if f, ok := c.scope.entries[j].(*FunctionFrame); ok {
						c.scope.curFrame = f
						break
					}
				}
				outer.Ref = c.materialize(outer.Const)
				c.scope.curFrame = saved
			}
			k := len(e.Captures)
			var localRef ir.Ref
			if e == c.scope.curFrame {
				localRef = c.appendInstr(ir.OpLoadCapture, ir.Int{V: int64(k)})
			} else {
				localRef = ir.Ref(len(c.code))
				c.code = append(c.code, ir.Instruction{Op: ir.OpLoadCapture, Data: ir.Int{V: int64(k)}})
				e.Stream = append(e.Stream, localRef)
			}
			e.Captures = append(e.Captures, Capture{
				Name:      name,
				ParentRef: outer.Ref,
				LocalRef:  localRef,
				Mut:       outer.Mut,
			})
			return resolveResult{Ref: localRef, Mut: outer.Mut}, nil
		}
	}

	// Stack exhausted: defer to the host environment (spec §4.4, §6.2).
	placeholder := c.appendInstr(ir.OpLoadGlobal, ir.None{})
	c.unresolvedGlobals = append(c.unresolvedGlobals, ir.UnresolvedGlobal{Token: c.curToken, Placeholder: placeholder})
	return resolveResult{Ref: placeholder, Global: true}, nil
}

// checkRedeclaration walks the current flat scope segment — down to, but
// not across, the nearest enclosing FunctionFrame — and errors if name is
// already bound there. The check is lexical rather than block-scoped: a
// nested if/while/match body does not start a fresh segment, so declaring
// the same name twice within one function is an error even across nested
// blocks (spec §4.4 "Redeclaration check").
func (c *Compiler) checkRedeclaration(name string, offset int) error {
	for i := c.scope.depth() - 1; i >= 0; i-- {
		switch e := c.scope.entries[i].(type) {
		case *Symbol:
			if e.Name == name {
				return c.fail(offset, "redeclaration of %q in the same scope", name)
			}
		case *FunctionFrame:
			return nil
		}
	}
	return nil
}

// loopScope is the "current loop" marker of spec §3: start_offset plus the
// list of break jumps to backpatch once the loop's exit point is known.
type loopScope struct {
	startOffset int
	breakJumps  []ir.Ref
}

// tryScope is the "current try" marker of spec §3: the error-slot Ref plus
// the list of error jumps (fallible-instruction hook, §4.3) to backpatch
// once the handler's location is known.
type tryScope struct {
	errSlot       ir.Ref
	errorJumpList []ir.Ref
}

func (c *Compiler) pushLoop(l *loopScope) { c.loopStack = append(c.loopStack, l) }
func (c *Compiler) popLoop()              { c.loopStack = c.loopStack[:len(c.loopStack)-1] }
func (c *Compiler) currentLoop() *loopScope {
	if len(c.loopStack) == 0 {
		return nil
	}
	return c.loopStack[len(c.loopStack)-1]
}

func (c *Compiler) pushTry(t *tryScope) { c.tryStack = append(c.tryStack, t) }
func (c *Compiler) popTry()             { c.tryStack = c.tryStack[:len(c.tryStack)-1] }
func (c *Compiler) currentTry() *tryScope {
	if len(c.tryStack) == 0 {
		return nil
	}
	return c.tryStack[len(c.tryStack)-1]
}
