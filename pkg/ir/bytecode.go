package ir

// UnresolvedGlobal is one entry of the side-channel reported alongside a
// Bytecode for globals the compiler could not bind itself (spec §4.4, §6.2):
// the host environment resolves Token against its module binding table and
// patches the OpLoadGlobal instruction at Placeholder.
type UnresolvedGlobal struct {
	Token       int
	Placeholder Ref
}

// DebugInfo is reserved (spec §6.2 "debug_info: reserved"). It carries
// nothing today; it exists so Bytecode's shape does not change when line
// tables or source maps are added later.
type DebugInfo struct{}

// Bytecode is the compiler core's sole output (spec §6.2): the full
// instruction buffer, the extra-operand side table, the interned string
// pool, the top-level code stream, and the unresolved-global side-channel.
type Bytecode struct {
	Code    []Instruction
	Extra   []Ref
	Strings []byte
	Main    []Ref

	DebugInfo DebugInfo

	UnresolvedGlobals []UnresolvedGlobal
}

// InstructionCount reports the size of the instruction buffer, i.e. one
// past the highest valid Ref.
func (b *Bytecode) InstructionCount() int { return len(b.Code) }

// Instr returns the instruction a Ref names.
func (b *Bytecode) Instr(r Ref) Instruction { return b.Code[r] }

// ExtraSlice returns the Refs an Extra operand points at.
func (b *Bytecode) ExtraSlice(e Extra) []Ref {
	return b.Extra[e.Start : e.Start+e.Len]
}

// StringAt returns the interned bytes a Str operand points at.
func (b *Bytecode) StringAt(s Str) []byte {
	return b.Strings[s.Offset : s.Offset+s.Len]
}
