package ast

// Builder assembles a Module one node at a time. It exists for tests (and
// any other caller that wants to hand the compiler core an ast.Module
// without writing a full lexer/parser, which is explicitly out of scope per
// spec.md §1) — production front ends populate a Module directly from their
// own parse tree instead of going through this slow, allocation-heavy path.
type Builder struct {
	mod    Module
	tokens Tokens
}

// NewBuilder starts a fresh Module backed by src as the token source bytes.
func NewBuilder(src []byte) *Builder {
	b := &Builder{}
	b.tokens.Source = src
	b.mod.Tokens = &b.tokens
	return b
}

// Token registers a new token spanning [start,end) of the builder's source
// and returns its index.
func (b *Builder) Token(kind TokenKind, start, end int) int {
	b.tokens.Kinds = append(b.tokens.Kinds, kind)
	b.tokens.Starts = append(b.tokens.Starts, start)
	b.tokens.Ends = append(b.tokens.Ends, end)
	return len(b.tokens.Starts) - 1
}

// Node appends a node to the table and returns its id.
func (b *Builder) Node(kind Kind, token int, data Data) NodeID {
	if data == nil {
		data = None{}
	}
	b.mod.Nodes = append(b.mod.Nodes, Node{Kind: kind, Token: token, Data: data})
	return NodeID(len(b.mod.Nodes) - 1)
}

// Ident appends an identifier-shaped literal node (KIdent, KMutIdent, or
// KDiscard) whose primary token spans the given name text, registering the
// token itself as a convenience.
func (b *Builder) Ident(kind Kind, start, end int) NodeID {
	tok := b.Token(TokIdent, start, end)
	return b.Node(kind, tok, None{})
}

// Root sets the module's top-level statement list in evaluation order.
func (b *Builder) Root(roots ...NodeID) { b.mod.Root = roots }

// Build returns the assembled Module.
func (b *Builder) Build() *Module { return &b.mod }
