package compiler

import "github.com/emberscript/emberc/pkg/ast"

// astBuilder wraps ast.Builder with small helpers so each test can express
// its tree close to the surface syntax it represents, rather than poking
// NodeIDs by hand. It mirrors the density of the teacher's own
// table-driven compiler tests (pkg/compiler/compiler_test.go), just built
// against an AST contract instead of a parsed-from-source expr tree.
type astBuilder struct{ b *ast.Builder }

func newAST() *astBuilder {
	return &astBuilder{b: ast.NewBuilder(nil)}
}

// lit appends a token carrying the given text (recorded via a growing
// shared source buffer) and a literal node of the given kind over it.
func (a *astBuilder) lit(kind ast.Kind, tokKind ast.TokenKind, text string) ast.NodeID {
	mod := a.b.Build()
	start := len(mod.Tokens.Source)
	mod.Tokens.Source = append(mod.Tokens.Source, text...)
	tok := a.b.Token(tokKind, start, start+len(text))
	return a.b.Node(kind, tok, ast.None{})
}

func (a *astBuilder) Int(v string) ast.NodeID    { return a.lit(ast.KInt, ast.TokInt, v) }
func (a *astBuilder) Num(v string) ast.NodeID    { return a.lit(ast.KNum, ast.TokNum, v) }
func (a *astBuilder) Str(raw string) ast.NodeID  { return a.lit(ast.KStr, ast.TokString, raw) }
func (a *astBuilder) Ident(name string) ast.NodeID {
	return a.lit(ast.KIdent, ast.TokIdent, name)
}
func (a *astBuilder) MutIdent(name string) ast.NodeID {
	return a.lit(ast.KMutIdent, ast.TokIdent, name)
}
func (a *astBuilder) Discard() ast.NodeID {
	return a.b.Node(ast.KDiscard, -1, ast.None{})
}
func (a *astBuilder) True() ast.NodeID  { return a.b.Node(ast.KTrue, -1, ast.None{}) }
func (a *astBuilder) False() ast.NodeID { return a.b.Node(ast.KFalse, -1, ast.None{}) }
func (a *astBuilder) Null() ast.NodeID  { return a.b.Node(ast.KNull, -1, ast.None{}) }

func (a *astBuilder) Bin(kind ast.Kind, l, r ast.NodeID) ast.NodeID {
	return a.b.Node(kind, -1, ast.Bin{L: l, R: r})
}

func (a *astBuilder) Un(kind ast.Kind, x ast.NodeID) ast.NodeID {
	return a.b.Node(kind, -1, ast.Un{X: x})
}

func (a *astBuilder) Decl(pattern, value ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KDecl, -1, ast.Bin{L: pattern, R: value})
}

func (a *astBuilder) Assign(pattern, value ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KAssign, -1, ast.Bin{L: pattern, R: value})
}

func (a *astBuilder) AugAssign(kind ast.Kind, pattern, value ast.NodeID) ast.NodeID {
	return a.b.Node(kind, -1, ast.Bin{L: pattern, R: value})
}

func (a *astBuilder) Block(items ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KBlock, -1, ast.List{Items: items})
}

func (a *astBuilder) Call(callee ast.NodeID, args ...ast.NodeID) ast.NodeID {
	items := append([]ast.NodeID{callee}, args...)
	return a.b.Node(ast.KCall, -1, ast.List{Items: items})
}

func (a *astBuilder) Fn(body ast.NodeID, params ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KFn, -1, ast.Fn{Params: params, Body: body})
}

func (a *astBuilder) Return(x ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KReturn, -1, ast.Un{X: x})
}

func (a *astBuilder) If(cond, then, els ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KIf, -1, ast.If{Cond: cond, Then: then, Else: els})
}

func (a *astBuilder) While(pattern, cond, body ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KWhile, -1, ast.While{Pattern: pattern, Cond: cond, Body: body})
}

func (a *astBuilder) For(pattern, iterable, body ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KFor, -1, ast.For{Pattern: pattern, Iterable: iterable, Body: body})
}

func (a *astBuilder) Match(subject ast.NodeID, arms ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KMatch, -1, ast.Match{Subject: subject, Arms: arms})
}

func (a *astBuilder) LetArm(pattern, guard, body ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KMatchArm, -1, ast.MatchArm{LetPattern: pattern, Guard: guard, Body: body})
}

func (a *astBuilder) ValueArm(body ast.NodeID, candidates ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KMatchArm, -1, ast.MatchArm{Candidates: candidates, Guard: ast.NoNode, Body: body})
}

func (a *astBuilder) Tuple(items ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KTuple, -1, ast.List{Items: items})
}

func (a *astBuilder) List(items ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KList, -1, ast.List{Items: items})
}

func (a *astBuilder) MapItem(key, value ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KMapItem, -1, ast.Bin{L: key, R: value})
}

func (a *astBuilder) Map(items ...ast.NodeID) ast.NodeID {
	return a.b.Node(ast.KMap, -1, ast.List{Items: items})
}

func (a *astBuilder) Module(roots ...ast.NodeID) *ast.Module {
	a.b.Root(roots...)
	return a.b.Build()
}
