// Package unitfmt is the JSON wire format for a compile unit: the
// serialized form of an ast.Module itself.
//
// The lexer and parser that would normally turn Ember source text into an
// ast.Module are out of scope for this repository (spec.md §1), so the CLI
// and the watch-mode daemon can't accept ".ember" source files directly.
// Instead they accept the AST's own serialized form — a front end (or a
// hand-written fixture, or a future parser living in a separate module)
// produces one of these documents, and everything downstream of the parser
// boundary works exactly as spec.md describes.
package unitfmt

import (
	"encoding/json"
	"fmt"

	"github.com/emberscript/emberc/pkg/ast"
)

// Document is the on-disk/over-the-wire shape of a compile unit.
type Document struct {
	Source string       `json:"source"`
	Tokens []tokenDoc   `json:"tokens"`
	Nodes  []nodeDoc    `json:"nodes"`
	Root   []ast.NodeID `json:"root"`
}

type tokenDoc struct {
	Kind  string `json:"kind"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type nodeDoc struct {
	Kind  string          `json:"kind"`
	Token int             `json:"token"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses a JSON compile-unit document into an ast.Module ready to
// hand to compiler.Compile.
func Decode(data []byte) (*ast.Module, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unitfmt: invalid document: %w", err)
	}
	return docToModule(&doc)
}

// Encode serializes an ast.Module back into its JSON compile-unit form.
// Used by tooling that builds a Module via ast.Builder (tests, fixtures)
// and wants to hand a .json unit to the CLI.
func Encode(mod *ast.Module) ([]byte, error) {
	doc, err := moduleToDoc(mod)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

func docToModule(doc *Document) (*ast.Module, error) {
	tokens := &ast.Tokens{
		Source: []byte(doc.Source),
		Kinds:  make([]ast.TokenKind, len(doc.Tokens)),
		Starts: make([]int, len(doc.Tokens)),
		Ends:   make([]int, len(doc.Tokens)),
	}
	for i, t := range doc.Tokens {
		kind, ok := tokenKindByName(t.Kind)
		if !ok {
			return nil, fmt.Errorf("unitfmt: token %d: unknown token kind %q", i, t.Kind)
		}
		tokens.Kinds[i] = kind
		tokens.Starts[i] = t.Start
		tokens.Ends[i] = t.End
	}

	nodes := make([]ast.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		kind, ok := kindByName(n.Kind)
		if !ok {
			return nil, fmt.Errorf("unitfmt: node %d: unknown node kind %q", i, n.Kind)
		}
		data, err := decodeData(kind, n.Data)
		if err != nil {
			return nil, fmt.Errorf("unitfmt: node %d (%s): %w", i, n.Kind, err)
		}
		nodes[i] = ast.Node{Kind: kind, Token: n.Token, Data: data}
	}

	return &ast.Module{Nodes: nodes, Tokens: tokens, Root: doc.Root}, nil
}

func moduleToDoc(mod *ast.Module) (*Document, error) {
	doc := &Document{
		Source: string(mod.Tokens.Source),
		Root:   mod.Root,
	}

	doc.Tokens = make([]tokenDoc, len(mod.Tokens.Starts))
	for i := range mod.Tokens.Starts {
		doc.Tokens[i] = tokenDoc{
			Kind:  tokenKindName(mod.Tokens.Kinds[i]),
			Start: mod.Tokens.Starts[i],
			End:   mod.Tokens.Ends[i],
		}
	}

	doc.Nodes = make([]nodeDoc, len(mod.Nodes))
	for i, n := range mod.Nodes {
		raw, err := encodeData(n.Data)
		if err != nil {
			return nil, fmt.Errorf("unitfmt: node %d: %w", i, err)
		}
		doc.Nodes[i] = nodeDoc{Kind: kindName(n.Kind), Token: n.Token, Data: raw}
	}

	return doc, nil
}

// --- Data variant encode/decode ---
//
// A node's Data shape is fully determined by its Kind (see pkg/ast's
// grouping comments and the lowering switches in pkg/compiler): literal and
// identifier-shaped kinds carry no data, the single-operand family carries
// Un, the binary/assignment/array-access/decl/map-item family carries Bin,
// and so on. Decoding dispatches on Kind rather than on an extra
// discriminator field, so the JSON stays as flat as the node itself.

type unData struct {
	X ast.NodeID `json:"x"`
}

type binData struct {
	L ast.NodeID `json:"l"`
	R ast.NodeID `json:"r"`
}

type tyBinData struct {
	X       ast.NodeID `json:"x"`
	TypeTok int        `json:"type_tok"`
}

type listData struct {
	Items []ast.NodeID `json:"items"`
}

type fnData struct {
	Params []ast.NodeID `json:"params"`
	Body   ast.NodeID   `json:"body"`
}

type ifData struct {
	Cond ast.NodeID `json:"cond"`
	Then ast.NodeID `json:"then"`
	Else ast.NodeID `json:"else"`
}

type forData struct {
	Pattern  ast.NodeID `json:"pattern"`
	Iterable ast.NodeID `json:"iterable"`
	Body     ast.NodeID `json:"body"`
}

type whileData struct {
	Pattern ast.NodeID `json:"pattern"`
	Cond    ast.NodeID `json:"cond"`
	Body    ast.NodeID `json:"body"`
}

type matchData struct {
	Subject ast.NodeID   `json:"subject"`
	Arms    []ast.NodeID `json:"arms"`
}

type matchArmData struct {
	LetPattern ast.NodeID   `json:"let_pattern"`
	Candidates []ast.NodeID `json:"candidates"`
	Guard      ast.NodeID   `json:"guard"`
	Body       ast.NodeID   `json:"body"`
}

func decodeData(kind ast.Kind, raw json.RawMessage) (ast.Data, error) {
	unmarshalInto := func(v any) error {
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, v)
	}

	switch kind {
	case ast.KInt, ast.KNum, ast.KStr, ast.KTrue, ast.KFalse, ast.KNull,
		ast.KIdent, ast.KMutIdent, ast.KDiscard:
		return ast.None{}, nil

	case ast.KBoolNot, ast.KBitNot, ast.KNegate, ast.KReturn, ast.KBreak,
		ast.KContinue, ast.KErrorPattern, ast.KImport, ast.KThrow, ast.KParen,
		ast.KMemberAccess:
		var d unData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.Un{X: d.X}, nil

	case ast.KAdd, ast.KSub, ast.KMul, ast.KDiv, ast.KFloorDiv, ast.KMod,
		ast.KPow, ast.KEq, ast.KNe, ast.KLt, ast.KLe, ast.KGt, ast.KGe,
		ast.KBitAnd, ast.KBitOr, ast.KBitXor, ast.KShl, ast.KShr,
		ast.KAssign, ast.KAugAdd, ast.KAugSub, ast.KAugMul, ast.KAugDiv,
		ast.KAugFloorDiv, ast.KAugMod, ast.KAugPow, ast.KAugBitAnd,
		ast.KAugBitOr, ast.KAugBitXor, ast.KAugShl, ast.KAugShr,
		ast.KArrayAccess, ast.KDecl, ast.KMapItem:
		var d binData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.Bin{L: d.L, R: d.R}, nil

	case ast.KAs, ast.KIs:
		var d tyBinData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.TyBin{X: d.X, TypeTok: d.TypeTok}, nil

	case ast.KBlock, ast.KTuple, ast.KList, ast.KMap, ast.KCall:
		var d listData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.List{Items: d.Items}, nil

	case ast.KFn:
		var d fnData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.Fn{Params: d.Params, Body: d.Body}, nil

	case ast.KIf:
		var d ifData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.If{Cond: d.Cond, Then: d.Then, Else: d.Else}, nil

	case ast.KFor:
		var d forData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.For{Pattern: d.Pattern, Iterable: d.Iterable, Body: d.Body}, nil

	case ast.KWhile:
		var d whileData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.While{Pattern: d.Pattern, Cond: d.Cond, Body: d.Body}, nil

	case ast.KMatch:
		var d matchData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.Match{Subject: d.Subject, Arms: d.Arms}, nil

	case ast.KMatchArm:
		var d matchArmData
		if err := unmarshalInto(&d); err != nil {
			return nil, err
		}
		return ast.MatchArm{
			LetPattern: d.LetPattern,
			Candidates: d.Candidates,
			Guard:      d.Guard,
			Body:       d.Body,
		}, nil

	default:
		return nil, fmt.Errorf("no known data shape for kind %v", kind)
	}
}

func encodeData(data ast.Data) (json.RawMessage, error) {
	var v any
	switch d := data.(type) {
	case ast.None:
		return nil, nil
	case ast.Un:
		v = unData{X: d.X}
	case ast.Bin:
		v = binData{L: d.L, R: d.R}
	case ast.TyBin:
		v = tyBinData{X: d.X, TypeTok: d.TypeTok}
	case ast.List:
		v = listData{Items: d.Items}
	case ast.Fn:
		v = fnData{Params: d.Params, Body: d.Body}
	case ast.If:
		v = ifData{Cond: d.Cond, Then: d.Then, Else: d.Else}
	case ast.For:
		v = forData{Pattern: d.Pattern, Iterable: d.Iterable, Body: d.Body}
	case ast.While:
		v = whileData{Pattern: d.Pattern, Cond: d.Cond, Body: d.Body}
	case ast.Match:
		v = matchData{Subject: d.Subject, Arms: d.Arms}
	case ast.MatchArm:
		v = matchArmData{
			LetPattern: d.LetPattern,
			Candidates: d.Candidates,
			Guard:      d.Guard,
			Body:       d.Body,
		}
	default:
		return nil, fmt.Errorf("unsupported data variant %T", data)
	}
	return json.Marshal(v)
}

var kindNames = [...]string{
	ast.KInt: "int", ast.KNum: "num", ast.KStr: "str", ast.KTrue: "true",
	ast.KFalse: "false", ast.KNull: "null", ast.KIdent: "ident",
	ast.KMutIdent: "mut_ident", ast.KDiscard: "discard",

	ast.KBoolNot: "bool_not", ast.KBitNot: "bit_not", ast.KNegate: "negate",
	ast.KReturn: "return", ast.KBreak: "break", ast.KContinue: "continue",
	ast.KErrorPattern: "error_pattern", ast.KImport: "import",
	ast.KThrow: "throw", ast.KParen: "paren", ast.KMemberAccess: "member_access",

	ast.KAdd: "add", ast.KSub: "sub", ast.KMul: "mul", ast.KDiv: "div",
	ast.KFloorDiv: "floor_div", ast.KMod: "mod", ast.KPow: "pow",
	ast.KEq: "eq", ast.KNe: "ne", ast.KLt: "lt", ast.KLe: "le",
	ast.KGt: "gt", ast.KGe: "ge", ast.KBitAnd: "bit_and", ast.KBitOr: "bit_or",
	ast.KBitXor: "bit_xor", ast.KShl: "shl", ast.KShr: "shr",

	ast.KAssign: "assign", ast.KAugAdd: "aug_add", ast.KAugSub: "aug_sub",
	ast.KAugMul: "aug_mul", ast.KAugDiv: "aug_div",
	ast.KAugFloorDiv: "aug_floor_div", ast.KAugMod: "aug_mod",
	ast.KAugPow: "aug_pow", ast.KAugBitAnd: "aug_bit_and",
	ast.KAugBitOr: "aug_bit_or", ast.KAugBitXor: "aug_bit_xor",
	ast.KAugShl: "aug_shl", ast.KAugShr: "aug_shr",

	ast.KArrayAccess: "array_access", ast.KDecl: "decl", ast.KMapItem: "map_item",

	ast.KAs: "as", ast.KIs: "is",

	ast.KBlock: "block", ast.KTuple: "tuple", ast.KList: "list",
	ast.KMap: "map", ast.KCall: "call", ast.KFn: "fn", ast.KFor: "for",
	ast.KWhile: "while", ast.KIf: "if", ast.KMatch: "match",
	ast.KMatchArm: "match_arm",
}

var tokenKindNames = [...]string{
	ast.TokIdent: "ident", ast.TokInt: "int", ast.TokNum: "num",
	ast.TokString: "string", ast.TokTypeName: "type_name", ast.TokOther: "other",
}

func kindName(k ast.Kind) string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

func kindByName(name string) (ast.Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return ast.Kind(i), true
		}
	}
	return 0, false
}

func tokenKindName(k ast.TokenKind) string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return ""
}

func tokenKindByName(name string) (ast.TokenKind, bool) {
	for i, n := range tokenKindNames {
		if n == name {
			return ast.TokenKind(i), true
		}
	}
	return 0, false
}
