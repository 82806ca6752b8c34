package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emberscript/emberc/pkg/ast"
	"github.com/emberscript/emberc/pkg/irfmt"
	"github.com/emberscript/emberc/pkg/unitfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeAddUnit writes a JSON AST document for the expression `1 + 2` to dir
// and returns its path.
func writeAddUnit(t *testing.T, dir string) string {
	t.Helper()

	b := ast.NewBuilder(nil)
	mod := b.Build()

	mkLit := func(kind ast.Kind, tokKind ast.TokenKind, text string) ast.NodeID {
		start := len(mod.Tokens.Source)
		mod.Tokens.Source = append(mod.Tokens.Source, text...)
		tok := b.Token(tokKind, start, start+len(text))
		return b.Node(kind, tok, ast.None{})
	}

	lhs := mkLit(ast.KInt, ast.TokInt, "1")
	rhs := mkLit(ast.KInt, ast.TokInt, "2")
	add := b.Node(ast.KAdd, -1, ast.Bin{L: lhs, R: rhs})
	b.Root(add)

	data, err := unitfmt.Encode(mod)
	require.NoError(t, err)

	path := filepath.Join(dir, "add.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestCompileCmdWritesBytecodeFile(t *testing.T) {
	dir := t.TempDir()
	unitPath := writeAddUnit(t, dir)
	outputPath := filepath.Join(dir, "add.ebc.json")

	configPath = ""
	cmd := newCompileCmd()
	cmd.SetArgs([]string{"--output", outputPath, unitPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	bc, err := irfmt.Decode(data)
	require.NoError(t, err)
	assert.NotEmpty(t, bc.Code)
}

func TestCompileCmdDefaultsOutputPathFromUnitName(t *testing.T) {
	dir := t.TempDir()
	unitPath := writeAddUnit(t, dir)

	configPath = ""
	cmd := newCompileCmd()
	cmd.SetArgs([]string{unitPath})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "add.ebc.json"))
	assert.NoError(t, err)
}

func TestCompileCmdCanRunTwiceAgainstTheSameUnit(t *testing.T) {
	dir := t.TempDir()
	unitPath := writeAddUnit(t, dir)

	configPath = ""
	for i := 0; i < 2; i++ {
		cmd := newCompileCmd()
		cmd.SetArgs([]string{unitPath})
		require.NoError(t, cmd.Execute())
	}
}

func TestCompileCmdFailsOnMissingUnitFile(t *testing.T) {
	configPath = ""
	cmd := newCompileCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, cmd.Execute())
}
