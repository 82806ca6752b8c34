// Command emberc is the CLI front end for the compiler core: a cobra
// command tree over pkg/compiler, wired to the ambient logging/config
// layer and the domain packages (cache, artifact store, watch mode, live
// reload, metrics, tracing) described in SPEC_FULL.md's [DOMAIN] sections.
//
// Grounded on cmd/glyph/main.go's rootCmd/subcommand shape and its
// printInfo/printSuccess/printWarning/printError color helpers.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "emberc",
		Short: "Ember bytecode compiler",
		Long: `emberc compiles Ember AST documents to bytecode.

The lexer and parser that would normally turn Ember source text into an
AST are out of scope for this tool; emberc's inputs are JSON-encoded AST
documents (see pkg/unitfmt) produced by a front end or hand-written as
test fixtures.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to emberc.yaml (defaults to built-in defaults)")

	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("emberc v%s\n", version)
		},
	}
}

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

func printInfo(msg string)    { infoColor.Printf("[INFO] %s\n", msg) }
func printSuccess(msg string) { successColor.Printf("[SUCCESS] %s\n", msg) }
func printWarning(msg string) { warningColor.Printf("[WARNING] %s\n", msg) }
func printError(err error)    { errorColor.Printf("[ERROR] %s\n", err.Error()) }
