package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emberscript/emberc/pkg/emberlog"
	"github.com/spf13/cobra"
)

// newCompileCmd builds "emberc compile <unit.json>": decode a pkg/unitfmt
// AST document, lower it through pkg/compiler, and write the resulting
// bytecode back out as a pkg/irfmt document. Grounded on cmd/glyph/main.go's
// single-shot compile subcommand, generalized from source text to the
// JSON AST-document input this tool actually accepts.
func newCompileCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "compile <unit.json>",
		Short: "Compile a JSON AST document to bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitPath := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log, err := emberlog.New(emberlog.Config{
				MinLevel: emberlog.LevelFromString(cfg.Log.Level),
				Format:   emberlog.FormatFromString(cfg.Log.Format),
				FilePath: cfg.Log.FilePath,
			})
			if err != nil {
				return fmt.Errorf("start logger: %w", err)
			}
			defer log.Close()

			p, err := newPipeline(cfg, log)
			if err != nil {
				return err
			}
			defer p.Close()

			raw, err := readUnitFile(unitPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", unitPath, err)
			}

			result, err := p.compileUnit(filepath.Base(unitPath), raw)
			if err != nil {
				return err
			}

			if outputPath == "" {
				outputPath = strings.TrimSuffix(unitPath, filepath.Ext(unitPath)) + ".ebc.json"
			}
			if err := os.WriteFile(outputPath, result.Bytecode, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}

			if result.FromHit {
				printInfo("served from cache: " + result.Key)
			}
			printSuccess(fmt.Sprintf("compiled %s -> %s", unitPath, outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output bytecode path (default: <unit>.ebc.json)")
	return cmd
}
