package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/emberscript/emberc/pkg/emberlog"
	"github.com/emberscript/emberc/pkg/livereload"
	"github.com/emberscript/emberc/pkg/watch"
	"github.com/spf13/cobra"
)

// newWatchCmd builds "emberc watch <unit.json>": recompile a unit on every
// debounced save and broadcast the result over pkg/livereload's websocket
// hub, the way cmd/glyph/server.go's hotReloadManager drives its SSE
// stream off a debounced fsnotify watcher.
func newWatchCmd() *cobra.Command {
	var liveAddr string

	cmd := &cobra.Command{
		Use:   "watch <unit.json>",
		Short: "Recompile a unit on every change and stream diagnostics",
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

			hub := livereload.NewHub()
			if liveAddr == "" {
				liveAddr = ":8177"
			}
			go func() {
				mux := http.NewServeMux()
				mux.HandleFunc("/ws", hub.Handler)
				if err := http.ListenAndServe(liveAddr, mux); err != nil {
					printWarning("live reload server: " + err.Error())
				}
			}()
			printInfo("live diagnostics at ws://" + liveAddr + "/ws")

			if p.metrics != nil {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", p.metrics.Handler())
					if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
						printWarning("metrics server: " + err.Error())
					}
				}()
				printInfo("metrics at http://" + cfg.Metrics.Addr + "/metrics")
			}

			w := watch.New(unitPath, func(e watch.Event) { recompileUnit(p, hub, e.Path) }, watch.WithDebounce(cfg.Watch.Debounce),
				watch.WithOnError(func(err error) { printWarning(err.Error()) }))
			if err := w.Start(); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer w.Stop()

			printInfo("watching " + unitPath)
			recompileUnit(p, hub, unitPath)

			select {}
		},
	}

	cmd.Flags().StringVar(&liveAddr, "live-addr", "", "address for the live-diagnostics websocket server (default :8177)")
	return cmd
}

// recompileUnit reads, compiles, and writes one unit through p, broadcasting
// the result on hub. Pulled out of newWatchCmd's RunE so the recompile path
// itself can be exercised in tests without spinning up a real watcher.
func recompileUnit(p *pipeline, hub *livereload.Hub, path string) {
	raw, err := readUnitFile(path)
	if err != nil {
		printError(err)
		hub.Broadcast(livereload.Event{Unit: filepath.Base(path), Diagnostics: []string{err.Error()}, Success: false})
		return
	}

	result, err := p.compileUnit(filepath.Base(path), raw)
	if err != nil {
		printError(err)
		hub.Broadcast(livereload.Event{Unit: filepath.Base(path), Diagnostics: []string{err.Error()}, Success: false})
		return
	}

	outputPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".ebc.json"
	if err := os.WriteFile(outputPath, result.Bytecode, 0644); err != nil {
		printError(err)
		return
	}

	printSuccess("recompiled " + path)
	hub.Broadcast(livereload.Event{Unit: filepath.Base(path), BytecodeRef: outputPath, Success: true})
}
