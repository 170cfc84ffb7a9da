/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package compile provides the compile command: a single-shot or
// --watch-driven run of the module graph over a directory of source
// files, grounded on cmd/trace's glob-then-process shape.
package compile

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"sandgraph.dev/bundle/diagnostics"
	"sandgraph.dev/bundle/fs"
	"sandgraph.dev/bundle/graph"
	"sandgraph.dev/bundle/hostchannel"
	"sandgraph.dev/bundle/importmap"
	"sandgraph.dev/bundle/internal/output"
	"sandgraph.dev/bundle/manifest"
	"sandgraph.dev/bundle/preset"
	"sandgraph.dev/bundle/requestqueue"
	"sandgraph.dev/bundle/resolver"
	"sandgraph.dev/bundle/sandbox"
)

// Cmd is the compile cobra command.
var Cmd = &cobra.Command{
	Use:   "compile <entry>",
	Short: "Compile a module graph rooted at entry",
	Long: `Compile reads every source file under --root, builds the module graph
starting from entry, transpiles and evaluates it, and prints the
resulting exports as JSON.

With --watch, a file change under --root re-submits the compile request
through a one-slot coalescing queue instead of exiting after one run.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("root", ".", "Directory containing source modules")
	Cmd.Flags().String("glob", "**/*.{js,jsx,ts,tsx,json}", "Glob pattern (relative to root) selecting source files")
	Cmd.Flags().Bool("watch", false, "Re-compile on file changes under root")
	Cmd.Flags().Bool("websocket", false, "Serve compile events over a websocket at :8090")
	Cmd.Flags().String("importmap", "", "Path to a host import map; its entries become preset aliases, and bare-specifier targets become externals")
	Cmd.Flags().Bool("print-importmap", false, "After compiling, print the resolved alias/external table back out as an import map")
}

func run(cmd *cobra.Command, args []string) error {
	entry := args[0]
	root, _ := cmd.Flags().GetString("root")
	pattern, _ := cmd.Flags().GetString("glob")
	watch, _ := cmd.Flags().GetBool("watch")
	useWS, _ := cmd.Flags().GetBool("websocket")
	importmapPath, _ := cmd.Flags().GetString("importmap")
	printIM, _ := cmd.Flags().GetBool("print-importmap")

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("compile: invalid root: %w", err)
	}

	sink := &diagnostics.CollectingSink{}
	var channel hostchannel.Channel = hostchannel.NullChannel{}
	if useWS {
		ws := hostchannel.NewWSChannel()
		go serveWebSocket(ws, ":8090")
		channel = ws
	}

	osfs := fs.NewOSFileSystem()
	hostMap, err := loadImportMap(osfs, importmapPath)
	if err != nil {
		return err
	}

	p := preset.NewVanillaPreset()
	externals := make(map[string]graph.External)
	if hostMap != nil {
		for specifier, target := range manifest.AliasesFromImportMap(hostMap) {
			p = p.WithAlias(specifier, target)
		}
		for _, specifier := range manifest.ExternalsFromImportMap(hostMap, resolver.IsBareSpecifier) {
			externals[specifier] = graph.External{Exports: map[string]any{}}
		}
	}

	box := sandbox.New("cli", sandbox.Config{
		Sink:      sink,
		Channel:   channel,
		Preset:    p,
		Externals: externals,
	})

	req, err := buildRequest(root, pattern, entry)
	if err != nil {
		return err
	}

	exports, err := box.Compile(req)
	if err != nil {
		return reportFailure(err, sink)
	}
	if err := printExports(exports); err != nil {
		return err
	}
	printDiagnostics(sink)

	if printIM {
		if err := output.ImportMap(osfs, resolvedImportMap(externals, hostMap), "json"); err != nil {
			return fmt.Errorf("compile: print import map: %w", err)
		}
	}

	if !watch {
		return nil
	}

	return watchLoop(root, pattern, entry, box)
}

func buildRequest(root, pattern, entry string) (sandbox.CompileRequest, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return sandbox.CompileRequest{}, fmt.Errorf("compile: glob: %w", err)
	}

	modules := make([]sandbox.ModuleInput, 0, len(matches))
	for _, rel := range matches {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return sandbox.CompileRequest{}, fmt.Errorf("compile: read %s: %w", rel, err)
		}
		modules = append(modules, sandbox.ModuleInput{
			Path: "/" + strings.TrimPrefix(rel, "/"),
			Code: string(data),
		})
	}

	return sandbox.CompileRequest{
		SandboxID: "cli",
		Modules:   modules,
		Entry:     "/" + strings.TrimPrefix(entry, "/"),
	}, nil
}

func printExports(exports map[string]any) error {
	out, err := json.MarshalIndent(exports, "", "  ")
	if err != nil {
		return fmt.Errorf("compile: marshal exports: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func printDiagnostics(sink *diagnostics.CollectingSink) {
	warnings, errs := sink.Drain()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Message)
	}
}

func reportFailure(err error, sink *diagnostics.CollectingSink) error {
	printDiagnostics(sink)
	return fmt.Errorf("compile: %w", err)
}

func watchLoop(root, pattern, entry string, box *sandbox.Sandbox) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("compile: watcher: %w", err)
	}
	defer watcher.Close()
	if err := addDirsRecursively(watcher, root); err != nil {
		return err
	}

	queue := requestqueue.New(box)
	defer queue.Stop()

	go func() {
		for result := range queue.Results() {
			if result.Err != nil {
				fmt.Fprintf(os.Stderr, "recompile failed: %v\n", result.Err)
				continue
			}
			_ = printExports(result.Exports)
		}
	}()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			req, err := buildRequest(root, pattern, entry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "recompile: %v\n", err)
				continue
			}
			queue.Submit(req)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

func serveWebSocket(ws *hostchannel.WSChannel, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", ws.HandleConnection)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "websocket server: %v\n", err)
	}
}

// loadImportMap reads and parses the host import map named by --importmap,
// returning nil when the flag was not given.
func loadImportMap(osfs fs.FileSystem, path string) (*importmap.ImportMap, error) {
	if path == "" {
		return nil, nil
	}
	data, err := osfs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compile: read import map: %w", err)
	}
	im, err := importmap.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("compile: parse import map: %w", err)
	}
	return im, nil
}

// resolvedImportMap echoes back what the graph actually resolved aliases
// and externals to, for --print-importmap: the externals table names
// every specifier the host must still supply at runtime.
func resolvedImportMap(externals map[string]graph.External, hostMap *importmap.ImportMap) *importmap.ImportMap {
	imports := make(map[string]string, len(externals))
	for specifier := range externals {
		target := specifier
		if hostMap != nil {
			if t, ok := hostMap.Imports[specifier]; ok {
				target = t
			}
		}
		imports[specifier] = target
	}
	return &importmap.ImportMap{Imports: imports}
}

func addDirsRecursively(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
