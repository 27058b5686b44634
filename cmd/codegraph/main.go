package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.rootCmd().Execute(); err != nil {
		if !a.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// app holds flag values and output streams for one CLI invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath    string
	logLevel      string
	summaryScript string
	exclude       []string
	languages     []string
	noGit         bool

	queryFormat string
	depth       int
	kind        string
	file        string
	debounce    time.Duration

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codegraph <root_path> [output_path] [thread_count] [format]",
		Short: "Build a graph of code entities and their relationships",
		Long: "codegraph indexes a source tree with tree-sitter and writes a graph of functions,\n" +
			"methods, classes, interfaces, modules and type definitions with the calls,\n" +
			"imports and containment between them.\n\n" +
			"output_path defaults to code_graph.json, thread_count to the number of CPUs\n" +
			"and format to json (json|sqlite).",
		Version:       version,
		Args:          cobra.MaximumNArgs(4),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.runIndex,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: <root_path>/.codegraph.yaml when present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringArrayVar(&a.exclude, "exclude", nil, "glob of files to skip (repeatable)")
	pf.StringSliceVar(&a.languages, "languages", nil, "comma-separated language filter (e.g. go,python)")
	pf.StringVar(&a.summaryScript, "summary-script", "", "Risor script that produces node summaries")
	pf.BoolVar(&a.noGit, "no-git", false, "walk the filesystem even inside a git work tree")

	root.AddCommand(a.queryCmd())
	root.AddCommand(a.watchCmd())
	return root
}
