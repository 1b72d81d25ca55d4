package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/mcpserver"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipelinectl",
		Short: "Inspect pipeline graphs exported from the editor",
		Long: `pipelinectl reads pipeline files exported from the editor
({"name", "nodes", "edges"}) and checks them for cycles.

Use "-" as the file name to read from standard input.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(analyzeCmd())
	root.AddCommand(dotCmd())
	root.AddCommand(mcpCmd())
	return root
}

// ─── analyze ──────────────────────────────────────────────────────────────────

func analyzeCmd() *cobra.Command {
	var (
		scope  string
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <pipeline.json>",
		Short: "Print node and edge counts and report a cycle if there is one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := analyze(p, scope)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), res, pretty)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(pipeline.ScopeCycle), "cycle report scope: cycle or tangle")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

// ─── dot ──────────────────────────────────────────────────────────────────────

func dotCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "dot <pipeline.json>",
		Short: "Render a pipeline as Graphviz DOT with the cycle highlighted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := analyze(p, scope)
			if err != nil {
				return err
			}
			out, err := pipeline.RenderDOT(p, res)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(pipeline.ScopeCycle), "cycle highlight scope: cycle or tangle")
	return cmd
}

// ─── mcp ──────────────────────────────────────────────────────────────────────

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyze_pipeline tool over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mcpserver.Serve(cmd.Context(), version)
		},
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// loadPipeline reads an editor export file. Fields the editor adds on export
// (exportedAt, node positions) are ignored.
func loadPipeline(path string, stdin io.Reader) (*pipeline.Pipeline, error) {
	var (
		src []byte
		err error
	)
	if path == "-" {
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal(src, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &p, nil
}

func analyze(p *pipeline.Pipeline, scopeName string) (*pipeline.AnalysisResult, error) {
	scope, err := pipeline.ParseScope(scopeName)
	if err != nil {
		return nil, err
	}
	return pipeline.AnalyzeScope(p.Nodes, p.Edges, scope)
}

func writeResult(w io.Writer, res *pipeline.AnalysisResult, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
