package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/internal/presentation/tui"
	"github.com/aretw0/canopy/pkg/adapters/file"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the assembled state tree",
		Long: `Assembles the tree files and prints the resulting state tree.

Formats:
- text (default): box-drawing tree.
- markdown: rendered for the terminal.
- yaml, json: a tree file describing the assembled structure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			build, _, _, err := buildMachine(cmd)
			if err != nil {
				return err
			}
			m := build.Machine
			out := cmd.OutOrStdout()

			switch format {
			case "text":
				opts := graph.TreeOptions{Current: m.CurrentStateID()}
				if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
					opts.Highlight = tui.Highlight
				}
				fmt.Fprint(out, graph.RenderTree(graph.Snapshot(m), opts))
			case "markdown", "md":
				md := graph.RenderMarkdown(m.Name, graph.Snapshot(m), m.CurrentStateID())
				rendered, err := tui.NewRenderer(80)(md)
				if err != nil {
					return fmt.Errorf("rendering markdown: %w", err)
				}
				fmt.Fprint(out, rendered)
			case file.FormatYAML, file.FormatJSON:
				return file.Encode(out, file.Export(m), format)
			default:
				return fmt.Errorf("unknown format %q (text, markdown, yaml, json)", format)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "text", "Output format: text, markdown, yaml or json")
	return cmd
}

func newStatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "states",
		Short: "List every state in assembly order",
		Long: `Lists every state in assembly order. States that only exist outside
verification mode (contributed with skip_in_verification) are listed last, marked "(test)".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			long, _ := cmd.Flags().GetBool("long")
			_, opts, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := cli.CreateLogger(opts)
			build, err := cli.CreateMachine(opts, logger)
			if err != nil {
				return err
			}
			m := build.Machine

			testOnly := map[string]bool{}
			if !opts.Verify {
				verifyOpts := opts
				verifyOpts.Verify = true
				verifyOpts.Debug = false
				verified, err := cli.CreateMachine(verifyOpts, logging.NewNop())
				if err != nil {
					return err
				}
				for _, id := range m.AllStates() {
					if !verified.Machine.StateExists(id) {
						testOnly[id] = true
					}
				}
			}

			ids := m.AllStates()
			sort.SliceStable(ids, func(i, j int) bool { return !testOnly[ids[i]] && testOnly[ids[j]] })

			out := cmd.OutOrStdout()
			for _, id := range ids {
				suffix := ""
				if testOnly[id] {
					suffix = " (test)"
				}
				if !long {
					fmt.Fprintf(out, "%s%s\n", id, suffix)
					continue
				}
				info := m.StateInfo(id)
				kind := "sync"
				if info.IsAsync {
					kind = "async"
				}
				parent := info.Parent
				if parent == "" {
					parent = "-"
				}
				fmt.Fprintf(out, "%-24s parent=%-16s children=%d %s%s\n", id, parent, m.ChildCount(id), kind, suffix)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("long", "l", false, "Show parent, child count and hook kind")
	return cmd
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Export the state tree as a Mermaid diagram",
		Long:  `Assembles the tree files and outputs a Mermaid diagram (graph TD), marking the initial state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			build, _, _, err := buildMachine(cmd)
			if err != nil {
				return err
			}
			m := build.Machine
			overlay := &graph.GraphOverlay{CurrentState: m.CurrentStateID()}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(graph.Snapshot(m), overlay))
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the tree files assemble without problems",
		Long:  `Assembles the tree files and lists every problem found (unresolved parents, duplicate ids, ...). Exits non-zero on problems.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			build, _, _, err := buildMachine(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			problems := build.Problems()
			if len(problems) == 0 {
				fmt.Fprintf(out, "✓ %d states assembled\n", len(build.Machine.AllStates()))
				return nil
			}
			lines := make([]string, 0, len(problems))
			for _, p := range problems {
				lines = append(lines, "  - "+p.Error())
			}
			fmt.Fprintf(out, "✗ %d problem(s):\n%s\n", len(problems), strings.Join(lines, "\n"))
			return fmt.Errorf("validation failed with %d problem(s)", len(problems))
		},
	}
}
