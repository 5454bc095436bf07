package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/internal/presentation/tui"
	"github.com/aretw0/canopy/pkg/ports"
)

const shellHelp = `commands:
  go <state>      change state synchronously
  async <state>   change state and await async hooks
  current         show the current state and its ancestors
  tree            draw the state tree
  states          list every state
  info <state>    show a state snapshot
  graph           print the tree as a Mermaid flowchart
  help            show this help
  quit            leave the shell`

// Shell is a line-oriented REPL over a machine.
type Shell struct {
	Machine ports.Machine
	In      io.Reader
	Out     io.Writer
	// Interactive enables the prompt and colored output.
	Interactive bool
}

// NewShell wires a shell to stdin/stdout, enabling the prompt when stdin is a terminal.
func NewShell(m ports.Machine) *Shell {
	return &Shell{
		Machine:     m,
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// Run reads commands until quit, EOF or cancellation of ctx.
func (s *Shell) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	unsubscribe := s.Machine.Subscribe(func(from, to string) {
		if s.Interactive {
			printSystemMessage(s.Out, "%s -> %s", displayState(from), to)
		}
	})
	defer unsubscribe()

	for {
		s.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := s.Exec(ctx, line); quit {
				return nil
			}
		}
	}
}

func (s *Shell) prompt() {
	if !s.Interactive {
		return
	}
	fmt.Fprintf(s.Out, "%s> ", s.highlight(displayState(s.Machine.CurrentStateID())))
}

// Exec runs a single command line. It returns true when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprintln(s.Out, shellHelp)
	case "go", "cd":
		if id, ok := s.arg(cmd, args); ok {
			if err := s.Machine.ChangeState(id); err != nil {
				fmt.Fprintf(s.Out, "error: %v\n", err)
				return false
			}
			fmt.Fprintf(s.Out, "now in %s\n", s.Machine.CurrentStateID())
		}
	case "async":
		if id, ok := s.arg(cmd, args); ok {
			t, err := s.Machine.ChangeStateAsync(ctx, id).AwaitContext(ctx)
			if err != nil {
				fmt.Fprintf(s.Out, "error: %v\n", err)
				return false
			}
			fmt.Fprintf(s.Out, "now in %s (from %s)\n", t.To, displayState(t.From))
		}
	case "current", "pwd":
		s.printCurrent()
	case "tree":
		opts := graph.TreeOptions{Current: s.Machine.CurrentStateID()}
		if s.Interactive {
			opts.Highlight = tui.Highlight
		}
		fmt.Fprint(s.Out, graph.RenderTree(graph.Snapshot(s.Machine), opts))
	case "states", "ls":
		for _, id := range s.Machine.AllStates() {
			fmt.Fprintln(s.Out, id)
		}
	case "info":
		if id, ok := s.arg(cmd, args); ok {
			s.printInfo(id)
		}
	case "graph":
		overlay := &graph.GraphOverlay{CurrentState: s.Machine.CurrentStateID()}
		fmt.Fprintln(s.Out, graph.GenerateMermaid(graph.Snapshot(s.Machine), overlay))
	default:
		fmt.Fprintf(s.Out, "unknown command %q (try help)\n", cmd)
	}
	return false
}

func (s *Shell) arg(cmd string, args []string) (string, bool) {
	if len(args) != 1 {
		fmt.Fprintf(s.Out, "usage: %s <state>\n", cmd)
		return "", false
	}
	return args[0], true
}

func (s *Shell) printCurrent() {
	current := s.Machine.CurrentStateID()
	if current == "" {
		fmt.Fprintln(s.Out, "(none)")
		return
	}
	chain := []string{s.highlight(current)}
	for id := s.Machine.StateInfo(current).Parent; id != ""; id = s.Machine.StateInfo(id).Parent {
		chain = append(chain, id)
	}
	fmt.Fprintln(s.Out, strings.Join(chain, " < "))
}

func (s *Shell) printInfo(id string) {
	if !s.Machine.StateExists(id) {
		fmt.Fprintf(s.Out, "unknown state %q\n", id)
		return
	}
	info := s.Machine.StateInfo(id)
	fmt.Fprintf(s.Out, "name:     %s\n", info.Name)
	fmt.Fprintf(s.Out, "parent:   %s\n", displayState(info.Parent))
	fmt.Fprintf(s.Out, "children: %s\n", strings.Join(info.Children, ", "))
	fmt.Fprintf(s.Out, "async:    %t\n", info.IsAsync)
}

func (s *Shell) highlight(text string) string {
	if !s.Interactive {
		return text
	}
	return tui.Highlight(text)
}

func displayState(id string) string {
	if id == "" {
		return "-"
	}
	return id
}
