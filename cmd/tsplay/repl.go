package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsplay/examples"
	"github.com/caffeineduck/tsplay/playground"
)

func newReplCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive prompt; every entry runs as its own snippet",
		Long: `Start an interactive prompt that checks and runs each entry.

Entries do not share state: every entry is a fresh snippet, exactly as if
it had been passed to "tsplay run".

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - Multi-line input (end line with \)
  - :example <name> runs a catalogue snippet, :examples lists them

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRepl(cmd)
		},
	}
	cmd.Flags().String("history", "", "History file path (default: ~/.tsplay_history)")
	return cmd
}

func (a *app) runRepl(cmd *cobra.Command) error {
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".tsplay_history")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := a.build(ctx, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	rlConfig := &readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}
	if in := cmd.InOrStdin(); in != os.Stdin {
		rlConfig.Stdin = io.NopCloser(in)
		rlConfig.Stdout = cmd.OutOrStdout()
		rlConfig.Stderr = cmd.ErrOrStderr()
		rlConfig.FuncIsTerminal = func() bool { return false }
	}

	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "tsplay %s REPL (type 'exit' to quit, Ctrl+D to exit)\n", a.cfg.Engine.Name)

	var multiLine strings.Builder
	inMultiLine := false

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if inMultiLine {
					multiLine.Reset()
					inMultiLine = false
					rl.SetPrompt(">>> ")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		// Handle multi-line input
		if strings.HasSuffix(line, "\\") {
			multiLine.WriteString(strings.TrimSuffix(line, "\\"))
			multiLine.WriteString("\n")
			inMultiLine = true
			rl.SetPrompt("... ")
			continue
		}

		if inMultiLine {
			multiLine.WriteString(line)
			line = multiLine.String()
			multiLine.Reset()
			inMultiLine = false
			rl.SetPrompt(">>> ")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		source, ok := replSource(cmd, line)
		if !ok {
			continue
		}
		replPrint(cmd, c.service.CheckAndRun(ctx, source))
	}
}

// replSource resolves REPL commands. ok is false when the line was a
// command that produced no snippet.
func replSource(cmd *cobra.Command, line string) (string, bool) {
	switch {
	case line == ":examples":
		for _, s := range examples.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %s\n", s.Name, s.Title)
		}
		return "", false
	case strings.HasPrefix(line, ":example "):
		name := strings.TrimSpace(strings.TrimPrefix(line, ":example "))
		s, found := examples.Get(name)
		if !found {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: unknown example %q\n", name)
			return "", false
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.Code)
		return s.Code, true
	case strings.HasPrefix(line, ":"):
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: unknown command %q\n", line)
		return "", false
	}
	return line, true
}

func replPrint(cmd *cobra.Command, res playground.CompilationResult) {
	printDiagnostics(cmd.ErrOrStderr(), "warning", res.Warnings)
	if !res.Success {
		printDiagnostics(cmd.ErrOrStderr(), "error", res.Errors)
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Output)
	if !strings.HasSuffix(res.Output, "\n") {
		fmt.Fprintln(cmd.OutOrStdout())
	}
}
