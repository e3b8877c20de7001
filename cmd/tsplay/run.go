package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsplay/diagnostic"
	"github.com/caffeineduck/tsplay/playground"
)

// errDiagnostics is returned when a snippet had errors. They have already
// been printed, so the message only summarises.
var errDiagnostics = errors.New("snippet has errors")

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Check and run a snippet",
		Long: `Type-check a TypeScript snippet and, when it has no errors, run it.

Code can be provided via:
  - File argument: tsplay run snippet.ts
  - Inline flag: tsplay run -c 'console.log(1 + 1)'
  - Stdin: echo 'console.log(1 + 1)' | tsplay run

Program output goes to stdout. Errors and warnings go to stderr, one per
line, as "Line L, Column C: message".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRun(cmd, args)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Report diagnostics without running",
		Long: `Type-check a TypeScript snippet and print its errors and warnings.
Nothing is executed. Exits non-zero when there are errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args)
		},
	}
	cmd.Flags().StringP("code", "c", "", "Code to check")
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	cmd.Flags().Bool("quiet-warnings", false, "Do not print warnings")
}

// readSource returns the snippet from -c, a file argument or stdin, in
// that order. ok is false when no source was given at all.
func readSource(cmd *cobra.Command, args []string) (source string, ok bool, err error) {
	code, _ := cmd.Flags().GetString("code")
	switch {
	case code != "":
		return code, true, nil
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", false, err
		}
		return string(data), true, nil
	}

	in := cmd.InOrStdin()
	if f, isFile := in.(*os.File); isFile {
		// Check if stdin has data (not a terminal)
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", false, nil
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

func (a *app) runRun(cmd *cobra.Command, args []string) error {
	source, ok, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if !ok {
		return cmd.Help()
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

	res := c.service.CheckAndRun(ctx, source)
	quiet, _ := cmd.Flags().GetBool("quiet-warnings")
	return report(cmd, res, quiet)
}

func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	source, ok, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	if !ok {
		return cmd.Help()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	chk, store, err := a.newChecker(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	res := chk.Check(ctx, source)
	printDiagnostics(cmd.ErrOrStderr(), "warning", res.Warnings)
	printDiagnostics(cmd.ErrOrStderr(), "error", res.Errors)
	if len(res.Errors) > 0 {
		return errDiagnostics
	}
	fmt.Fprintln(cmd.OutOrStdout(), "No errors")
	return nil
}

func report(cmd *cobra.Command, res playground.CompilationResult, quietWarnings bool) error {
	if !quietWarnings {
		printDiagnostics(cmd.ErrOrStderr(), "warning", res.Warnings)
	}
	if !res.Success {
		printDiagnostics(cmd.ErrOrStderr(), "error", res.Errors)
		return errDiagnostics
	}
	out := res.Output
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func printDiagnostics(w io.Writer, severity string, ds []diagnostic.Diagnostic) {
	for _, d := range ds {
		fmt.Fprintf(w, "%s: %s\n", severity, diagnostic.Format(d))
	}
}
