package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsplay/examples"
)

func newExamplesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples [name]",
		Short: "List example snippets, or print or run one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, s := range examples.All() {
					fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Title)
				}
				return w.Flush()
			}

			s, ok := examples.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown example %q", args[0])
			}
			if run, _ := cmd.Flags().GetBool("run"); !run {
				fmt.Fprint(cmd.OutOrStdout(), s.Code)
				return nil
			}

			c, err := a.build(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			return report(cmd, c.service.CheckAndRun(cmd.Context(), s.Code), false)
		},
	}
	cmd.Flags().Bool("run", false, "Check and run the example instead of printing it")
	return cmd
}
