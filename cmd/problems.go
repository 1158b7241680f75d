package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bfgsmin/internal/problems"
)

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List the built-in test problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDIM\tSUGGESTED START")
		for _, name := range problems.Names() {
			p, err := problems.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", p.Name, p.Dim, formatVector(p.X0))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(problemsCmd)
}
