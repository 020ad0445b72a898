package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var query string
	listCmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "Print the active items of a list in rank order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := opts.scopeFromArgs(args[0])
			if err != nil {
				return err
			}
			svc, closeDB, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			items, err := svc.List(cmd.Context(), scope, query)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tID\tNAME")
			for _, it := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\n", it.Rank, it.ID, it.Name)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy name filter")
	return listCmd
}
