package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <collection>",
		Short: "Renumber the active items of a list to 1..N",
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

			res, err := svc.Normalize(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items normalized, %d ranks rewritten\n", scope, res.NormalizedCount, res.Changed)
			return nil
		},
	}
}
