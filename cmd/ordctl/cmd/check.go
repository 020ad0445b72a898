package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/israelwong/zen-sub001/pkg/model/morder"
)

var errDrift = errors.New("rank drift found")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var all bool
	checkCmd := &cobra.Command{
		Use:   "check [collection]",
		Short: "Report gaps, duplicates and unranked items without changing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var collections []string
			switch {
			case len(args) == 1:
				collections = args
			case all:
				for _, c := range morder.Collections() {
					if !c.HasParent() {
						collections = append(collections, string(c))
					}
				}
			default:
				return errors.New("pass a collection or --all")
			}

			svc, closeDB, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			drift := false
			for _, name := range collections {
				scope, err := opts.scopeFromArgs(name)
				if err != nil {
					return err
				}
				rep, err := svc.Inspect(cmd.Context(), scope)
				if err != nil {
					return err
				}
				if rep.Contiguous() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d items)\n", scope, rep.Count)
					continue
				}
				drift = true
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items, max rank %d, %d gaps, duplicates %v, %d unranked\n",
					scope, rep.Count, rep.MaxRank, len(rep.Gaps), rep.Duplicates, rep.NonPositive)
			}
			if drift {
				return errDrift
			}
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&all, "all", false, "check every collection scoped by studio only")
	return checkCmd
}
