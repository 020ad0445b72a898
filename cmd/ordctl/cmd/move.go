package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
)

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <collection> <item-id> <rank>",
		Short: "Move one item to a new 1-based rank",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := morder.ParseCollection(args[0])
			if err != nil {
				return err
			}
			itemID, err := idwrap.NewText(args[1])
			if err != nil {
				return err
			}
			rank, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("rank: %w", err)
			}
			studio, err := opts.studioID()
			if err != nil {
				return err
			}

			svc, closeDB, err := opts.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := svc.MoveItem(cmd.Context(), c, studio, itemID, rank); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s to rank %d\n", itemID, rank)
			return nil
		},
	}
}
