package main

import (
	"fmt"

	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newPackRefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pack-refs",
		Short: "Compact loose references into the packed-refs file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.Refs.PackAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "packed references")
			return nil
		},
	}
}
