package main

import (
	"fmt"

	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newRenameRefCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rename-ref <old> <new>",
		Short: "Rename a reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ref, err := r.Refs.Lookup(args[0])
			if err != nil {
				return err
			}
			if err := r.Refs.Rename(ref, args[1], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], ref.Name())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite a conflicting reference")

	return cmd
}
