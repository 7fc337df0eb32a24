package main

import (
	"fmt"

	"github.com/odvcencio/reft/pkg/refs"
	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newSymbolicRefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbolic-ref <name> [target]",
		Short: "Read or set a symbolic reference",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			name := args[0]

			if len(args) == 2 {
				if _, err := r.Refs.CreateSymbolic(name, args[1], true); err != nil {
					return err
				}
				return nil
			}

			ref, err := r.Refs.Lookup(name)
			if err != nil {
				return err
			}
			if ref.Kind() != refs.Symbolic {
				return fmt.Errorf("symbolic-ref: %q is not a symbolic reference", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref.Target())
			return nil
		},
	}

	return cmd
}
