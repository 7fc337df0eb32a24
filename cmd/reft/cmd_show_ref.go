package main

import (
	"fmt"

	"github.com/odvcencio/reft/pkg/refs"
	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newShowRefCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "show-ref [name]",
		Short: "List references or show a single one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			printRef := func(ref *refs.Reference) error {
				if ref.Kind() == refs.Symbolic && resolve {
					var err error
					ref, err = r.Refs.Resolve(ref)
					if err != nil {
						return err
					}
				}
				if ref.Kind() == refs.Symbolic {
					fmt.Fprintf(out, "ref: %s %s\n", ref.Target(), ref.Name())
				} else {
					fmt.Fprintf(out, "%s %s\n", ref.OID(), ref.Name())
				}
				return nil
			}

			if len(args) == 1 {
				ref, err := r.Refs.Lookup(args[0])
				if err != nil {
					return err
				}
				return printRef(ref)
			}

			return r.Refs.Foreach(refs.IterAll, func(name string) error {
				ref, err := r.Refs.Lookup(name)
				if err != nil {
					return err
				}
				return printRef(ref)
			})
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "resolve symbolic references before printing")

	return cmd
}
