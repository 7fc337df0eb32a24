package main

import (
	"errors"
	"fmt"

	"github.com/odvcencio/reft/pkg/object"
	"github.com/odvcencio/reft/pkg/refs"
	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newUpdateRefCmd() *cobra.Command {
	var del bool
	var force bool

	cmd := &cobra.Command{
		Use:   "update-ref <name> [oid]",
		Short: "Create, update, or delete a direct reference",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			name := args[0]

			if del {
				ref, err := r.Refs.Lookup(name)
				if err != nil {
					return err
				}
				old := ref.OID()
				if err := r.Refs.Delete(ref); err != nil {
					return err
				}
				return r.AppendReflog(ref.Name(), old, object.ZeroOID, "update-ref: deleted")
			}

			if len(args) != 2 {
				return fmt.Errorf("update-ref: an object id is required")
			}
			id, err := object.ParseOID(args[1])
			if err != nil {
				return err
			}

			old := object.ZeroOID
			ref, err := r.Refs.Lookup(name)
			switch {
			case err == nil && ref.Kind() == refs.Direct:
				old = ref.OID()
				if err := ref.SetOID(id); err != nil {
					return err
				}
			case err == nil:
				return fmt.Errorf("update-ref: %q is a symbolic reference", name)
			case errors.Is(err, refs.ErrNotFound):
				if ref, err = r.Refs.CreateDirect(name, id, force); err != nil {
					return err
				}
			default:
				return err
			}

			return r.AppendReflog(ref.Name(), old, id, "update-ref")
		},
	}

	cmd.Flags().BoolVarP(&del, "delete", "d", false, "delete the named reference")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite a conflicting reference")

	return cmd
}
