package main

import (
	"fmt"

	"github.com/odvcencio/reft/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var deleteBranch string
	var renameTo string
	var force bool

	cmd := &cobra.Command{
		Use:   "branch [name]",
		Short: "List, create, delete, or rename branches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			// Delete mode.
			if deleteBranch != "" {
				if err := r.DeleteBranch(deleteBranch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted branch '%s'\n", deleteBranch)
				return nil
			}

			// Rename mode.
			if renameTo != "" {
				if len(args) != 1 {
					return fmt.Errorf("branch --move needs the branch to rename")
				}
				if err := r.RenameBranch(args[0], renameTo, force); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "renamed branch '%s' to '%s'\n", args[0], renameTo)
				return nil
			}

			// Create mode.
			if len(args) == 1 {
				head, err := r.Head()
				if err != nil {
					return fmt.Errorf("cannot read HEAD: %w", err)
				}
				resolved, err := r.Refs.Resolve(head)
				if err != nil {
					return fmt.Errorf("cannot resolve HEAD: %w", err)
				}
				return r.CreateBranch(args[0], resolved.OID())
			}

			// List mode.
			branches, err := r.ListBranches()
			if err != nil {
				return err
			}

			current, _ := r.CurrentBranch()

			out := cmd.OutOrStdout()
			for _, b := range branches {
				if b == current {
					fmt.Fprintf(out, "* %s\n", b)
				} else {
					fmt.Fprintf(out, "  %s\n", b)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&deleteBranch, "delete", "d", "", "delete the named branch")
	cmd.Flags().StringVarP(&renameTo, "move", "m", "", "rename the branch to this name")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite a conflicting branch on rename")

	return cmd
}
