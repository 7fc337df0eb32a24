package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "reft",
		Short: "Reference backend for a content-addressed repository",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newShowRefCmd())
	root.AddCommand(newUpdateRefCmd())
	root.AddCommand(newSymbolicRefCmd())
	root.AddCommand(newRenameRefCmd())
	root.AddCommand(newBranchCmd())
	root.AddCommand(newTagCmd())
	root.AddCommand(newPackRefsCmd())
	root.AddCommand(newReflogCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("reft 0.1.0-dev")
		},
	}
}
