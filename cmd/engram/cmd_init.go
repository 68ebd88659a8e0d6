package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/session"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new store in the current workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storeDir()
			if err != nil {
				return err
			}
			if err := session.Init(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized store at %s\n", dir)
			return nil
		},
	}
}
