package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/textstyle"
)

func newCreateCmd() *cobra.Command {
	var priority int
	var labels []string
	var description string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()

			it, err := h.Create(args[0], priority, labels, description)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(it)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", textstyle.ID(it.ID), textstyle.Status(it.Status), it.Title)
			return nil
		},
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 2, "priority (0=highest .. 4=lowest)")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "label (repeatable)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "free-text description")
	return cmd
}
