package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/session"
	"github.com/neuraphage/engram/internal/textstyle"
)

func newUpdateCmd() *cobra.Command {
	var title, description string
	var priority int
	var labels []string
	var hasTitle, hasDescription, hasPriority, hasLabels bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields on an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasTitle = cmd.Flags().Changed("title")
			hasDescription = cmd.Flags().Changed("description")
			hasPriority = cmd.Flags().Changed("priority")
			hasLabels = cmd.Flags().Changed("label")

			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()

			var fields session.UpdateFields
			if hasTitle {
				fields.Title = &title
			}
			if hasDescription {
				fields.Description = &description
			}
			if hasPriority {
				fields.Priority = &priority
			}
			if hasLabels {
				fields.Labels = labels
			}

			it, err := h.Update(args[0], fields)
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

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().IntVar(&priority, "priority", 0, "new priority")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "replace labels (repeatable)")
	return cmd
}
