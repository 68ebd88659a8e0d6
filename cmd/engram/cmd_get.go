package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/textstyle"
	"github.com/neuraphage/engram/internal/types"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()

			it, err := h.Get(args[0])
			if err != nil {
				return err
			}
			if it == nil {
				return fmt.Errorf("%w: %s", types.ErrUnknownItem, args[0])
			}
			if flagJSON {
				return printJSON(it)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s  %s\n", textstyle.ID(it.ID), textstyle.Bold(it.Title))
			fmt.Fprintf(w, "status:   %s\n", textstyle.Status(it.Status))
			fmt.Fprintf(w, "priority: %d\n", it.Priority)
			if len(it.Labels) > 0 {
				fmt.Fprintf(w, "labels:   %v\n", it.Labels)
			}
			if it.Description != "" {
				fmt.Fprintf(w, "\n%s\n", it.Description)
			}
			return nil
		},
	}
}
