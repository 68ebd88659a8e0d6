package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/textstyle"
	"github.com/neuraphage/engram/internal/types"
)

func printItemTable(cmd *cobra.Command, items []*types.Item) {
	w := cmd.OutOrStdout()
	for _, it := range items {
		fmt.Fprintf(w, "%s  %s  p%d  %s\n", textstyle.ID(it.ID), textstyle.Status(it.Status), it.Priority, it.Title)
	}
}

func newListCmd() *cobra.Command {
	var statusFlags []string
	var label, titleContains string
	var minPriority, maxPriority int
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items matching a filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()

			filter := types.ListFilter{
				Label:         label,
				TitleContains: titleContains,
				Limit:         limit,
				Offset:        offset,
			}
			for _, s := range statusFlags {
				filter.Status = append(filter.Status, types.Status(s))
			}
			if cmd.Flags().Changed("min-priority") {
				p := minPriority
				filter.MinPriority = &p
			}
			if cmd.Flags().Changed("max-priority") {
				p := maxPriority
				filter.MaxPriority = &p
			}

			items, err := h.List(filter)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(items)
			}
			printItemTable(cmd, items)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "filter by status (repeatable)")
	cmd.Flags().StringVar(&label, "label", "", "filter by label")
	cmd.Flags().StringVar(&titleContains, "title-contains", "", "filter by title substring")
	cmd.Flags().IntVar(&minPriority, "min-priority", 0, "minimum priority")
	cmd.Flags().IntVar(&maxPriority, "max-priority", 0, "maximum priority")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (0 = unlimited)")
	cmd.Flags().IntVar(&offset, "offset", 0, "results to skip")
	return cmd
}
