package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neuraphage/engram/internal/textstyle"
	"github.com/neuraphage/engram/internal/types"
)

func printStatusResult(cmd *cobra.Command, it *types.Item) error {
	if flagJSON {
		return printJSON(it)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", textstyle.ID(it.ID), textstyle.Status(it.Status), it.Title)
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Move an item to in_progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			it, err := h.SetStatus(args[0], types.StatusInProgress)
			if err != nil {
				return err
			}
			return printStatusResult(cmd, it)
		},
	}
}

func newCloseCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			it, err := h.CloseItem(args[0], reason)
			if err != nil {
				return err
			}
			return printStatusResult(cmd, it)
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "reason the item was closed")
	return cmd
}

func newReopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <id>",
		Short: "Reopen a closed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			it, err := h.Reopen(args[0])
			if err != nil {
				return err
			}
			return printStatusResult(cmd, it)
		},
	}
}

func newBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <blocked-id> <blocker-id>",
		Short: "Add a blocks edge: blocked-id is blocked by blocker-id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			e, err := h.AddEdge(args[0], args[1], types.EdgeBlocks)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is blocked by %s\n", e.From, e.To)
			return nil
		},
	}
}

func newUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <blocked-id> <blocker-id>",
		Short: "Remove a blocks edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			if err := h.RemoveEdge(args[0], args[1], types.EdgeBlocks); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer blocked by %s\n", args[0], args[1])
			return nil
		},
	}
}

func newChildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child <parent-id> <child-id>",
		Short: "Add a child edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			e, err := h.AddEdge(args[1], args[0], types.EdgeChild)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now a child of %s\n", e.From, e.To)
			return nil
		},
	}
	return cmd
}

func newReadyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "List items with no open blockers",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			items, err := h.Ready()
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
}

func newBlockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocked",
		Short: "List items with at least one open blocker",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			items, err := h.Blocked()
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
}

func newCompactCmd() *cobra.Command {
	var olderThanDays int
	var dropDescription bool
	var maxDescriptionLen int

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Trim or drop descriptions of old closed items and rotate the logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHandle()
			if err != nil {
				return err
			}
			defer h.Shutdown()
			res, err := h.Compact(types.CompactConfig{
				OlderThanDays:     olderThanDays,
				DropDescription:   dropDescription,
				MaxDescriptionLen: maxDescriptionLen,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rewrote %d of %d items, %d live edges retained\n",
				res.ItemsRewritten, res.ItemCount, res.EdgeCount)
			return nil
		},
	}
	cmd.Flags().IntVar(&olderThanDays, "older-than-days", 30, "only touch items closed at least this many days ago")
	cmd.Flags().BoolVar(&dropDescription, "drop-description", false, "drop descriptions entirely instead of truncating")
	cmd.Flags().IntVar(&maxDescriptionLen, "max-description-len", 0, "truncate descriptions longer than this (0 = no cap)")
	return cmd
}
