package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NatDug/Field-Buddy/internal/app"
	"github.com/NatDug/Field-Buddy/internal/repository"
)

func newInventoryCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "Seed, fertilizer and supply stock",
	}
	cmd.AddCommand(
		newInventoryAddCommand(deps),
		newInventoryListCommand(deps, "ls", "List inventory items", false),
		newInventoryListCommand(deps, "low", "List items at or below their reorder point", true),
		newInventoryAdjustCommand(deps),
		newInventoryHistoryCommand(deps),
		newInventoryReorderCommand(deps),
		newInventoryRemoveCommand(deps),
	)
	return cmd
}

func newInventoryAddCommand(deps commandDeps) *cobra.Command {
	var req app.AddInventoryRequest
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add an inventory item",
		Example: "  fieldbuddy inventory add --name \"Urea\" --type fertilizer --unit kg --quantity 500 --reorder 100",
		Args:    noArgs("inventory add"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				item, err := rt.svc.Inventory.Add(ctx, req)
				if err != nil {
					return err
				}
				return printItem(deps, item)
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Item name")
	cmd.Flags().StringVar(&req.Type, "type", "", "Item type")
	cmd.Flags().StringVar(&req.Unit, "unit", "", "Unit of measure")
	cmd.Flags().Float64Var(&req.Quantity, "quantity", 0, "Quantity on hand")
	cmd.Flags().Float64Var(&req.ReorderPoint, "reorder", 0, "Reorder point")
	return cmd
}

func newInventoryListCommand(deps commandDeps, use, short string, lowOnly bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  noArgs("inventory " + use),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				var (
					items []repository.InventoryItem
					err   error
				)
				if lowOnly {
					items, err = rt.svc.Inventory.LowStock(ctx)
				} else {
					items, err = rt.svc.Inventory.List(ctx)
				}
				if err != nil {
					return err
				}
				return emit(deps, items, func(w io.Writer) error {
					rows := make([][]string, 0, len(items))
					for _, it := range items {
						rows = append(rows, []string{
							fmt.Sprint(it.ID), it.Name, orDash(it.Type),
							formatFloat(it.QuantityOnHand), orDash(it.Unit), formatFloat(it.ReorderPoint),
							boolToState(it.QuantityOnHand <= it.ReorderPoint, "low", "ok"),
						})
					}
					return printTable(w, "ID\tNAME\tTYPE\tQTY\tUNIT\tREORDER\tSTOCK", rows)
				})
			})
		},
	}
}

func newInventoryAdjustCommand(deps commandDeps) *cobra.Command {
	var (
		delta  float64
		reason string
	)
	cmd := &cobra.Command{
		Use:     "adjust <id>",
		Short:   "Add to or draw down the quantity on hand",
		Example: "  fieldbuddy inventory adjust 3 --delta -25 --reason \"north field\"",
		Args:    oneID("inventory adjust"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("inventory", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				item, err := rt.svc.Inventory.Adjust(ctx, id, delta, reason)
				if err != nil {
					return err
				}
				return printItem(deps, item)
			})
		},
	}
	cmd.Flags().Float64Var(&delta, "delta", 0, "Signed change in quantity")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the stock changed")
	return cmd
}

func newInventoryHistoryCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show stock adjustments for an item",
		Args:  oneID("inventory history"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("inventory", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				adjustments, err := rt.svc.Inventory.Adjustments(ctx, id)
				if err != nil {
					return err
				}
				return emit(deps, adjustments, func(w io.Writer) error {
					rows := make([][]string, 0, len(adjustments))
					for _, a := range adjustments {
						rows = append(rows, []string{a.CreatedAt.Local().Format("2006-01-02 15:04"), formatFloat(a.Delta), orDash(a.Reason)})
					}
					return printTable(w, "WHEN\tDELTA\tREASON", rows)
				})
			})
		},
	}
}

func newInventoryReorderCommand(deps commandDeps) *cobra.Command {
	var point float64
	cmd := &cobra.Command{
		Use:   "reorder <id>",
		Short: "Set the reorder point for an item",
		Args:  oneID("inventory reorder"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("inventory", args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("point") {
				return usageErrorf("inventory reorder requires --point")
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				item, err := rt.svc.Inventory.SetReorderPoint(ctx, id, point)
				if err != nil {
					return err
				}
				return printItem(deps, item)
			})
		},
	}
	cmd.Flags().Float64Var(&point, "point", 0, "New reorder point")
	return cmd
}

func newInventoryRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an inventory item and its history",
		Args:  oneID("inventory rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("inventory", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Inventory.Delete(ctx, id); err != nil {
					return err
				}
				return printRemoved(deps, "inventory item", id)
			})
		},
	}
}

func printItem(deps commandDeps, it *repository.InventoryItem) error {
	return emit(deps, it, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "item %d: %s %s %s (reorder at %s)\n", it.ID, it.Name, formatFloat(it.QuantityOnHand), orDash(it.Unit), formatFloat(it.ReorderPoint))
		return err
	})
}
