package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newPurchaseCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Record, replace, delete and list purchases",
	}
	cmd.AddCommand(newPurchaseAddCommand(svc, opts))
	cmd.AddCommand(newPurchaseUpdateCommand(svc, opts))
	cmd.AddCommand(newPurchaseDeleteCommand(svc, opts))
	cmd.AddCommand(newPurchaseListCommand(svc, opts))
	return cmd
}

func newPurchaseAddCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	var idemKey string
	cmd := &cobra.Command{
		Use:   "add <product:qty:unit_cost>...",
		Short: "Record one purchase per entry and restock",
		Example: `  backoffice purchase add 1:20:100
  backoffice purchase add 1:20:100 2:5:80.50 --idempotency-key inv-2291`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args)
			if err != nil {
				return err
			}
			out := formatter(cmd, opts)
			out.VerboseLog("recording %d purchase entries", len(entries))

			res, err := svc.AddPurchase(cmd.Context(), app.AddPurchaseRequest{IdempotencyKey: idemKey, Entries: entries})
			if err != nil {
				return serviceError("add purchase failed", err)
			}
			return out.Success(res, func(w io.Writer) {
				if res.Replayed {
					fmt.Fprintln(w, "Replayed earlier request.")
				}
				fmt.Fprintf(w, "Recorded purchases: %s\n", joinIDs(res.PurchaseIDs))
			})
		},
	}
	cmd.Flags().StringVar(&idemKey, "idempotency-key", "", "replay the first result for repeated submissions")
	return cmd
}

func newPurchaseUpdateCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <purchase-id> <product:qty:unit_cost>...",
		Short: "Replace a purchase with new entries",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "purchase id")
			if err != nil {
				return err
			}
			entries, err := parseEntries(args[1:])
			if err != nil {
				return err
			}
			res, err := svc.UpdatePurchase(cmd.Context(), id, entries)
			if err != nil {
				return serviceError("update purchase failed", err)
			}
			return formatter(cmd, opts).Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Purchase %d replaced by %s\n", id, joinIDs(res.PurchaseIDs))
			})
		},
	}
}

func newPurchaseDeleteCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <purchase-id>",
		Short: "Soft-delete a purchase and reverse its stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "purchase id")
			if err != nil {
				return err
			}
			if err := svc.DeletePurchase(cmd.Context(), id); err != nil {
				return serviceError("delete purchase failed", err)
			}
			return formatter(cmd, opts).Success(map[string]int{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Purchase %d deleted.\n", id)
			})
		},
	}
}

func newPurchaseListCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	var productID int
	var includeDeleted bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List purchases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := svc.ListPurchases(cmd.Context(), productID, includeDeleted)
			if err != nil {
				return serviceError("list purchases failed", err)
			}
			return formatter(cmd, opts).Success(res, func(w io.Writer) {
				printPurchases(w, res.Purchases)
			})
		},
	}
	cmd.Flags().IntVar(&productID, "product", 0, "only this product")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include soft-deleted purchases")
	return cmd
}

func newCostCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "cost <product-id>",
		Short: "Weighted-average unit cost of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			at := time.Now()
			if asOf != "" {
				if at, err = time.Parse(time.RFC3339, asOf); err != nil {
					return WrapExitError(ExitCommandError, "--as-of must be RFC3339", err)
				}
			}
			cost, err := svc.AverageCost(cmd.Context(), id, at)
			if err != nil {
				return serviceError("average cost failed", err)
			}
			data := map[string]any{"product_id": id, "as_of": at.UTC(), "average_cost": cost}
			return formatter(cmd, opts).Success(data, func(w io.Writer) {
				fmt.Fprintf(w, "Product %d average cost as of %s: %s\n", id, at.UTC().Format(time.RFC3339), cost.StringFixed(4))
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "RFC3339 instant (default now)")
	return cmd
}

// parseEntries reads product:qty:unit_cost triples.
func parseEntries(args []string) ([]core.PurchaseEntry, error) {
	entries := make([]core.PurchaseEntry, 0, len(args))
	for _, a := range args {
		parts := strings.Split(a, ":")
		if len(parts) != 3 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("entry %q: want product:qty:unit_cost", a))
		}
		productID, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("entry %q: bad product id", a), err)
		}
		qty, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("entry %q: bad quantity", a), err)
		}
		cost, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("entry %q: bad unit cost", a), err)
		}
		entries = append(entries, core.PurchaseEntry{ProductID: productID, Quantity: qty, UnitCost: cost})
	}
	return entries, nil
}

func printPurchases(w io.Writer, purchases []core.Purchase) {
	fmt.Fprintf(w, "%-8s %-8s %8s %12s  %-20s %s\n", "ID", "PRODUCT", "QTY", "UNIT COST", "CREATED", "")
	rule(w, 70)
	for _, p := range purchases {
		state := ""
		if p.DeletedAt != nil {
			state = "deleted"
		}
		fmt.Fprintf(w, "%-8d %-8d %8d %12s  %-20s %s\n",
			p.ID, p.ProductID, p.Quantity, p.UnitCost.StringFixed(4), p.CreatedAt.UTC().Format("2006-01-02 15:04:05"), state)
	}
}

func joinIDs(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ", ")
}
