package cli

import (
	"fmt"
	"io"
	"strings"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/spf13/cobra"
)

func newOrderCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect, delete and restore orders",
	}
	cmd.AddCommand(newOrderShowCommand(svc, opts))
	cmd.AddCommand(newOrderDeleteCommand(svc, opts))
	cmd.AddCommand(newOrderRestoreCommand(svc, opts))
	return cmd
}

func newOrderShowCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <order-id>",
		Short: "Show an order with its lines and payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "order id")
			if err != nil {
				return err
			}
			res, err := svc.GetOrder(cmd.Context(), id)
			if err != nil {
				return serviceError("show order failed", err)
			}
			return formatter(cmd, opts).Success(res.Order, func(w io.Writer) {
				printOrder(w, res.Order)
			})
		},
	}
}

func newOrderDeleteCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <order-id>",
		Short: "Soft-delete an order with its lines, sales and payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "order id")
			if err != nil {
				return err
			}
			if err := svc.DeleteOrder(cmd.Context(), id); err != nil {
				return serviceError("delete order failed", err)
			}
			return formatter(cmd, opts).Success(map[string]int{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Order %d deleted.\n", id)
			})
		},
	}
}

func newOrderRestoreCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <order-id>",
		Short: "Restore a deleted order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "order id")
			if err != nil {
				return err
			}
			if err := svc.RestoreOrder(cmd.Context(), id); err != nil {
				return serviceError("restore order failed", err)
			}
			return formatter(cmd, opts).Success(map[string]int{"restored": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Order %d restored.\n", id)
			})
		},
	}
}

func printOrder(w io.Writer, o *core.Order) {
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  Order    : %s (#%d)\n", o.OrderNumber, o.ID)
	fmt.Fprintf(w, "  Customer : %s\n", o.CustomerPhone)
	fmt.Fprintf(w, "  Status   : %s\n", o.Status)
	if o.Payment != nil {
		fmt.Fprintf(w, "  Payment  : %s %s (%d)\n", o.Payment.PaymentNumber, o.Payment.Status, o.Payment.Amount)
	}
	if o.DeletedAt != nil {
		fmt.Fprintf(w, "  Deleted  : %s\n", o.DeletedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %-10s %8s %12s %14s\n", "PRODUCT", "QTY", "PRICE", "AMOUNT")
	rule(w, 62)
	for _, l := range o.Lines {
		fmt.Fprintf(w, "  %-10d %8d %12d %14d\n", l.ProductID, l.Quantity, l.UnitPrice, int64(l.Quantity)*l.UnitPrice)
	}
	rule(w, 62)
	fmt.Fprintf(w, "  %-10s %8s %12s %14d\n", "TOTAL", "", "", o.Total)
}
