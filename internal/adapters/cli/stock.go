package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"backoffice/internal/app"

	"github.com/spf13/cobra"
)

func newStockCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Show or overwrite stock counters",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Stock level of every product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := svc.ListStockLevels(cmd.Context())
			if err != nil {
				return serviceError("list stock failed", err)
			}
			return formatter(cmd, opts).Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "%-8s %-30s %10s\n", "ID", "PRODUCT", "STOCK")
				rule(w, 50)
				for _, l := range res.Levels {
					fmt.Fprintf(w, "%-8d %-30s %10d\n", l.ProductID, l.ProductName, l.Stock)
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <product-id> <value>",
		Short: "Overwrite a product's stock after a physical count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "product id")
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "stock value must be an integer", err)
			}
			if err := svc.SetStock(cmd.Context(), id, value); err != nil {
				return serviceError("set stock failed", err)
			}
			return formatter(cmd, opts).Success(map[string]int{"product_id": id, "stock": value}, func(w io.Writer) {
				fmt.Fprintf(w, "Product %d stock set to %d.\n", id, value)
			})
		},
	})
	return cmd
}

func newSalesCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Sales reporting",
	}

	var from, to string
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Units, revenue, cost and gross profit over [from, to)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			end := time.Now().UTC()
			if to != "" {
				t, err := time.Parse(time.RFC3339, to)
				if err != nil {
					return WrapExitError(ExitCommandError, "--to must be RFC3339", err)
				}
				end = t
			}
			start := end.AddDate(0, 0, -30)
			if from != "" {
				t, err := time.Parse(time.RFC3339, from)
				if err != nil {
					return WrapExitError(ExitCommandError, "--from must be RFC3339", err)
				}
				start = t
			}

			s, err := svc.SalesSummary(cmd.Context(), start, end)
			if err != nil {
				return serviceError("sales summary failed", err)
			}
			return formatter(cmd, opts).Success(s, func(w io.Writer) {
				fmt.Fprintf(w, "Sales %s .. %s\n", s.From.UTC().Format(time.RFC3339), s.To.UTC().Format(time.RFC3339))
				fmt.Fprintf(w, "%-8s %-24s %8s %12s %14s %14s\n", "ID", "PRODUCT", "UNITS", "REVENUE", "COST", "PROFIT")
				rule(w, 86)
				for _, p := range s.Products {
					fmt.Fprintf(w, "%-8d %-24s %8d %12d %14s %14s\n",
						p.ProductID, p.ProductName, p.Units, p.Revenue, p.Cost.StringFixed(2), p.GrossProfit.StringFixed(2))
				}
				rule(w, 86)
				fmt.Fprintf(w, "%-8s %-24s %8d %12d %14s %14s\n",
					"TOTAL", "", s.Units, s.Revenue, s.Cost.StringFixed(2), s.GrossProfit.StringFixed(2))
			})
		},
	}
	summary.Flags().StringVar(&from, "from", "", "RFC3339 start, inclusive (default to minus 30 days)")
	summary.Flags().StringVar(&to, "to", "", "RFC3339 end, exclusive (default now)")
	cmd.AddCommand(summary)
	return cmd
}
