package cli

import (
	"fmt"
	"strconv"

	"backoffice/internal/app"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the back-office CLI. Every subcommand calls svc;
// nothing here talks to the database directly.
func NewRootCommand(svc app.ApplicationService) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "backoffice",
		Short: "Back-office order, purchase and stock operations",
		Long: `Operate the order, purchase and stock ledgers from the shell.

Orders are created by the storefront; the CLI inspects and maintains them.
Purchases restock products and feed the weighted-average cost.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newPurchaseCommand(svc, opts))
	cmd.AddCommand(newCostCommand(svc, opts))
	cmd.AddCommand(newOrderCommand(svc, opts))
	cmd.AddCommand(newStockCommand(svc, opts))
	cmd.AddCommand(newSalesCommand(svc, opts))
	cmd.AddCommand(newUserCommand(svc, opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func parseID(s, what string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", what, s))
	}
	return id, nil
}
