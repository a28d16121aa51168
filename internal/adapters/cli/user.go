package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/spf13/cobra"
)

func newUserCommand(svc app.ApplicationService, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Provision back-office users",
	}

	var email, role string
	create := &cobra.Command{
		Use:     "create <username>",
		Short:   "Create a user; the password is read from stdin",
		Example: `  echo 's3cret-pass' | backoffice user create ana --role staff`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return WrapExitError(ExitCommandError, "failed to read password", err)
			}
			res, err := svc.CreateUser(cmd.Context(), app.CreateUserRequest{
				Username: args[0],
				Email:    email,
				Password: strings.TrimRight(line, "\r\n"),
				Role:     core.Role(role),
			})
			if err != nil {
				return serviceError("create user failed", err)
			}
			return formatter(cmd, opts).Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "User %s (#%d) created with role %s.\n", res.Username, res.UserID, res.Role)
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "contact email")
	create.Flags().StringVar(&role, "role", string(core.RoleStaff), "admin|staff|customer")
	cmd.AddCommand(create)
	return cmd
}
