package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thorwig/sovy-merchant/internal/audit"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate as a merchant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "email: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return err
				}
				email = strings.TrimSpace(line)
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return err
				}
				password = strings.TrimSpace(line)
			}

			sess, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				// Bad credentials stay an inline message; whatever session
				// existed before the attempt is left alone.
				return fmt.Errorf("login failed: %w", err)
			}
			if err := a.sess.Install(*sess); err != nil {
				return err
			}
			a.activity.Log(audit.NewRecord("login", email, ""))

			name := email
			if sess.Merchant != nil {
				name = sess.Merchant.BusinessName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "merchant account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sess.Clear(); err != nil {
				return err
			}
			a.activity.Log(audit.NewRecord("logout", "", ""))
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
