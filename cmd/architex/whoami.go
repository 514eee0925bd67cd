package main

import (
	"errors"
	"fmt"

	"github.com/meikuraledutech/architex/client"
	"github.com/spf13/cobra"
)

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account the token belongs to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			u, err := c.Me(cmd.Context())
			if errors.Is(err, client.ErrUnauthorized) {
				return fmt.Errorf("not signed in; log in at %s and set ARCHITEX_API_TOKEN", c.GitHubLoginURL(""))
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, labelStyle.Render("login")+u.Login)
			if u.Name != "" {
				fmt.Fprintln(out, labelStyle.Render("name")+u.Name)
			}
			if u.Email != "" {
				fmt.Fprintln(out, labelStyle.Render("email")+u.Email)
			}
			return nil
		},
	}
}
