package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run `sovyctl login` first")

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sovyctl",
		Short:         "Merchant console for the Sovy food-surplus marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newDashboardCmd(a),
		newItemsCmd(a),
		newOrdersCmd(a),
		newProfileCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) requireAuth() error {
	if !a.sess.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}
