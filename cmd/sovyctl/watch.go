package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thorwig/sovy-merchant/internal/api"
	"github.com/Thorwig/sovy-merchant/internal/live"
	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/orders"
	"github.com/Thorwig/sovy-merchant/internal/views"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show merchant stats",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.requireAuth()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), views.Dashboard(*stats))
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var status string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the order list live",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.requireAuth()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			q := api.OrderQuery{Status: models.OrderStatus(status), Page: page, Limit: limit}

			refresh := make(chan struct{}, 1)
			unsub := a.cache.Subscribe(func(key string) {
				if strings.HasPrefix(key, orders.KeyPrefix) {
					select {
					case refresh <- struct{}{}:
					default:
					}
				}
			})
			defer unsub()

			feed := live.NewFeed(
				live.Config{
					URL:            a.cfg.LiveFeedURL,
					ReconnectDelay: a.cfg.ReconnectDelay,
					MaxAttempts:    a.cfg.MaxReconnects,
				},
				a.sess.Token,
				func() { a.cache.InvalidatePrefix(orders.KeyPrefix) },
				a.log,
			)
			feed.Start()
			defer feed.Close()

			render := func() {
				pageData, err := a.store.Fetch(ctx, q)
				if err != nil && pageData == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "fetch failed: %v\n", err)
					return
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: showing stale data: %v\n", err)
				}
				pg := orders.Pagination{Page: q.Page, Limit: q.Limit, Total: pageData.Total}
				fmt.Fprint(cmd.OutOrStdout(), views.Orders(pageData, pg, a.store.IsRemoving))
			}
			render()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-feed.Done():
					return fmt.Errorf("live feed stopped")
				case <-refresh:
					render()
				}
			}
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "orders per page")
	return cmd
}
