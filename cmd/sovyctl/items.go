package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thorwig/sovy-merchant/internal/api"
	"github.com/Thorwig/sovy-merchant/internal/audit"
	"github.com/Thorwig/sovy-merchant/internal/validation"
	"github.com/Thorwig/sovy-merchant/internal/views"
)

type itemFlags struct {
	name          string
	description   string
	price         float64
	originalPrice float64
	quantity      int
	expiry        string
	image         string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "listing name")
	cmd.Flags().StringVar(&f.description, "description", "", "listing description")
	cmd.Flags().Float64Var(&f.price, "price", 0, "discounted price")
	cmd.Flags().Float64Var(&f.originalPrice, "original-price", 0, "original price")
	cmd.Flags().IntVar(&f.quantity, "quantity", 0, "quantity available")
	cmd.Flags().StringVar(&f.expiry, "expiry", "", "expiry date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.image, "image", "", "path to an image file (optional)")
}

func (f *itemFlags) form() (api.FoodItemForm, func(), error) {
	expiry, err := parseExpiry(f.expiry)
	if err != nil {
		return api.FoodItemForm{}, nil, err
	}
	if err := validation.ValidateFoodItem(f.name, f.description, f.price, f.originalPrice, f.quantity, expiry, time.Now()); err != nil {
		return api.FoodItemForm{}, nil, err
	}

	form := api.FoodItemForm{
		Name:          f.name,
		Description:   f.description,
		Price:         f.price,
		OriginalPrice: f.originalPrice,
		Quantity:      f.quantity,
		ExpiryDate:    expiry,
	}
	cleanup := func() {}
	if f.image != "" {
		img, err := os.Open(f.image)
		if err != nil {
			return api.FoodItemForm{}, nil, fmt.Errorf("open image: %w", err)
		}
		form.Image = img
		form.ImageName = filepath.Base(f.image)
		cleanup = func() { img.Close() }
	}
	return form, cleanup, nil
}

func parseExpiry(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("--expiry is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		// End of day, so an item listed for "today" is valid until midnight.
		return t.Add(24*time.Hour - time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse expiry %q", s)
	}
	return t, nil
}

func newItemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage food listings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.requireAuth()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show all listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client.ListFoodItems(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), views.Items(items, time.Now()))
			return nil
		},
	}

	addFlags := &itemFlags{}
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, cleanup, err := addFlags.form()
			if err != nil {
				return err
			}
			defer cleanup()

			item, err := a.client.CreateFoodItem(cmd.Context(), form)
			if err != nil {
				return err
			}
			a.activity.Log(audit.NewRecord("item.create", item.ID, item.Name))
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", item.Name, item.ID)
			return nil
		},
	}
	addFlags.register(add)

	updateFlags := &itemFlags{}
	update := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Update a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, cleanup, err := updateFlags.form()
			if err != nil {
				return err
			}
			defer cleanup()

			item, err := a.client.UpdateFoodItem(cmd.Context(), args[0], form)
			if err != nil {
				return err
			}
			a.activity.Log(audit.NewRecord("item.update", item.ID, item.Name))
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", item.ID)
			return nil
		},
	}
	updateFlags.register(update)

	del := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteFoodItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.activity.Log(audit.NewRecord("item.delete", args[0], ""))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}
