package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thorwig/sovy-merchant/internal/audit"
	"github.com/Thorwig/sovy-merchant/internal/models"
	"github.com/Thorwig/sovy-merchant/internal/validation"
	"github.com/Thorwig/sovy-merchant/internal/views"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and edit the business profile",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.requireAuth()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the business profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), views.Profile(*p))
			return nil
		},
	}

	var edited models.MerchantProfile
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Update the business profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Unset flags keep their current values.
			current := a.sess.Merchant()
			if current == nil {
				p, err := a.client.GetProfile(cmd.Context())
				if err != nil {
					return err
				}
				current = p
			}
			merged := *current
			if cmd.Flags().Changed("name") {
				merged.BusinessName = edited.BusinessName
			}
			if cmd.Flags().Changed("description") {
				merged.Description = edited.Description
			}
			if cmd.Flags().Changed("address") {
				merged.Address = edited.Address
			}
			if cmd.Flags().Changed("lat") {
				merged.Latitude = edited.Latitude
			}
			if cmd.Flags().Changed("lng") {
				merged.Longitude = edited.Longitude
			}
			if cmd.Flags().Changed("phone") {
				merged.Phone = edited.Phone
			}
			if cmd.Flags().Changed("email") {
				merged.Email = edited.Email
			}

			if err := validation.ValidateProfile(merged); err != nil {
				return err
			}
			updated, err := a.client.UpdateProfile(cmd.Context(), merged)
			if err != nil {
				return err
			}
			if err := a.sess.UpdateMerchant(*updated); err != nil {
				return err
			}
			a.activity.Log(audit.NewRecord("profile.update", updated.ID, ""))
			fmt.Fprint(cmd.OutOrStdout(), views.Profile(*updated))
			return nil
		},
	}
	edit.Flags().StringVar(&edited.BusinessName, "name", "", "business name")
	edit.Flags().StringVar(&edited.Description, "description", "", "business description")
	edit.Flags().StringVar(&edited.Address, "address", "", "street address")
	edit.Flags().Float64Var(&edited.Latitude, "lat", 0, "latitude")
	edit.Flags().Float64Var(&edited.Longitude, "lng", 0, "longitude")
	edit.Flags().StringVar(&edited.Phone, "phone", "", "contact phone, international format")
	edit.Flags().StringVar(&edited.Email, "email", "", "contact email")

	cmd.AddCommand(show, edit)
	return cmd
}
