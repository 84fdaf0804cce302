package main

import (
	"fmt"

	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/service/directory"

	"github.com/spf13/cobra"
)

func newSellerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seller",
		Short: "Add, list, update and remove sellers",
	}
	cmd.AddCommand(
		newSellerAddCmd(a),
		newSellerListCmd(a),
		newSellerUpdateCmd(a),
		newSellerDeleteCmd(a),
		newSellerStatusCmd(a),
		newDayOffCmd(a),
	)
	return cmd
}

func newSellerAddCmd(a *app) *cobra.Command {
	var params directory.AddSellerParams
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a seller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seller, err := a.directory().AddSeller(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("seller add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", okColor.Sprint("added"), seller.SellerID, seller.DisplayName)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&params.DisplayName, "name", "", "display name")
	f.StringVar(&params.ContactHandle, "contact", "", "WhatsApp number that receives alerts")
	f.StringVar(&params.Specialty, "specialty", "", "routing specialty (default general)")
	f.IntVar(&params.MaxClients, "max-clients", 0, "concurrent conversation capacity")
	f.IntVar(&params.NotificationIntervalMinutes, "interval", 0, "minutes between reminders")
	f.StringVar(&params.WorkStart, "work-start", "", "shift start, HH:MM")
	f.StringVar(&params.WorkEnd, "work-end", "", "shift end, HH:MM")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("contact")
	return cmd
}

func newSellerListCmd(a *app) *cobra.Command {
	var (
		activeOnly bool
		specialty  string
		status     string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sellers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sellers, err := a.directory().ListSellers(cmd.Context(), directory.Filter{
				ActiveOnly: activeOnly,
				Specialty:  specialty,
				Status:     model.SellerStatus(status),
			})
			if err != nil {
				return fmt.Errorf("seller list: %w", err)
			}
			printSellers(cmd.OutOrStdout(), sellers)
			return nil
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active sellers")
	cmd.Flags().StringVar(&specialty, "specialty", "", "filter by specialty")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func newSellerUpdateCmd(a *app) *cobra.Command {
	var (
		name, contact, specialty, workStart, workEnd string
		maxClients, interval                         int
		rating                                       float64
	)
	cmd := &cobra.Command{
		Use:   "update <seller-id>",
		Short: "Change seller fields; only the flags given are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed
			var params directory.UpdateSellerParams
			if changed("name") {
				params.DisplayName = &name
			}
			if changed("contact") {
				params.ContactHandle = &contact
			}
			if changed("specialty") {
				params.Specialty = &specialty
			}
			if changed("max-clients") {
				params.MaxClients = &maxClients
			}
			if changed("interval") {
				params.NotificationIntervalMinutes = &interval
			}
			if changed("rating") {
				params.Rating = &rating
			}
			if changed("work-start") {
				params.WorkStart = &workStart
			}
			if changed("work-end") {
				params.WorkEnd = &workEnd
			}

			seller, err := a.directory().UpdateSeller(cmd.Context(), args[0], params)
			if err != nil {
				return fmt.Errorf("seller update: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okColor.Sprint("updated"), seller.SellerID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "display name")
	f.StringVar(&contact, "contact", "", "WhatsApp number")
	f.StringVar(&specialty, "specialty", "", "routing specialty")
	f.IntVar(&maxClients, "max-clients", 0, "concurrent conversation capacity")
	f.IntVar(&interval, "interval", 0, "minutes between reminders")
	f.Float64Var(&rating, "rating", 0, "seller rating")
	f.StringVar(&workStart, "work-start", "", "shift start, HH:MM")
	f.StringVar(&workEnd, "work-end", "", "shift end, HH:MM")
	return cmd
}

func newSellerDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <seller-id>",
		Short: "Remove a seller without active clients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.directory().DeleteSeller(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("seller delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okColor.Sprint("deleted"), args[0])
			return nil
		},
	}
}

func newSellerStatusCmd(a *app) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "status <seller-id> [online|offline|busy]",
		Short: "Set presence and, with --active, routing eligibility",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setActive := cmd.Flags().Changed("active")
			if len(args) == 1 && !setActive {
				return fmt.Errorf("seller status: give a status or --active")
			}

			dir := a.directory()
			var seller model.SellerItem
			var err error
			if len(args) == 2 {
				if seller, err = dir.SetStatus(cmd.Context(), args[0], model.SellerStatus(args[1])); err != nil {
					return fmt.Errorf("seller status: %w", err)
				}
			}
			if setActive {
				if seller, err = dir.SetActive(cmd.Context(), args[0], active); err != nil {
					return fmt.Errorf("seller status: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s, active=%t\n",
				seller.SellerID, statusColor(seller.Status).Sprint(seller.Status), seller.Active)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "whether the seller receives new conversations")
	return cmd
}

func newDayOffCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dayoff",
		Short: "Manage seller days off",
	}

	var reason string
	add := &cobra.Command{
		Use:   "add <seller-id> <YYYY-MM-DD>",
		Short: "Mark a day off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.directory().AddDayOff(cmd.Context(), args[0], args[1], reason); err != nil {
				return fmt.Errorf("dayoff add: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s off on %s\n", okColor.Sprint("added"), args[0], args[1])
			return nil
		},
	}
	add.Flags().StringVar(&reason, "reason", "", "why the seller is off")

	remove := &cobra.Command{
		Use:   "remove <seller-id> <YYYY-MM-DD>",
		Short: "Clear a day off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.directory().RemoveDayOff(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("dayoff remove: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s day off %s for %s\n", okColor.Sprint("removed"), args[1], args[0])
			return nil
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}
