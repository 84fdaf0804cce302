package main

import (
	"fmt"

	"sales-routing-backend/internal/service/operator"

	"github.com/spf13/cobra"
)

func newOperatorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage dashboard operator accounts",
	}

	var params operator.CreateParams
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an operator who can log in to the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := operator.NewWithRepository(a.stores.Operators, nil, nil)
			op, err := svc.Create(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("operator create: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s operator %s (%s)\n", okColor.Sprint("created"), op.Email, op.OperatorID)
			return nil
		},
	}
	create.Flags().StringVar(&params.Email, "email", "", "login email")
	create.Flags().StringVar(&params.Name, "name", "", "display name")
	create.Flags().StringVar(&params.Password, "password", "", "initial password, at least 8 characters")
	create.MarkFlagRequired("email")
	create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := operator.NewWithRepository(a.stores.Operators, nil, nil).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("operator list: %w", err)
			}
			for _, op := range ops {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", op.OperatorID, op.Email, op.Name)
			}
			return nil
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
