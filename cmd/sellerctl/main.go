package main

import (
	"fmt"
	"os"

	"sales-routing-backend/internal/env"
	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/stores"

	"github.com/spf13/cobra"
)

type app struct {
	backend string
	dbPath  string
	stores  *stores.Stores
	owned   bool
}

func (a *app) directory() *directory.Service {
	return directory.NewWithRepository(a.stores.Sellers, nil)
}

// newRootCmd builds the CLI. A non-nil st is used as is, which is how tests
// share one in-memory database across commands.
func newRootCmd(st *stores.Stores) *cobra.Command {
	a := &app{stores: st}

	root := &cobra.Command{
		Use:           "sellerctl",
		Short:         "Manage the seller directory and operator accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.stores != nil {
				return nil
			}
			opened, err := stores.Open(cmd.Context(), stores.Options{Backend: a.backend, SQLitePath: a.dbPath})
			if err != nil {
				return err
			}
			a.stores, a.owned = opened, true
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.owned {
				return a.stores.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.backend, "backend", env.GetOrDefault(env.DirectoryBackend, env.BackendSQLite), "directory backend: sqlite or dynamodb")
	root.PersistentFlags().StringVar(&a.dbPath, "db", env.GetOrDefault(env.SQLitePath, stores.DefaultSQLitePath), "sqlite database path")

	root.AddCommand(
		newSellerCmd(a),
		newWorkloadCmd(a),
		newOperatorCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}
