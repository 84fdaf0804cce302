package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newWorkloadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "workload",
		Short: "Show per-seller load and directory totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.directory()
			rows, err := dir.Workload(cmd.Context())
			if err != nil {
				return fmt.Errorf("workload: %w", err)
			}
			stats, err := dir.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("workload: %w", err)
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, headColor.Sprint("ID\tNAME\tSTATUS\tCLIENTS\tLOAD\tAVAILABLE"))
			for _, w := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%t\n",
					w.SellerID, w.DisplayName, statusColor(w.Status).Sprint(w.Status),
					w.CurrentClients, w.MaxClients,
					loadColor(w.LoadPercent).Sprintf("%.1f%%", w.LoadPercent), w.Available)
			}
			tw.Flush()

			fmt.Fprintf(out, "\n%d sellers, %d active, %d online, %d/%d clients\n",
				stats.Total, stats.Active, stats.Online, stats.TotalLoad, stats.TotalCapacity)
			return nil
		},
	}
}
