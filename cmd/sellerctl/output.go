package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"sales-routing-backend/internal/model"

	"github.com/fatih/color"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgHiGreen)
	headColor  = color.New(color.Bold)
)

func statusColor(status model.SellerStatus) *color.Color {
	switch status {
	case model.SellerStatusOnline:
		return color.New(color.FgHiGreen)
	case model.SellerStatusBusy:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgHiBlack)
}

func loadColor(pct float64) *color.Color {
	switch {
	case pct >= 100:
		return color.New(color.FgRed)
	case pct >= 75:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgHiGreen)
}

func activeLabel(active bool) string {
	if active {
		return "yes"
	}
	return color.New(color.FgHiBlack).Sprint("no")
}

func printSellers(w io.Writer, sellers []model.SellerItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, headColor.Sprint("ID\tNAME\tCONTACT\tSPECIALTY\tSTATUS\tACTIVE\tCLIENTS\tHOURS\tDAYS OFF"))
	for _, s := range sellers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\t%s-%s\t%d\n",
			s.SellerID, s.DisplayName, s.ContactHandle, s.Specialty,
			statusColor(s.Status).Sprint(s.Status), activeLabel(s.Active),
			s.CurrentClients, s.MaxClients, s.WorkStart, s.WorkEnd, len(s.DaysOff))
	}
	tw.Flush()
}
