// ABOUTME: Scheduling link CLI commands
// ABOUTME: Lists one page of the user's FlexCals with their booking links
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/lokesh75way/confirmed-add-in/confirmed"
	"github.com/lokesh75way/confirmed-add-in/models"
)

// FlexCalsListCommand prints one page of scheduling links.
func FlexCalsListCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("flexcals list", flag.ExitOnError)
	page := fs.Int("page", 0, "Zero-based page number")
	size := fs.Int("size", 10, "Results per page")
	name := fs.String("name", "", "Filter by name")
	_ = fs.Parse(args)

	token, err := app.Token()
	if err != nil {
		return err
	}

	result, err := app.Client.ListFlexCals(ctx, token, models.FlexCalQuery{
		NameFilter:     *name,
		PageNumber:     *page,
		ResultsPerPage: *size,
	})
	if err != nil {
		return fmt.Errorf("failed to list flexcals: %w", err)
	}
	if len(result.FlexCals) == 0 {
		app.println("No flexcals found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tDATES\tLINK")
	_, _ = fmt.Fprintln(w, "----\t-----\t----")
	for _, fc := range result.FlexCals {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", fc.Name, flexCalDates(fc), confirmed.SchedulerLink(fc.ID))
	}
	_ = w.Flush()

	app.printf("\nPage %d, %d flexcals in total\n", *page, result.TotalRecords)
	return nil
}

func flexCalDates(fc models.FlexCal) string {
	if fc.Evergreen {
		return "evergreen"
	}
	return meetingDate(fc.StartDate) + " - " + meetingDate(fc.EndDate)
}
