// ABOUTME: Meeting CLI commands
// ABOUTME: Lists meeting invitations with their status, sends reminders and withdraws invitations
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/lokesh75way/confirmed-add-in/models"
)

// MeetingsListCommand prints one page of meetings, newest first.
func MeetingsListCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("meetings list", flag.ExitOnError)
	page := fs.Int("page", 0, "Zero-based page number")
	size := fs.Int("size", 0, "Results per page (default from config)")
	subject := fs.String("subject", "", "Filter by subject")
	days := fs.Int("days", 0, "Only meetings created in the last N days")
	_ = fs.Parse(args)

	token, err := app.Token()
	if err != nil {
		return err
	}

	q := models.MeetingQuery{
		Subject:        *subject,
		PageNumber:     *page,
		ResultsPerPage: *size,
		SortBy:         "CreateDate",
		SortDirection:  "desc",
	}
	if q.ResultsPerPage <= 0 {
		q.ResultsPerPage = app.Config.PageSize
	}
	if *days > 0 {
		q.EndDate = time.Now()
		q.StartDate = q.EndDate.AddDate(0, 0, -*days)
	}

	result, err := app.Client.ListMeetings(ctx, token, q)
	if err != nil {
		return fmt.Errorf("failed to list meetings: %w", err)
	}
	if len(result.Meetings) == 0 {
		app.println("No meetings found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tRECIPIENT\tSUBJECT\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "-------\t---------\t-------\t------\t--")
	for _, m := range result.Meetings {
		_, _ = fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
			meetingDate(m.CreateDate), m.RecipientFirstName, m.RecipientLastName,
			m.Subject, models.InvitationStatus(m.Status), m.ID)
	}
	_ = w.Flush()

	app.printf("\nPage %d, %d meetings in total\n", q.PageNumber, result.TotalRecords)
	return nil
}

func meetingDate(raw string) string {
	c := models.Contact{CreateDate: raw}
	if t, ok := c.CreatedAt(); ok {
		return t.Local().Format("2006-01-02")
	}
	return raw
}

// MeetingsRemindCommand emails the recipient of a meeting again.
func MeetingsRemindCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("meetings remind", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: meetings remind <meeting-id>")
	}
	id := fs.Arg(0)

	token, err := app.Token()
	if err != nil {
		return err
	}
	if err := app.Client.SendReminder(ctx, token, id); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	app.printf("✓ Reminder sent for meeting %s\n", id)
	return nil
}

// MeetingsWithdrawCommand withdraws a meeting invitation. It needs --yes.
func MeetingsWithdrawCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("meetings withdraw", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm the withdrawal")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: meetings withdraw --yes <meeting-id>")
	}
	id := fs.Arg(0)
	if !*yes {
		return fmt.Errorf("withdrawing meeting %s cannot be undone, pass --yes to confirm", id)
	}

	token, err := app.Token()
	if err != nil {
		return err
	}
	if err := app.Client.WithdrawInvitation(ctx, token, id); err != nil {
		return fmt.Errorf("failed to withdraw meeting: %w", err)
	}
	app.printf("✓ Withdrew meeting %s\n", id)
	return nil
}
