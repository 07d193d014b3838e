// ABOUTME: Contact CLI commands
// ABOUTME: Lists the aggregated contacts and runs the manual meeting sync
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

// ContactsListCommand prints the aggregated contacts.
func ContactsListCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("contacts list", flag.ExitOnError)
	query := fs.String("query", "", "Filter by name or email")
	crmOnly := fs.Bool("crm", false, "Only Salesforce contacts and leads")
	source := fs.String("source", "", "Only one source (external, meeting, salesforce-contact, salesforce-lead)")
	limit := fs.Int("limit", 50, "Maximum number of contacts to show")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	wait := fs.Bool("wait", false, "Print after stale caches are refreshed instead of before")
	_ = fs.Parse(args)

	in, err := app.Inputs()
	if err != nil {
		return err
	}

	snap := app.Engine.Load(ctx, in)
	if *wait && snap.IsRefreshing {
		app.Engine.Wait()
		snap = app.Engine.Snapshot()
	}
	if snap.Err != nil && len(snap.Contacts) == 0 {
		return fmt.Errorf("failed to load contacts: %w", snap.Err)
	}

	contacts := contactsync.FilterContacts(snap.Contacts, *query)
	contacts = filterBySource(contacts, *source, *crmOnly)
	total := len(contacts)
	if *limit > 0 && len(contacts) > *limit {
		contacts = contacts[:*limit]
	}

	if *asJSON {
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(contacts)
	}

	if total == 0 {
		app.println("No contacts found")
	} else {
		w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tPHONE\tSOURCE")
		_, _ = fmt.Fprintln(w, "----\t-----\t-----\t------")
		for _, c := range contacts {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.DisplayName(), c.Email, c.PhoneValue(), c.Source)
		}
		_ = w.Flush()
		app.printf("\nShowing %d of %d contacts\n", len(contacts), total)
	}

	if snap.Err != nil {
		app.printf("warning: %v\n", snap.Err)
	}
	// The process exits after printing, so a scheduled refresh has to finish
	// here or the stale cache is never rewritten.
	if snap.IsRefreshing {
		app.println("Refreshing stale caches...")
		app.Engine.Wait()
		app.println("✓ Caches refreshed")
	}
	return nil
}

func filterBySource(contacts []models.Contact, source string, crmOnly bool) []models.Contact {
	if source == "" && !crmOnly {
		return contacts
	}
	out := []models.Contact{}
	for _, c := range contacts {
		if crmOnly && !c.Source.IsCRM() {
			continue
		}
		if source != "" && string(c.Source) != source {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ContactsSyncCommand pulls recent meeting recipients into the cache.
func ContactsSyncCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("contacts sync", flag.ExitOnError)
	_ = fs.Parse(args)

	token, err := app.Token()
	if err != nil {
		return err
	}

	result := app.Reconciler.Sync(ctx, token)
	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}

	app.printf("✓ %s\n", result.Message)
	if stats := app.Reconciler.Stats(); stats != nil {
		app.printf("  Meetings: %d of %d processed\n", stats.MeetingsProcessed, stats.TotalMeetings)
		app.printf("  New: %d  Updated: %d  Total cached: %d\n", stats.NewContacts, stats.UpdatedContacts, stats.TotalContacts)
		if stats.SkippedContacts > 0 {
			app.printf("  Skipped: %d\n", stats.SkippedContacts)
		}
		for _, e := range stats.Errors {
			app.printf("  warning: %s\n", e)
		}
	}
	return nil
}
