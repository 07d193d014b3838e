// ABOUTME: Cache inspection CLI commands
// ABOUTME: Shows cached sources with age and staleness, the sync state and sync history
package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/lokesh75way/confirmed-add-in/db"
	"github.com/lokesh75way/confirmed-add-in/handlers"
)

// CacheStatusCommand prints every cached source for the signed-in user, or
// for every user with --all.
func CacheStatusCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("cache status", flag.ExitOnError)
	all := fs.Bool("all", false, "Show every cached user")
	_ = fs.Parse(args)

	h := handlers.NewCacheHandlers(app.HandlerDeps())
	_, status, err := h.CacheStatus(ctx, nil, handlers.CacheStatusInput{AllUsers: *all})
	if err != nil {
		return err
	}

	if len(status.Entries) == 0 {
		app.println("No cached contacts")
	} else {
		w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CACHE\tUSER\tCONTACTS\tAGE\tSTALE")
		_, _ = fmt.Fprintln(w, "-----\t----\t--------\t---\t-----")
		for _, e := range status.Entries {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%v\n", e.Cache, e.UserID, e.Count, e.Age, e.Stale)
		}
		_ = w.Flush()
	}

	if app.DB != nil {
		state, err := db.GetSyncState(app.DB, db.MeetingSyncService)
		if err != nil {
			return fmt.Errorf("failed to read sync state: %w", err)
		}
		if state != nil {
			app.printf("\nMeeting sync: %s\n", state.Status)
			if state.LastSyncTime != nil {
				app.printf("  Last sync: %s\n", state.LastSyncTime.Local().Format("2006-01-02 15:04"))
			}
			if state.ErrorMessage != "" {
				app.printf("  Last error: %s\n", state.ErrorMessage)
			}
			if s := state.LastStats; s != nil {
				app.printf("  Last run: %d new, %d updated, %d total\n", s.NewContacts, s.UpdatedContacts, s.TotalContacts)
			}
		}
	} else if status.LastSync != "" {
		app.printf("\nLast sync: %s\n", status.LastSync)
	}
	return nil
}

// SyncHistoryCommand prints contacts recently added or updated by sync.
func SyncHistoryCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("cache history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum entries")
	_ = fs.Parse(args)

	h := handlers.NewCacheHandlers(app.HandlerDeps())
	_, history, err := h.SyncHistory(ctx, nil, handlers.SyncHistoryInput{Limit: *limit})
	if err != nil {
		return err
	}
	if history.Count == 0 {
		app.println("No synced contacts yet")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tACTION\tNAME\tEMAIL")
	_, _ = fmt.Fprintln(w, "----\t------\t----\t-----")
	for _, e := range history.Entries {
		when := e.SyncedAt
		if t, err := time.Parse(time.RFC3339, e.SyncedAt); err == nil {
			when = t.Local().Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n", when, e.Action, e.Contact.FirstName, e.Contact.LastName, e.Contact.Email)
	}
	return w.Flush()
}
