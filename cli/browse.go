// ABOUTME: Interactive contacts browser subcommand
// ABOUTME: Opens the full-screen TUI over the app's engine and reconciler
package cli

import (
	"context"
	"flag"

	"github.com/lokesh75way/confirmed-add-in/tui"
)

// BrowseCommand starts the TUI for the signed-in user.
func BrowseCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	_ = fs.Parse(args)

	in, err := app.Inputs()
	if err != nil {
		return err
	}
	return tui.Run(ctx, app.Engine, app.Reconciler, in)
}
