// ABOUTME: Entry point for the Confirmed contacts CLI and MCP server
// ABOUTME: Routes to MCP server or CLI commands based on arguments
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/lokesh75way/confirmed-add-in/charm"
	"github.com/lokesh75way/confirmed-add-in/cli"
	"github.com/lokesh75way/confirmed-add-in/config"
	"github.com/lokesh75way/confirmed-add-in/logging"
)

const version = "0.1.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "SQLite database path (default: ~/.local/share/confirmed/confirmed.db)")
	storage := flag.String("storage", "", "Storage backend: sqlite or charm")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("confirmed version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *storage != "" {
		cfg.Storage = *storage
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logOut, closeLog := logOutput(args[0])
	defer closeLog()
	logger := logging.Setup(cfg.LogLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, args[0], args[1:]); err != nil {
		stop()
		closeLog()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// logOutput keeps the full-screen browser clean by sending its logs to a
// file in the data directory. Other commands log to stderr.
func logOutput(command string) (io.Writer, func()) {
	if command != "browse" {
		return nil, func() {}
	}
	if err := os.MkdirAll(config.Dir(), 0700); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(config.Dir(), "confirmed.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, command string, commandArgs []string) error {
	// Commands that do not need the contacts pipeline.
	switch command {
	case "google":
		if len(commandArgs) == 0 || commandArgs[0] != "link" {
			return usageError("google requires a subcommand: link")
		}
		return cli.GoogleLinkCommand(ctx, commandArgs[1:])
	case "storage":
		return runStorage(commandArgs)
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	sub, subArgs := "", []string(nil)
	if len(commandArgs) > 0 {
		sub, subArgs = commandArgs[0], commandArgs[1:]
	}

	switch command {
	case "mcp":
		return cli.MCPCommand(ctx, app, version)
	case "browse":
		return cli.BrowseCommand(ctx, app, commandArgs)
	case "login":
		return cli.LoginCommand(ctx, app, commandArgs)
	case "logout":
		return cli.LogoutCommand(app, commandArgs)
	case "contacts":
		switch sub {
		case "list":
			return cli.ContactsListCommand(ctx, app, subArgs)
		case "sync":
			return cli.ContactsSyncCommand(ctx, app, subArgs)
		}
		return usageError("contacts requires a subcommand: list or sync")
	case "meetings":
		switch sub {
		case "list":
			return cli.MeetingsListCommand(ctx, app, subArgs)
		case "remind":
			return cli.MeetingsRemindCommand(ctx, app, subArgs)
		case "withdraw":
			return cli.MeetingsWithdrawCommand(ctx, app, subArgs)
		}
		return usageError("meetings requires a subcommand: list, remind or withdraw")
	case "flexcals":
		if sub == "list" {
			return cli.FlexCalsListCommand(ctx, app, subArgs)
		}
		return usageError("flexcals requires a subcommand: list")
	case "cache":
		switch sub {
		case "status":
			return cli.CacheStatusCommand(ctx, app, subArgs)
		case "history":
			return cli.SyncHistoryCommand(ctx, app, subArgs)
		}
		return usageError("cache requires a subcommand: status or history")
	default:
		return usageError(fmt.Sprintf("unknown command: %s", command))
	}
}

func runStorage(args []string) error {
	if len(args) == 0 {
		return usageError("storage requires a subcommand")
	}
	switch args[0] {
	case "link":
		return charm.LinkCommand(args[1:])
	case "status":
		return charm.StatusCommand(args[1:])
	case "sync":
		return charm.SyncNowCommand(args[1:])
	case "auto-sync":
		return charm.AutoSyncCommand(args[1:])
	case "wipe":
		return charm.WipeCommand(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown storage command: %s", args[0]))
	}
}

func usageError(msg string) error {
	printUsage()
	return fmt.Errorf("%s", msg)
}

func printUsage() {
	fmt.Printf(`confirmed v%s - Contacts, meetings and scheduling links from Confirmed

USAGE:
  confirmed [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       SQLite database path (default: ~/.local/share/confirmed/confirmed.db)
  --storage <backend>    sqlite (default) or charm
  --log-level <level>    debug, info, warn or error

COMMANDS:
  mcp                    Start MCP server for Claude Desktop
  login                  Store a Confirmed access token
    --token <token>          Access token (prompted when omitted)
    --verify                 Check the token against the userinfo endpoint
  logout                 Remove credentials, keep contacts caches
  browse                 Interactive contacts browser (logs go to the data directory)

  contacts list          List aggregated contacts
    --query <text>           Filter by name or email
    --crm                    Only Salesforce contacts and leads
    --source <source>        Only one source
    --limit <n>              Max results (default: 50)
    --json                   Print JSON
    --wait                   Print after stale caches are refreshed
  contacts sync          Add recipients of recent meetings to the cache

  meetings list          List meeting invitations
    --page <n>               Zero-based page
    --size <n>               Results per page
    --subject <text>         Filter by subject
    --days <n>               Only the last N days
  meetings remind <id>   Email the recipient a reminder
  meetings withdraw --yes <id>
                         Withdraw an invitation

  flexcals list          List scheduling links with their booking URLs
    --page <n>               Zero-based page
    --size <n>               Results per page (default: 10)
    --name <text>            Filter by name

  cache status           Show cached sources, age and staleness
    --all                    Every cached user
  cache history          Contacts added or updated by sync (sqlite only)
    --limit <n>              Max entries (default: 20)

  google link            Use Google Contacts as the directory source
    --use                    Switch the directory source to Google

  storage link           Link this device to Charm Cloud
    --host <host>            Charm server host
  storage status         Show Charm sync status
  storage sync           Sync with Charm Cloud now
  storage auto-sync on|off
  storage wipe           Delete all locally stored data

ENVIRONMENT:
  CONFIRMED_BASE_URL, CONFIRMED_STORAGE, CONFIRMED_DB_PATH, CONFIRMED_LOG_LEVEL,
  CONFIRMED_SALESFORCE_CONNECTED, CONFIRMED_USER_NAME, CONFIRMED_PAGE_SIZE,
  CONFIRMED_MAX_PAGES, CONFIRMED_SYNC_LIMIT, CONFIRMED_LOOKBACK_DAYS,
  CONFIRMED_CACHE_TTL_DAYS, CONFIRMED_DIRECTORY_SOURCE

EXAMPLES:
  # Sign in and list contacts
  confirmed login
  confirmed contacts list --query acme.com

  # Pull the last 30 days of meeting recipients
  confirmed contacts sync

  # Start MCP server for Claude Desktop
  confirmed mcp

`, version)
}
