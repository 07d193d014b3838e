// ABOUTME: CLI commands for the Charm KV storage backend
// ABOUTME: Link, status, manual sync, auto-sync toggle and wipe

package charm

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lokesh75way/confirmed-add-in/cache"
)

// LinkCommand links this device to a Charm account. Charm authenticates
// with the local SSH key, so there is nothing to type.
func LinkCommand(args []string) error {
	fs := flag.NewFlagSet("storage link", flag.ExitOnError)
	host := fs.String("host", "", "Charm server host")
	_ = fs.Parse(args)

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *host != "" {
		if err := cfg.SetHost(*host); err != nil {
			return fmt.Errorf("failed to save host: %w", err)
		}
	}

	fmt.Printf("Linking to Charm Cloud (%s)...\n\n", cfg.Host)

	c, err := Open(cfg, nil)
	if err != nil {
		return err
	}
	if err := c.Sync(); err != nil {
		return fmt.Errorf("link failed: %w", err)
	}

	if id, err := c.ID(); err != nil {
		fmt.Println("✓ Device linked (ID unavailable)")
	} else {
		fmt.Printf("✓ Linked to account: %s\n", id)
	}
	fmt.Printf("✓ Auto-sync: %v\n", cfg.AutoSync)
	return nil
}

// StatusCommand shows the sync configuration and what is cached.
func StatusCommand(args []string) error {
	fs := flag.NewFlagSet("storage status", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Charm Storage Status")
	fmt.Println("────────────────────")
	fmt.Printf("Server:    %s\n", cfg.Host)
	fmt.Printf("Auto-sync: %v\n", cfg.AutoSync)

	c, err := Open(cfg, nil)
	if err != nil {
		fmt.Println("\nStatus: Not connected")
		return nil //nolint:nilerr // not being connected is a state to report
	}
	if id, err := c.ID(); err != nil {
		fmt.Println("\nStatus: Connected (ID unavailable)")
	} else {
		fmt.Printf("\nStatus: Connected\nID:        %s\n", id)
	}

	printCacheSummary(c)
	return nil
}

func printCacheSummary(c *Client) {
	keys, err := c.Keys()
	if err == nil {
		fmt.Printf("Keys:      %d\n", len(keys))
	}
	store := cache.NewStore(c, log.Default())
	for _, name := range []string{cache.MeetingContacts, cache.CRMContacts} {
		users := store.Users(name)
		fmt.Printf("%-27s %d user(s)\n", name+":", len(users))
	}
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(args []string) error {
	fs := flag.NewFlagSet("storage sync", flag.ExitOnError)
	_ = fs.Parse(args)

	c, err := Open(nil, nil)
	if err != nil {
		return err
	}
	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Println("✓ Synced")
	return nil
}

// AutoSyncCommand enables or disables auto-sync.
func AutoSyncCommand(args []string) error {
	fs := flag.NewFlagSet("storage auto", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	_ = fs.Parse(args)

	if *enable == *disable {
		fmt.Println("Usage: confirmed storage auto --enable|--disable")
		return nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.SetAutoSync(*enable); err != nil {
		return fmt.Errorf("failed to save auto-sync: %w", err)
	}
	if *enable {
		fmt.Println("✓ Auto-sync enabled")
	} else {
		fmt.Println("✓ Auto-sync disabled")
	}
	return nil
}

// WipeCommand deletes every key, including all users' contact caches.
func WipeCommand(args []string) error {
	fs := flag.NewFlagSet("storage wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Println("WARNING: This deletes every cached contact and stored credential!")
		fmt.Println()
		fmt.Println("To confirm, run:")
		fmt.Println("  confirmed storage wipe --confirm")
		return nil
	}

	c, err := Open(nil, nil)
	if err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}
	fmt.Println("✓ All data wiped")
	return nil
}
