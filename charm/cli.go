// ABOUTME: CLI commands for Charm KV sync operations
// ABOUTME: Status, manual sync, auto-sync toggle, and wipe for the charm backend

package charm

import (
	"flag"
	"fmt"
)

// SyncStatusCommand shows current sync configuration and status.
func SyncStatusCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg := c.Config()
	fmt.Println("Charm Sync Status")
	fmt.Println("─────────────────")
	if c.IsLocal() {
		fmt.Println("Backend:   local badger (no sync)")
	} else {
		fmt.Printf("Server:    %s\n", cfg.Host)
		fmt.Printf("Auto-sync: %v\n", cfg.AutoSync)
	}

	if keys, err := c.Keys(); err == nil {
		fmt.Printf("Keys:      %d\n", len(keys))
	}

	if c.IsLocal() {
		return nil
	}

	id, err := c.ID()
	if err != nil {
		fmt.Println("\nStatus: Not connected")
		fmt.Println("\nCharm uses SSH keys for authentication - no login required!")
		return nil //nolint:nilerr // not connected is a valid state
	}
	fmt.Println("\nStatus: Connected to Charm Cloud")
	fmt.Printf("ID:        %s\n", id)
	return nil
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Show verbose output")
	_ = fs.Parse(args)

	if *verbose {
		fmt.Println("Syncing with server...")
	}

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Println("✓ Synced")
	return nil
}

// SyncWipeCommand completely resets the KV store
// WARNING: This deletes all local data!
func SyncWipeCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("sync wipe", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "Confirm data wipe")
	_ = fs.Parse(args)

	if !*confirm {
		fmt.Println("WARNING: This will delete ALL funnels, leads, users and chat history!")
		fmt.Println()
		fmt.Println("To confirm, run:")
		fmt.Println("  leadpipe sync wipe --confirm")
		return nil
	}

	if err := c.Reset(); err != nil {
		return fmt.Errorf("failed to reset KV store: %w", err)
	}

	fmt.Println("✓ All data wiped")
	fmt.Println("Seed data will be restored on next start.")
	return nil
}

// SetAutoSyncCommand enables or disables auto-sync.
func SetAutoSyncCommand(c *Client, args []string) error {
	fs := flag.NewFlagSet("sync auto", flag.ExitOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	_ = fs.Parse(args)

	if !*enable && !*disable {
		fmt.Println("Usage: leadpipe sync auto --enable|--disable")
		return nil
	}
	if c.IsLocal() {
		return fmt.Errorf("auto-sync needs the charm backend: %w", ErrNoConfigFile)
	}

	cfg := c.Config()
	if err := cfg.SetAutoSync(*enable); err != nil {
		return fmt.Errorf("failed to update auto-sync: %w", err)
	}
	if *enable {
		fmt.Println("✓ Auto-sync enabled")
	} else {
		fmt.Println("✓ Auto-sync disabled")
	}
	return nil
}
