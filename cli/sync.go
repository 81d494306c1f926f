// ABOUTME: Sync CLI routing for the charm and badger backends
// ABOUTME: Dispatches status, now, wipe and auto to the charm client commands
package cli

import (
	"errors"
	"fmt"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/charm"
)

var ErrNoSyncBackend = errors.New("sync needs LEADPIPE_BACKEND=charm or badger")

// SyncCommand runs a sync subcommand against the charm client.
func SyncCommand(a *app.App, args []string) error {
	if a.Charm == nil {
		return ErrNoSyncBackend
	}
	if len(args) == 0 {
		return charm.SyncStatusCommand(a.Charm, nil)
	}

	// Pending writes go out before anything touches the KV directly.
	if err := a.Repo.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	switch args[0] {
	case "status":
		return charm.SyncStatusCommand(a.Charm, args[1:])
	case "now":
		return charm.SyncNowCommand(a.Charm, args[1:])
	case "wipe":
		return charm.SyncWipeCommand(a.Charm, args[1:])
	case "auto":
		return charm.SetAutoSyncCommand(a.Charm, args[1:])
	default:
		return fmt.Errorf("unknown sync command: %s", args[0])
	}
}
