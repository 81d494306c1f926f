// ABOUTME: Interactive board subcommand
// ABOUTME: Starts the kanban TUI when attached to a terminal
package cli

import (
	"errors"
	"flag"
	"os"

	"golang.org/x/term"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/tui"
)

var ErrNotTerminal = errors.New("the board needs an interactive terminal")

// TUICommand runs the kanban board. notes should be registered on a as a
// notifier so outcomes show up in the status line.
func TUICommand(a *app.App, notes *notify.Recorder, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	_ = fs.Parse(args)

	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrNotTerminal
	}
	return tui.Run(a.Repo, a.Messaging, a.Session, notes)
}
