// ABOUTME: Chat CLI commands
// ABOUTME: Send simulated WhatsApp messages, show a lead's history and search the message log
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
)

// ChatSendCommand sends a message to a lead as the logged-in user. With --wait
// the process stays up until the delivery and any auto-reply have happened.
func ChatSendCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("chat send", flag.ExitOnError)
	leadID := fs.String("lead", "", "Lead ID (required)")
	message := fs.String("message", "", "Message text")
	attachKind := fs.String("attach-type", "", "Attachment type: image, document, audio or video")
	attachURL := fs.String("attach-url", "", "Attachment URL")
	attachName := fs.String("attach-name", "", "Attachment file name")
	wait := fs.Bool("wait", false, "Wait for delivery and replies before exiting")
	timeout := fs.Duration("timeout", time.Minute, "Maximum time to wait with --wait")
	_ = fs.Parse(args)

	if *leadID == "" {
		return fmt.Errorf("--lead is required")
	}
	var attachments []models.Attachment
	if *attachKind != "" || *attachURL != "" {
		attachments = append(attachments, models.Attachment{Kind: *attachKind, URL: *attachURL, Name: *attachName})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	msg, err := a.Messaging.Send(ctx, a.Session.CurrentUser(), *leadID, *message, attachments)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ Sent to %s (ID: %s, status: %s)\n", a.Repo.LeadName(msg.LeadID), msg.ID, msg.Status)

	if !*wait {
		return nil
	}
	fmt.Fprintln(stdout, "Waiting for replies...")
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := a.Scheduler.Wait(ctx); err != nil {
		return fmt.Errorf("stopped waiting: %w", err)
	}
	printHistory(a, *leadID)
	return nil
}

// ChatHistoryCommand prints the conversation with a lead.
func ChatHistoryCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("chat history", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("lead ID required")
	}
	if _, err := a.Repo.Lead(fs.Arg(0)); err != nil {
		return err
	}
	printHistory(a, fs.Arg(0))
	return nil
}

func printHistory(a *app.App, leadID string) {
	history := a.Messaging.History(leadID)
	fmt.Fprintf(stdout, "Chat with %s\n", a.Repo.LeadName(leadID))
	fmt.Fprintln(stdout, "─────────────────")
	if len(history) == 0 {
		fmt.Fprintln(stdout, "No messages yet")
		return
	}
	for _, m := range history {
		who := a.Repo.LeadName(m.LeadID)
		if m.Direction == models.DirectionOutgoing {
			who = a.Repo.UserName(m.UserID)
		}
		fmt.Fprintf(stdout, "[%s] %s: %s", formatTime(m.Timestamp), who, m.Content)
		if m.Direction == models.DirectionOutgoing {
			fmt.Fprintf(stdout, " (%s)", m.Status)
		}
		fmt.Fprintln(stdout)
		for _, att := range m.Attachments {
			fmt.Fprintf(stdout, "    📎 %s %s %s\n", att.Kind, att.Name, att.URL)
		}
	}
}

// ChatLogsCommand searches the message log across all leads.
func ChatLogsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("chat logs", flag.ExitOnError)
	query := fs.String("query", "", "Match message text or lead name")
	direction := fs.String("direction", crm.DirectionAll, "all, incoming or outgoing")
	oldest := fs.Bool("oldest", false, "Oldest first (default: newest first)")
	_ = fs.Parse(args)

	switch *direction {
	case crm.DirectionAll, models.DirectionIncoming, models.DirectionOutgoing:
	default:
		return fmt.Errorf("invalid direction %q", *direction)
	}

	entries := a.Repo.SearchMessages(*query, *direction, !*oldest)
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No messages found")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLEAD\tFROM\tDIRECTION\tSTATUS\tMESSAGE")
	fmt.Fprintln(w, "----\t----\t----\t---------\t------\t-------")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.Message.Timestamp), e.LeadName, e.Sender, e.Message.Direction, e.Message.Status, truncate(e.Message.Content, 50))
	}
	_ = w.Flush()
	fmt.Fprintf(stdout, "\nShowing %d message(s)\n", len(entries))
	return nil
}
