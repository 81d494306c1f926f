// ABOUTME: Shared CLI output helpers
// ABOUTME: Console notification sink and the writer every command prints to
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harperreed/leadpipe/notify"
)

// stdout is replaced in tests.
var stdout io.Writer = os.Stdout

// NewConsoleNotifier prints notifications to w, one per line.
func NewConsoleNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(n notify.Notification) {
		prefix := "ℹ"
		switch n.Level {
		case notify.Success:
			prefix = "✓"
		case notify.Error:
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", prefix, n.Message)
	})
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// splitList turns "a, b,c" into [a b c]. An empty string yields nil.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
