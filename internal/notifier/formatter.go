package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"PriceLakehouse/internal/recorder"
)

// FormatRunReport formats a finished run into a Telegram message.
func FormatRunReport(evt *recorder.RunEvent, failed []string) string {
	var b strings.Builder

	icon := "✅"
	if evt.State != "done" {
		icon = "❌"
	}
	fmt.Fprintf(&b, "%s <b>Price ingest %s</b> | %s\n\n", icon, evt.State, evt.Partition)
	fmt.Fprintf(&b, "Window: %s\n", html.EscapeString(evt.Window))
	fmt.Fprintf(&b, "Rows: %d from %d/%d symbols\n", evt.Rows, evt.LoadedSymbols, evt.Symbols)
	if empty := evt.Symbols - evt.FailedSymbols - evt.LoadedSymbols; empty > 0 {
		fmt.Fprintf(&b, "No data: %d symbols\n", empty)
	}
	if evt.URI != "" {
		fmt.Fprintf(&b, "Snapshot: <code>%s</code>\n", html.EscapeString(evt.URI))
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Failed symbols: %s\n", html.EscapeString(strings.Join(failed, ", ")))
	}
	if evt.FailedAt != "" {
		fmt.Fprintf(&b, "\nFailed in state <b>%s</b>: %s\n", evt.FailedAt, html.EscapeString(evt.Error))
	}
	fmt.Fprintf(&b, "\nRun %s took %s", evt.RunID, evt.Duration().Round(100*time.Millisecond))
	return b.String()
}
