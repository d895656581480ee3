package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# qdash

Live view of the remote job queue. The table lists every job in queue order;
the donut shows how many jobs are in each status.

| Key | Action |
|-----|--------|
| ↑/↓, j/k | move the selection |
| r | refresh now |
| c | submit a Completed job |
| u | submit a Queued job |
| x | submit a Rejected job |
| y | copy the selected job id |
| e | export the chart (SVG) |
| l | toggle the chart legend |
| ? | toggle this help |
| enter / esc | dismiss a notice |
| q / ctrl+c | quit |

After a successful submission the dashboard refreshes once, shortly after the
server acknowledges the job. A red footer means the last refresh failed and
the view shows the last data that loaded.
`

// renderHelp renders the help text for the given width, falling back to the
// raw markdown when glamour cannot build a renderer.
func renderHelp(width int) string {
	wrap := width - 4
	if wrap < 40 {
		wrap = 40
	}
	if wrap > 90 {
		wrap = 90
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return strings.TrimRight(out, "\n")
}
