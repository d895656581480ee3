package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

// plainWidths are the fixed column widths used by PlainTable.
var plainWidths = []int{24, 12, 22, 6, 6, 19}

// PlainTable writes each render as a plain-text table, for non-TTY output
// and `qdash watch --plain`. It implements reconcile.TableSink.
type PlainTable struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewPlainTable writes to w.
func NewPlainTable(w io.Writer) *PlainTable {
	return &PlainTable{w: w, now: time.Now}
}

func (p *PlainTable) RenderRows(rows []reconcile.TableRow) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "── jobs @ %s ──\n", p.now().Format("15:04:05"))
	sb.WriteString(plainLine(reconcile.Columns))
	sb.WriteString(plainRule())
	for _, r := range rows {
		if r.IsMessage() {
			sb.WriteString("  " + r.Message + "\n")
			continue
		}
		cells := r.Cells()
		cells[1] = StatusGlyph(r.Class) + " " + cells[1]
		sb.WriteString(plainLine(cells))
	}
	_, _ = io.WriteString(p.w, sb.String())
}

func (p *PlainTable) ShowNotice(n reconcile.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("── jobs @ %s ──\n  ! %s\n", p.now().Format("15:04:05"), n.Text)
	if n.Err != nil {
		line += fmt.Sprintf("    (%v)\n", n.Err)
	}
	_, _ = io.WriteString(p.w, line)
}

func plainLine(cells []string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		w := 12
		if i < len(plainWidths) {
			w = plainWidths[i]
		}
		parts[i] = fit(c, w)
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ") + "\n"
}

func plainRule() string {
	parts := make([]string, len(plainWidths))
	for i, w := range plainWidths {
		parts[i] = strings.Repeat("─", w)
	}
	return strings.Join(parts, "  ") + "\n"
}

// PlainChartSink prints the distribution as text bars. It implements
// reconcile.ChartSink.
type PlainChartSink struct {
	w     io.Writer
	chart *plainChart
}

// NewPlainChartSink writes to w.
func NewPlainChartSink(w io.Writer) *PlainChartSink {
	return &PlainChartSink{w: w}
}

func (s *PlainChartSink) NewChart(data reconcile.ChartData) reconcile.Chart {
	s.chart = &plainChart{w: s.w}
	s.chart.Update(data)
	return s.chart
}

type plainChart struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *plainChart) Update(data reconcile.ChartData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, FormatDistribution(data, 30))
}

// FormatDistribution renders one line per slice: label, count, share and a
// bar scaled to barWidth cells.
func FormatDistribution(data reconcile.ChartData, barWidth int) string {
	total := data.Total()
	if total == 0 {
		return "  distribution: (none)\n"
	}
	var sb strings.Builder
	sb.WriteString("  distribution:\n")
	for i, label := range data.Labels {
		v := data.Values[i]
		n := v * barWidth / total
		if n == 0 && v > 0 {
			n = 1
		}
		fmt.Fprintf(&sb, "    %s %4d %5.1f%%  %s\n",
			fit(label, 12), v, 100*float64(v)/float64(total), strings.Repeat("█", n))
	}
	fmt.Fprintf(&sb, "    %s %4d\n", fit("total", 12), total)
	return sb.String()
}
