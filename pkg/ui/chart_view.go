package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

// DonutChart is the long-lived chart object handed to the engine. Only its
// arrays change after creation.
type DonutChart struct {
	data    reconcile.ChartData
	updates int
}

// Update replaces the chart arrays in place.
func (c *DonutChart) Update(data reconcile.ChartData) {
	c.data = data
	c.updates++
}

// Data returns the current arrays.
func (c *DonutChart) Data() reconcile.ChartData {
	return c.data
}

// Updates counts in-place updates since creation.
func (c *DonutChart) Updates() int {
	return c.updates
}

// ChartView renders the status distribution as a terminal donut. It
// implements reconcile.ChartSink and owns the single DonutChart.
type ChartView struct {
	theme   Theme
	chart   *DonutChart
	created int
	legend  bool
	width   int
	height  int
}

// NewChartView creates a chart view; the chart itself is created lazily by
// the first successful render.
func NewChartView(theme Theme, legend bool) *ChartView {
	return &ChartView{theme: theme, legend: legend, width: 40, height: 14}
}

// NewChart implements reconcile.ChartSink.
func (v *ChartView) NewChart(data reconcile.ChartData) reconcile.Chart {
	v.created++
	v.chart = &DonutChart{data: data}
	return v.chart
}

// Chart returns the chart, nil before the first successful render.
func (v *ChartView) Chart() *DonutChart {
	return v.chart
}

// Created counts NewChart calls.
func (v *ChartView) Created() int {
	return v.created
}

// ToggleLegend flips legend visibility and returns the new setting.
func (v *ChartView) ToggleLegend() bool {
	v.legend = !v.legend
	return v.legend
}

// Legend reports whether the legend is shown.
func (v *ChartView) Legend() bool {
	return v.legend
}

// SetSize sets the cell area available to the chart.
func (v *ChartView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *ChartView) View() string {
	if v.chart == nil {
		return v.theme.MutedText.Width(v.width).Align(lipgloss.Center).Render("waiting for data…")
	}
	data := v.chart.data

	legendRows := 0
	if v.legend {
		legendRows = data.Len() + 1
	}
	rows := v.height - legendRows - 1
	if rows > 13 {
		rows = 13
	}
	if rows < 5 {
		rows = 5
	}
	cols := rows * 2
	if cols > v.width {
		cols = v.width
		rows = cols / 2
	}

	ring := v.renderDonut(data, rows, cols)
	parts := []string{lipgloss.PlaceHorizontal(v.width, lipgloss.Center, ring)}

	total := v.theme.Title.Render(strconv.Itoa(data.Total()) + " jobs")
	if data.Len() == 0 {
		total = v.theme.MutedText.Render(reconcile.EmptyText)
	}
	parts = append(parts, lipgloss.PlaceHorizontal(v.width, lipgloss.Center, total))

	if v.legend && data.Len() > 0 {
		parts = append(parts, "", v.renderLegend(data, v.width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderDonut draws the ring in a rows x cols grid. Each cell is assigned to
// the slice covering its angle, measured clockwise from 12 o'clock; cells
// outside the ring are blank. Terminal cells are about twice as tall as wide,
// so cols should be 2*rows for a round shape.
func (v *ChartView) renderDonut(data reconcile.ChartData, rows, cols int) string {
	const innerRatio = 0.55
	total := data.Total()

	bounds := make([]float64, data.Len())
	acc := 0
	for i, v := range data.Values {
		acc += v
		if total > 0 {
			bounds[i] = float64(acc) / float64(total)
		}
	}

	sliceAt := func(frac float64) int {
		for i, b := range bounds {
			if frac < b {
				return i
			}
		}
		return len(bounds) - 1
	}

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		runColor := -2
		var run strings.Builder
		flush := func() {
			if run.Len() == 0 {
				return
			}
			switch {
			case runColor == -2:
				sb.WriteString(run.String())
			case runColor == -1:
				sb.WriteString(v.newStyle().Foreground(lipgloss.Color(reconcile.FallbackColor)).Render(run.String()))
			default:
				sb.WriteString(v.newStyle().Foreground(SliceFg(data, runColor)).Render(run.String()))
			}
			run.Reset()
		}

		for c := 0; c < cols; c++ {
			y := (float64(r)+0.5)/float64(rows)*2 - 1
			x := (float64(c)+0.5)/float64(cols)*2 - 1
			dist := math.Hypot(x, y)

			color := -2
			ch := " "
			if dist <= 1 && dist >= innerRatio {
				ch = "█"
				if total == 0 {
					color = -1
				} else {
					angle := math.Atan2(x, -y)
					if angle < 0 {
						angle += 2 * math.Pi
					}
					color = sliceAt(angle / (2 * math.Pi))
				}
			}
			if color != runColor {
				flush()
				runColor = color
			}
			run.WriteString(ch)
		}
		flush()
	}
	return sb.String()
}

func (v *ChartView) renderLegend(data reconcile.ChartData, width int) string {
	total := data.Total()
	labelWidth := 0
	for _, l := range data.Labels {
		if n := len([]rune(l)); n > labelWidth {
			labelWidth = n
		}
	}
	if labelWidth > 16 {
		labelWidth = 16
	}

	lines := make([]string, 0, data.Len())
	for i, label := range data.Labels {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(data.Values[i]) / float64(total)
		}
		swatch := v.newStyle().Foreground(SliceFg(data, i)).Render("■")
		lines = append(lines, fmt.Sprintf("%s %s %4d  %5.1f%%", swatch, fit(label, labelWidth), data.Values[i], pct))
	}
	block := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, block)
}

func (v *ChartView) newStyle() lipgloss.Style {
	if v.theme.Renderer == nil {
		return lipgloss.NewStyle()
	}
	return v.theme.Renderer.NewStyle()
}
