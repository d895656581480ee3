package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

// ChartSnapshotOptions controls donut chart export.
type ChartSnapshotOptions struct {
	Path        string // Output path; format inferred from extension when Format empty
	Format      string // "svg" or "png" (case-insensitive)
	Title       string
	Source      string
	Data        reconcile.ChartData
	Legend      bool
	GeneratedAt time.Time
}

const (
	chartWidth   = 640
	chartHeight  = 420
	headerHeight = 84
)

var (
	colorText     = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorStroke   = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// ResolveFormat returns the output format and the (possibly extended) path.
func ResolveFormat(path, format string) (string, string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return "", path, fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return format, path, nil
}

// SaveChartSnapshot renders the status distribution as a donut chart image.
// It returns the path actually written.
func SaveChartSnapshot(opts ChartSnapshotOptions) (string, error) {
	defer metrics.Timer(metrics.ChartWrite)()

	format, path, err := ResolveFormat(opts.Path, opts.Format)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("output path is required")
	}
	if n := opts.Data.Len(); len(opts.Data.Values) != n || len(opts.Data.Colors) != n {
		return "", fmt.Errorf("chart data is misaligned: %d labels, %d values, %d colors",
			n, len(opts.Data.Values), len(opts.Data.Colors))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}

	switch format {
	case "png":
		err = renderChartPNG(path, opts)
	default:
		var f *os.File
		f, err = os.Create(path)
		if err != nil {
			return "", err
		}
		err = WriteChartSVG(f, opts)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

type slice struct {
	label      string
	value      int
	color      color.RGBA
	start, end float64 // radians, clockwise from 12 o'clock
}

func layoutSlices(data reconcile.ChartData) []slice {
	total := data.Total()
	if total == 0 {
		return nil
	}
	out := make([]slice, 0, data.Len())
	angle := -math.Pi / 2
	for i, label := range data.Labels {
		sweep := 2 * math.Pi * float64(data.Values[i]) / float64(total)
		out = append(out, slice{
			label: label,
			value: data.Values[i],
			color: parseHex(data.Colors[i]),
			start: angle,
			end:   angle + sweep,
		})
		angle += sweep
	}
	return out
}

func donutGeometry(legend bool) (cx, cy, outer, inner float64) {
	cx = chartWidth / 2
	if legend {
		cx = 220
	}
	cy = headerHeight + (chartHeight-headerHeight)/2
	outer = 130
	inner = outer * 0.55
	return
}

func summaryLines(opts ChartSnapshotOptions) []string {
	title := opts.Title
	if title == "" {
		title = "Job status distribution"
	}
	lines := []string{title}
	meta := fmt.Sprintf("total: %d", opts.Data.Total())
	if opts.Source != "" {
		meta += "  source: " + opts.Source
	}
	lines = append(lines, meta)
	if !opts.GeneratedAt.IsZero() {
		lines = append(lines, "generated: "+opts.GeneratedAt.UTC().Format(time.RFC3339))
	}
	return lines
}

// WriteChartSVG renders the chart as SVG to w.
func WriteChartSVG(w io.Writer, opts ChartSnapshotOptions) error {
	canvas := svg.New(w)
	canvas.Start(chartWidth, chartHeight)
	canvas.Rect(0, 0, chartWidth, chartHeight, "fill:"+css(colorBackdrop))
	canvas.Roundrect(16, 16, chartWidth-32, headerHeight-24, 10, 10, "fill:"+css(colorHeaderBG))

	for i, line := range summaryLines(opts) {
		style := fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle))
		if i == 0 {
			style = fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText))
		}
		canvas.Text(32, 38+i*16, line, style)
	}

	cx, cy, outer, inner := donutGeometry(opts.Legend)
	slices := layoutSlices(opts.Data)
	switch {
	case len(slices) == 0:
		canvas.Circle(int(cx), int(cy), int(outer), "fill:"+reconcile.FallbackColor)
	case len(slices) == 1:
		canvas.Circle(int(cx), int(cy), int(outer), "fill:"+css(slices[0].color))
	default:
		for _, s := range slices {
			canvas.Path(wedgePath(cx, cy, outer, s.start, s.end),
				fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2", css(s.color), css(colorStroke)))
		}
	}
	canvas.Circle(int(cx), int(cy), int(inner), "fill:"+css(colorBackdrop))

	center := strconv.Itoa(opts.Data.Total())
	if len(slices) == 0 {
		center = "0"
	}
	canvas.Text(int(cx), int(cy)+6, center,
		fmt.Sprintf("fill:%s;font-size:22px;font-family:monospace;font-weight:bold;text-anchor:middle", css(colorText)))

	if len(slices) == 0 {
		canvas.Text(int(cx), int(cy+outer)+24, reconcile.EmptyText,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:middle", css(colorSubtle)))
	}

	if opts.Legend {
		x := 400
		y := headerHeight + 40
		for i, s := range slices {
			row := y + i*22
			canvas.Roundrect(x, row-10, 14, 14, 3, 3, "fill:"+css(s.color))
			canvas.Text(x+22, row+2, fmt.Sprintf("%s  %d", s.label, s.value),
				fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
		}
	}

	canvas.End()
	return nil
}

func wedgePath(cx, cy, r, a1, a2 float64) string {
	x1, y1 := cx+r*math.Cos(a1), cy+r*math.Sin(a1)
	x2, y2 := cx+r*math.Cos(a2), cy+r*math.Sin(a2)
	large := 0
	if a2-a1 > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M%.2f,%.2f L%.2f,%.2f A%.2f,%.2f 0 %d,1 %.2f,%.2f Z",
		cx, cy, x1, y1, r, r, large, x2, y2)
}

func renderChartPNG(path string, opts ChartSnapshotOptions) error {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, chartWidth-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	for i, line := range summaryLines(opts) {
		dc.SetColor(colorSubtle)
		if i == 0 {
			dc.SetColor(colorText)
		}
		dc.DrawStringAnchored(line, 32, float64(34+i*16), 0, 0.5)
	}

	cx, cy, outer, inner := donutGeometry(opts.Legend)
	slices := layoutSlices(opts.Data)
	if len(slices) == 0 {
		dc.SetColor(parseHex(reconcile.FallbackColor))
		dc.DrawCircle(cx, cy, outer)
		dc.Fill()
	}
	for _, s := range slices {
		dc.SetColor(s.color)
		dc.NewSubPath()
		dc.MoveTo(cx, cy)
		dc.DrawArc(cx, cy, outer, s.start, s.end)
		dc.ClosePath()
		dc.Fill()
	}
	if len(slices) > 1 {
		dc.SetColor(colorStroke)
		dc.SetLineWidth(2)
		for _, s := range slices {
			dc.DrawLine(cx, cy, cx+outer*math.Cos(s.start), cy+outer*math.Sin(s.start))
			dc.Stroke()
		}
	}

	dc.SetColor(colorBackdrop)
	dc.DrawCircle(cx, cy, inner)
	dc.Fill()

	dc.SetColor(colorText)
	dc.DrawStringAnchored(strconv.Itoa(opts.Data.Total()), cx, cy, 0.5, 0.5)
	if len(slices) == 0 {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(reconcile.EmptyText, cx, cy+outer+20, 0.5, 0.5)
	}

	if opts.Legend {
		x := 400.0
		y := float64(headerHeight + 40)
		for i, s := range slices {
			row := y + float64(i)*22
			dc.SetColor(s.color)
			dc.DrawRoundedRectangle(x, row-8, 14, 14, 3)
			dc.Fill()
			dc.SetColor(colorText)
			dc.DrawStringAnchored(fmt.Sprintf("%s  %d", s.label, s.value), x+22, row, 0, 0.5)
		}
	}

	return dc.SavePNG(path)
}

// parseHex reads "#rrggbb", returning the fallback grey for anything else.
func parseHex(s string) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		s = strings.TrimPrefix(reconcile.FallbackColor, "#")
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		v, _ = strconv.ParseUint(strings.TrimPrefix(reconcile.FallbackColor, "#"), 16, 32)
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
