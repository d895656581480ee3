package export

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

func sampleData() reconcile.ChartData {
	return reconcile.ChartData{
		Labels: []string{"Completed", "Queued", "Pending"},
		Values: []int{2, 1, 1},
		Colors: []string{reconcile.ColorCompleted, reconcile.ColorQueued, reconcile.FallbackColor},
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		path, format     string
		wantFmt, wantPath string
		wantErr          bool
	}{
		{"out.svg", "", "svg", "out.svg", false},
		{"out.PNG", "", "png", "out.PNG", false},
		{"out", "", "svg", "out.svg", false},
		{"out.txt", "", "svg", "out.txt", false},
		{"out", ".png", "png", "out", false},
		{"out.gif", "gif", "", "out.gif", true},
	}
	for _, tt := range tests {
		gotFmt, gotPath, err := ResolveFormat(tt.path, tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveFormat(%q,%q) expected error", tt.path, tt.format)
			}
			continue
		}
		if err != nil || gotFmt != tt.wantFmt || gotPath != tt.wantPath {
			t.Errorf("ResolveFormat(%q,%q) = %q,%q,%v", tt.path, tt.format, gotFmt, gotPath, err)
		}
	}
}

func TestWriteChartSVG(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChartSVG(&buf, ChartSnapshotOptions{
		Data:        sampleData(),
		Legend:      true,
		Source:      "http://localhost:5000",
		GeneratedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"<svg", "#4caf50", "#ffc107", "#9e9e9e", "Completed  2", "Pending  1", "total: 4", "2024-05-01T10:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if got := strings.Count(out, "<path"); got != 3 {
		t.Errorf("expected 3 wedges, got %d", got)
	}
}

func TestWriteChartSVG_EmptyAndSingle(t *testing.T) {
	var empty bytes.Buffer
	if err := WriteChartSVG(&empty, ChartSnapshotOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(empty.String(), reconcile.EmptyText) {
		t.Error("empty chart should show the placeholder text")
	}

	var single bytes.Buffer
	data := reconcile.ChartData{Labels: []string{"Rejected"}, Values: []int{3}, Colors: []string{reconcile.ColorRejected}}
	if err := WriteChartSVG(&single, ChartSnapshotOptions{Data: data}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(single.String(), "<path") {
		t.Error("a single status should render as a full ring, not a wedge")
	}
	if !strings.Contains(single.String(), "#f44336") {
		t.Error("ring should use the rejected color")
	}
}

func TestSaveChartSnapshot_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chart.png")
	written, err := SaveChartSnapshot(ChartSnapshotOptions{Path: path, Data: sampleData(), Legend: true})
	if err != nil {
		t.Fatal(err)
	}
	if written != path {
		t.Errorf("written=%q", written)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != chartWidth || b.Dy() != chartHeight {
		t.Errorf("bounds=%v", b)
	}
}

func TestSaveChartSnapshot_Misaligned(t *testing.T) {
	_, err := SaveChartSnapshot(ChartSnapshotOptions{
		Path: filepath.Join(t.TempDir(), "x.svg"),
		Data: reconcile.ChartData{Labels: []string{"a"}, Values: []int{}, Colors: []string{"#000000"}},
	})
	if err == nil {
		t.Error("expected misalignment error")
	}
}

func TestParseHex(t *testing.T) {
	if c := parseHex("#4caf50"); c.R != 0x4c || c.G != 0xaf || c.B != 0x50 {
		t.Errorf("parseHex=%v", c)
	}
	if c := parseHex("bogus"); css(c) != reconcile.FallbackColor {
		t.Errorf("invalid color should fall back, got %s", css(c))
	}
}
