package reconcile

import (
	"strconv"

	"github.com/vanderheijden86/qdash/pkg/model"
)

// Texts shown in place of job rows.
const (
	EmptyText   = "No jobs submitted yet."
	FailureText = "Failed to load job data. Please ensure the backend server is running."
)

// Status colors used by every chart surface.
const (
	ColorCompleted = "#4caf50"
	ColorQueued    = "#ffc107"
	ColorRejected  = "#f44336"
	FallbackColor  = "#9e9e9e"
)

// Palette maps known statuses to their slice color.
var Palette = map[model.Status]string{
	model.StatusCompleted: ColorCompleted,
	model.StatusQueued:    ColorQueued,
	model.StatusRejected:  ColorRejected,
}

// ColorFor returns the color for s, falling back to grey for statuses the
// palette does not know. It never fails.
func ColorFor(s model.Status) string {
	if c, ok := Palette[s]; ok {
		return c
	}
	return FallbackColor
}

// TableRow is one rendered table line. When Message is set the row is a
// placeholder or notice spanning all columns and the job fields are empty.
type TableRow struct {
	JobID          string
	Status         model.Status
	Class          string
	Backend        string
	Qubits         int
	Shots          int
	SubmissionTime string

	Message string
}

// IsMessage reports whether the row spans all columns.
func (r TableRow) IsMessage() bool {
	return r.Message != ""
}

// Cells returns the six column values in display order. Message rows return
// the message in the first cell.
func (r TableRow) Cells() []string {
	if r.IsMessage() {
		return []string{r.Message, "", "", "", "", ""}
	}
	return []string{
		r.JobID,
		string(r.Status),
		r.Backend,
		strconv.Itoa(r.Qubits),
		strconv.Itoa(r.Shots),
		r.SubmissionTime,
	}
}

// Columns are the table headings, aligned with TableRow.Cells.
var Columns = []string{"Job ID", "Status", "Backend", "Qubits", "Shots", "Submitted"}

// Rows converts a snapshot into table rows in snapshot order. An empty
// snapshot yields the single placeholder row.
func Rows(snapshot model.JobSnapshot) []TableRow {
	if snapshot.IsEmpty() {
		return []TableRow{{Message: EmptyText}}
	}
	rows := make([]TableRow, 0, len(snapshot))
	for _, j := range snapshot {
		rows = append(rows, TableRow{
			JobID:          j.JobID,
			Status:         j.Status,
			Class:          j.Status.Class(),
			Backend:        j.Backend,
			Qubits:         j.Qubits,
			Shots:          j.Shots,
			SubmissionTime: j.SubmissionTime,
		})
	}
	return rows
}

// ChartData is the label/value/color triple handed to a chart. The three
// slices always have equal length.
type ChartData struct {
	Labels []string
	Values []int
	Colors []string
}

// Len returns the number of slices.
func (d ChartData) Len() int {
	return len(d.Labels)
}

// Total returns the sum of all values.
func (d ChartData) Total() int {
	total := 0
	for _, v := range d.Values {
		total += v
	}
	return total
}

// NewChartData builds chart arrays from dist, aligned by index in
// first-appearance order.
func NewChartData(dist model.StatusDistribution) ChartData {
	entries := dist.Entries()
	data := ChartData{
		Labels: make([]string, len(entries)),
		Values: make([]int, len(entries)),
		Colors: make([]string, len(entries)),
	}
	for i, e := range entries {
		data.Labels[i] = string(e.Status)
		data.Values[i] = e.Count
		data.Colors[i] = ColorFor(e.Status)
	}
	return data
}

// Notice is a transient explanatory message replacing the table contents.
type Notice struct {
	Text string
	Err  error
}

// TableSink renders job rows. Implementations must accept an empty slice.
type TableSink interface {
	RenderRows(rows []TableRow)
	ShowNotice(n Notice)
}

// Chart is a long-lived chart object whose arrays are replaced in place.
type Chart interface {
	Update(data ChartData)
}

// ChartSink creates the chart on first use.
type ChartSink interface {
	NewChart(data ChartData) Chart
}
