package reconcile

import (
	"testing"

	"github.com/vanderheijden86/qdash/pkg/analysis"
	"github.com/vanderheijden86/qdash/pkg/model"
)

func TestColorFor(t *testing.T) {
	tests := map[model.Status]string{
		model.StatusCompleted: "#4caf50",
		model.StatusQueued:    "#ffc107",
		model.StatusRejected:  "#f44336",
		"Cancelled":           "#9e9e9e",
		"":                    "#9e9e9e",
	}
	for status, want := range tests {
		if got := ColorFor(status); got != want {
			t.Errorf("ColorFor(%q)=%s, want %s", status, got, want)
		}
	}
}

func TestRows_Cells(t *testing.T) {
	rows := Rows(model.JobSnapshot{{JobID: "a", Status: model.StatusRejected, Backend: "ibmq_lima", Qubits: 2, Shots: 100, SubmissionTime: "t0"}})
	want := []string{"a", "Rejected", "ibmq_lima", "2", "100", "t0"}
	got := rows[0].Cells()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d=%q want %q", i, got[i], want[i])
		}
	}
	if len(got) != len(Columns) {
		t.Errorf("cells=%d columns=%d", len(got), len(Columns))
	}
	if rows[0].Class != "status-rejected" {
		t.Errorf("class=%q", rows[0].Class)
	}
}

func TestRows_EmptyPlaceholder(t *testing.T) {
	rows := Rows(nil)
	if len(rows) != 1 || rows[0].Message != EmptyText {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[0].Cells()[0] != EmptyText {
		t.Error("placeholder text should occupy the first cell")
	}
}

func TestNewChartData_Aligned(t *testing.T) {
	snap := model.JobSnapshot{
		{JobID: "1", Status: model.StatusQueued},
		{JobID: "2", Status: "Mystery"},
		{JobID: "3", Status: model.StatusQueued},
	}
	data := NewChartData(analysis.Aggregate(snap))
	if data.Len() != 2 || len(data.Values) != 2 || len(data.Colors) != 2 {
		t.Fatalf("misaligned chart data: %+v", data)
	}
	if data.Labels[0] != "Queued" || data.Values[0] != 2 || data.Colors[0] != ColorQueued {
		t.Errorf("slice 0 = %s/%d/%s", data.Labels[0], data.Values[0], data.Colors[0])
	}
	if data.Colors[1] != FallbackColor {
		t.Errorf("unknown color=%s", data.Colors[1])
	}
	if data.Total() != 3 {
		t.Errorf("total=%d", data.Total())
	}
}
