package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveImport(t *testing.T) {
	m := New()
	m.ObserveImport(OutcomePartial, 250*time.Millisecond, map[string]int{
		RowImported:   3,
		RowValidation: 2,
		RowSkipped:    0,
	})
	m.ObserveImport(OutcomeSuccess, time.Second, map[string]int{RowImported: 1})

	tests := []struct {
		result string
		want   float64
	}{
		{RowImported, 4},
		{RowValidation, 2},
		{RowSkipped, 0},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.ImportRows.WithLabelValues(tt.result)); got != tt.want {
			t.Errorf("rows{result=%q} = %v, want %v", tt.result, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.ImportRuns.WithLabelValues(OutcomePartial)); got != 1 {
		t.Errorf("runs{partial} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.ImportDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestMutation(t *testing.T) {
	m := New()
	m.Mutation(OpCreate)
	m.Mutation(OpCreate)
	m.Mutation(OpDelete)

	if got := testutil.ToFloat64(m.RecordMutations.WithLabelValues(OpCreate)); got != 2 {
		t.Errorf("mutations{create} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RecordMutations.WithLabelValues(OpDelete)); got != 1 {
		t.Errorf("mutations{delete} = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Mutation(OpUpdate)
	m.ObserveImport(OutcomeFailed, time.Second, nil)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Mutation(OpUpdate)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`billing_record_mutations_total{op="update"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Mutation(OpCreate)
	if got := testutil.ToFloat64(b.RecordMutations.WithLabelValues(OpCreate)); got != 0 {
		t.Errorf("second registry saw %v creates", got)
	}
}
