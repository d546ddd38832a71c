package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shellcast/shellcast/internal/export"
	"github.com/shellcast/shellcast/internal/ndfd"
	"github.com/shellcast/shellcast/internal/store"
)

func TestIssuanceFor(t *testing.T) {
	nyc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			name: "morning maps to the midnight run",
			now:  time.Date(2020, 6, 17, 7, 0, 0, 0, time.UTC),
			want: "2020-06-17 00:00",
		},
		{
			name: "afternoon maps to the noon run",
			now:  time.Date(2020, 6, 17, 15, 30, 0, 0, time.UTC),
			want: "2020-06-17 12:00",
		},
		{
			name: "exactly noon maps to the noon run",
			now:  time.Date(2020, 6, 17, 12, 0, 0, 0, time.UTC),
			want: "2020-06-17 12:00",
		},
		{
			name: "local time converts to UTC first",
			now:  time.Date(2020, 6, 17, 3, 0, 0, 0, nyc), // 07:00 UTC
			want: "2020-06-17 00:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IssuanceFor(tt.now); got != tt.want {
				t.Errorf("IssuanceFor(%v) = %q, want %q", tt.now, got, tt.want)
			}
		})
	}
}

// fakeGrid and fakeDataset stand in for a downloaded NDFD run.
type fakeGrid struct {
	dims    []string
	offsets []float64
	planes  [][][]float64
}

func (g *fakeGrid) Dimensions() []string { return g.dims }

func (g *fakeGrid) Subperiods() ([]float64, error) { return g.offsets, nil }

func (g *fakeGrid) Plane(index int) ([][]float64, error) {
	if index < 0 || index >= len(g.planes) {
		return nil, fmt.Errorf("plane %d out of range", index)
	}
	return g.planes[index], nil
}

type fakeDataset struct {
	children []string
	grids    map[string]ndfd.Grid
	xs, ys   []float64
}

func (d *fakeDataset) Children() []string { return d.children }

func (d *fakeDataset) Grid(name string) (ndfd.Grid, error) {
	g, ok := d.grids[name]
	if !ok {
		return nil, fmt.Errorf("no variable %s", name)
	}
	return g, nil
}

func (d *fakeDataset) Coordinate(axis string) ([]float64, error) {
	switch axis {
	case "x":
		return d.xs, nil
	case "y":
		return d.ys, nil
	}
	return nil, fmt.Errorf("no axis %s", axis)
}

func (d *fakeDataset) Close() error { return nil }

// newPublishedRun builds a 2x2 run carrying both rainfall variables with
// complete subperiod sets.
func newPublishedRun() *fakeDataset {
	constGrid := func(v ndfd.Variable, value float64) *fakeGrid {
		offsets := v.ExpectedSubperiods()
		planes := make([][][]float64, len(offsets))
		for p := range planes {
			planes[p] = [][]float64{{value, value}, {value, value}}
		}
		return &fakeGrid{dims: []string{"time", "y", "x"}, offsets: offsets, planes: planes}
	}
	return &fakeDataset{
		children: []string{"x", "y", ndfd.QPF.CanonicalName(), ndfd.PoP12.CanonicalName()},
		grids: map[string]ndfd.Grid{
			ndfd.QPF.CanonicalName():   constGrid(ndfd.QPF, 0.5),
			ndfd.PoP12.CanonicalName(): constGrid(ndfd.PoP12, 40),
		},
		xs: []float64{-78.5, -78.0},
		ys: []float64{34.0, 34.5},
	}
}

func setupScheduler(t *testing.T, probeStatus int, ds *fakeDataset) (*Scheduler, *store.Store, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(probeStatus)
	}))
	t.Cleanup(srv.Close)

	open := func(_ context.Context, _ string) (ndfd.Dataset, error) {
		return ds, nil
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dir := t.TempDir()
	sched := NewScheduler(st, ndfd.NewClient(srv.URL, open), export.NewWriter(dir), "")
	return sched, st, dir
}

func readAvailabilityLog(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "data_log.csv"))
	if err != nil {
		t.Fatalf("open data_log.csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read data_log.csv: %v", err)
	}
	return records
}

func TestIngestOnce_Published(t *testing.T) {
	sched, st, dir := setupScheduler(t, http.StatusOK, newPublishedRun())

	if err := sched.IngestOnce(context.Background(), "2020-06-17 12:00"); err != nil {
		t.Fatalf("IngestOnce: %v", err)
	}

	for _, name := range []string{"qpf_2020061712.csv", "pop12_2020061712.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("export %s: %v", name, err)
		}
	}

	records := readAvailabilityLog(t, dir)
	if len(records) != 1 || records[0][1] != export.StatusAvailable {
		t.Errorf("availability log = %v, want one available record", records)
	}

	issued := time.Date(2020, 6, 17, 12, 0, 0, 0, time.UTC)
	for _, variable := range []string{"qpf", "pop12"} {
		count, err := st.CountForecastCells(variable, issued)
		if err != nil {
			t.Fatalf("CountForecastCells(%s): %v", variable, err)
		}
		if count != 12 {
			t.Errorf("%s rows stored = %d, want 12", variable, count)
		}
	}

	runs, err := st.RecentIngestRuns(1)
	if err != nil {
		t.Fatalf("RecentIngestRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	run := runs[0]
	if !run.Success {
		t.Error("run not marked successful")
	}
	if run.HTTPStatus.Int64 != http.StatusOK {
		t.Errorf("probe status = %d, want 200", run.HTTPStatus.Int64)
	}
	if run.QPFReason.String != "ok" || run.PoP12Reason.String != "ok" {
		t.Errorf("reasons = %q/%q, want ok/ok", run.QPFReason.String, run.PoP12Reason.String)
	}
	if run.RowsStored.Int64 != 24 {
		t.Errorf("rows stored = %d, want 24", run.RowsStored.Int64)
	}
}

func TestIngestOnce_NotPublished(t *testing.T) {
	sched, st, dir := setupScheduler(t, http.StatusNotFound, nil)

	if err := sched.IngestOnce(context.Background(), "2020-06-17 12:00"); err != nil {
		t.Fatalf("IngestOnce: %v", err)
	}

	records := readAvailabilityLog(t, dir)
	if len(records) != 1 || records[0][1] != export.StatusNotAvailable {
		t.Errorf("availability log = %v, want one not_available record", records)
	}
	if records[0][0] != "2020-06-17 12:00" {
		t.Errorf("logged timestamp = %q", records[0][0])
	}

	if _, err := os.Stat(filepath.Join(dir, "qpf_2020061712.csv")); !os.IsNotExist(err) {
		t.Error("an unpublished run must not produce an export file")
	}

	runs, err := st.RecentIngestRuns(1)
	if err != nil {
		t.Fatalf("RecentIngestRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	run := runs[0]
	if !run.Success {
		t.Error("an unpublished run is a routine outcome, not a failure")
	}
	if run.HTTPStatus.Int64 != http.StatusNotFound {
		t.Errorf("probe status = %d, want 404", run.HTTPStatus.Int64)
	}
	if run.QPFReason.String != "not_published" {
		t.Errorf("qpf reason = %q, want not_published", run.QPFReason.String)
	}
}

func TestIngestOnce_IncompleteVariable(t *testing.T) {
	ds := newPublishedRun()
	grid := ds.grids[ndfd.PoP12.CanonicalName()].(*fakeGrid)
	grid.offsets = grid.offsets[:5] // drop the final 12-hr subperiod
	grid.planes = grid.planes[:5]

	sched, st, dir := setupScheduler(t, http.StatusOK, ds)

	if err := sched.IngestOnce(context.Background(), "2020-06-17 12:00"); err != nil {
		t.Fatalf("IngestOnce: %v", err)
	}

	// One broken variable discards the whole run.
	records := readAvailabilityLog(t, dir)
	if len(records) != 1 || records[0][1] != export.StatusNotAvailable {
		t.Errorf("availability log = %v, want one not_available record", records)
	}
	if _, err := os.Stat(filepath.Join(dir, "qpf_2020061712.csv")); !os.IsNotExist(err) {
		t.Error("a partial run must not produce export files")
	}

	issued := time.Date(2020, 6, 17, 12, 0, 0, 0, time.UTC)
	count, err := st.CountForecastCells("qpf", issued)
	if err != nil {
		t.Fatalf("CountForecastCells: %v", err)
	}
	if count != 0 {
		t.Errorf("qpf rows stored = %d, want 0", count)
	}

	runs, err := st.RecentIngestRuns(1)
	if err != nil {
		t.Fatalf("RecentIngestRuns: %v", err)
	}
	if runs[0].QPFReason.String != "ok" || runs[0].PoP12Reason.String != "subperiods_incomplete" {
		t.Errorf("reasons = %q/%q", runs[0].QPFReason.String, runs[0].PoP12Reason.String)
	}
}
