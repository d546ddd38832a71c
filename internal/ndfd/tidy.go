package ndfd

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04"

// Reason classifies why a tidy pass produced no rows. Forecast publication is
// intermittent, so every one of these is a routine outcome rather than an
// error.
type Reason int

const (
	OK Reason = iota
	// NotPublished means no run exists at the requested issuance time.
	NotPublished
	// VariableNameMismatch means the run's field name for the variable does
	// not exactly match the canonical name (padded metadata, or absent).
	VariableNameMismatch
	// DimensionMismatch means the variable is published in the four-dimension
	// forecast-cycle layout, which lacks the multi-day offsets needed here.
	DimensionMismatch
	// SubperiodsIncomplete means the run does not expose every expected hour
	// offset. Partial runs are unusable, not partial data to salvage.
	SubperiodsIncomplete
)

func (r Reason) String() string {
	switch r {
	case OK:
		return "ok"
	case NotPublished:
		return "not_published"
	case VariableNameMismatch:
		return "variable_name_mismatch"
	case DimensionMismatch:
		return "dimension_mismatch"
	case SubperiodsIncomplete:
		return "subperiods_incomplete"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Row is one tidy output record: a grid cell's reduced value for one
// accumulation window, stamped with the issuance time. All rows from a single
// tidy pass share identical timestamps.
type Row struct {
	YIndex      int
	XIndex      int
	Value       float64
	ValidPeriod string // "24", "48" or "72"
	Longitude   float64
	Latitude    float64

	Time       time.Time // naive parse of the issuance string
	TimeUTC    time.Time
	TimeUTCStr string
	TimeNYC    time.Time // US Eastern, local for the NC coast
	TimeNYCStr string
}

// Result is the outcome of one tidy pass: populated rows plus the YYYYMMDDHH
// key, or zero rows and the reason the run was unusable.
type Result struct {
	Rows   []Row
	Key    string
	Reason Reason
}

// Available reports whether the pass yielded usable rows.
func (r Result) Available() bool {
	return r.Reason == OK
}

// Tidy reshapes one variable of a forecast run into its tidy table: one row
// per grid cell per 24/48/72-hour accumulation window. A nil dataset (run not
// published) and any of the unusable-run conditions return an empty Result
// with the matching Reason and no error. An unsupported variable is an error:
// that is a caller mistake, not an environmental condition.
func Tidy(ds Dataset, timestamp string, v Variable) (Result, error) {
	key, err := DeriveTimestampKey(timestamp)
	if err != nil {
		return Result{}, err
	}
	res := Result{Key: key.YearMonthDayHour}

	if v != QPF && v != PoP12 {
		return Result{}, fmt.Errorf("%w: %v", ErrUnknownVariable, v)
	}

	if ds == nil {
		res.Reason = NotPublished
		log.Printf("ndfd: data on %s are not available", res.Key)
		return res, nil
	}

	column, err := findColumnName(ds, v)
	if err != nil || column != v.CanonicalName() {
		res.Reason = VariableNameMismatch
		log.Printf("ndfd: desired vars for %s data on %s are not available", v, res.Key)
		return res, nil
	}

	grid, err := ds.Grid(column)
	if err != nil {
		return Result{}, fmt.Errorf("ndfd: open %s grid: %w", v, err)
	}

	if len(grid.Dimensions()) != 3 {
		res.Reason = DimensionMismatch
		log.Printf("ndfd: desired data dimensions for %s data on %s are not available", v, res.Key)
		return res, nil
	}

	offsets, err := grid.Subperiods()
	if err != nil {
		return Result{}, fmt.Errorf("ndfd: read %s subperiods: %w", v, err)
	}
	expected := v.ExpectedSubperiods()
	if len(intersect(offsets, expected)) != len(expected) {
		res.Reason = SubperiodsIncomplete
		log.Printf("ndfd: desired subperiods for %s data on %s are not available", v, res.Key)
		return res, nil
	}

	var cells []CellValue
	var periods []string
	for _, w := range v.Windows() {
		windowCells, err := aggregateWindow(grid, w, v)
		if err != nil {
			return Result{}, err
		}
		cells = append(cells, windowCells...)
		for range windowCells {
			periods = append(periods, w.Label)
		}
	}

	// Upstream grid convention: the x axis is longitude (columns), the y
	// axis is latitude (rows).
	xs, err := ds.Coordinate("x")
	if err != nil {
		return Result{}, fmt.Errorf("ndfd: read x axis: %w", err)
	}
	ys, err := ds.Coordinate("y")
	if err != nil {
		return Result{}, fmt.Errorf("ndfd: read y axis: %w", err)
	}

	naive, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return Result{}, fmt.Errorf("ndfd: parse timestamp %q: %w", timestamp, err)
	}
	nyc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return Result{}, err
	}
	utcTime := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), 0, 0, time.UTC)
	nycTime := utcTime.In(nyc)

	rows := make([]Row, len(cells))
	for i, c := range cells {
		if c.YIndex >= len(ys) || c.XIndex >= len(xs) {
			return Result{}, fmt.Errorf("ndfd: cell (%d,%d) outside %dx%d coordinate axes", c.YIndex, c.XIndex, len(ys), len(xs))
		}
		rows[i] = Row{
			YIndex:      c.YIndex,
			XIndex:      c.XIndex,
			Value:       c.Value,
			ValidPeriod: periods[i],
			Longitude:   xs[c.XIndex],
			Latitude:    ys[c.YIndex],
			Time:        naive,
			TimeUTC:     utcTime,
			TimeUTCStr:  utcTime.Format(timestampLayout),
			TimeNYC:     nycTime,
			TimeNYCStr:  nycTime.Format(timestampLayout),
		}
	}
	res.Rows = rows

	log.Printf("ndfd: tidied %s data on %s", v, res.Key)
	return res, nil
}

// findColumnName searches the dataset's declared children for the first field
// containing the variable's canonical substring, stripping incidental
// whitespace and quoting. Some runs pad the field name with extra metadata
// (seen on the 2015-09-16 publication), so callers still compare the result
// against the canonical name before trusting the column's semantics.
func findColumnName(ds Dataset, v Variable) (string, error) {
	for _, child := range ds.Children() {
		if strings.Contains(child, v.CanonicalName()) {
			return strings.NewReplacer(" ", "", "'", "").Replace(child), nil
		}
	}
	return "", fmt.Errorf("ndfd: no %s field among dataset children", v)
}

func intersect(have, want []float64) []float64 {
	wanted := make(map[float64]bool, len(want))
	for _, v := range want {
		wanted[v] = true
	}
	var out []float64
	for _, v := range have {
		if wanted[v] {
			out = append(out, v)
			delete(wanted, v)
		}
	}
	return out
}
