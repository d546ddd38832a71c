package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shellcast/shellcast/internal/ndfd"
)

// Availability log statuses, one appended per attempted issuance time.
const (
	StatusAvailable    = "available"
	StatusNotAvailable = "not_available"
)

const availabilityLogName = "data_log.csv"

// Writer exports tidy forecast tables and the availability log into a single
// data directory.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteVariable writes one tidied variable to {variable}_{YYYYMMDDHH}.csv and
// returns the file path.
func (w *Writer) WriteVariable(v ndfd.Variable, res ndfd.Result) (string, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", v, res.Key))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	cw := csv.NewWriter(f)
	header := []string{
		"y_index", "x_index", v.ColumnName(), "valid_period_hrs",
		"longitude_km", "latitude_km", "time", "time_uct", "time_nyc",
	}
	if err := cw.Write(header); err != nil {
		f.Close()
		return "", err
	}
	for _, row := range res.Rows {
		record := []string{
			strconv.Itoa(row.YIndex),
			strconv.Itoa(row.XIndex),
			strconv.FormatFloat(row.Value, 'g', -1, 64),
			row.ValidPeriod,
			strconv.FormatFloat(row.Longitude, 'g', -1, 64),
			strconv.FormatFloat(row.Latitude, 'g', -1, 64),
			row.Time.Format("2006-01-02 15:04"),
			row.TimeUTCStr,
			row.TimeNYCStr,
		}
		if err := cw.Write(record); err != nil {
			f.Close()
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// AppendAvailability appends one (timestamp, status) record to data_log.csv,
// the pipeline's append-only audit trail of run outcomes.
func (w *Writer) AppendAvailability(timestamp, status string) error {
	path := filepath.Join(w.dir, availabilityLogName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{timestamp, status}); err != nil {
		f.Close()
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
