package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shellcast/shellcast/internal/export"
	"github.com/shellcast/shellcast/internal/metrics"
	"github.com/shellcast/shellcast/internal/models"
	"github.com/shellcast/shellcast/internal/ndfd"
	"github.com/shellcast/shellcast/internal/store"
)

// DefaultCronSpec runs the daily ingest at 07:00 UTC, after the midnight run
// has normally been published.
const DefaultCronSpec = "0 7 * * *"

// Scheduler drives the daily pipeline: resolve the published NDFD run for the
// current issuance time, tidy both rainfall variables, export the CSVs, append
// the availability log, and load the rows into the store.
type Scheduler struct {
	store    *store.Store
	client   *ndfd.Client
	exporter *export.Writer
	cronSpec string
}

func NewScheduler(st *store.Store, client *ndfd.Client, exporter *export.Writer, cronSpec string) *Scheduler {
	if cronSpec == "" {
		cronSpec = DefaultCronSpec
	}
	return &Scheduler{
		store:    st,
		client:   client,
		exporter: exporter,
		cronSpec: cronSpec,
	}
}

// IssuanceFor returns the forecast issuance timestamp to query for a given
// wall-clock instant: the most recent of 00:00 or 12:00 UTC that day. Runs
// are only published at those two cycles.
func IssuanceFor(now time.Time) string {
	utc := now.UTC()
	hour := 0
	if utc.Hour() >= 12 {
		hour = 12
	}
	return time.Date(utc.Year(), utc.Month(), utc.Day(), hour, 0, 0, 0, time.UTC).Format("2006-01-02 15:04")
}

// Run schedules the daily ingest and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.cronSpec, func() {
		if err := s.IngestOnce(ctx, IssuanceFor(time.Now())); err != nil {
			log.Printf("scheduler: ingest: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", s.cronSpec, err)
	}

	log.Printf("scheduler: daily ingest scheduled (%s)", s.cronSpec)
	c.Start()
	<-ctx.Done()
	log.Println("scheduler: shutting down")
	<-c.Stop().Done()
	return nil
}

// IngestOnce runs the whole pipeline for one issuance time. Both variables
// must tidy successfully for the run to be exported and stored; otherwise the
// attempt is logged as not_available, which is a routine outcome. The
// returned error covers faults only (network, storage), never absent data.
func (s *Scheduler) IngestOnce(ctx context.Context, timestamp string) error {
	log.Printf("scheduler: ingesting NDFD run for %s", timestamp)
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	run, err := s.store.StartIngestRun("sco", timestamp)
	if err != nil {
		log.Printf("scheduler: start ingest run: %v", err)
	}

	ds, probe, err := s.client.Resolve(ctx, timestamp)
	if run != nil {
		run.ProbeURL = sql.NullString{String: probe.URL, Valid: probe.URL != ""}
		run.HTTPStatus = sql.NullInt64{Int64: int64(probe.HTTPStatus), Valid: probe.HTTPStatus > 0}
	}
	if probe.HTTPStatus > 0 {
		metrics.ProbesTotal.WithLabelValues(strconv.Itoa(probe.HTTPStatus)).Inc()
	}
	if err != nil {
		s.completeRun(run, false, err)
		return err
	}

	if ds == nil {
		if logErr := s.exporter.AppendAvailability(timestamp, export.StatusNotAvailable); logErr != nil {
			log.Printf("scheduler: append availability: %v", logErr)
		}
		if run != nil {
			run.QPFReason = sql.NullString{String: ndfd.NotPublished.String(), Valid: true}
			run.PoP12Reason = sql.NullString{String: ndfd.NotPublished.String(), Valid: true}
		}
		s.completeRun(run, true, nil)
		log.Printf("scheduler: did not append %s data", timestamp)
		return nil
	}
	defer ds.Close()

	qpf, err := ndfd.Tidy(ds, timestamp, ndfd.QPF)
	if err != nil {
		s.completeRun(run, false, err)
		return err
	}
	pop12, err := ndfd.Tidy(ds, timestamp, ndfd.PoP12)
	if err != nil {
		s.completeRun(run, false, err)
		return err
	}

	metrics.TidyOutcomes.WithLabelValues("qpf", qpf.Reason.String()).Inc()
	metrics.TidyOutcomes.WithLabelValues("pop12", pop12.Reason.String()).Inc()
	if run != nil {
		run.QPFReason = sql.NullString{String: qpf.Reason.String(), Valid: true}
		run.PoP12Reason = sql.NullString{String: pop12.Reason.String(), Valid: true}
		run.RowsTidied = sql.NullInt64{Int64: int64(len(qpf.Rows) + len(pop12.Rows)), Valid: true}
	}

	// The original analysis only keeps a run when both variables are usable;
	// a run with one of the two is treated as not available.
	if !qpf.Available() || !pop12.Available() {
		if logErr := s.exporter.AppendAvailability(timestamp, export.StatusNotAvailable); logErr != nil {
			log.Printf("scheduler: append availability: %v", logErr)
		}
		s.completeRun(run, true, nil)
		log.Printf("scheduler: did not append %s data", timestamp)
		return nil
	}

	stored := 0
	for _, res := range []struct {
		v   ndfd.Variable
		res ndfd.Result
	}{{ndfd.QPF, qpf}, {ndfd.PoP12, pop12}} {
		path, err := s.exporter.WriteVariable(res.v, res.res)
		if err != nil {
			s.completeRun(run, false, err)
			return fmt.Errorf("export %s: %w", res.v, err)
		}
		log.Printf("scheduler: wrote %s", path)

		n, err := s.store.InsertForecastCells(toCells(res.v, res.res))
		if err != nil {
			s.completeRun(run, false, err)
			return fmt.Errorf("store %s: %w", res.v, err)
		}
		stored += n
		metrics.RowsTidied.WithLabelValues(res.v.String()).Add(float64(len(res.res.Rows)))
	}

	if err := s.exporter.AppendAvailability(timestamp, export.StatusAvailable); err != nil {
		log.Printf("scheduler: append availability: %v", err)
	}
	if run != nil {
		run.RowsStored = sql.NullInt64{Int64: int64(stored), Valid: true}
	}
	s.completeRun(run, true, nil)
	log.Printf("scheduler: exported %s data (%d rows stored)", timestamp, stored)
	return nil
}

func (s *Scheduler) completeRun(run *store.IngestRun, success bool, cause error) {
	if run == nil {
		return
	}
	run.Success = success
	if cause != nil {
		run.ErrorMsg = sql.NullString{String: cause.Error(), Valid: true}
	}
	if err := s.store.CompleteIngestRun(run); err != nil {
		log.Printf("scheduler: complete ingest run: %v", err)
	}
}

func toCells(v ndfd.Variable, res ndfd.Result) []models.ForecastCell {
	cells := make([]models.ForecastCell, len(res.Rows))
	for i, row := range res.Rows {
		cells[i] = models.ForecastCell{
			Variable:    v.String(),
			ValidPeriod: row.ValidPeriod,
			YIndex:      row.YIndex,
			XIndex:      row.XIndex,
			Value:       row.Value,
			Longitude:   row.Longitude,
			Latitude:    row.Latitude,
			IssuedAt:    row.TimeUTC,
		}
	}
	return cells
}
