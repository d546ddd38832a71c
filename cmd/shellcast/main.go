package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shellcast/shellcast/internal/api"
	"github.com/shellcast/shellcast/internal/export"
	"github.com/shellcast/shellcast/internal/httputil"
	"github.com/shellcast/shellcast/internal/ingest"
	"github.com/shellcast/shellcast/internal/ndfd"
	"github.com/shellcast/shellcast/internal/store"
)

func main() {
	dbPath := flag.String("db", "data/shellcast.db", "path to SQLite database")
	dataDir := flag.String("data-dir", "data/ndfd", "directory for exported CSVs and the availability log")
	baseURL := flag.String("base-url", ndfd.DefaultBaseURL, "base URL of the SCO NDFD THREDDS server")
	port := flag.String("port", "8080", "HTTP port for health, status and metrics")
	cronSpec := flag.String("cron", ingest.DefaultCronSpec, "daily ingest schedule (UTC)")
	probeTimeout := flag.Duration("probe-timeout", httputil.DefaultTimeout, "timeout for the existence probe and dataset fetch")
	once := flag.Bool("once", false, "ingest once for the current issuance time and exit")
	timestamp := flag.String("timestamp", "", `ingest a specific issuance time ("YYYY-MM-DD HH:MM" UTC) and exit`)
	noPoll := flag.Bool("no-poll", false, "disable the daily schedule (server only, for local dev)")
	flag.Parse()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	client := ndfd.NewClient(*baseURL, ndfd.OpenNetCDF).WithTimeout(*probeTimeout)
	exporter := export.NewWriter(*dataDir)
	scheduler := ingest.NewScheduler(st, client, exporter, *cronSpec)
	server := api.NewServer(st, *port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *timestamp != "" {
		if err := scheduler.IngestOnce(ctx, *timestamp); err != nil {
			log.Fatalf("ingest: %v", err)
		}
		log.Println("done")
		return
	}

	if *once {
		if err := scheduler.IngestOnce(ctx, ingest.IssuanceFor(time.Now())); err != nil {
			log.Fatalf("ingest: %v", err)
		}
		log.Println("done")
		return
	}

	if !*noPoll {
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				log.Printf("scheduler: %v", err)
			}
		}()
	} else {
		log.Println("daily schedule disabled (--no-poll)")
	}

	log.Printf("starting server on :%s", *port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
