package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shellcast/shellcast/internal/store"
)

// Server exposes the operational endpoints: health, metrics, and the status
// of the most recent forecast load.
type Server struct {
	store *store.Store
	port  string
}

func NewServer(st *store.Store, port string) *Server {
	return &Server{store: st, port: port}
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/status", s.handleStatus)

	srv := &http.Server{
		Addr:         ":" + s.port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type variableStatus struct {
	Variable string     `json:"variable"`
	IssuedAt *time.Time `json:"issued_at,omitempty"`
	Rows     int        `json:"rows"`
}

// handleStatus reports the most recent load per variable: enough for an
// external monitor to tell whether forecasts are flowing.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var statuses []variableStatus
	for _, variable := range []string{"qpf", "pop12"} {
		st := variableStatus{Variable: variable}
		issued, ok, err := s.store.LatestIssuance(variable)
		if err != nil {
			log.Printf("api: latest issuance for %s: %v", variable, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if ok {
			st.IssuedAt = &issued
			count, err := s.store.CountForecastCells(variable, issued)
			if err != nil {
				log.Printf("api: count cells for %s: %v", variable, err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			st.Rows = count
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, http.StatusOK, statuses)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
