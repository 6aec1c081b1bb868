package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"

	"github.com/Cedrat/watch-focus-time/entity"
	"github.com/Cedrat/watch-focus-time/query"
)

//go:embed static/index.html
var staticFS embed.FS

// Store is the read side of the record store used by the status API.
type Store interface {
	LastRecord() (*entity.ActivityRecord, error)
	LastCheckpoint() (int64, error)
	MaxRecordID() (int64, error)
	Backlog(offset int64) (int64, error)
	SummaryBetween(startDate, endDate string) ([]query.SummaryItem, error)
	CheckpointHistory(limit int) ([]entity.SyncCheckpoint, error)
}

// SyncTrigger requests an out-of-band sync from the tracking loop.
type SyncTrigger interface {
	SyncNow()
}

type Server struct {
	db       Store
	trigger  SyncTrigger
	gatherer prometheus.Gatherer
	log      slog.Logger
	now      func() time.Time
}

// NewServer builds the status API. A nil trigger means sync is disabled.
func NewServer(db Store, trigger SyncTrigger, gatherer prometheus.Gatherer, log slog.Logger) *Server {
	return &Server{
		db:       db,
		trigger:  trigger,
		gatherer: gatherer,
		log:      log,
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/summary", s.handleSummary)
	r.Get("/api/checkpoints", s.handleCheckpoints)
	r.Post("/api/sync", s.handleSync)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "status API listening", slog.F("address", "http://"+addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return xerrors.Errorf("status API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return xerrors.Errorf("status API shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return xerrors.Errorf("status API: %w", err)
	}
	return nil
}

type statusResponse struct {
	Checkpoint  int64                  `json:"checkpoint"`
	MaxRecordID int64                  `json:"maxRecordId"`
	Backlog     int64                  `json:"backlog"`
	SyncEnabled bool                   `json:"syncEnabled"`
	LastRecord  *entity.ActivityRecord `json:"lastRecord"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	checkpoint, err := s.db.LastCheckpoint()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	maxID, err := s.db.MaxRecordID()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	backlog, err := s.db.Backlog(checkpoint)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	last, err := s.db.LastRecord()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Checkpoint:  checkpoint,
		MaxRecordID: maxID,
		Backlog:     backlog,
		SyncEnabled: s.trigger != nil,
		LastRecord:  last,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		start, end = query.PeriodRange(period, s.now().UTC())
	}
	for _, d := range []string{start, end} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			http.Error(w, "bad date", http.StatusBadRequest)
			return
		}
	}
	items, err := s.db.SummaryBetween(start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"start": start, "end": end, "items": items})
}

func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.CheckpointHistory(20)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSync(w http.ResponseWriter, _ *http.Request) {
	if s.trigger == nil {
		http.Error(w, "sync disabled", http.StatusConflict)
		return
	}
	s.trigger.SyncNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error(r.Context(), "status API request failed", slog.F("path", r.URL.Path), slog.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
