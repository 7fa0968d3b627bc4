package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Server exposes the OAuth callback endpoint and owns the scheduled sync
// trigger. The HTTP surface only ever reports authorization status, never
// sync outcome; sync failures are logged here and retried on the next
// scheduled firing.
type Server struct {
	config *Config
	tokens *TokenManager
	syncer *Syncer
	mux    *http.ServeMux

	cron      *cron.Cron
	startOnce sync.Once
	startErr  error
	runWG     sync.WaitGroup

	// runMu serializes sync runs; a firing that arrives while a run is
	// still in flight is skipped, not queued.
	runMu sync.Mutex
}

// NewServer constructs the HTTP server and scheduler wiring.
func NewServer(config *Config, tokens *TokenManager, syncer *Syncer) *Server {
	s := &Server{
		config: config,
		tokens: tokens,
		syncer: syncer,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /preview.ics", s.handlePreview)
	return s
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartSchedule registers the cron trigger and kicks off an immediate first
// run. Idempotent: the startup gate and the OAuth callback may both call it,
// only the first caller starts anything.
func (s *Server) StartSchedule() error {
	s.startOnce.Do(func() {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.config.Schedule, s.runScheduled); err != nil {
			s.startErr = fmt.Errorf("invalid schedule %q: %w", s.config.Schedule, err)
			return
		}
		s.cron.Start()
		log.Printf("Schedule started (%s)", s.config.Schedule)
		s.runWG.Add(1)
		go func() {
			defer s.runWG.Done()
			s.runScheduled()
		}()
	})
	return s.startErr
}

// Stop halts the schedule and waits for any run still in flight, including
// the immediate first run. Safe to call before StartSchedule and more than
// once.
func (s *Server) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.runWG.Wait()
}

// runScheduled is the top-level scheduled-job handler: refresh the
// credential, then sync. All failures bubble up to here and are logged;
// the next firing tries again.
func (s *Server) runScheduled() {
	if !s.runMu.TryLock() {
		log.Println("Previous sync still running, skipping this run")
		return
	}
	defer s.runMu.Unlock()

	ctx := context.Background()

	if err := s.tokens.Refresh(ctx); err != nil {
		log.Printf("Token refresh failed: %v", err)
		return
	}

	if err := s.syncer.Sync(ctx); err != nil {
		log.Printf("Sync failed: %v", err)
		return
	}

	log.Printf("job ran at -> %s", time.Now().Format(time.RFC3339))
}

// handleRoot receives the one-time OAuth redirect. With a code and no
// persisted credential it completes authorization and starts the schedule;
// in every other case it just reports that setup is already done.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")

	if code != "" && !s.tokens.Authorized() {
		err := s.tokens.CompleteAuthorization(r.Context(), code)
		if err != nil && !errors.Is(err, ErrAlreadyAuthorized) {
			log.Printf("Authorization failed: %v", err)
			http.Error(w, "Authorization failed", http.StatusInternalServerError)
			return
		}

		fmt.Fprint(w, "Everything is set up!")

		if err := s.StartSchedule(); err != nil {
			log.Printf("Failed to start schedule: %v", err)
		}
		return
	}

	fmt.Fprint(w, "It's already set up!")
}

// handlePreview serves the canonical events the next run would reconcile as
// an iCalendar feed. Read-only; does not touch the calendar or credential.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	events, err := s.syncer.Preview(r.Context())
	if err != nil {
		log.Printf("Preview failed: %v", err)
		http.Error(w, "Preview failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := writeICS(w, events); err != nil {
		log.Printf("Warning: failed to write preview feed: %v", err)
	}
}
