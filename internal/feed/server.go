// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/activity_monitor/internal/category"
	"github.com/relabs-tech/activity_monitor/internal/features"
	"github.com/relabs-tech/activity_monitor/internal/imu"
	"github.com/relabs-tech/activity_monitor/internal/logstore"
)

// Server exposes the labels, the logbook and the window statistics over
// HTTP.
type Server struct {
	src      LabelSource
	recorder *logstore.Recorder
	hub      *Hub
	logger   *zap.Logger
	now      func() time.Time
	mux      *http.ServeMux
}

// NewServer wires the routes. recorder may be nil, in which case the
// logbook endpoint answers 503.
func NewServer(src LabelSource, recorder *logstore.Recorder, logger *zap.Logger) *Server {
	s := &Server{
		src:      src,
		recorder: recorder,
		hub:      NewHub(src, logger),
		logger:   logger,
		now:      time.Now,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/labels", s.handleLabels)
	s.mux.HandleFunc("/api/logbook", s.handleLogbook)
	s.mux.HandleFunc("/api/window/stats", s.handleWindowStats)
	s.mux.HandleFunc("/api/recording", s.handleRecording)
	s.mux.Handle("/ws/labels", s.hub)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.src.Current())
}

// windowStats is the window summary plus the timestamp of the latest
// sample per source, 0 when none has arrived.
type windowStats struct {
	features.Summary
	LastSample map[string]int64 `json:"last_sample"`
}

func (s *Server) handleWindowStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, windowStats{
		Summary: s.src.WindowStats(),
		LastSample: map[string]int64{
			imu.SourceChest:    s.src.LastSample(0),
			imu.SourceWearable: s.src.LastSample(1),
		},
	})
}

// handleLogbook serves ?day=YYYY-MM-DD&category=<type>. Day defaults to
// today and category to physical activity.
func (s *Server) handleLogbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		http.Error(w, "logbook disabled", http.StatusServiceUnavailable)
		return
	}

	day := s.now()
	if v := r.URL.Query().Get("day"); v != "" {
		d, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid day %q", v), http.StatusBadRequest)
			return
		}
		day = d
	}

	catType := category.Activity.Type
	if v := r.URL.Query().Get("category"); v != "" {
		catType = v
	}
	store, ok := s.recorder.Store(catType)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown category %q", catType), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, logstore.BuildReport(store, day, s.logger))
}

// handleRecording toggles recording with POST ?on=true|false.
func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	on, err := strconv.ParseBool(r.URL.Query().Get("on"))
	if err != nil {
		http.Error(w, "on must be true or false", http.StatusBadRequest)
		return
	}
	if err := s.src.SetRecording(on); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, s.src.Current())
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("json encode error", zap.Error(err))
	}
}
