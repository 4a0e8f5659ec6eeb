package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"sshwatch/internal/collector"
	"sshwatch/internal/config"
)

// Server is the read-only surface the dashboard pulls from. The heavy
// delivery machinery (push transport, rate limiting, UI) lives outside this
// process; everything here is a plain JSON read of the latest snapshot.
type Server struct {
	cfg     *config.Config
	coll    *collector.Collector
	logger  *slog.Logger
	version string
}

type statusResponse struct {
	Status    string             `json:"status"`
	Time      string             `json:"time"`
	Version   string             `json:"version"`
	LogPath   string             `json:"log_path"`
	Tick      string             `json:"tick_interval"`
	Retention int                `json:"retention_hours"`
	TopN      int                `json:"top_n"`
	Pipeline  collector.Counters `json:"pipeline"`
}

func Start(ctx context.Context, cfg *config.Config, coll *collector.Collector, logger *slog.Logger, version string) *http.Server {
	if cfg == nil || !cfg.API.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", cfg.API.Addr)
	}
	server := &Server{cfg: cfg, coll: coll, logger: logger, version: version}
	mux := http.NewServeMux()
	mux.HandleFunc("/data", server.handleData)
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	httpServer := &http.Server{Addr: cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.coll.Latest())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		Status:    "ok",
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Version:   s.version,
		LogPath:   s.cfg.Tail.Path,
		Tick:      s.cfg.Collector.TickInterval.String(),
		Retention: s.cfg.Collector.RetentionHours,
		TopN:      s.cfg.Collector.TopN,
		Pipeline:  s.coll.Stats(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
