// Package keepalive runs the tiny HTTP endpoint hosting platforms ping to
// keep the bot process alive. It also reports the pending reminder count.
package keepalive

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"remindbot/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

// Pending reports how many reminders are currently scheduled.
type Pending interface {
	Pending() int
}

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	pending Pending

	ln  net.Listener
	srv *http.Server
}

func New(cfg Config, pending Pending, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8080"
	}
	return &Service{cfg: cfg, log: log, pending: pending}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("keepalive server stopped", logx.Err(err))
		}
	}()

	s.log.Info("keepalive listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Service) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := struct {
		Status  string `json:"status"`
		Pending int    `json:"pending"`
	}{Status: "ok"}
	if s.pending != nil {
		resp.Pending = s.pending.Pending()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
