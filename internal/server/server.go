// Package server wires the HTTP surface of the gateway: domain status and
// wake routes, the admin API, and the authenticated testing reverse proxy.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wakegate/wakegate/internal/activity"
	"github.com/wakegate/wakegate/internal/config"
	"github.com/wakegate/wakegate/internal/powerctl"
	"github.com/wakegate/wakegate/internal/probe"
	"github.com/wakegate/wakegate/internal/registry"
	"github.com/wakegate/wakegate/internal/session"
	"github.com/wakegate/wakegate/internal/store/sqlite"
	"github.com/wakegate/wakegate/internal/wol"
)

// prober abstracts the liveness checks so handlers can be exercised without
// real ICMP.
type prober interface {
	Reachable(ctx context.Context, ip string) bool
	Ready(ctx context.Context, baseURL, healthPath string) bool
}

// waker abstracts the Wake-on-LAN actuator.
type waker interface {
	Wake(mac string) error
}

// shutdownSender abstracts the idle shutdown signal.
type shutdownSender interface {
	SignalShutdown(ip string, port int) error
}

type Server struct {
	cfg      config.Config
	reg      *registry.Registry
	store    *sqlite.Store
	tracker  *activity.Tracker
	sessions *session.Manager
	metrics  *metrics
	log      *slog.Logger

	prober prober
	waker  waker
	power  shutdownSender

	proxyClient *http.Client
}

func New(cfg config.Config, reg *registry.Registry, store *sqlite.Store, logger *slog.Logger) *Server {
	global := reg.Snapshot().Global
	return &Server{
		cfg:      cfg,
		reg:      reg,
		store:    store,
		tracker:  activity.NewTracker(store),
		sessions: session.NewManager(cfg.SessionSecret, cfg.SessionTTL),
		metrics:  newMetrics(),
		log:      logger,
		prober: probe.New(
			time.Duration(global.PingTimeoutSeconds)*time.Second,
			time.Duration(global.HealthCheckTimeoutSeconds)*time.Second,
		),
		waker: wol.New(cfg.WakeBroadcast),
		power: powerctl.New(),
		proxyClient: &http.Client{
			Transport: &http.Transport{DisableKeepAlives: true},
		},
	}
}

func (s *Server) Run(ctx context.Context) error {
	go s.runJanitor(ctx)
	if s.cfg.WatchRegistry {
		go func() {
			if err := s.reg.Watch(ctx); err != nil {
				s.log.Error("registry watch stopped", "err", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "addr", s.cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return shutdownServer(httpServer, 5*time.Second)
	case err := <-errCh:
		_ = shutdownServer(httpServer, 5*time.Second)
		return err
	}
}

func shutdownServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status/{domain}", s.withDomain(s.handleStatus)).Methods(http.MethodGet)
	api.HandleFunc("/wake/{domain}", s.withDomain(s.handleWake)).Methods(http.MethodPost)
	api.HandleFunc("/activity/{domain}", s.withDomain(s.handleActivityTouch)).Methods(http.MethodPost)

	api.HandleFunc("/admin/login", s.handleAdminLogin).Methods(http.MethodPost)
	api.HandleFunc("/admin/logout", s.handleAdminLogout).Methods(http.MethodPost)
	api.HandleFunc("/config", s.requireAdmin(s.handleConfigDump)).Methods(http.MethodGet)
	api.HandleFunc("/reload", s.requireAdmin(s.handleReload)).Methods(http.MethodPost)
	api.HandleFunc("/logs", s.requireAdmin(s.handleLogList)).Methods(http.MethodGet)
	api.HandleFunc("/activity", s.requireAdmin(s.handleActivityList)).Methods(http.MethodGet)

	api.HandleFunc("/testing-projects", s.requireAdmin(s.handleProjectList)).Methods(http.MethodGet)
	api.HandleFunc("/testing-projects", s.requireAdmin(s.handleProjectCreate)).Methods(http.MethodPost)
	api.HandleFunc("/testing-projects/{name}", s.requireAdmin(s.handleProjectUpdate)).Methods(http.MethodPut)
	api.HandleFunc("/testing-projects/{name}", s.requireAdmin(s.handleProjectDelete)).Methods(http.MethodDelete)
	api.HandleFunc("/testing-projects/{name}/deactivate", s.requireAdmin(s.handleProjectDeactivate)).Methods(http.MethodPost)

	testing := r.PathPrefix("/testing").Subrouter()
	testing.HandleFunc("/{project}/login", s.handleTestingLogin).Methods(http.MethodPost)
	testing.HandleFunc("/{project}/logout", s.handleTestingLogout).Methods(http.MethodGet)
	testing.PathPrefix("/{project}").HandlerFunc(s.handleTestingProxy)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/{domain}", s.withDomain(s.handleDomainPage)).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

type errorResponse struct {
	Error string `json:"error"`
}
