package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/policy"
	"github.com/wakegate/wakegate/internal/registry"
)

type policyStatus struct {
	Type          string `json:"type"`
	ShouldBeAwake bool   `json:"should_be_awake"`
	Reason        string `json:"reason"`
}

type domainStatus struct {
	Domain       string       `json:"domain"`
	ServerOnline bool         `json:"server_online"`
	ServiceReady bool         `json:"service_ready"`
	Ready        bool         `json:"ready"`
	RedirectURL  string       `json:"redirect_url,omitempty"`
	Policy       policyStatus `json:"policy"`
}

// statusFor probes the backing server and folds in the policy verdict.
// A domain is ready only when reachable and either no health check is
// configured or the health check answers.
func (s *Server) statusFor(r *http.Request, d *registry.Domain) domainStatus {
	ctx := r.Context()

	last, _, err := s.tracker.Last(ctx, d.Name)
	if err != nil {
		s.log.Error("load last activity", "domain", d.Name, "err", err)
	}
	shouldBeAwake, reason := policy.Evaluate(d.Policy, last, time.Now())

	online := s.prober.Reachable(ctx, d.Server.IP)
	serviceReady := false
	if online && d.Redirect.HealthCheck != "" {
		serviceReady = s.prober.Ready(ctx, d.Redirect.URL, d.Redirect.HealthCheck)
	}
	ready := online && (d.Redirect.HealthCheck == "" || serviceReady)

	st := domainStatus{
		Domain:       d.Name,
		ServerOnline: online,
		ServiceReady: serviceReady,
		Ready:        ready,
		Policy: policyStatus{
			Type:          d.Policy.Type,
			ShouldBeAwake: shouldBeAwake,
			Reason:        string(reason),
		},
	}
	if ready {
		st.RedirectURL = d.Redirect.URL
	}
	return st
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.reg.Snapshot()
	names := make([]string, 0, len(snapshot.Domains))
	for name := range snapshot.Domains {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"domains": names})
}

// handleDomainPage is the attendant endpoint a visitor lands on while the
// backing server spins up. Visiting it counts as activity.
func (s *Server) handleDomainPage(w http.ResponseWriter, r *http.Request, d *registry.Domain) {
	if err := s.tracker.Touch(r.Context(), d.Name, time.Now()); err != nil {
		s.log.Error("touch activity", "domain", d.Name, "err", err)
	}

	st := s.statusFor(r, d)
	status := model.StatusPending
	if st.Ready {
		status = model.StatusSuccess
	}
	s.audit(r, model.ActionLogEntry{Domain: d.Name, Action: model.ActionAccess, Status: status})

	writeJSON(w, http.StatusOK, map[string]any{
		"domain":                   d.Name,
		"description":              d.Description,
		"status":                   st,
		"polling_interval_seconds": s.reg.Snapshot().Global.PollingIntervalSeconds,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, d *registry.Domain) {
	writeJSON(w, http.StatusOK, s.statusFor(r, d))
}

type wakeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleWake actuates Wake-on-LAN for the domain. Actuation is declined,
// not failed, when the policy disables it or no MAC is configured. There is
// no de-duplication: every accepted call sends a fresh magic packet.
func (s *Server) handleWake(w http.ResponseWriter, r *http.Request, d *registry.Domain) {
	if !d.Policy.WakeEnabled() || d.Server.MAC == "" {
		s.audit(r, model.ActionLogEntry{
			Domain:  d.Name,
			Action:  model.ActionWake,
			Status:  model.StatusDeclined,
			Details: "wake-on-lan disabled or no MAC configured",
		})
		s.metrics.wakeAttempts.WithLabelValues(d.Name, model.StatusDeclined).Inc()
		writeJSON(w, http.StatusBadRequest, wakeResponse{Success: false, Message: "wake not available for this domain"})
		return
	}

	if err := s.waker.Wake(d.Server.MAC); err != nil {
		s.audit(r, model.ActionLogEntry{
			Domain:  d.Name,
			Action:  model.ActionWake,
			Status:  model.StatusFailed,
			Details: err.Error(),
		})
		s.metrics.wakeAttempts.WithLabelValues(d.Name, model.StatusFailed).Inc()
		writeJSON(w, http.StatusInternalServerError, wakeResponse{Success: false, Message: "wake signal failed"})
		return
	}

	now := time.Now()
	if err := s.tracker.Touch(r.Context(), d.Name, now); err != nil {
		s.log.Error("touch activity", "domain", d.Name, "err", err)
	}
	if err := s.store.RecordWake(r.Context(), d.Name, now); err != nil {
		s.log.Error("record wake", "domain", d.Name, "err", err)
	}
	s.audit(r, model.ActionLogEntry{
		Domain:  d.Name,
		Action:  model.ActionWake,
		Status:  model.StatusSuccess,
		Details: fmt.Sprintf("magic packet sent to %s", d.Server.MAC),
	})
	s.metrics.wakeAttempts.WithLabelValues(d.Name, model.StatusSuccess).Inc()

	writeJSON(w, http.StatusOK, wakeResponse{Success: true, Message: "wake signal sent"})
}

// handleActivityTouch is the heartbeat endpoint backends and attendant pages
// call to keep an on-demand domain alive.
func (s *Server) handleActivityTouch(w http.ResponseWriter, r *http.Request, d *registry.Domain) {
	if err := s.tracker.Touch(r.Context(), d.Name, time.Now()); err != nil {
		s.log.Error("touch activity", "domain", d.Name, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to record activity"})
		return
	}
	s.audit(r, model.ActionLogEntry{Domain: d.Name, Action: model.ActionActivity, Status: model.StatusSuccess})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
