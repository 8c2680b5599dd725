package server

import (
	"context"
	"fmt"
	"time"

	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/policy"
)

const sessionPurgeInterval = 10 * time.Minute

// runJanitor drives the periodic maintenance loops: idle shutdown signals
// for opted-in domains and session expiry.
func (s *Server) runJanitor(ctx context.Context) {
	interval := time.Duration(s.reg.Snapshot().Global.IdleCheckIntervalSeconds) * time.Second
	idleTicker := time.NewTicker(interval)
	sessionTicker := time.NewTicker(sessionPurgeInterval)
	defer idleTicker.Stop()
	defer sessionTicker.Stop()

	// Domains already signalled in the current idle period; cleared when
	// the domain becomes entitled to be awake again or goes offline.
	signaled := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return
		case <-idleTicker.C:
			s.checkIdleDomains(ctx, signaled)
		case <-sessionTicker.C:
			if n := s.sessions.PurgeExpired(time.Now()); n > 0 {
				s.log.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

// checkIdleDomains sends at most one shutdown signal per idle transition to
// each domain that opted in and is still reachable after its policy says it
// no longer needs to be awake.
func (s *Server) checkIdleDomains(ctx context.Context, signaled map[string]bool) {
	snapshot := s.reg.Snapshot()
	now := time.Now()

	for name, d := range snapshot.Domains {
		if !d.Shutdown.Enabled {
			continue
		}

		last, _, err := s.tracker.Last(ctx, name)
		if err != nil {
			s.log.Error("load last activity", "domain", name, "err", err)
			continue
		}
		shouldBeAwake, reason := policy.Evaluate(d.Policy, last, now)
		if shouldBeAwake {
			delete(signaled, name)
			continue
		}
		if signaled[name] {
			continue
		}
		if !s.prober.Reachable(ctx, d.Server.IP) {
			delete(signaled, name)
			continue
		}

		entry := model.ActionLogEntry{
			Domain: name,
			Action: model.ActionShutdownSignal,
		}
		if err := s.power.SignalShutdown(d.Server.IP, d.Shutdown.Port); err != nil {
			s.log.Error("shutdown signal failed", "domain", name, "ip", d.Server.IP, "err", err)
			entry.Status = model.StatusFailed
			entry.Details = err.Error()
			s.metrics.shutdownSignals.WithLabelValues(name, model.StatusFailed).Inc()
		} else {
			s.log.Info("shutdown signal sent", "domain", name, "ip", d.Server.IP, "reason", reason)
			entry.Status = model.StatusSuccess
			entry.Details = fmt.Sprintf("idle shutdown (%s)", reason)
			s.metrics.shutdownSignals.WithLabelValues(name, model.StatusSuccess).Inc()
			signaled[name] = true
		}
		if err := s.store.AppendLog(ctx, entry); err != nil {
			s.log.Error("append action log", "domain", name, "action", entry.Action, "err", err)
		}
	}
}
