// Package policy implements the pure wake/liveness decision function.
package policy

import (
	"time"

	"github.com/wakegate/wakegate/internal/registry"
)

// Reason explains an Evaluate verdict.
type Reason string

const (
	ReasonAlwaysOn        Reason = "always_on"
	ReasonWithinSchedule  Reason = "within_schedule"
	ReasonRecentActivity  Reason = "recent_activity"
	ReasonOutsideSchedule Reason = "outside_schedule"
	ReasonIdleTimeout     Reason = "idle_timeout"
	ReasonUnknownPolicy   Reason = "unknown_policy"
)

// Evaluate decides whether the backing server is entitled to be awake at
// now. A zero lastActivity means the domain has never been active. The
// idle window is exclusive: activity exactly idle_timeout_minutes ago does
// not count as recent.
//
// On-demand domains are never proactively woken here; the false branch only
// reports that the domain is not entitled to stay up.
func Evaluate(p registry.Policy, lastActivity time.Time, now time.Time) (bool, Reason) {
	switch p.Type {
	case registry.PolicyAlwaysOn:
		return true, ReasonAlwaysOn

	case registry.PolicyScheduled:
		if withinSchedule(p.Schedule, now) {
			return true, ReasonWithinSchedule
		}
		if recentActivity(p, lastActivity, now) {
			return true, ReasonRecentActivity
		}
		return false, ReasonOutsideSchedule

	case registry.PolicyOnDemand:
		if recentActivity(p, lastActivity, now) {
			return true, ReasonRecentActivity
		}
		return false, ReasonIdleTimeout
	}

	// Defensive default: an unrecognized policy keeps the server down
	// instead of failing the request.
	return false, ReasonUnknownPolicy
}

func recentActivity(p registry.Policy, lastActivity, now time.Time) bool {
	if lastActivity.IsZero() {
		return false
	}
	return now.Sub(lastActivity) < time.Duration(p.IdleTimeoutMinutes)*time.Minute
}

func withinSchedule(s *registry.Schedule, now time.Time) bool {
	if s == nil {
		return false
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return false
	}
	local := now.In(loc)
	if !s.ContainsDay(local.Weekday()) {
		return false
	}
	return s.StartHour <= local.Hour() && local.Hour() < s.EndHour
}
