// Package registry loads and holds the domain configuration document. A
// snapshot is immutable once loaded and is replaced wholesale on reload;
// handlers read a point-in-time snapshot and never observe partial updates.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Policy type constants.
const (
	PolicyAlwaysOn  = "always_on"
	PolicyScheduled = "scheduled"
	PolicyOnDemand  = "on_demand"
)

const defaultOnDemandIdleMinutes = 20
const defaultScheduledIdleMinutes = 60
const defaultShutdownPort = 5005

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Config is one loaded registry snapshot.
type Config struct {
	Domains map[string]*Domain `json:"domains"`
	Global  Global             `json:"global"`
}

// Global holds registry-wide defaults.
type Global struct {
	PollingIntervalSeconds    int `json:"polling_interval_seconds"`
	PingTimeoutSeconds        int `json:"ping_timeout_seconds"`
	HealthCheckTimeoutSeconds int `json:"health_check_timeout_seconds"`
	IdleCheckIntervalSeconds  int `json:"idle_check_interval_seconds"`
}

// Domain is the configuration of one logical endpoint.
type Domain struct {
	Name        string   `json:"-"`
	Description string   `json:"description,omitempty"`
	Policy      Policy   `json:"policy"`
	Server      Server   `json:"server"`
	Redirect    Redirect `json:"redirect"`
	Security    Security `json:"security"`
	Shutdown    Shutdown `json:"shutdown"`
}

// Policy controls when the backing server should be awake.
type Policy struct {
	Type               string    `json:"type"`
	IdleTimeoutMinutes int       `json:"idle_timeout_minutes,omitempty"`
	WOLEnabled         *bool     `json:"wol_enabled,omitempty"`
	Schedule           *Schedule `json:"schedule,omitempty"`
}

// WakeEnabled reports whether Wake-on-LAN actuation is permitted. Unset
// defaults to enabled.
func (p Policy) WakeEnabled() bool {
	return p.WOLEnabled == nil || *p.WOLEnabled
}

// Schedule is a weekly awake window in a named time zone.
type Schedule struct {
	Timezone  string   `json:"timezone"`
	Days      []string `json:"days"`
	StartHour int      `json:"start_hour"`
	EndHour   int      `json:"end_hour"`
}

// Server identifies the backing machine.
type Server struct {
	IP  string `json:"ip"`
	MAC string `json:"mac,omitempty"`
}

// Redirect is where traffic goes once the backend is live.
type Redirect struct {
	URL         string `json:"url"`
	HealthCheck string `json:"health_check,omitempty"`
}

// Security holds the per-domain IP allow-list. Empty means unrestricted.
type Security struct {
	AllowedIPs []string `json:"allowed_ips,omitempty"`
}

// Shutdown opts a domain into the idle shutdown signal sent to the
// companion listener on the backing server.
type Shutdown struct {
	Enabled bool `json:"enabled,omitempty"`
	Port    int  `json:"port,omitempty"`
}

// Load reads, decodes, and validates a registry document.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	if cfg.Domains == nil {
		cfg.Domains = map[string]*Domain{}
	}
	for name, d := range cfg.Domains {
		if d == nil {
			return nil, fmt.Errorf("domain %q: empty configuration", name)
		}
		d.Name = name
		if err := validateDomain(d); err != nil {
			return nil, fmt.Errorf("domain %q: %w", name, err)
		}
	}
	applyGlobalDefaults(&cfg.Global)

	return &cfg, nil
}

func applyGlobalDefaults(g *Global) {
	if g.PollingIntervalSeconds <= 0 {
		g.PollingIntervalSeconds = 3
	}
	if g.PingTimeoutSeconds <= 0 {
		g.PingTimeoutSeconds = 2
	}
	if g.HealthCheckTimeoutSeconds <= 0 {
		g.HealthCheckTimeoutSeconds = 5
	}
	if g.IdleCheckIntervalSeconds <= 0 {
		g.IdleCheckIntervalSeconds = 60
	}
}

func validateDomain(d *Domain) error {
	switch d.Policy.Type {
	case PolicyAlwaysOn:
	case PolicyOnDemand:
		if d.Policy.IdleTimeoutMinutes <= 0 {
			d.Policy.IdleTimeoutMinutes = defaultOnDemandIdleMinutes
		}
	case PolicyScheduled:
		if d.Policy.IdleTimeoutMinutes <= 0 {
			d.Policy.IdleTimeoutMinutes = defaultScheduledIdleMinutes
		}
		if d.Policy.Schedule == nil {
			return fmt.Errorf("scheduled policy requires a schedule")
		}
		if err := validateSchedule(d.Policy.Schedule); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown policy type %q", d.Policy.Type)
	}

	if strings.TrimSpace(d.Server.IP) == "" {
		return fmt.Errorf("server ip is required")
	}
	if _, err := netip.ParseAddr(d.Server.IP); err != nil {
		return fmt.Errorf("server ip %q: %w", d.Server.IP, err)
	}
	if d.Server.MAC != "" {
		if _, err := net.ParseMAC(d.Server.MAC); err != nil {
			return fmt.Errorf("server mac %q: %w", d.Server.MAC, err)
		}
	}

	if d.Redirect.URL != "" {
		u, err := url.Parse(d.Redirect.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("redirect url %q is not absolute", d.Redirect.URL)
		}
	}
	if d.Redirect.HealthCheck != "" && !strings.HasPrefix(d.Redirect.HealthCheck, "/") {
		return fmt.Errorf("health check path %q must start with /", d.Redirect.HealthCheck)
	}

	for _, entry := range d.Security.AllowedIPs {
		if strings.Contains(entry, "/") {
			if _, err := netip.ParsePrefix(entry); err != nil {
				return fmt.Errorf("allowed ip block %q: %w", entry, err)
			}
		} else if _, err := netip.ParseAddr(entry); err != nil {
			return fmt.Errorf("allowed ip %q: %w", entry, err)
		}
	}

	if d.Shutdown.Enabled && d.Shutdown.Port == 0 {
		d.Shutdown.Port = defaultShutdownPort
	}
	if d.Shutdown.Port < 0 || d.Shutdown.Port > 65535 {
		return fmt.Errorf("shutdown port %d out of range", d.Shutdown.Port)
	}

	return nil
}

func validateSchedule(s *Schedule) error {
	if strings.TrimSpace(s.Timezone) == "" {
		return fmt.Errorf("schedule timezone is required")
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("schedule timezone %q: %w", s.Timezone, err)
	}
	if len(s.Days) == 0 {
		return fmt.Errorf("schedule needs at least one day")
	}
	for _, day := range s.Days {
		if _, ok := weekdayNames[strings.ToLower(day)]; !ok {
			return fmt.Errorf("unknown schedule day %q", day)
		}
	}
	if s.StartHour < 0 || s.StartHour > 23 {
		return fmt.Errorf("start hour %d out of range", s.StartHour)
	}
	if s.EndHour < 1 || s.EndHour > 24 {
		return fmt.Errorf("end hour %d out of range", s.EndHour)
	}
	if s.StartHour >= s.EndHour {
		return fmt.Errorf("start hour %d must be before end hour %d", s.StartHour, s.EndHour)
	}
	return nil
}

// ContainsDay reports whether the weekday is part of the schedule.
func (s *Schedule) ContainsDay(day time.Weekday) bool {
	for _, name := range s.Days {
		if wd, ok := weekdayNames[strings.ToLower(name)]; ok && wd == day {
			return true
		}
	}
	return false
}

// Registry holds the current configuration snapshot and replaces it on
// explicit reload. A failed reload keeps the previous snapshot in effect.
type Registry struct {
	path string
	log  *slog.Logger
	cur  atomic.Pointer[Config]
}

// Open loads the registry document at path. The initial load must succeed.
func Open(path string, logger *slog.Logger) (*Registry, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	r := &Registry{path: path, log: logger}
	r.cur.Store(cfg)
	return r, nil
}

// Snapshot returns the current configuration. Callers must not mutate it.
func (r *Registry) Snapshot() *Config {
	return r.cur.Load()
}

// Domain resolves one domain from the current snapshot.
func (r *Registry) Domain(name string) (*Domain, bool) {
	d, ok := r.Snapshot().Domains[name]
	return d, ok
}

// Reload re-reads the registry document and swaps the snapshot in one step.
// On failure the previous snapshot stays active and the error is returned.
func (r *Registry) Reload() error {
	cfg, err := Load(r.path)
	if err != nil {
		return err
	}
	r.cur.Store(cfg)
	r.log.Info("registry reloaded", "path", r.path, "domains", len(cfg.Domains))
	return nil
}
