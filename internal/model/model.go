// Package model defines the core data types shared across the wakegate
// server, store, and audit layers.
package model

import "time"

// Action log action constants written to the durable logs table.
const (
	ActionAccess         = "access"
	ActionAccessDenied   = "access_denied"
	ActionWake           = "wol"
	ActionActivity       = "activity"
	ActionReload         = "reload"
	ActionAdminLogin     = "admin_login"
	ActionShutdownSignal = "shutdown_signal"
)

// Action log status constants.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusForbidden = "forbidden"
	StatusPending   = "pending"
	StatusDeclined  = "declined"
)

// Testing access log action constants.
const (
	TestingLoginSuccess     = "login_success"
	TestingLoginFailed      = "login_failed"
	TestingProxyConnectFail = "proxy_error_connect"
	TestingProxyTimeout     = "proxy_error_timeout"
)

// ActionLogEntry is one append-only audit record. Entries are never updated
// or deleted by the gateway.
type ActionLogEntry struct {
	ID        int64
	Timestamp time.Time
	Domain    string
	Action    string
	Status    string
	Details   string
	ClientIP  string
}

// ActivityRecord tracks per-domain liveness bookkeeping. LastActivity is
// monotonically non-decreasing; BootCount advances only on a successful wake.
type ActivityRecord struct {
	Domain       string
	LastActivity time.Time
	LastWOL      *time.Time
	BootCount    int64
}

// TestingProject is a password-gated backend reachable only through the
// authenticated reverse proxy.
type TestingProject struct {
	Name            string
	DisplayName     string
	Port            int
	PasswordHash    string
	Description     string
	HealthCheckPath string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TestingAccessEntry is one append-only testing access log record.
type TestingAccessEntry struct {
	ID        int64
	Timestamp time.Time
	Project   string
	ClientIP  string
	Action    string
}
