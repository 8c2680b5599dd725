// Package probe implements network reachability and application health
// checks for backing servers. Every failure mode collapses to a boolean
// "down"; callers never see the underlying error.
package probe

import (
	"context"
	"crypto/tls"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/wakegate/wakegate/internal/netutil"
)

// Prober runs liveness checks with fixed timeouts.
type Prober struct {
	PingTimeout   time.Duration
	HealthTimeout time.Duration

	client *http.Client
}

// New creates a Prober. The health-check client skips certificate
// validation: these are internal endpoints probed by IP or private name,
// and the check only asks "does it answer 200".
func New(pingTimeout, healthTimeout time.Duration) *Prober {
	return &Prober{
		PingTimeout:   pingTimeout,
		HealthTimeout: healthTimeout,
		client: &http.Client{
			Timeout: healthTimeout,
			Transport: &http.Transport{
				TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
				DisableKeepAlives: true,
			},
		},
	}
}

// Reachable sends a single ICMP echo via the system ping binary and reports
// whether the host answered. Any failure (missing binary, timeout, non-zero
// exit) reads as unreachable; there are no retries.
func (p *Prober) Reachable(ctx context.Context, ip string) bool {
	timeoutSec := int(p.PingTimeout / time.Second)
	if timeoutSec < 1 {
		timeoutSec = 1
	}
	ctx, cancel := context.WithTimeout(ctx, p.PingTimeout+time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", strconv.Itoa(timeoutSec), ip)
	return cmd.Run() == nil
}

// Ready issues one GET against baseURL+healthPath and reports success iff
// the status code is exactly 200.
func (p *Prober) Ready(ctx context.Context, baseURL, healthPath string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, netutil.JoinURLPath(baseURL, healthPath), nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
