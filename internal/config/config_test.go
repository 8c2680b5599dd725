package config

import (
	"testing"
	"time"
)

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("WAKEGATE_ADMIN_SECRET", "")
	t.Setenv("WAKEGATE_SESSION_SECRET", "")

	cfg, err := ParseFlags([]string{"--admin-secret", "a", "--session-secret", "s"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != defaultListenAddr {
		t.Fatalf("expected default listen %q, got %q", defaultListenAddr, cfg.ListenAddr)
	}
	if cfg.ProxyTimeout != defaultProxyTimeout {
		t.Fatalf("expected default proxy timeout %v, got %v", defaultProxyTimeout, cfg.ProxyTimeout)
	}
	if cfg.TestingHost != defaultTestingHost {
		t.Fatalf("expected default testing host %q, got %q", defaultTestingHost, cfg.TestingHost)
	}
	if !cfg.WatchRegistry {
		t.Fatal("expected registry watching on by default")
	}
}

func TestParseFlagsRequiredSecrets(t *testing.T) {
	t.Setenv("WAKEGATE_ADMIN_SECRET", "")
	t.Setenv("WAKEGATE_SESSION_SECRET", "")

	if _, err := ParseFlags(nil); err == nil {
		t.Fatal("expected error when admin secret is missing")
	}
	if _, err := ParseFlags([]string{"--admin-secret", "a"}); err == nil {
		t.Fatal("expected error when session secret is missing")
	}
}

func TestParseFlagsEnvOverrides(t *testing.T) {
	t.Setenv("WAKEGATE_ADMIN_SECRET", "env-admin")
	t.Setenv("WAKEGATE_SESSION_SECRET", "env-session")
	t.Setenv("WAKEGATE_PROXY_TIMEOUT", "10s")
	t.Setenv("WAKEGATE_WATCH_CONFIG", "false")

	cfg, err := ParseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AdminSecret != "env-admin" {
		t.Fatalf("expected env admin secret, got %q", cfg.AdminSecret)
	}
	if cfg.ProxyTimeout != 10*time.Second {
		t.Fatalf("expected 10s proxy timeout, got %v", cfg.ProxyTimeout)
	}
	if cfg.WatchRegistry {
		t.Fatal("expected registry watching disabled via env")
	}
}

func TestParseFlagsRejectsBadDurations(t *testing.T) {
	t.Setenv("WAKEGATE_ADMIN_SECRET", "a")
	t.Setenv("WAKEGATE_SESSION_SECRET", "s")

	if _, err := ParseFlags([]string{"--proxy-timeout", "-1s"}); err == nil {
		t.Fatal("expected error for negative proxy timeout")
	}
}
