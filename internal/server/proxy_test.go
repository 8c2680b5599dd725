package server

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wakegate/wakegate/internal/auth"
	"github.com/wakegate/wakegate/internal/model"
)

// seedProject stores an active testing project pointed at port.
func seedProject(t *testing.T, s *Server, name string, port int) {
	t.Helper()
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = s.store.CreateTestingProject(context.Background(), model.TestingProject{
		Name:         name,
		DisplayName:  strings.ToUpper(name),
		Port:         port,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
}

// projectClient logs a cookie-carrying client into the project.
func projectClient(t *testing.T, ts *httptest.Server, name string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar}

	resp, err := client.Post(ts.URL+"/testing/"+name+"/login", "application/json", strings.NewReader(`{"password":"hunter2"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	return client
}

func backendPort(t *testing.T, backend *httptest.Server) int {
	t.Helper()
	u, err := url.Parse(backend.URL)
	if err != nil {
		t.Fatalf("parse backend url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("backend port: %v", err)
	}
	return port
}

func TestTestingLoginWrongPassword(t *testing.T) {
	s := newTestServer(t)
	seedProject(t, s, "demo", 9001)

	rr, _ := doJSON(t, s.routes(), http.MethodPost, "/testing/demo/login", "", `{"password":"nope"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	entries, err := s.store.RecentTestingAccess(context.Background(), "demo", 10)
	if err != nil {
		t.Fatalf("access log: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != model.TestingLoginFailed {
		t.Fatalf("entries = %+v, want one login_failed", entries)
	}
}

func TestProxyRequiresLogin(t *testing.T) {
	s := newTestServer(t)
	seedProject(t, s, "demo", 9001)

	rr, _ := doJSON(t, s.routes(), http.MethodGet, "/testing/demo/anything", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestProxyUnknownOrInactiveProject(t *testing.T) {
	s := newTestServer(t)
	seedProject(t, s, "paused", 9001)
	if err := s.store.SetTestingProjectActive(context.Background(), "paused", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	for _, name := range []string{"ghost", "paused"} {
		rr, _ := doJSON(t, s.routes(), http.MethodGet, "/testing/"+name+"/", "", "")
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404", name, rr.Code)
		}
	}
}

func TestProxyHeaderHygiene(t *testing.T) {
	var seen http.Header
	var seenPath, seenQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		seenPath = r.URL.Path
		seenQuery = r.URL.RawQuery
		w.Header().Set("Content-Encoding", "identity")
		w.Header().Set("X-Backend", "demo")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("brewing"))
	}))
	defer backend.Close()

	s := newTestServer(t)
	seedProject(t, s, "demo", backendPort(t, backend))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()
	client := projectClient(t, ts, "demo")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/testing/demo/api/items?limit=5", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Custom", "kept")
	req.Header.Set("Connection", "keep-alive")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("proxy request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if seenPath != "/api/items" || seenQuery != "limit=5" {
		t.Fatalf("backend saw %s?%s, want /api/items?limit=5", seenPath, seenQuery)
	}
	if seen.Get("Cookie") != "" {
		t.Error("backend must not receive the session cookie")
	}
	if strings.Contains(strings.ToLower(seen.Get("Connection")), "keep-alive") {
		t.Error("client Connection header must not be forwarded")
	}
	if seen.Get("X-Custom") != "kept" {
		t.Error("ordinary headers must be forwarded")
	}
	if seen.Get("X-Forwarded-For") == "" {
		t.Error("X-Forwarded-For must be injected")
	}
	if seen.Get("X-Forwarded-Proto") != "http" {
		t.Errorf("X-Forwarded-Proto = %q, want http", seen.Get("X-Forwarded-Proto"))
	}
	if seen.Get("X-Project-Name") != "demo" {
		t.Errorf("X-Project-Name = %q, want demo", seen.Get("X-Project-Name"))
	}

	if resp.StatusCode != http.StatusTeapot {
		t.Fatalf("status = %d, want backend status relayed", resp.StatusCode)
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Error("Content-Encoding must be stripped from the relayed response")
	}
	if resp.Header.Get("X-Backend") != "demo" {
		t.Error("ordinary response headers must be relayed")
	}
}

func TestProxyConnectFailure(t *testing.T) {
	s := newTestServer(t)
	// No listener on this port.
	seedProject(t, s, "demo", 1)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()
	client := projectClient(t, ts, "demo")

	resp, err := client.Get(ts.URL + "/testing/demo/")
	if err != nil {
		t.Fatalf("proxy request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	entries, err := s.store.RecentTestingAccess(context.Background(), "demo", 10)
	if err != nil {
		t.Fatalf("access log: %v", err)
	}
	if len(entries) == 0 || entries[0].Action != model.TestingProxyConnectFail {
		t.Fatalf("entries = %+v, want proxy_error_connect first", entries)
	}
}

func TestProxyTimeout(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	s := newTestServer(t)
	s.cfg.ProxyTimeout = 100 * time.Millisecond
	seedProject(t, s, "demo", backendPort(t, backend))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()
	client := projectClient(t, ts, "demo")

	resp, err := client.Get(ts.URL + "/testing/demo/slow")
	if err != nil {
		t.Fatalf("proxy request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", resp.StatusCode)
	}

	entries, err := s.store.RecentTestingAccess(context.Background(), "demo", 10)
	if err != nil {
		t.Fatalf("access log: %v", err)
	}
	if len(entries) == 0 || entries[0].Action != model.TestingProxyTimeout {
		t.Fatalf("entries = %+v, want proxy_error_timeout first", entries)
	}
}

func TestSessionGrantsAreIndependentPerProject(t *testing.T) {
	alpha := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer alpha.Close()

	s := newTestServer(t)
	seedProject(t, s, "alpha", backendPort(t, alpha))
	seedProject(t, s, "beta", backendPort(t, alpha))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()
	client := projectClient(t, ts, "alpha")

	resp, err := client.Get(ts.URL + "/testing/alpha/")
	if err != nil {
		t.Fatalf("alpha request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("alpha status = %d, want 200", resp.StatusCode)
	}

	resp, err = client.Get(ts.URL + "/testing/beta/")
	if err != nil {
		t.Fatalf("beta request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("beta status = %d, want 401 (grant must not leak)", resp.StatusCode)
	}

	// Project login never implies admin.
	resp, err = client.Get(ts.URL + "/api/config")
	if err != nil {
		t.Fatalf("config request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("config status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutRevokesSingleProject(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	s := newTestServer(t)
	seedProject(t, s, "demo", backendPort(t, backend))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()
	client := projectClient(t, ts, "demo")

	resp, err := client.Get(ts.URL + "/testing/demo/logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	_ = resp.Body.Close()

	resp, err = client.Get(ts.URL + "/testing/demo/")
	if err != nil {
		t.Fatalf("post-logout request: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after logout = %d, want 401", resp.StatusCode)
	}
}
