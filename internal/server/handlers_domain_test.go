package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/wakegate/wakegate/internal/model"
)

func TestDomainPageUnknownDomain(t *testing.T) {
	s := newTestServer(t)
	rr, _ := doJSON(t, s.routes(), http.MethodGet, "/nowhere", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDomainPageDeniedByAllowList(t *testing.T) {
	s := newTestServer(t)
	rr, _ := doJSON(t, s.routes(), http.MethodGet, "/vault", "192.0.2.7:1234", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}

	logs, err := s.store.RecentLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != model.ActionAccessDenied {
		t.Fatalf("logs = %+v, want one access_denied entry", logs)
	}
	if logs[0].ClientIP != "192.0.2.7" {
		t.Fatalf("client ip = %q, want rejected address recorded", logs[0].ClientIP)
	}
}

func TestDomainPageAllowedByCIDR(t *testing.T) {
	s := newTestServer(t)
	rr, _ := doJSON(t, s.routes(), http.MethodGet, "/vault", "10.0.0.5:999", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestDomainPageRecordsActivity(t *testing.T) {
	s := newTestServer(t)
	before := time.Now()
	rr, body := doJSON(t, s.routes(), http.MethodGet, "/lab", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["polling_interval_seconds"] != float64(3) {
		t.Fatalf("polling interval = %v, want 3", body["polling_interval_seconds"])
	}

	last, ok, err := s.tracker.Last(context.Background(), "lab")
	if err != nil || !ok {
		t.Fatalf("last activity: ok=%v err=%v", ok, err)
	}
	if last.Before(before.Add(-time.Second)) {
		t.Fatalf("last activity %v not updated by page visit", last)
	}
}

func TestStatusOfflineDomain(t *testing.T) {
	s := newTestServer(t)
	rr, body := doJSON(t, s.routes(), http.MethodGet, "/api/status/lab", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["server_online"] != false || body["ready"] != false {
		t.Fatalf("body = %v, want offline and not ready", body)
	}
	if _, hasRedirect := body["redirect_url"]; hasRedirect {
		t.Fatal("redirect_url must be absent while not ready")
	}

	pol, ok := body["policy"].(map[string]any)
	if !ok {
		t.Fatalf("policy = %v, want object", body["policy"])
	}
	if pol["type"] != "on_demand" || pol["should_be_awake"] != false || pol["reason"] != "idle_timeout" {
		t.Fatalf("policy = %v, want idle on_demand verdict", pol)
	}
}

func TestStatusReachableButHealthCheckFailing(t *testing.T) {
	s := newTestServer(t)
	s.prober = &fakeProber{online: true, ready: false}

	rr, body := doJSON(t, s.routes(), http.MethodGet, "/api/status/lab", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["server_online"] != true || body["service_ready"] != false || body["ready"] != false {
		t.Fatalf("body = %v, want reachable but not ready", body)
	}
}

func TestStatusReadyIncludesRedirect(t *testing.T) {
	s := newTestServer(t)
	s.prober = &fakeProber{online: true, ready: true}

	_, body := doJSON(t, s.routes(), http.MethodGet, "/api/status/lab", "", "")
	if body["ready"] != true {
		t.Fatalf("body = %v, want ready", body)
	}
	if body["redirect_url"] != "http://lab.local:8080" {
		t.Fatalf("redirect_url = %v, want configured target", body["redirect_url"])
	}
}

func TestStatusNoHealthCheckDegradesToReachability(t *testing.T) {
	s := newTestServer(t)
	s.prober = &fakeProber{online: true, ready: false}

	_, body := doJSON(t, s.routes(), http.MethodGet, "/api/status/vault", "10.0.0.5:999", "")
	if body["ready"] != true {
		t.Fatalf("body = %v, want ready on reachability alone", body)
	}
}

func TestWakeSendsMagicPacketAndRecords(t *testing.T) {
	s := newTestServer(t)
	waker := &fakeWaker{}
	s.waker = waker

	rr, body := doJSON(t, s.routes(), http.MethodPost, "/api/wake/lab", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["success"] != true {
		t.Fatalf("body = %v, want success", body)
	}
	if len(waker.macs) != 1 || waker.macs[0] != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("waker calls = %v, want configured MAC", waker.macs)
	}

	rec, err := s.store.ActivityRecord(context.Background(), "lab")
	if err != nil {
		t.Fatalf("activity record: %v", err)
	}
	if rec.BootCount != 1 || rec.LastWOL == nil {
		t.Fatalf("record = %+v, want boot_count 1 and last_wol set", rec)
	}
}

func TestWakeDeclinedWithoutMAC(t *testing.T) {
	s := newTestServer(t)
	waker := &fakeWaker{}
	s.waker = waker

	rr, body := doJSON(t, s.routes(), http.MethodPost, "/api/wake/vault", "10.0.0.5:999", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if body["success"] != false {
		t.Fatalf("body = %v, want declined", body)
	}
	if len(waker.macs) != 0 {
		t.Fatal("declined wake must not actuate")
	}

	logs, err := s.store.RecentLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != model.ActionWake || logs[0].Status != model.StatusDeclined {
		t.Fatalf("logs = %+v, want one declined wol entry", logs)
	}
}

func TestWakeFailureDoesNotAdvanceBootCount(t *testing.T) {
	s := newTestServer(t)
	s.waker = &fakeWaker{err: context.DeadlineExceeded}

	rr, _ := doJSON(t, s.routes(), http.MethodPost, "/api/wake/lab", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if _, err := s.store.ActivityRecord(context.Background(), "lab"); err == nil {
		t.Fatal("failed wake must leave no activity record")
	}
}

func TestRepeatedWakesEachCount(t *testing.T) {
	s := newTestServer(t)
	s.waker = &fakeWaker{}

	for i := 0; i < 3; i++ {
		rr, _ := doJSON(t, s.routes(), http.MethodPost, "/api/wake/lab", "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("wake %d status = %d, want 200", i, rr.Code)
		}
	}

	rec, err := s.store.ActivityRecord(context.Background(), "lab")
	if err != nil {
		t.Fatalf("activity record: %v", err)
	}
	if rec.BootCount != 3 {
		t.Fatalf("boot_count = %d, want 3 (one per successful wake)", rec.BootCount)
	}
}

func TestActivityHeartbeat(t *testing.T) {
	s := newTestServer(t)
	rr, body := doJSON(t, s.routes(), http.MethodPost, "/api/activity/lab", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["success"] != true {
		t.Fatalf("body = %v, want success", body)
	}
	if _, ok, _ := s.tracker.Last(context.Background(), "lab"); !ok {
		t.Fatal("heartbeat must record activity")
	}
}
