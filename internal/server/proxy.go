package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/netutil"
)

const (
	proxyOutcomeSuccess = "success"
	proxyOutcomeConnect = "connect_error"
	proxyOutcomeTimeout = "timeout"
)

// proxyHTTP forwards one request to the project's backend. Each call is an
// independent outbound request with no connection reuse.
func (s *Server) proxyHTTP(w http.ResponseWriter, r *http.Request, p model.TestingProject, backendPath string) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ProxyTimeout)
	defer cancel()

	target := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(s.cfg.TestingHost, strconv.Itoa(p.Port)),
		Path:     backendPath,
		RawQuery: r.URL.RawQuery,
	}
	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to build backend request"})
		return
	}
	out.Header = outboundHeaders(r, p.Name)
	out.ContentLength = r.ContentLength

	resp, err := s.proxyClient.Do(out)
	if err != nil {
		if isTimeout(err) {
			s.logTestingAccess(r, p.Name, model.TestingProxyTimeout)
			s.metrics.proxyRequests.WithLabelValues(p.Name, proxyOutcomeTimeout).Inc()
			writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "backend timed out"})
			return
		}
		s.logTestingAccess(r, p.Name, model.TestingProxyConnectFail)
		s.metrics.proxyRequests.WithLabelValues(p.Name, proxyOutcomeConnect).Inc()
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "backend unavailable"})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	s.metrics.proxyRequests.WithLabelValues(p.Name, proxyOutcomeSuccess).Inc()

	respHeader := resp.Header.Clone()
	netutil.RemoveHopByHopHeaders(respHeader)
	respHeader.Del("Content-Encoding")
	respHeader.Del("Content-Length")
	for key, values := range respHeader {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		s.log.Debug("proxy response copy interrupted", "project", p.Name, "err", err)
	}
}

// outboundHeaders builds the backend request headers: the inbound set minus
// Cookie and the hop-by-hop headers, plus the forwarding metadata. Host is
// never copied; the outbound request targets the backend directly.
func outboundHeaders(r *http.Request, project string) http.Header {
	h := r.Header.Clone()
	netutil.RemoveHopByHopHeaders(h)
	h.Del("Cookie")
	h.Set("X-Forwarded-For", netutil.ClientIP(r.RemoteAddr))
	h.Set("X-Forwarded-Proto", requestScheme(r))
	h.Set("X-Project-Name", project)
	return h
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
