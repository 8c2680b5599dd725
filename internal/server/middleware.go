package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wakegate/wakegate/internal/ipfilter"
	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/netutil"
	"github.com/wakegate/wakegate/internal/registry"
)

type domainHandler func(w http.ResponseWriter, r *http.Request, d *registry.Domain)

// withDomain resolves the {domain} route variable and applies the per-domain
// IP allow-list before the handler runs. Unknown domains are a 404; a denied
// client address is a 403 and is audit-logged with the rejected address.
func (s *Server) withDomain(next domainHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["domain"]
		d, ok := s.reg.Domain(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown domain"})
			return
		}

		clientIP := netutil.ClientIP(r.RemoteAddr)
		if !ipfilter.Allowed(d.Security.AllowedIPs, clientIP) {
			s.audit(r, model.ActionLogEntry{
				Domain:  d.Name,
				Action:  model.ActionAccessDenied,
				Status:  model.StatusForbidden,
				Details: "address not in allow-list",
			})
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "access denied"})
			return
		}

		next(w, r, d)
	}
}

// requireAdmin gates a handler behind the admin session flag.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.sessions.Lookup(r)
		if !ok || !s.sessions.IsAdmin(id) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "admin authentication required"})
			return
		}
		next(w, r)
	}
}

// audit appends one action log entry, filling in the client address. Audit
// failures are logged but never fail the request.
func (s *Server) audit(r *http.Request, e model.ActionLogEntry) {
	if e.ClientIP == "" {
		e.ClientIP = netutil.ClientIP(r.RemoteAddr)
	}
	if err := s.store.AppendLog(r.Context(), e); err != nil {
		s.log.Error("append action log", "domain", e.Domain, "action", e.Action, "err", err)
	}
}
