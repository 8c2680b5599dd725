package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wakegate/wakegate/internal/auth"
	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/netutil"
)

// activeProject resolves a testing project by name and hides inactive
// projects behind the same 404 as missing ones.
func (s *Server) activeProject(w http.ResponseWriter, r *http.Request) (model.TestingProject, bool) {
	name := mux.Vars(r)["project"]
	p, err := s.store.GetTestingProject(r.Context(), name)
	if err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown project"})
			return model.TestingProject{}, false
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load project"})
		return model.TestingProject{}, false
	}
	if !p.Active {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown project"})
		return model.TestingProject{}, false
	}
	return p, true
}

// logTestingAccess appends one testing access log entry; failures never fail
// the request.
func (s *Server) logTestingAccess(r *http.Request, project, action string) {
	if err := s.store.AppendTestingAccess(r.Context(), project, netutil.ClientIP(r.RemoteAddr), action); err != nil {
		s.log.Error("append testing access log", "project", project, "action", action, "err", err)
	}
}

func (s *Server) handleTestingLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !auth.CheckPassword(p.PasswordHash, req.Password) {
		s.logTestingAccess(r, p.Name, model.TestingLoginFailed)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid password"})
		return
	}

	id, err := s.sessions.Ensure(w, r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to establish session"})
		return
	}
	s.sessions.GrantProject(id, p.Name, p.DisplayName)
	s.logTestingAccess(r, p.Name, model.TestingLoginSuccess)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "display_name": p.DisplayName})
}

func (s *Server) handleTestingLogout(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["project"]
	if id, ok := s.sessions.Lookup(r); ok {
		s.sessions.RevokeProject(id, name)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleTestingProxy forwards an authenticated request to the project's
// backend, bridging WebSocket upgrades when asked for.
func (s *Server) handleTestingProxy(w http.ResponseWriter, r *http.Request) {
	p, ok := s.activeProject(w, r)
	if !ok {
		return
	}

	id, ok := s.sessions.Lookup(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "login required"})
		return
	}
	if _, granted := s.sessions.ProjectGranted(id, p.Name); !granted {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "login required"})
		return
	}

	backendPath := strings.TrimPrefix(r.URL.Path, "/testing/"+p.Name)
	if backendPath == "" {
		backendPath = "/"
	}

	if websocket.IsWebSocketUpgrade(r) {
		s.proxyWebSocket(w, r, p, backendPath)
		return
	}
	s.proxyHTTP(w, r, p, backendPath)
}
