package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wakegate/wakegate/internal/auth"
	"github.com/wakegate/wakegate/internal/model"
	"github.com/wakegate/wakegate/internal/registry"
)

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !auth.SecretEquals(s.cfg.AdminSecret, req.Secret) {
		s.audit(r, model.ActionLogEntry{Action: model.ActionAdminLogin, Status: model.StatusFailed})
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid admin secret"})
		return
	}

	id, err := s.sessions.Ensure(w, r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to establish session"})
		return
	}
	s.sessions.SetAdmin(id, true)
	s.audit(r, model.ActionLogEntry{Action: model.ActionAdminLogin, Status: model.StatusSuccess})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.sessions.Lookup(r); ok {
		s.sessions.SetAdmin(id, false)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type redactedServer struct {
	IP string `json:"ip"`
}

type redactedDomain struct {
	Description string          `json:"description,omitempty"`
	Policy      registry.Policy `json:"policy"`
	Server      redactedServer  `json:"server"`
}

// handleConfigDump exposes the registry without MAC addresses or allow-lists.
func (s *Server) handleConfigDump(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.reg.Snapshot()
	domains := make(map[string]redactedDomain, len(snapshot.Domains))
	for name, d := range snapshot.Domains {
		domains[name] = redactedDomain{
			Description: d.Description,
			Policy:      d.Policy,
			Server:      redactedServer{IP: d.Server.IP},
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"domains": domains,
		"global":  snapshot.Global,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.Reload(); err != nil {
		s.audit(r, model.ActionLogEntry{Action: model.ActionReload, Status: model.StatusFailed, Details: err.Error()})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.audit(r, model.ActionLogEntry{Action: model.ActionReload, Status: model.StatusSuccess})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type logEntryResponse struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Domain    string    `json:"domain"`
	Action    string    `json:"action"`
	Status    string    `json:"status,omitempty"`
	Details   string    `json:"details,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
}

func (s *Server) handleLogList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	entries, err := s.store.RecentLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load logs"})
		return
	}
	out := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryResponse{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Domain:    e.Domain,
			Action:    e.Action,
			Status:    e.Status,
			Details:   e.Details,
			ClientIP:  e.ClientIP,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}

type activityResponse struct {
	Domain       string     `json:"domain"`
	LastActivity time.Time  `json:"last_activity"`
	LastWOL      *time.Time `json:"last_wol,omitempty"`
	BootCount    int64      `json:"boot_count"`
}

func (s *Server) handleActivityList(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListActivity(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load activity"})
		return
	}
	out := make([]activityResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, activityResponse{
			Domain:       rec.Domain,
			LastActivity: rec.LastActivity,
			LastWOL:      rec.LastWOL,
			BootCount:    rec.BootCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": out})
}

type projectRequest struct {
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	Port            int    `json:"port"`
	Password        string `json:"password"`
	Description     string `json:"description"`
	HealthCheckPath string `json:"health_check_path"`
	Active          *bool  `json:"active"`
}

type projectResponse struct {
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name"`
	Port            int       `json:"port"`
	Description     string    `json:"description,omitempty"`
	HealthCheckPath string    `json:"health_check_path"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toProjectResponse(p model.TestingProject) projectResponse {
	return projectResponse{
		Name:            p.Name,
		DisplayName:     p.DisplayName,
		Port:            p.Port,
		Description:     p.Description,
		HealthCheckPath: p.HealthCheckPath,
		Active:          p.Active,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (s *Server) handleProjectList(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListTestingProjects(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load projects"})
		return
	}
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": out})
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Name == "" || req.Password == "" || req.Port <= 0 || req.Port > 65535 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name, password, and a valid port are required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to hash password"})
		return
	}

	p := model.TestingProject{
		Name:            req.Name,
		DisplayName:     req.DisplayName,
		Port:            req.Port,
		PasswordHash:    hash,
		Description:     req.Description,
		HealthCheckPath: req.HealthCheckPath,
		Active:          req.Active == nil || *req.Active,
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Name
	}

	created, err := s.store.CreateTestingProject(r.Context(), p)
	if err != nil {
		if errors.Is(err, model.ErrProjectExists) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "project already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create project"})
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(created))
}

func (s *Server) handleProjectUpdate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	existing, err := s.store.GetTestingProject(r.Context(), name)
	if err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "project not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load project"})
		return
	}

	p := existing
	if req.DisplayName != "" {
		p.DisplayName = req.DisplayName
	}
	if req.Port != 0 {
		if req.Port < 0 || req.Port > 65535 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid port"})
			return
		}
		p.Port = req.Port
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.HealthCheckPath != "" {
		p.HealthCheckPath = req.HealthCheckPath
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	p.PasswordHash = ""
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to hash password"})
			return
		}
		p.PasswordHash = hash
	}

	if err := s.store.UpdateTestingProject(r.Context(), p); err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "project not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to update project"})
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

func (s *Server) handleProjectDeactivate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.store.SetTestingProjectActive(r.Context(), name, false); err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "project not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to deactivate project"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.store.DeleteTestingProject(r.Context(), name); err != nil {
		if errors.Is(err, model.ErrProjectNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "project not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete project"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
