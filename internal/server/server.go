// Package server exposes the sandbox lifecycle over HTTP to the web UI.
// Creation is asynchronous: the create endpoint returns immediately and the
// UI polls the status endpoint until RUNNING or ERROR.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/devforge/devforge/internal/database"
	"github.com/devforge/devforge/internal/naming"
	"github.com/devforge/devforge/internal/sandbox"
	"github.com/devforge/devforge/internal/store"
)

// provisionTimeout bounds one background provisioning attempt, dominated by
// the database-ready wait.
const provisionTimeout = 5 * time.Minute

// Config holds the server-level settings shared by all projects.
type Config struct {
	Namespace     string            // cluster namespace holding all sandboxes
	IngressDomain string            // domain suffix for public sandbox URLs
	DefaultEnv    map[string]string // lowest-precedence env source
}

type Server struct {
	DB        *store.DB
	Sandboxes *sandbox.Manager
	Databases *database.Provisioner
	Cfg       Config
}

func New(db *store.DB, sandboxes *sandbox.Manager, databases *database.Provisioner, cfg Config) *Server {
	return &Server{DB: db, Sandboxes: sandboxes, Databases: databases, Cfg: cfg}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint (no auth required, for K8s probes)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", s.handleCreateProject)
		r.Get("/{id}", s.handleGetProject)
		r.Delete("/{id}", s.handleDeleteProject)
		r.Get("/{id}/status", s.handleProjectStatus)
		r.Post("/{id}/start", s.handleStartProject)
		r.Post("/{id}/stop", s.handleStopProject)
		r.Put("/{id}/env", s.handleUpdateEnv)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	SandboxName string `json:"sandboxName,omitempty"`
	Status      string `json:"status"`
	PublicURL   string `json:"publicUrl,omitempty"`
	TTYDURL     string `json:"ttydUrl,omitempty"`
}

func toResponse(p *store.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Namespace:   p.Namespace,
		SandboxName: p.SandboxName.String,
		Status:      p.Status,
		PublicURL:   p.PublicURL.String,
		TTYDURL:     p.TTYDURL.String,
	}
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string            `json:"name"`
		Env  map[string]string `json:"env"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "project name required", http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	sandboxName := naming.NewSandboxName(req.Name)
	clusterName := naming.NewClusterName(req.Name)

	if err := s.DB.CreateProject(id, req.Name, s.Cfg.Namespace, sandboxName, clusterName); err != nil {
		log.Printf("create project: %v", err)
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}
	for name, value := range req.Env {
		if err := s.DB.SetProjectEnvVar(id, name, value); err != nil {
			log.Printf("create project %s: store env var %s: %v", id, name, err)
		}
	}

	// Provisioning blocks on the database-ready wait, so it runs in the
	// background; the UI polls for the outcome.
	go s.provision(id, sandboxName, clusterName)

	writeJSON(w, http.StatusAccepted, projectResponse{
		ID:          id,
		Name:        req.Name,
		Namespace:   s.Cfg.Namespace,
		SandboxName: sandboxName,
		Status:      store.StatusCreating,
	})
}

// provision creates the project database (first) and sandbox (second),
// recording URLs and the outcome as it goes. Both generated names were
// stored at insert time, so a re-run converges on the same resources.
func (s *Server) provision(projectID, sandboxName, clusterName string) {
	ctx, cancel := context.WithTimeout(context.Background(), provisionTimeout)
	defer cancel()

	creds, err := s.Databases.CreateDatabase(ctx, clusterName, s.Cfg.Namespace)
	if err != nil {
		log.Printf("provision %s: database: %v", projectID, err)
		s.DB.UpdateProjectStatus(projectID, string(sandbox.StatusError))
		return
	}

	userEnv, err := s.DB.ListProjectEnvVars(projectID)
	if err != nil {
		log.Printf("provision %s: load env vars: %v", projectID, err)
	}

	info, err := s.Sandboxes.CreateSandbox(ctx, sandbox.CreateOptions{
		ProjectID:     projectID,
		Namespace:     s.Cfg.Namespace,
		SandboxName:   sandboxName,
		IngressDomain: s.Cfg.IngressDomain,
		Env:           sandbox.MergeEnv(s.Cfg.DefaultEnv, creds.Env(), userEnv),
	})
	if err != nil {
		log.Printf("provision %s: sandbox: %v", projectID, err)
		s.DB.UpdateProjectStatus(projectID, string(sandbox.StatusError))
		return
	}

	if err := s.DB.SetProjectURLs(projectID, info.PublicURL, info.TTYDURL); err != nil {
		log.Printf("provision %s: record urls: %v", projectID, err)
	}
	if err := s.DB.UpdateProjectStatus(projectID, string(sandbox.StatusStarting)); err != nil {
		log.Printf("provision %s: record status: %v", projectID, err)
	}
	log.Printf("provisioned project %s (sandbox %s)", projectID, sandboxName)
}

// getProject loads the project row or writes the appropriate error response
// and returns nil.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) *store.Project {
	p, err := s.DB.GetProject(chi.URLParam(r, "id"))
	if err != nil {
		log.Printf("get project: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if p == nil {
		http.Error(w, "project not found", http.StatusNotFound)
		return nil
	}
	return p
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p := s.getProject(w, r)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p))
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	p := s.getProject(w, r)
	if p == nil {
		return
	}
	if !p.SandboxName.Valid {
		// No cluster resources yet; the stored CREATING status is the answer.
		writeJSON(w, http.StatusOK, map[string]string{"status": p.Status})
		return
	}

	status, err := s.Sandboxes.GetStatus(r.Context(), p.Namespace, p.SandboxName.String)
	if err != nil {
		log.Printf("project %s: status read: %v", p.ID, err)
	}
	if p.Status == store.StatusCreating && status == sandbox.StatusTerminated {
		// Provisioning has not created the workload yet; absence here means
		// "not yet", not "deleted".
		writeJSON(w, http.StatusOK, map[string]string{"status": p.Status})
		return
	}
	if string(status) != p.Status {
		if err := s.DB.UpdateProjectStatus(p.ID, string(status)); err != nil {
			log.Printf("project %s: record status: %v", p.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleStartProject(w http.ResponseWriter, r *http.Request) {
	s.handleScale(w, r, s.Sandboxes.StartSandbox)
}

func (s *Server) handleStopProject(w http.ResponseWriter, r *http.Request) {
	s.handleScale(w, r, s.Sandboxes.StopSandbox)
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	p := s.getProject(w, r)
	if p == nil {
		return
	}
	if !p.SandboxName.Valid {
		http.Error(w, "project has no sandbox", http.StatusConflict)
		return
	}
	if err := op(r.Context(), p.Namespace, p.SandboxName.String); err != nil {
		log.Printf("project %s: scale: %v", p.ID, err)
		http.Error(w, "cluster operation failed", http.StatusBadGateway)
		return
	}
	status, err := s.Sandboxes.GetStatus(r.Context(), p.Namespace, p.SandboxName.String)
	if err != nil {
		log.Printf("project %s: status read after scale: %v", p.ID, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p := s.getProject(w, r)
	if p == nil {
		return
	}

	if p.SandboxName.Valid {
		if err := s.Sandboxes.DeleteSandbox(r.Context(), p.Namespace, p.SandboxName.String); err != nil {
			log.Printf("project %s: delete sandbox: %v", p.ID, err)
			http.Error(w, "cluster operation failed", http.StatusBadGateway)
			return
		}
	}
	if p.DBClusterName.Valid {
		if err := s.Databases.DeleteDatabase(r.Context(), p.DBClusterName.String, p.Namespace); err != nil {
			log.Printf("project %s: delete database: %v", p.ID, err)
			http.Error(w, "cluster operation failed", http.StatusBadGateway)
			return
		}
	}
	if err := s.DB.DeleteProject(p.ID); err != nil {
		log.Printf("project %s: delete record: %v", p.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateEnv(w http.ResponseWriter, r *http.Request) {
	p := s.getProject(w, r)
	if p == nil {
		return
	}
	var req struct {
		Env map[string]string `json:"env"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !p.SandboxName.Valid {
		http.Error(w, "project has no sandbox", http.StatusConflict)
		return
	}

	if err := s.DB.ReplaceProjectEnvVars(p.ID, req.Env); err != nil {
		log.Printf("project %s: replace env vars: %v", p.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	env := sandbox.MergeEnv(s.Cfg.DefaultEnv, s.databaseEnv(r.Context(), p), req.Env)
	err := s.Sandboxes.UpdateEnvVars(r.Context(), p.Namespace, p.SandboxName.String, env)
	if errors.Is(err, sandbox.ErrNotFound) {
		http.Error(w, "sandbox workload does not exist", http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("project %s: update env vars: %v", p.ID, err)
		http.Error(w, "cluster operation failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) databaseEnv(ctx context.Context, p *store.Project) map[string]string {
	if !p.DBClusterName.Valid {
		return nil
	}
	creds, err := s.Databases.GetCredentials(ctx, p.DBClusterName.String, p.Namespace)
	if err != nil {
		log.Printf("project %s: resolve database credentials: %v", p.ID, err)
		return nil
	}
	return creds.Env()
}
