package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/project"
	"reel/internal/workflow"
)

// ownerHeader carries the requesting owner's identity. Authentication is
// out of scope; the daemon trusts whatever sits in front of it.
const ownerHeader = "X-Reel-Owner"

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	manager *workflow.Manager

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		manager: d.manager,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/projects", srv.handleProjects)
	mux.HandleFunc("/api/projects/", srv.handleProjectItem)
	mux.HandleFunc("/api/events", srv.handleIngestEvent)

	srv.server = &http.Server{
		Handler:           limitMutating(mux, rateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// limitMutating applies the rate limiter to state-changing requests only;
// reads and the long-lived event stream pass through untouched.
func limitMutating(next http.Handler, limit func(http.Handler) http.Handler) http.Handler {
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		DatabasePath:  status.DatabasePath,
		LockFilePath:  status.LockFilePath,
		RedisEnabled:  status.RedisEnabled,
		ProjectCounts: api.StatCounts(status.Stats),
		Database:      api.FromHealth(status.Health),
	})
}

func (s *apiServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		var statuses []project.Status
		for _, value := range r.URL.Query()["status"] {
			if parsed, ok := project.ParseStatus(value); ok {
				statuses = append(statuses, parsed)
			}
		}
		projects, err := s.daemon.store.List(r.Context(), owner, statuses...)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ProjectListResponse{Projects: api.FromProjects(projects)})
	case http.MethodPost:
		var req api.CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		orientation, ok := project.ParseOrientation(req.Orientation)
		if req.Orientation != "" && !ok {
			s.writeError(w, http.StatusBadRequest, "unknown orientation "+req.Orientation)
			return
		}
		proj, err := s.daemon.store.Create(r.Context(), owner, req.Title, orientation)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if len(req.Prompts) > 0 {
			proj, err = s.daemon.store.UpdateDetails(r.Context(), owner, proj.ID, proj.Title, proj.Orientation, req.Prompts)
			if err != nil {
				s.writeStoreError(w, err)
				return
			}
		}
		s.writeJSON(w, http.StatusCreated, api.FromProject(proj))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleProjectItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(sub, "/") {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}

	switch sub {
	case "":
		s.handleProject(w, r, id)
	case "generate":
		s.handleGenerate(w, r, id)
	case "stitch":
		s.handleStitch(w, r, id)
	case "jobs":
		s.handleJobs(w, r, id)
	case "reconcile":
		s.handleReconcile(w, r, id)
	case "events":
		s.handleEvents(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "project not found")
	}
}

func (s *apiServer) handleProject(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := s.manager.LoadProject(r.Context(), owner, id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ProjectResponse{View: api.FromView(view)})
	case http.MethodPatch:
		var req api.UpdateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		proj, err := s.daemon.store.GetOwned(r.Context(), owner, id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		title := proj.Title
		if req.Title != nil {
			title = *req.Title
		}
		orientation := proj.Orientation
		if req.Orientation != nil {
			parsed, ok := project.ParseOrientation(*req.Orientation)
			if !ok {
				s.writeError(w, http.StatusBadRequest, "unknown orientation "+*req.Orientation)
				return
			}
			orientation = parsed
		}
		prompts := proj.Prompts
		if req.Prompts != nil {
			prompts = *req.Prompts
		}
		updated, err := s.daemon.store.UpdateDetails(r.Context(), owner, id, title, orientation, prompts)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromProject(updated))
	case http.MethodDelete:
		removed, err := s.manager.RemoveProject(r.Context(), owner, id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if !removed {
			s.writeError(w, http.StatusNotFound, "project not found")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.GenerateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	prompts := req.Prompts
	if len(prompts) == 0 {
		proj, err := s.daemon.store.GetOwned(r.Context(), owner, id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		prompts = proj.Prompts
	}
	jobID, existing, err := s.manager.StartGeneration(r.Context(), owner, id, prompts)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.StartJobResponse{JobID: jobID, Existing: existing})
}

func (s *apiServer) handleStitch(w http.ResponseWriter, r *http.Request, id string) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID, existing, err := s.manager.StartStitch(r.Context(), owner, id)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.StartJobResponse{JobID: jobID, Existing: existing})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var jobs []api.Job
	if job, ok := s.manager.ActiveRenderJob(id); ok {
		jobs = append(jobs, api.FromRenderJob(job))
	}
	if job, ok := s.manager.ActiveStitchJob(id); ok {
		jobs = append(jobs, api.FromStitchJob(job))
	}
	s.writeJSON(w, http.StatusOK, api.JobsResponse{Jobs: jobs})
}

func (s *apiServer) handleReconcile(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	report, err := s.manager.Reconcile(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromReport(report))
}

func (s *apiServer) handleIngestEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event, err := api.ToJobEvent(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.manager.HandleEvent(r.Context(), event); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.streamEvents(w, r, id, since)
		return
	}

	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")
	hub, release := s.manager.Broker().Subscribe(id)
	defer release()

	evts, next, err := hub.Fetch(r.Context(), since, limit, follow)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventStreamResponse{
		Events: api.FromProgressEvents(evts),
		Next:   next,
	})
}

// streamEvents pushes the project's progress stream as server-sent events
// until the client disconnects.
func (s *apiServer) streamEvents(w http.ResponseWriter, r *http.Request, id string, since uint64) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	hub, release := s.manager.Broker().Subscribe(id)
	defer release()

	cursor := since
	for {
		evts, next, err := hub.Fetch(r.Context(), cursor, 0, true)
		if err != nil {
			return
		}
		for _, evt := range evts {
			payload, err := json.Marshal(api.FromProgressEvent(evt))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Sequence, evt.Type, payload)
		}
		flusher.Flush()
		cursor = next
	}
}

func (s *apiServer) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		s.writeError(w, http.StatusBadRequest, ownerHeader+" header is required")
		return "", false
	}
	return owner, true
}

func (s *apiServer) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, project.ErrOwnerMismatch):
		s.writeError(w, http.StatusForbidden, "project belongs to another owner")
	case errors.Is(err, project.ErrNotDraft):
		s.writeError(w, http.StatusConflict, "project is no longer editable")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNoPrompts), errors.Is(err, workflow.ErrNotEnoughClips), errors.Is(err, project.ErrClipOverflow):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, project.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeStoreError(w, err)
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.WithComponent(s.logger, "api-server")
	}
	return logging.NewNop()
}
