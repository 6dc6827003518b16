// Package workflow orchestrates project lifecycles: dispatching generation
// and stitch jobs, folding worker events back into the project store, and
// reconciling persisted state against the artifact store. All writes to a
// project happen under that project's lock, so each project has a single
// writer at a time.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"reel/internal/artifact"
	"reel/internal/config"
	"reel/internal/dispatch"
	"reel/internal/events"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/project"
	"reel/internal/reconcile"
	"reel/internal/render"
	"reel/internal/stitch"
	"reel/internal/textutil"
)

var (
	// ErrNoPrompts rejects generation requests without a usable prompt.
	ErrNoPrompts = errors.New("workflow: at least one non-blank prompt required")
	// ErrNotEnoughClips rejects stitch requests below the clip floor.
	ErrNotEnoughClips = errors.New("workflow: not enough clips to stitch")
)

// Manager owns the orchestration state. It is safe for concurrent use.
type Manager struct {
	cfg        *config.Config
	store      *project.Store
	gateway    dispatch.Gateway
	inbox      dispatch.Inbox
	broker     *events.Broker
	renders    *render.Tracker
	stitches   *stitch.Tracker
	reconciler *reconcile.Reconciler
	notifier   notifications.Service
	logger     *slog.Logger

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	attempted map[string]struct{}
}

// Options carries the collaborators a Manager needs.
type Options struct {
	Config   *config.Config
	Store    *project.Store
	Verifier artifact.Verifier
	Gateway  dispatch.Gateway
	Inbox    dispatch.Inbox
	Notifier notifications.Service
	Logger   *slog.Logger
}

// NewManager wires the orchestrator from its collaborators.
func NewManager(opts Options) (*Manager, error) {
	if opts.Config == nil {
		return nil, errors.New("workflow: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("workflow: store is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("workflow: verifier is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("workflow: gateway is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(opts.Config)
	}
	return &Manager{
		cfg:        opts.Config,
		store:      opts.Store,
		gateway:    opts.Gateway,
		inbox:      opts.Inbox,
		broker:     events.NewBroker(opts.Config.Events.BufferCapacity, opts.Config.Events.PublishRate, opts.Config.Events.PublishBurst),
		renders:    render.NewTracker(),
		stitches:   stitch.NewTracker(),
		reconciler: reconcile.New(opts.Store, opts.Verifier, logger),
		notifier:   notifier,
		logger:     logging.WithComponent(logger, "workflow"),
		locks:      make(map[string]*sync.Mutex),
		attempted:  make(map[string]struct{}),
	}, nil
}

// Broker exposes the progress event broker for API subscribers.
func (m *Manager) Broker() *events.Broker {
	return m.broker
}

// Store exposes the backing project store.
func (m *Manager) Store() *project.Store {
	return m.store
}

// projectLock returns the mutex guarding one project's state.
func (m *Manager) projectLock(projectID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[projectID] = lock
	}
	return lock
}

// renderPayload is the request body handed to generation workers.
type renderPayload struct {
	ProjectID   string   `json:"project_id"`
	Orientation string   `json:"orientation"`
	Prompts     []string `json:"prompts"`
}

// stitchPayload is the request body handed to stitch workers. OutputName is
// a suggestion; the worker reports the actual artifact path back.
type stitchPayload struct {
	ProjectID   string   `json:"project_id"`
	Orientation string   `json:"orientation"`
	ClipPaths   []string `json:"clip_paths"`
	OutputName  string   `json:"output_name"`
}

// StartGeneration begins (or joins) clip generation for a project. The
// prompts replace the stored list; clips already produced stay attached, so
// a regeneration is additive. When a generation job is already in flight
// the call joins it and reports existing=true.
func (m *Manager) StartGeneration(ctx context.Context, owner, projectID string, prompts []string) (string, bool, error) {
	usable := project.NonBlankPrompts(prompts)
	if len(usable) == 0 {
		return "", false, ErrNoPrompts
	}

	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	proj, err := m.store.GetOwned(ctx, owner, projectID)
	if err != nil {
		return "", false, err
	}

	if active, ok := m.renders.Active(projectID); ok {
		return active.ID, true, nil
	}

	if !project.CanTransition(proj.Status, project.StatusGenerating) {
		return "", false, fmt.Errorf("%w: %s -> %s", project.ErrInvalidTransition, proj.Status, project.StatusGenerating)
	}
	if len(usable) < len(proj.ClipPaths) {
		return "", false, fmt.Errorf("%w: %d clips already produced for %d prompts", project.ErrClipOverflow, len(proj.ClipPaths), len(usable))
	}

	payload, err := json.Marshal(renderPayload{
		ProjectID:   proj.ID,
		Orientation: string(proj.Orientation),
		Prompts:     usable,
	})
	if err != nil {
		return "", false, fmt.Errorf("marshal render payload: %w", err)
	}

	proj.Prompts = usable
	proj.Status = project.StatusGenerating
	proj.ErrorMessage = ""
	proj.OutputPath = ""
	if err := m.store.Update(ctx, proj); err != nil {
		return "", false, err
	}

	jobID, err := m.gateway.Dispatch(ctx, dispatch.KindRender, proj.ID, payload)
	if err != nil {
		proj.SetFailed(fmt.Sprintf("dispatch generation: %v", err))
		if storeErr := m.store.Update(ctx, proj); storeErr != nil {
			m.logger.Error("record dispatch failure",
				logging.String(logging.FieldProjectID, proj.ID),
				logging.Error(storeErr))
		}
		return "", false, fmt.Errorf("dispatch generation: %w", err)
	}
	m.renders.Track(jobID, proj.ID, len(usable))

	// A fresh generation re-arms the auto-stitch policy for this project.
	m.mu.Lock()
	delete(m.attempted, proj.ID)
	m.mu.Unlock()

	m.logger.Info("generation dispatched",
		logging.String(logging.FieldProjectID, proj.ID),
		logging.String(logging.FieldJobID, jobID),
		logging.Int("prompts", len(usable)))
	return jobID, false, nil
}

// StartStitch begins (or joins) stitching a project's clips into one output
// artifact. At least the configured clip floor must be present.
func (m *Manager) StartStitch(ctx context.Context, owner, projectID string) (string, bool, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()
	return m.startStitchLocked(ctx, owner, projectID)
}

func (m *Manager) startStitchLocked(ctx context.Context, owner, projectID string) (string, bool, error) {
	var proj *project.Project
	var err error
	if owner == "" {
		proj, err = m.store.GetByID(ctx, projectID)
	} else {
		proj, err = m.store.GetOwned(ctx, owner, projectID)
	}
	if err != nil {
		return "", false, err
	}

	if active, ok := m.stitches.Active(projectID); ok {
		return active.ID, true, nil
	}

	if len(proj.ClipPaths) < m.cfg.Workflow.MinStitchClips {
		return "", false, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughClips, len(proj.ClipPaths), m.cfg.Workflow.MinStitchClips)
	}
	if !project.CanTransition(proj.Status, project.StatusStitching) {
		return "", false, fmt.Errorf("%w: %s -> %s", project.ErrInvalidTransition, proj.Status, project.StatusStitching)
	}

	payload, err := json.Marshal(stitchPayload{
		ProjectID:   proj.ID,
		Orientation: string(proj.Orientation),
		ClipPaths:   proj.ClipPaths,
		OutputName:  textutil.SanitizeToken(proj.Title) + ".mp4",
	})
	if err != nil {
		return "", false, fmt.Errorf("marshal stitch payload: %w", err)
	}

	proj.Status = project.StatusStitching
	proj.ErrorMessage = ""
	proj.OutputPath = ""
	if err := m.store.Update(ctx, proj); err != nil {
		return "", false, err
	}

	jobID, err := m.gateway.Dispatch(ctx, dispatch.KindStitch, proj.ID, payload)
	if err != nil {
		proj.SetFailed(fmt.Sprintf("dispatch stitch: %v", err))
		if storeErr := m.store.Update(ctx, proj); storeErr != nil {
			m.logger.Error("record dispatch failure",
				logging.String(logging.FieldProjectID, proj.ID),
				logging.Error(storeErr))
		}
		return "", false, fmt.Errorf("dispatch stitch: %w", err)
	}
	m.stitches.Track(jobID, proj.ID, len(proj.ClipPaths))

	m.logger.Info("stitch dispatched",
		logging.String(logging.FieldProjectID, proj.ID),
		logging.String(logging.FieldJobID, jobID),
		logging.Int("clips", len(proj.ClipPaths)))
	return jobID, false, nil
}
