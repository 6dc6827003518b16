// Package reconcile re-derives project state from the artifact store.
// Claimed clip paths that no longer verify are dropped, statuses are
// corrected downward, and projects interrupted by a daemon crash are
// rewound to a state a user can act on.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"reel/internal/artifact"
	"reel/internal/logging"
	"reel/internal/project"
)

// Action describes what a reconciliation pass did.
type Action string

const (
	ActionNoChange  Action = "no-change"
	ActionCorrected Action = "corrected"
)

// Report is the outcome of reconciling one project.
type Report struct {
	ProjectID         string   `json:"project_id"`
	OriginalStatus    string   `json:"original_status"`
	CorrectedStatus   string   `json:"corrected_status"`
	ClaimedClipCount  int      `json:"claimed_clip_count"`
	VerifiedClipCount int      `json:"verified_clip_count"`
	MissingPaths      []string `json:"missing_paths,omitempty"`
	Action            Action   `json:"action"`
}

// Changed reports whether the pass mutated the project.
func (r Report) Changed() bool {
	return r.Action == ActionCorrected
}

// Reconciler verifies a project's claimed artifacts against the artifact
// store and corrects the persisted record. Callers serialize per project;
// the reconciler itself takes no locks.
type Reconciler struct {
	store    *project.Store
	verifier artifact.Verifier
	logger   *slog.Logger
}

// New constructs a reconciler over the given store and verifier.
func New(store *project.Store, verifier artifact.Verifier, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{
		store:    store,
		verifier: verifier,
		logger:   logging.WithComponent(logger, "reconcile"),
	}
}

// Run reconciles one project. When the verifier cannot answer, Run returns
// the error without mutating anything.
func (r *Reconciler) Run(ctx context.Context, projectID string) (Report, error) {
	proj, err := r.store.GetByID(ctx, projectID)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		ProjectID:        proj.ID,
		OriginalStatus:   string(proj.Status),
		CorrectedStatus:  string(proj.Status),
		ClaimedClipCount: len(proj.ClipPaths),
		Action:           ActionNoChange,
	}

	verified := make([]string, 0, len(proj.ClipPaths))
	missing := make([]string, 0)
	for _, path := range proj.ClipPaths {
		exists, err := r.verifier.Exists(ctx, path)
		if err != nil {
			return Report{}, fmt.Errorf("verify clip %s: %w", path, err)
		}
		if exists {
			verified = append(verified, path)
		} else {
			missing = append(missing, path)
		}
	}
	sort.Strings(verified)
	report.VerifiedClipCount = len(verified)
	report.MissingPaths = missing

	outputOK := false
	if proj.OutputPath != "" {
		outputOK, err = r.verifier.Exists(ctx, proj.OutputPath)
		if err != nil {
			return Report{}, fmt.Errorf("verify output %s: %w", proj.OutputPath, err)
		}
	}

	corrected := correctedStatus(proj.Status, len(proj.Prompts), len(verified), outputOK)
	changed := len(missing) > 0 || corrected != proj.Status || (proj.OutputPath != "" && !outputOK)
	if !changed {
		return report, nil
	}

	proj.ClipPaths = verified
	proj.Status = corrected
	if proj.OutputPath != "" && !outputOK {
		proj.OutputPath = ""
	}
	if corrected != project.StatusReadyWithOutput {
		proj.OutputPath = ""
	}
	if err := r.store.Update(ctx, proj); err != nil {
		return Report{}, err
	}

	report.CorrectedStatus = string(corrected)
	report.Action = ActionCorrected
	r.logger.Info("project corrected",
		logging.String(logging.FieldProjectID, proj.ID),
		logging.String("from", report.OriginalStatus),
		logging.String("to", report.CorrectedStatus),
		logging.Int("missing", len(missing)))
	return report, nil
}

// RunAll reconciles every stored project, collecting per-project reports.
// A verifier failure on one project does not stop the sweep.
func (r *Reconciler) RunAll(ctx context.Context) ([]Report, error) {
	projects, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]Report, 0, len(projects))
	for _, proj := range projects {
		report, err := r.Run(ctx, proj.ID)
		if err != nil {
			r.logger.Warn("reconcile skipped",
				logging.String(logging.FieldProjectID, proj.ID),
				logging.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// correctedStatus derives the status the verified artifact picture supports:
// no surviving clips rewinds to draft, a partial set rewinds to generating so
// the user can resume, and a full set is ready (ready_with_output when the
// output artifact itself verified). Draft and error records keep their
// status; missing clips are simply dropped from the claimed set.
func correctedStatus(current project.Status, promptCount, verifiedClips int, outputOK bool) project.Status {
	switch current {
	case project.StatusGenerating, project.StatusReady, project.StatusStitching, project.StatusReadyWithOutput:
		if verifiedClips == 0 {
			return project.StatusDraft
		}
		if verifiedClips < promptCount {
			return project.StatusGenerating
		}
		if outputOK {
			return project.StatusReadyWithOutput
		}
		return project.StatusReady
	default:
		return current
	}
}
