package project

import (
	"sort"
	"strings"
	"time"
)

// Status represents the lifecycle of a project.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusGenerating      Status = "generating"
	StatusReady           Status = "ready"
	StatusStitching       Status = "stitching"
	StatusReadyWithOutput Status = "ready_with_output"
	StatusError           Status = "error"
)

var allStatuses = []Status{
	StatusDraft,
	StatusGenerating,
	StatusReady,
	StatusStitching,
	StatusReadyWithOutput,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions captures the project state machine. Reconciler
// corrections are applied through ApplyCorrection and are exempt.
var allowedTransitions = map[Status][]Status{
	StatusDraft:      {StatusGenerating},
	StatusGenerating: {StatusReady, StatusError},
	StatusReady:      {StatusStitching},
	StatusStitching:  {StatusReadyWithOutput, StatusError},
	StatusError:      {StatusGenerating, StatusStitching},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsKnownStatus reports whether value is one of the defined statuses.
func IsKnownStatus(value Status) bool {
	_, ok := statusSet[value]
	return ok
}

// CanTransition reports whether the state machine permits moving from one
// status to another. A same-status write is always permitted so idempotent
// replays stay no-ops.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Orientation describes the intended output aspect for downstream rendering.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
	OrientationSquare    Orientation = "square"
)

// ParseOrientation converts a string into a known Orientation.
func ParseOrientation(value string) (Orientation, bool) {
	switch Orientation(strings.ToLower(strings.TrimSpace(value))) {
	case OrientationLandscape:
		return OrientationLandscape, true
	case OrientationPortrait:
		return OrientationPortrait, true
	case OrientationSquare:
		return OrientationSquare, true
	default:
		return "", false
	}
}

// Project represents one production unit persisted in SQLite.
type Project struct {
	ID           string
	Owner        string
	Title        string
	Orientation  Orientation
	Status       Status
	Prompts      []string
	ClipPaths    []string
	OutputPath   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PromptCount returns the number of prompts, which bounds the clip count.
func (p *Project) PromptCount() int {
	return len(p.Prompts)
}

// HasClip reports whether path is already recorded on the project.
func (p *Project) HasClip(path string) bool {
	for _, existing := range p.ClipPaths {
		if existing == path {
			return true
		}
	}
	return false
}

// MergeClipPaths unions paths into the clip list, ignoring blanks and
// duplicates, and keeps the list sorted for deterministic reads. It returns
// the number of paths actually added.
func (p *Project) MergeClipPaths(paths []string) int {
	added := 0
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" || p.HasClip(trimmed) {
			continue
		}
		p.ClipPaths = append(p.ClipPaths, trimmed)
		added++
	}
	if added > 0 {
		sort.Strings(p.ClipPaths)
	}
	return added
}

// SetFailed marks the project as errored with the given message. Clips
// already produced stay on the record so a later generation can resume.
func (p *Project) SetFailed(message string) {
	p.Status = StatusError
	p.ErrorMessage = message
}

// NonBlankPrompts returns the prompts that contain actual content.
func NonBlankPrompts(prompts []string) []string {
	out := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		if strings.TrimSpace(prompt) != "" {
			out = append(out, prompt)
		}
	}
	return out
}

// StatsSummary describes aggregated project counts per lifecycle state.
type StatsSummary struct {
	Total      int
	Draft      int
	Generating int
	Ready      int
	Stitching  int
	Completed  int
	Errored    int
}

// DatabaseHealth captures diagnostic information about the project database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalProjects    int
	Error            string
}
