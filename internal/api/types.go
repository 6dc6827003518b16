package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Project describes a project record in a transport-friendly format.
type Project struct {
	ID           string   `json:"id"`
	Owner        string   `json:"owner"`
	Title        string   `json:"title"`
	Orientation  string   `json:"orientation"`
	Status       string   `json:"status"`
	Prompts      []string `json:"prompts"`
	ClipPaths    []string `json:"clipPaths"`
	OutputPath   string   `json:"outputPath,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// ProjectView is a project enriched with live orchestration state.
type ProjectView struct {
	Project               Project               `json:"project"`
	ActiveGenerationJobID string                `json:"activeGenerationJobId,omitempty"`
	ActiveStitchJobID     string                `json:"activeStitchJobId,omitempty"`
	Interrupted           bool                  `json:"interrupted"`
	Reconciliation        *ReconciliationReport `json:"reconciliation,omitempty"`
}

// Job describes an in-flight or finished job.
type Job struct {
	ID               string `json:"id"`
	ProjectID        string `json:"projectId"`
	Kind             string `json:"kind"`
	Status           string `json:"status"`
	PromptCount      int    `json:"promptCount,omitempty"`
	CompletedPrompts int    `json:"completedPrompts,omitempty"`
	FailedPrompts    int    `json:"failedPrompts,omitempty"`
	ClipCount        int    `json:"clipCount,omitempty"`
	OutputPath       string `json:"outputPath,omitempty"`
	Error            string `json:"error,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// ReconciliationReport mirrors the outcome of a verification pass.
type ReconciliationReport struct {
	ProjectID         string   `json:"projectId"`
	OriginalStatus    string   `json:"originalStatus"`
	CorrectedStatus   string   `json:"correctedStatus"`
	ClaimedClipCount  int      `json:"claimedClipCount"`
	VerifiedClipCount int      `json:"verifiedClipCount"`
	MissingPaths      []string `json:"missingPaths,omitempty"`
	Action            string   `json:"action"`
}

// ProgressEvent is one entry on a project's progress stream.
type ProgressEvent struct {
	Sequence         uint64   `json:"seq"`
	Timestamp        string   `json:"ts"`
	Type             string   `json:"type"`
	ProjectID        string   `json:"projectId"`
	JobID            string   `json:"jobId"`
	JobKind          string   `json:"jobKind,omitempty"`
	PromptIndex      int      `json:"promptIndex,omitempty"`
	PromptCount      int      `json:"promptCount,omitempty"`
	CompletedPrompts int      `json:"completedPrompts,omitempty"`
	FailedPrompts    int      `json:"failedPrompts,omitempty"`
	Paths            []string `json:"paths,omitempty"`
	OutputPath       string   `json:"outputPath,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// DatabaseHealth reports project store diagnostics.
type DatabaseHealth struct {
	DBPath           string `json:"dbPath"`
	DatabaseExists   bool   `json:"databaseExists"`
	DatabaseReadable bool   `json:"databaseReadable"`
	TableExists      bool   `json:"tableExists"`
	IntegrityCheck   bool   `json:"integrityCheck"`
	TotalProjects    int    `json:"totalProjects"`
	Error            string `json:"error,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	DatabasePath  string         `json:"databasePath"`
	LockFilePath  string         `json:"lockFilePath"`
	RedisEnabled  bool           `json:"redisEnabled"`
	ProjectCounts map[string]int `json:"projectCounts"`
	Database      DatabaseHealth `json:"database"`
}

// CreateProjectRequest is the POST /api/projects body.
type CreateProjectRequest struct {
	Title       string   `json:"title"`
	Orientation string   `json:"orientation"`
	Prompts     []string `json:"prompts,omitempty"`
}

// UpdateProjectRequest is the PATCH /api/projects/{id} body. Nil fields are
// left unchanged.
type UpdateProjectRequest struct {
	Title       *string   `json:"title,omitempty"`
	Orientation *string   `json:"orientation,omitempty"`
	Prompts     *[]string `json:"prompts,omitempty"`
}

// GenerateRequest is the POST /api/projects/{id}/generate body.
type GenerateRequest struct {
	Prompts []string `json:"prompts,omitempty"`
}

// StartJobResponse reports a dispatched or joined job.
type StartJobResponse struct {
	JobID    string `json:"jobId"`
	Existing bool   `json:"existing"`
}

// ProjectListResponse wraps a collection of projects.
type ProjectListResponse struct {
	Projects []Project `json:"projects"`
}

// ProjectResponse wraps a single reconciled project view.
type ProjectResponse struct {
	View ProjectView `json:"view"`
}

// JobsResponse wraps a project's active jobs.
type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// EventStreamResponse carries a page of progress events plus the cursor to
// resume from.
type EventStreamResponse struct {
	Events []ProgressEvent `json:"events"`
	Next   uint64          `json:"next"`
}

// IngestEventRequest is the POST /api/events body used by workers that
// report over HTTP instead of the stream inbox.
type IngestEventRequest struct {
	Type             string   `json:"type"`
	JobID            string   `json:"jobId"`
	Kind             string   `json:"kind"`
	ProjectID        string   `json:"projectId"`
	PromptIndex      int      `json:"promptIndex,omitempty"`
	PromptCount      int      `json:"promptCount,omitempty"`
	CompletedPrompts int      `json:"completedPrompts,omitempty"`
	FailedPrompts    int      `json:"failedPrompts,omitempty"`
	Paths            []string `json:"paths,omitempty"`
	OutputPath       string   `json:"outputPath,omitempty"`
	Error            string   `json:"error,omitempty"`
}
