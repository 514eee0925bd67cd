package architex

import "time"

// Project mirrors a project owned by the backend.
type Project struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	GitHubRepoURL string     `json:"github_repo_url,omitempty"`
	DeploymentURL string     `json:"deployment_url,omitempty"`
	Status        string     `json:"status,omitempty"`
	NodesCount    int        `json:"nodes_count"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// ProjectInput is the body of project create and update calls.
// Nil fields are left untouched on update.
type ProjectInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Nodes       []Node  `json:"nodes,omitempty"`
	Edges       []Edge  `json:"edges,omitempty"`
}

// User is the authenticated account returned by the backend.
type User struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobPending               JobStatus = "pending"
	JobRunning               JobStatus = "running"
	JobCompleted             JobStatus = "completed"
	JobCompletedWithWarnings JobStatus = "completed_with_warnings"
	JobFailed                JobStatus = "failed"
)

// Terminal reports whether polling should stop at this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobCompletedWithWarnings, JobFailed:
		return true
	}
	return false
}

// Succeeded reports whether the status is one of the success states.
func (s JobStatus) Succeeded() bool {
	return s == JobCompleted || s == JobCompletedWithWarnings
}

// JobResult is what a finished generation produced.
type JobResult struct {
	RepoURL       string   `json:"repo_url,omitempty"`
	DeploymentURL string   `json:"deployment_url,omitempty"`
	FilesCount    int      `json:"files_count,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Job mirrors a code-generation job owned by the backend.
type Job struct {
	ID     string     `json:"id"`
	Status JobStatus  `json:"status"`
	Result *JobResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// SpecMetadata describes where an architecture spec came from.
type SpecMetadata struct {
	ProjectID   string    `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	ProjectName string    `json:"projectName,omitempty" yaml:"projectName,omitempty"`
	NodeCount   int       `json:"nodeCount" yaml:"nodeCount"`
	EdgeCount   int       `json:"edgeCount" yaml:"edgeCount"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`
}

// ArchitectureSpec is the serialized diagram submitted to create a job.
type ArchitectureSpec struct {
	Nodes    []Node       `json:"nodes" yaml:"nodes"`
	Edges    []Edge       `json:"edges" yaml:"edges"`
	Prompt   string       `json:"prompt" yaml:"prompt"`
	Metadata SpecMetadata `json:"metadata" yaml:"metadata"`
}

// NewArchitectureSpec builds the job payload for a canvas state.
func NewArchitectureSpec(s State, now time.Time) ArchitectureSpec {
	return ArchitectureSpec{
		Nodes:  CloneNodes(s.Nodes),
		Edges:  CloneEdges(s.Edges),
		Prompt: s.Prompt,
		Metadata: SpecMetadata{
			ProjectID:   s.ProjectID,
			ProjectName: s.ProjectName,
			NodeCount:   len(s.Nodes),
			EdgeCount:   len(s.Edges),
			GeneratedAt: now.UTC(),
		},
	}
}
