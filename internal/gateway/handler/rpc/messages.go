package rpc

import (
	"wizard/internal/artifact"
	"wizard/internal/filegen"
	"wizard/internal/scaffold"
)

type GenerateFilesRequest struct {
	ProjectID   string `json:"project_id"`
	AgentID     string `json:"agent_id"`
	Phase       int    `json:"phase,omitempty"`
	LLMResponse string `json:"llm_response"`
}

type GenerateFilesResponse struct {
	Files    []artifact.GeneratedFile `json:"files"`
	Stats    filegen.Stats            `json:"stats"`
	Warnings []string                 `json:"warnings"`
	Pending  []scaffold.Pending       `json:"pending,omitempty"`
}

type ListFilesRequest struct {
	ProjectID string `json:"project_id"`
	Phase     *int   `json:"phase,omitempty"`
}

type ListFilesResponse struct {
	Files []artifact.GeneratedFile `json:"files"`
}

type DeleteFilesRequest struct {
	FileIDs []string `json:"file_ids"`
}

type DeleteFilesResponse struct{}

type DeletePhaseFilesRequest struct {
	ProjectID string `json:"project_id"`
	Phase     int    `json:"phase"`
}

type DeletePhaseFilesResponse struct {
	Deleted int `json:"deleted"`
}

type CreateArchiveRequest struct {
	ProjectID  string `json:"project_id"`
	Name       string `json:"name,omitempty"`
	Phases     []int  `json:"phases,omitempty"`
	Structured bool   `json:"structured,omitempty"`
}

// CreateArchiveResponse carries the descriptor without member content; the
// bytes are served by the download URL.
type CreateArchiveResponse struct {
	Archive artifact.ZipArchive `json:"archive"`
}
