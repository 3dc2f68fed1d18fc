package rpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"wizard/internal/artifact"
	"wizard/internal/filegen"
)

// FileGenerator runs one agent response through extraction and storage.
type FileGenerator interface {
	GenerateForAgent(ctx context.Context, projectID, agentID string, phase int, raw string) (*filegen.Result, error)
}

// FileManager reads and deletes stored files.
type FileManager interface {
	GetProjectFiles(ctx context.Context, projectID string, phase *int) ([]artifact.GeneratedFile, error)
	DeleteFiles(ctx context.Context, ids []string) error
	DeletePhaseFiles(ctx context.Context, projectID string, phase int) (int, error)
}

type FileHandler struct {
	gen   FileGenerator
	files FileManager
}

func NewFileHandler(gen FileGenerator, files FileManager) *FileHandler {
	return &FileHandler{gen: gen, files: files}
}

func (h *FileHandler) GenerateFiles(ctx context.Context, req *connect.Request[GenerateFilesRequest]) (*connect.Response[GenerateFilesResponse], error) {
	projectID := strings.TrimSpace(req.Msg.ProjectID)
	agentID := strings.TrimSpace(req.Msg.AgentID)
	if projectID == "" || agentID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("project_id and agent_id are required"))
	}
	if req.Msg.Phase < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("phase must be >= 0"))
	}

	res, err := h.gen.GenerateForAgent(ctx, projectID, agentID, req.Msg.Phase, req.Msg.LLMResponse)
	if err != nil {
		return nil, toConnectError(err)
	}
	out := &GenerateFilesResponse{
		Files:    res.Files,
		Stats:    res.Stats,
		Warnings: res.Warnings,
		Pending:  res.Pending,
	}
	if out.Files == nil {
		out.Files = []artifact.GeneratedFile{}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return connect.NewResponse(out), nil
}

func (h *FileHandler) ListFiles(ctx context.Context, req *connect.Request[ListFilesRequest]) (*connect.Response[ListFilesResponse], error) {
	projectID := strings.TrimSpace(req.Msg.ProjectID)
	if projectID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("project_id is required"))
	}
	files, err := h.files.GetProjectFiles(ctx, projectID, req.Msg.Phase)
	if err != nil {
		return nil, toConnectError(err)
	}
	if files == nil {
		files = []artifact.GeneratedFile{}
	}
	return connect.NewResponse(&ListFilesResponse{Files: files}), nil
}

func (h *FileHandler) DeleteFiles(ctx context.Context, req *connect.Request[DeleteFilesRequest]) (*connect.Response[DeleteFilesResponse], error) {
	ids := make([]string, 0, len(req.Msg.FileIDs))
	for _, id := range req.Msg.FileIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("file_ids is required"))
	}
	if err := h.files.DeleteFiles(ctx, ids); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteFilesResponse{}), nil
}

func (h *FileHandler) DeletePhaseFiles(ctx context.Context, req *connect.Request[DeletePhaseFilesRequest]) (*connect.Response[DeletePhaseFilesResponse], error) {
	projectID := strings.TrimSpace(req.Msg.ProjectID)
	if projectID == "" || req.Msg.Phase <= 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("project_id and a positive phase are required"))
	}
	n, err := h.files.DeletePhaseFiles(ctx, projectID, req.Msg.Phase)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeletePhaseFilesResponse{Deleted: n}), nil
}
