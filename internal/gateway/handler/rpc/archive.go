package rpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"wizard/internal/artifact"
)

// Archiver builds archive descriptors.
type Archiver interface {
	CreateProjectZip(ctx context.Context, projectID, name string, phases []int) (*artifact.ZipArchive, error)
	CreateStructuredZip(ctx context.Context, projectID, name string) (*artifact.ZipArchive, error)
}

type ArchiveHandler struct {
	archives Archiver
}

func NewArchiveHandler(archives Archiver) *ArchiveHandler {
	return &ArchiveHandler{archives: archives}
}

func (h *ArchiveHandler) CreateArchive(ctx context.Context, req *connect.Request[CreateArchiveRequest]) (*connect.Response[CreateArchiveResponse], error) {
	projectID := strings.TrimSpace(req.Msg.ProjectID)
	if projectID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("project_id is required"))
	}
	if req.Msg.Structured && len(req.Msg.Phases) > 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("structured archives always include every phase"))
	}

	var (
		arc *artifact.ZipArchive
		err error
	)
	if req.Msg.Structured {
		arc, err = h.archives.CreateStructuredZip(ctx, projectID, strings.TrimSpace(req.Msg.Name))
	} else {
		arc, err = h.archives.CreateProjectZip(ctx, projectID, strings.TrimSpace(req.Msg.Name), req.Msg.Phases)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateArchiveResponse{Archive: withoutContent(*arc)}), nil
}

func withoutContent(arc artifact.ZipArchive) artifact.ZipArchive {
	files := make([]artifact.GeneratedFile, 0, len(arc.Files))
	for _, f := range arc.Files {
		f = f.Clone()
		f.Content = ""
		files = append(files, f)
	}
	arc.Files = files
	return arc
}
