package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizard/internal/archive"
	"wizard/internal/extract"
	"wizard/internal/filegen"
	"wizard/internal/gateway/repository/blob"
	"wizard/internal/gateway/repository/filerecord"
	"wizard/internal/storage"
)

const summaryResponse = "```markdown\n# Conversation Summary - Foo App\n## Problema Central\nBar\n```\n"

type clients struct {
	generate    *connect.Client[GenerateFilesRequest, GenerateFilesResponse]
	list        *connect.Client[ListFilesRequest, ListFilesResponse]
	deleteFiles *connect.Client[DeleteFilesRequest, DeleteFilesResponse]
	deletePhase *connect.Client[DeletePhaseFilesRequest, DeletePhaseFilesResponse]
	archive     *connect.Client[CreateArchiveRequest, CreateArchiveResponse]
}

func newTestServer(t *testing.T) clients {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := storage.NewManager(filerecord.NewMemoryStore(), blob.NewMemoryStore(), logger)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	gen := filegen.NewGenerator(filegen.DefaultConfig(), m, logger)
	asm := archive.NewAssembler(m, "http://dl", logger)

	mux := http.NewServeMux()
	mux.Handle(NewFileServiceHandler(NewFileHandler(gen, m)))
	mux.Handle(NewArchiveServiceHandler(NewArchiveHandler(asm)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	hc := srv.Client()
	return clients{
		generate:    connect.NewClient[GenerateFilesRequest, GenerateFilesResponse](hc, srv.URL+FileServiceGenerateFilesProcedure, CodecOption()),
		list:        connect.NewClient[ListFilesRequest, ListFilesResponse](hc, srv.URL+FileServiceListFilesProcedure, CodecOption()),
		deleteFiles: connect.NewClient[DeleteFilesRequest, DeleteFilesResponse](hc, srv.URL+FileServiceDeleteFilesProcedure, CodecOption()),
		deletePhase: connect.NewClient[DeletePhaseFilesRequest, DeletePhaseFilesResponse](hc, srv.URL+FileServiceDeletePhaseFilesProcedure, CodecOption()),
		archive:     connect.NewClient[CreateArchiveRequest, CreateArchiveResponse](hc, srv.URL+ArchiveServiceCreateArchiveProcedure, CodecOption()),
	}
}

func TestGenerateListAndArchive(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	gen, err := c.generate.CallUnary(ctx, connect.NewRequest(&GenerateFilesRequest{
		ProjectID:   "p1",
		AgentID:     extract.AgentConsultorVirtual,
		LLMResponse: summaryResponse,
	}))
	require.NoError(t, err)
	require.Len(t, gen.Msg.Files, 2)
	assert.Empty(t, gen.Msg.Warnings)
	assert.Equal(t, 2, gen.Msg.Stats.TotalFiles)

	phase := 1
	list, err := c.list.CallUnary(ctx, connect.NewRequest(&ListFilesRequest{ProjectID: "p1", Phase: &phase}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Files, 2)

	arc, err := c.archive.CallUnary(ctx, connect.NewRequest(&CreateArchiveRequest{ProjectID: "p1", Structured: true}))
	require.NoError(t, err)
	assert.Len(t, arc.Msg.Archive.Files, 4)
	assert.Contains(t, arc.Msg.Archive.DownloadURL, "http://dl/projects/p1/archive.zip?")
	for _, f := range arc.Msg.Archive.Files {
		assert.Empty(t, f.Content)
	}

	del, err := c.deletePhase.CallUnary(ctx, connect.NewRequest(&DeletePhaseFilesRequest{ProjectID: "p1", Phase: 1}))
	require.NoError(t, err)
	assert.Equal(t, 2, del.Msg.Deleted)

	_, err = c.archive.CallUnary(ctx, connect.NewRequest(&CreateArchiveRequest{ProjectID: "p1"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestDeleteFiles(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	gen, err := c.generate.CallUnary(ctx, connect.NewRequest(&GenerateFilesRequest{
		ProjectID: "p1", AgentID: extract.AgentConsultorVirtual, LLMResponse: summaryResponse,
	}))
	require.NoError(t, err)

	_, err = c.deleteFiles.CallUnary(ctx, connect.NewRequest(&DeleteFilesRequest{FileIDs: []string{gen.Msg.Files[0].ID}}))
	require.NoError(t, err)

	list, err := c.list.CallUnary(ctx, connect.NewRequest(&ListFilesRequest{ProjectID: "p1"}))
	require.NoError(t, err)
	assert.Len(t, list.Msg.Files, 1)
}

func TestDeleteFilesUnknownID(t *testing.T) {
	c := newTestServer(t)

	_, err := c.deleteFiles.CallUnary(context.Background(), connect.NewRequest(&DeleteFilesRequest{FileIDs: []string{"nope"}}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestInvalidArguments(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	_, err := c.generate.CallUnary(ctx, connect.NewRequest(&GenerateFilesRequest{AgentID: "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.list.CallUnary(ctx, connect.NewRequest(&ListFilesRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.deleteFiles.CallUnary(ctx, connect.NewRequest(&DeleteFilesRequest{FileIDs: []string{" "}}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.deletePhase.CallUnary(ctx, connect.NewRequest(&DeletePhaseFilesRequest{ProjectID: "p1"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.archive.CallUnary(ctx, connect.NewRequest(&CreateArchiveRequest{ProjectID: "p1", Structured: true, Phases: []int{1}}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestEmptyGenerationIsNotAnError(t *testing.T) {
	c := newTestServer(t)

	res, err := c.generate.CallUnary(context.Background(), connect.NewRequest(&GenerateFilesRequest{
		ProjectID: "p1", AgentID: "unknown-agent", LLMResponse: "nothing here",
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Msg.Files)
	assert.Contains(t, res.Msg.Warnings, extract.WarnNoFiles)
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{archive.ErrNoFiles, connect.CodeNotFound},
		{filerecord.ErrNotFound, connect.CodeNotFound},
		{context.Canceled, connect.CodeCanceled},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("boom"), connect.CodeInternal},
		{connect.NewError(connect.CodeUnavailable, errors.New("x")), connect.CodeUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, connect.CodeOf(toConnectError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, toConnectError(nil))
}
