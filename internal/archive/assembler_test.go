package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizard/internal/artifact"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type sliceSource struct {
	files []artifact.GeneratedFile
	err   error
}

func (s sliceSource) GetProjectFiles(_ context.Context, projectID string, phase *int) ([]artifact.GeneratedFile, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []artifact.GeneratedFile
	for _, f := range s.files {
		if f.ProjectID != projectID {
			continue
		}
		if phase != nil && f.Phase != *phase {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func newTestAssembler(files ...artifact.GeneratedFile) *Assembler {
	n := 0
	return NewAssembler(sliceSource{files: files}, "https://dl.example/", slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return fixedNow }),
		WithIDFunc(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func file(path string, phase int, typ artifact.FileType, content string) artifact.GeneratedFile {
	name := path[strings.LastIndex(path, "/")+1:]
	f := artifact.GeneratedFile{
		ID:        "f-" + path,
		Name:      name,
		Path:      path,
		Content:   content,
		Type:      typ,
		Size:      int64(len(content)),
		AgentID:   "business-analyst",
		ProjectID: "p1",
		Phase:     phase,
	}
	f.SetMeta(artifact.MetaSource, "llm-generated")
	return f
}

func TestCreateProjectZipWithoutFiles(t *testing.T) {
	a := newTestAssembler()

	arc, err := a.CreateProjectZip(context.Background(), "proj-1", "", nil)

	assert.Nil(t, arc)
	assert.True(t, errors.Is(err, ErrNoFiles))
}

func TestCreateProjectZipPhaseFilterWithoutMatches(t *testing.T) {
	a := newTestAssembler(file("01-discovery/a.md", 1, artifact.FileTypeDocumentation, "a"))

	_, err := a.CreateProjectZip(context.Background(), "p1", "", []int{3})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestCreateProjectZipSourceError(t *testing.T) {
	a := NewAssembler(sliceSource{err: errors.New("database unavailable")}, "", nil)

	_, err := a.CreateProjectZip(context.Background(), "p1", "", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoFiles))
}

func TestCreateProjectZipFiltersPhases(t *testing.T) {
	a := newTestAssembler(
		file("01-discovery/a.md", 1, artifact.FileTypeDocumentation, "aaaa"),
		file("02-business-analysis/c.md", 2, artifact.FileTypeBusinessOverview, "cc"),
		file("02-business-analysis/b.md", 2, artifact.FileTypeLogicBreakdown, "bbb"),
	)

	arc, err := a.CreateProjectZip(context.Background(), "p1", "Shop", []int{2})
	require.NoError(t, err)

	assert.Equal(t, "id-1", arc.ID)
	assert.Equal(t, "Shop", arc.Name)
	assert.Equal(t, "p1", arc.ProjectID)
	require.Len(t, arc.Files, 2)
	assert.Equal(t, "02-business-analysis/b.md", arc.Files[0].Path)
	assert.Equal(t, int64(5), arc.TotalSize)
	assert.Equal(t, fixedNow, arc.CreatedAt)
	require.NotNil(t, arc.ExpiresAt)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), *arc.ExpiresAt)
	assert.Equal(t, "https://dl.example/projects/p1/archive.zip?archive=id-1&phases=2", arc.DownloadURL)
}

func TestCreateProjectZipDefaultName(t *testing.T) {
	a := newTestAssembler(file("01-discovery/a.md", 1, artifact.FileTypeDocumentation, "a"))

	arc, err := a.CreateProjectZip(context.Background(), "p1", "  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "project-p1", arc.Name)
	assert.Equal(t, "https://dl.example/projects/p1/archive.zip?archive=id-1", arc.DownloadURL)
}

func TestCreateStructuredZipSingleFile(t *testing.T) {
	summary := file("01-discovery/conversation_summary.md", 1, artifact.FileTypeConversationSummary,
		"# Conversation Summary - Foo App\n## Problema Central\nBar")
	a := newTestAssembler(summary)

	arc, err := a.CreateStructuredZip(context.Background(), "p1", "")
	require.NoError(t, err)

	require.Len(t, arc.Files, 3)
	assert.Equal(t, ReadmeName, arc.Files[0].Path)
	assert.Equal(t, ProjectStructureName, arc.Files[1].Path)
	assert.Equal(t, summary.Path, arc.Files[2].Path)
	assert.Contains(t, arc.DownloadURL, "structured=true")

	readme := arc.Files[0]
	assert.True(t, strings.HasPrefix(readme.Content, "# Foo App\n"), readme.Content)
	assert.Equal(t, assemblerName, readme.MetaString(artifact.MetaSource))
	assert.NotContains(t, readme.Content, "npm install")

	inventory := arc.Files[1].Content
	assert.Contains(t, inventory, "# Project Structure: Foo App")
	assert.Contains(t, inventory, "## Phase 1: Discovery")
	assert.Contains(t, inventory, "| `01-discovery/conversation_summary.md` | conversation_summary |")
	assert.Contains(t, inventory, "5. **Operations**")

	var total int64
	for _, f := range arc.Files {
		total += f.Size
	}
	assert.Equal(t, total, arc.TotalSize)
}

func TestCreateStructuredZipMentionsRepo(t *testing.T) {
	a := newTestAssembler(file("04-project-structure/repo/package.json", 4, artifact.FileTypeConfiguration, "{}"))

	arc, err := a.CreateStructuredZip(context.Background(), "p1", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(arc.Files[0].Content, "# "+DefaultProjectName))
	assert.Contains(t, arc.Files[0].Content, "cd 04-project-structure/repo")
}

func TestGenerateZipStructure(t *testing.T) {
	a := newTestAssembler(
		file("01-discovery/a.md", 1, artifact.FileTypeDocumentation, "aaaa"),
		file("03-masterplan/masterplan.md", 3, artifact.FileTypeMasterplan, "plan"),
	)
	arc, err := a.CreateProjectZip(context.Background(), "p1", "Shop", nil)
	require.NoError(t, err)

	s, err := a.GenerateZipStructure(arc)
	require.NoError(t, err)

	assert.Equal(t, "Shop", s.Name)
	require.Len(t, s.Files, 3)
	info := s.Files[2]
	assert.Equal(t, ProjectInfoName, info.Path)
	assert.Contains(t, info.Content, "# Shop")
	assert.Contains(t, info.Content, "### Phase 3: Master Plan")
	assert.Contains(t, info.Content, "- 03-masterplan/masterplan.md (4 B)")
	assert.Equal(t, int64(8)+info.Size, s.TotalSize)

	_, err = a.GenerateZipStructure(nil)
	assert.Error(t, err)
}

func TestPack(t *testing.T) {
	s := artifact.ZipStructure{
		Name: "x",
		Files: []artifact.ZipEntry{
			{Path: "docs/a.md", Content: "alpha"},
			{Path: "../../etc/passwd", Content: "nope"},
			{Path: "docs/a.md", Content: "again"},
			{Path: "", Name: "b.md", Content: "beta"},
			{Path: "/", Content: "skipped"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, s, fixedNow))

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range r.File {
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		got[f.Name] = string(body)
	}
	assert.Equal(t, map[string]string{
		"docs/a.md":   "alpha",
		"etc/passwd":  "nope",
		"docs/a-2.md": "again",
		"b.md":        "beta",
	}, got)
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"dash suffix", "# Conversation Summary - Foo App\ntext", "Foo App"},
		{"spanish colon", "## Resumen de la Conversación: Tienda Verde\n", "Tienda Verde"},
		{"plain h1", "# Acme CRM\n## Conversation Summary\n", "Acme CRM"},
		{"bare title", "# Conversation Summary\nno name here", DefaultProjectName},
		{"no headings", "just text", DefaultProjectName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := file("01-discovery/conversation_summary.md", 1, artifact.FileTypeConversationSummary, tt.content)
			assert.Equal(t, tt.want, ProjectName([]artifact.GeneratedFile{f}))
		})
	}

	other := file("docs/x.md", 1, artifact.FileTypeDocumentation, "# Conversation Summary - Ignored")
	assert.Equal(t, DefaultProjectName, ProjectName([]artifact.GeneratedFile{other}))
}
