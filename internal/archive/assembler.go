// Package archive assembles a project's stored files into downloadable
// archive descriptors and packs them into zip files.
package archive

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"wizard/internal/artifact"
)

// ErrNoFiles is returned when a project has nothing to package.
var ErrNoFiles = errors.New("no files found for project")

// Retention is how long a download link stays valid.
const Retention = 7 * 24 * time.Hour

// Synthesized document names.
const (
	ReadmeName           = "README.md"
	ProjectStructureName = "PROJECT_STRUCTURE.md"
	ProjectInfoName      = "PROJECT_INFO.md"
)

const (
	assemblerName = "archive-assembler"
	repoDir       = "04-project-structure/repo"
)

type phaseInfo struct {
	Phase   int
	Title   string
	Purpose string
}

var glossary = []phaseInfo{
	{1, "Discovery", "conversation with the virtual consultant that captures the idea, audience and constraints"},
	{2, "Business Analysis", "case overview, business logic breakdown and meta outline"},
	{3, "Master Plan", "architecture, roadmap and technical decisions"},
	{4, "Project Structure", "monorepo skeleton and governance documents"},
	{5, "Operations", "deployment, monitoring and maintenance plan"},
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("archive").Funcs(template.FuncMap{
	"size":   humanSize,
	"agent":  func(f artifact.GeneratedFile) string { return orDash(f.AgentID) },
	"source": func(f artifact.GeneratedFile) string { return orDash(f.MetaString(artifact.MetaSource)) },
}).ParseFS(templateFS, "templates/*.tmpl"))

// FileSource reads a project's stored files.
type FileSource interface {
	GetProjectFiles(ctx context.Context, projectID string, phase *int) ([]artifact.GeneratedFile, error)
}

// Assembler builds archive descriptors on demand. Nothing is cached.
type Assembler struct {
	files   FileSource
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Assembler)

func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

func WithIDFunc(f func() string) Option {
	return func(a *Assembler) {
		if f != nil {
			a.newID = f
		}
	}
}

// NewAssembler returns an assembler whose download links point at baseURL.
func NewAssembler(files FileSource, baseURL string, logger *slog.Logger, opts ...Option) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(slog.String("component", "archive")),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateProjectZip describes an archive of the project's files, optionally
// limited to some phases.
func (a *Assembler) CreateProjectZip(ctx context.Context, projectID, name string, phases []int) (*artifact.ZipArchive, error) {
	files, err := a.collect(ctx, projectID, phases)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if len(phases) > 0 {
		q.Set("phases", joinInts(phases))
	}
	arc := a.newArchive(projectID, name, files, q)
	archivesBuiltTotal.WithLabelValues("project").Inc()
	a.logger.Info("archive built",
		slog.String("project_id", projectID),
		slog.String("archive_id", arc.ID),
		slog.Int("files", len(arc.Files)),
		slog.Int64("total_size", arc.TotalSize),
	)
	return arc, nil
}

// CreateStructuredZip is CreateProjectZip over every phase plus a README and
// a phase-grouped PROJECT_STRUCTURE inventory.
func (a *Assembler) CreateStructuredZip(ctx context.Context, projectID, name string) (*artifact.ZipArchive, error) {
	files, err := a.collect(ctx, projectID, nil)
	if err != nil {
		return nil, err
	}
	now := a.now().UTC()
	data := a.docData(projectID, files, now)

	readme, err := render("readme.md.tmpl", data)
	if err != nil {
		return nil, err
	}
	structure, err := render("project_structure.md.tmpl", data)
	if err != nil {
		return nil, err
	}
	docs := []artifact.GeneratedFile{
		a.synthesized(projectID, ReadmeName, readme, now),
		a.synthesized(projectID, ProjectStructureName, structure, now),
	}

	q := url.Values{}
	q.Set("structured", "true")
	arc := a.newArchive(projectID, name, append(docs, files...), q)
	archivesBuiltTotal.WithLabelValues("structured").Inc()
	a.logger.Info("structured archive built",
		slog.String("project_id", projectID),
		slog.String("archive_id", arc.ID),
		slog.String("project_name", data.ProjectName),
		slog.Int("files", len(arc.Files)),
	)
	return arc, nil
}

// GenerateZipStructure flattens an archive into packable entries and appends a
// PROJECT_INFO manifest. TotalSize includes the manifest.
func (a *Assembler) GenerateZipStructure(arc *artifact.ZipArchive) (artifact.ZipStructure, error) {
	if arc == nil {
		return artifact.ZipStructure{}, fmt.Errorf("archive is nil")
	}
	out := artifact.ZipStructure{
		Name:  arc.Name,
		Files: make([]artifact.ZipEntry, 0, len(arc.Files)+1),
	}
	for _, f := range arc.Files {
		p := f.Path
		if p == "" {
			p = f.Name
		}
		out.Files = append(out.Files, artifact.ZipEntry{
			Path:    p,
			Name:    f.Name,
			Content: f.Content,
			Size:    int64(len(f.Content)),
		})
		out.TotalSize += int64(len(f.Content))
	}

	created := arc.CreatedAt
	if created.IsZero() {
		created = a.now().UTC()
	}
	data := a.docData(arc.ProjectID, arc.Files, created)
	if arc.Name != "" {
		data.ProjectName = arc.Name
	}
	info, err := render("project_info.md.tmpl", data)
	if err != nil {
		return artifact.ZipStructure{}, err
	}
	out.Files = append(out.Files, artifact.ZipEntry{
		Path:    ProjectInfoName,
		Name:    ProjectInfoName,
		Content: info,
		Size:    int64(len(info)),
	})
	out.TotalSize += int64(len(info))
	return out, nil
}

func (a *Assembler) collect(ctx context.Context, projectID string, phases []int) ([]artifact.GeneratedFile, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("project id is required")
	}
	all, err := a.files.GetProjectFiles(ctx, projectID, nil)
	if err != nil {
		return nil, fmt.Errorf("load project files: %w", err)
	}
	files := all
	if len(phases) > 0 {
		keep := make(map[int]bool, len(phases))
		for _, p := range phases {
			keep[p] = true
		}
		files = make([]artifact.GeneratedFile, 0, len(all))
		for _, f := range all {
			if keep[f.Phase] {
				files = append(files, f)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, projectID)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Phase != files[j].Phase {
			return files[i].Phase < files[j].Phase
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func (a *Assembler) newArchive(projectID, name string, files []artifact.GeneratedFile, q url.Values) *artifact.ZipArchive {
	now := a.now().UTC()
	expires := now.Add(Retention)
	if strings.TrimSpace(name) == "" {
		name = "project-" + projectID
	}
	id := a.newID()
	q.Set("archive", id)

	members := make([]artifact.GeneratedFile, 0, len(files))
	var total int64
	for _, f := range files {
		members = append(members, f.Clone())
		total += f.Size
	}
	return &artifact.ZipArchive{
		ID:          id,
		Name:        name,
		ProjectID:   projectID,
		Files:       members,
		TotalSize:   total,
		CreatedAt:   now,
		DownloadURL: a.baseURL + "/projects/" + url.PathEscape(projectID) + "/archive.zip?" + q.Encode(),
		ExpiresAt:   &expires,
	}
}

func (a *Assembler) synthesized(projectID, name, content string, now time.Time) artifact.GeneratedFile {
	f := artifact.GeneratedFile{
		ID:        a.newID(),
		Name:      name,
		Path:      name,
		Content:   content,
		Type:      artifact.FileTypeDocumentation,
		Size:      int64(len(content)),
		AgentID:   assemblerName,
		ProjectID: projectID,
		CreatedAt: now,
	}
	f.SetMeta(artifact.MetaSource, assemblerName)
	return f
}

type phaseGroup struct {
	Phase int
	Title string
	Files []artifact.GeneratedFile
}

type docData struct {
	ProjectName string
	ProjectID   string
	CreatedAt   time.Time
	TotalFiles  int
	TotalSize   int64
	HasRepo     bool
	RepoDir     string
	Glossary    []phaseInfo
	Phases      []phaseGroup
}

func (a *Assembler) docData(projectID string, files []artifact.GeneratedFile, now time.Time) docData {
	d := docData{
		ProjectName: ProjectName(files),
		ProjectID:   projectID,
		CreatedAt:   now,
		RepoDir:     repoDir,
		Glossary:    glossary,
	}
	index := map[int]int{}
	for _, f := range files {
		d.TotalFiles++
		d.TotalSize += f.Size
		if strings.HasPrefix(f.Path, repoDir+"/") {
			d.HasRepo = true
		}
		i, ok := index[f.Phase]
		if !ok {
			i = len(d.Phases)
			index[f.Phase] = i
			d.Phases = append(d.Phases, phaseGroup{Phase: f.Phase, Title: phaseTitle(f.Phase)})
		}
		d.Phases[i].Files = append(d.Phases[i].Files, f)
	}
	sort.SliceStable(d.Phases, func(i, j int) bool { return d.Phases[i].Phase < d.Phases[j].Phase })
	return d
}

func phaseTitle(phase int) string {
	if phase == 0 {
		return "Archive documents"
	}
	for _, g := range glossary {
		if g.Phase == phase {
			return fmt.Sprintf("Phase %d: %s", phase, g.Title)
		}
	}
	return fmt.Sprintf("Phase %d", phase)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
