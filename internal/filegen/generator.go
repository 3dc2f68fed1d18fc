// Package filegen turns one agent response into stored GeneratedFile records.
package filegen

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"wizard/internal/artifact"
	"wizard/internal/extract"
	"wizard/internal/scaffold"
)

// SourceLLM and SourceScaffold tag where a file's content came from.
const (
	SourceLLM      = "llm-generated"
	SourceScaffold = "structure-generator"
)

// UsageThreshold is the inline/blob cut used for the storage usage estimate in
// Stats. It is fixed and may disagree with the policy actually applied.
const UsageThreshold = 100 * 1024

var fileNamespace = uuid.MustParse("6f1c1c9e-8a4b-4f7e-9d2a-3b5e7c9a1d42")

// FileStore persists a batch under a placement policy.
type FileStore interface {
	StoreFiles(ctx context.Context, files []artifact.GeneratedFile, opts artifact.StorageOptions) ([]artifact.GeneratedFile, error)
}

// Scaffolder expands a structure manifest into files.
type Scaffolder interface {
	Generate(masterplan, projectID string, opts scaffold.Options) (scaffold.Result, error)
}

type Config struct {
	Provider         string
	Storage          artifact.StorageOptions
	DedupeByFilename bool
}

// DefaultConfig stores hybrid at 100 KiB with compression and 7-day retention.
func DefaultConfig() Config {
	return Config{
		Provider: "unknown",
		Storage: artifact.StorageOptions{
			Strategy:           artifact.StrategyHybrid,
			MaxSizeForDB:       100 * 1024,
			CompressionEnabled: true,
			RetentionDays:      7,
		},
		DedupeByFilename: true,
	}
}

type Request struct {
	ProjectID     string
	AgentID       string
	Phase         int
	LLMResponse   string
	ExpectedFiles []artifact.ExpectedFile
}

type Result struct {
	Files    []artifact.GeneratedFile
	Stats    Stats
	Warnings []string
	Pending  []scaffold.Pending
}

type Generator struct {
	cfg      Config
	parser   *extract.Parser
	scaffold Scaffolder
	store    FileStore
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Generator)

func WithScaffolder(s Scaffolder) Option {
	return func(g *Generator) {
		if s != nil {
			g.scaffold = s
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGenerator(cfg Config, store FileStore, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		cfg:      cfg,
		parser:   extract.NewParser(),
		scaffold: scaffold.NewGenerator(),
		store:    store,
		logger:   logger.With(slog.String("component", "filegen")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateForAgent runs GenerateFiles with the agent's expected-file table.
// A zero phase is taken from the agent table.
func (g *Generator) GenerateForAgent(ctx context.Context, projectID, agentID string, phase int, raw string) (*Result, error) {
	if phase == 0 {
		phase = extract.AgentPhase[agentID]
	}
	return g.GenerateFiles(ctx, Request{
		ProjectID:     projectID,
		AgentID:       agentID,
		Phase:         phase,
		LLMResponse:   raw,
		ExpectedFiles: ExpectedFilesFor(agentID),
	})
}

// GenerateFiles extracts, expands and stores the files of one response.
// Content problems become warnings; only storage failures are returned.
func (g *Generator) GenerateFiles(ctx context.Context, req Request) (*Result, error) {
	if req.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	timer := prometheus.NewTimer(generationSeconds.WithLabelValues(agentLabel(req.AgentID)))
	defer timer.ObserveDuration()

	start := g.now()
	b := g.build(req, start.UTC())

	stored, err := g.store.StoreFiles(ctx, b.files, g.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("store generated files: %w", err)
	}
	warnings := b.warnings
	if dropped := len(b.files) - len(stored); dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d files could not be stored", dropped, len(b.files)))
	}
	for _, f := range stored {
		filesGeneratedTotal.WithLabelValues(string(f.Type)).Inc()
	}

	stats := computeStats(stored, b.confidence)
	stats.Dropped = len(b.files) - len(stored)
	stats.ProcessingTime = g.now().Sub(start)

	g.logger.Info("files generated",
		slog.String("project_id", req.ProjectID),
		slog.String("agent_id", req.AgentID),
		slog.Int("phase", req.Phase),
		slog.Int("files", len(stored)),
		slog.Int("warnings", len(warnings)),
		slog.Duration("duration", stats.ProcessingTime),
	)
	return &Result{Files: stored, Stats: stats, Warnings: warnings, Pending: b.pending}, nil
}

type buildOutcome struct {
	files      []artifact.GeneratedFile
	warnings   []string
	pending    []scaffold.Pending
	confidence float64
}

// build runs extraction and structure expansion. A panic anywhere in here
// degrades to an empty file list plus a warning.
func (g *Generator) build(req Request, now time.Time) (out buildOutcome) {
	defer func() {
		if r := recover(); r != nil {
			degradedTotal.Inc()
			g.logger.Error("file generation panicked",
				slog.String("project_id", req.ProjectID),
				slog.Any("panic", r),
			)
			out = buildOutcome{
				warnings: append(out.warnings, fmt.Sprintf("file generation failed: %v", r)),
			}
		}
	}()

	parsed := g.parser.Parse(req.LLMResponse, req.AgentID, req.ExpectedFiles)
	if g.cfg.DedupeByFilename {
		parsed = extract.DedupeByFilename(parsed)
	}
	out.warnings = append(out.warnings, parsed.Warnings...)
	out.confidence = parsed.Confidence

	for i, c := range parsed.Files {
		if c.Flag(artifact.FlagRequiresSpecialProcessing) {
			files, pending, err := g.expandStructure(c, req, now)
			if err != nil {
				out.warnings = append(out.warnings, fmt.Sprintf("structure manifest %s skipped: %v", c.Filename, err))
				continue
			}
			out.files = append(out.files, files...)
			out.pending = append(out.pending, pending...)
			continue
		}
		out.files = append(out.files, g.fromCandidate(c, i, req, now))
	}
	return out
}

func (g *Generator) fromCandidate(c artifact.ExtractedFileContent, seq int, req Request, now time.Time) artifact.GeneratedFile {
	hash := contentHash(c.Content)
	f := artifact.GeneratedFile{
		ID:        fileID(req, c.Filename+"#"+strconv.Itoa(seq), hash, now),
		Name:      c.Filename,
		Path:      StoragePath(c.Type, req.Phase, c.Filename),
		Content:   c.Content,
		Type:      c.Type,
		Size:      int64(len(c.Content)),
		AgentID:   req.AgentID,
		ProjectID: req.ProjectID,
		Phase:     req.Phase,
		CreatedAt: now,
	}
	for k, v := range c.Metadata {
		f.SetMeta(k, v)
	}
	f.SetMeta(artifact.MetaSource, SourceLLM)
	f.SetMeta(artifact.MetaProvider, g.cfg.Provider)
	f.SetMeta(artifact.MetaExtractionMethod, string(c.Method))
	f.SetMeta(artifact.MetaConfidence, c.Confidence)
	f.SetMeta(artifact.MetaContentHash, hash)
	return f
}

func (g *Generator) expandStructure(c artifact.ExtractedFileContent, req Request, now time.Time) ([]artifact.GeneratedFile, []scaffold.Pending, error) {
	opts, masterplan, err := scaffold.OptionsFromManifest([]byte(c.Content))
	if err != nil {
		return nil, nil, err
	}
	res, err := g.scaffold.Generate(masterplan, req.ProjectID, opts)
	if err != nil {
		return nil, nil, err
	}
	out := make([]artifact.GeneratedFile, 0, len(res.Files))
	for _, f := range res.Files {
		f = f.Clone()
		hash := contentHash(f.Content)
		f.Path = scaffoldPath(f.Path)
		f.ID = fileID(req, f.Path, hash, now)
		f.AgentID = req.AgentID
		f.ProjectID = req.ProjectID
		f.Phase = req.Phase
		f.CreatedAt = now
		f.Size = int64(len(f.Content))
		f.SetMeta(artifact.MetaSource, SourceScaffold)
		f.SetMeta(artifact.MetaProvider, g.cfg.Provider)
		f.SetMeta(artifact.MetaConfidence, c.Confidence)
		f.SetMeta(artifact.MetaContentHash, hash)
		out = append(out, f)
	}
	return out, res.Pending, nil
}

// contentHash is an integrity tag, not a security control.
func contentHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// fileID is stable for identical inputs at the same instant and differs
// across requests.
func fileID(req Request, name, hash string, now time.Time) string {
	key := req.ProjectID + "\x00" + req.AgentID + "\x00" + strconv.Itoa(req.Phase) + "\x00" +
		name + "\x00" + hash + "\x00" + strconv.FormatInt(now.UnixNano(), 10)
	return uuid.NewSHA1(fileNamespace, []byte(key)).String()
}
