// Command filegen runs agent responses through the file pipeline offline and
// writes the resulting archive to disk.
//
//	filegen -project demo -out demo.zip consultor-virtual=summary.md structure-architect=structure.md
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"wizard/internal/archive"
	"wizard/internal/artifact"
	"wizard/internal/extract"
	"wizard/internal/filegen"
	"wizard/internal/gateway/repository/blob"
	"wizard/internal/gateway/repository/filerecord"
	"wizard/internal/storage"
	"wizard/internal/util/jsonutil"
)

type step struct {
	agent string
	path  string
}

func main() {
	projectID := flag.String("project", "local", "project id")
	outPath := flag.String("out", "project.zip", "zip output path")
	name := flag.String("name", "", "archive name (defaults to project-<id>)")
	structured := flag.Bool("structured", true, "add README and PROJECT_STRUCTURE documents")
	report := flag.String("report", "", "optional path for a JSON generation report")
	verbose := flag.Bool("v", false, "log pipeline details")
	flag.Parse()

	_ = godotenv.Load()

	steps, err := parseSteps(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	manager, err := storage.NewManager(filerecord.NewMemoryStore(), blob.NewMemoryStore(), logger)
	if err != nil {
		log.Fatal(err)
	}
	defer manager.Close()

	cfg := filegen.DefaultConfig()
	cfg.Provider = firstNonEmpty(os.Getenv("LLM_PROVIDER"), "offline")
	cfg.Storage.RetentionDays = 0
	gen := filegen.NewGenerator(cfg, manager, logger)

	ctx := context.Background()
	reports := make(map[string]*filegen.Result, len(steps))
	for _, s := range steps {
		raw, err := readInput(s.path)
		if err != nil {
			log.Fatalf("read %s: %v", s.path, err)
		}
		res, err := gen.GenerateForAgent(ctx, *projectID, s.agent, 0, raw)
		if err != nil {
			log.Fatalf("generate %s: %v", s.agent, err)
		}
		log.Printf("%s: %d files, %d warnings", s.agent, len(res.Files), len(res.Warnings))
		for _, w := range res.Warnings {
			log.Printf("  warning: %s", w)
		}
		reports[s.agent] = res
	}

	asm := archive.NewAssembler(manager, "", logger)
	arc, err := buildArchive(ctx, asm, *projectID, *name, *structured)
	if err != nil {
		log.Fatal(err)
	}
	listing, err := asm.GenerateZipStructure(arc)
	if err != nil {
		log.Fatal(err)
	}
	if err := writeZip(*outPath, listing, arc); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s (%d entries, %d bytes uncompressed)", *outPath, len(listing.Files), listing.TotalSize)

	if *report != "" {
		writeJSON(*report, reports)
	}
}

func parseSteps(args []string) ([]step, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: filegen [flags] agent=response-file ...")
	}
	out := make([]step, 0, len(args))
	for _, a := range args {
		agent, path, ok := strings.Cut(a, "=")
		agent, path = strings.TrimSpace(agent), strings.TrimSpace(path)
		if !ok || agent == "" || path == "" {
			return nil, fmt.Errorf("invalid step %q, want agent=file", a)
		}
		if !extract.KnownAgent(agent) {
			log.Printf("unknown agent %q: only generic strategies apply", agent)
		}
		out = append(out, step{agent: agent, path: path})
	}
	return out, nil
}

func buildArchive(ctx context.Context, asm *archive.Assembler, projectID, name string, structured bool) (*artifact.ZipArchive, error) {
	if structured {
		return asm.CreateStructuredZip(ctx, projectID, name)
	}
	return asm.CreateProjectZip(ctx, projectID, name, nil)
}

func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func writeZip(path string, listing artifact.ZipStructure, arc *artifact.ZipArchive) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := archive.Pack(f, listing, arc.CreatedAt); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) {
	b, err := jsonutil.MarshalIndentNoEscape(v, "  ")
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		log.Fatal(err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
