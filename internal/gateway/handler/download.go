package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wizard/internal/archive"
	"wizard/internal/artifact"
)

// Assembler is the part of archive.Assembler the download endpoint needs.
type Assembler interface {
	CreateProjectZip(ctx context.Context, projectID, name string, phases []int) (*artifact.ZipArchive, error)
	CreateStructuredZip(ctx context.Context, projectID, name string) (*artifact.ZipArchive, error)
	GenerateZipStructure(arc *artifact.ZipArchive) (artifact.ZipStructure, error)
}

// DownloadHandler serves GET /projects/{projectID}/archive.zip. The archive is
// rebuilt from stored files on every request.
type DownloadHandler struct {
	archives Assembler
	logger   *slog.Logger
}

func NewDownloadHandler(archives Assembler, logger *slog.Logger) *DownloadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadHandler{archives: archives, logger: logger.With(slog.String("component", "download"))}
}

func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	projectID := strings.TrimSpace(r.PathValue("projectID"))
	if projectID == "" {
		http.Error(w, "project id is required", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	phases, err := parsePhases(q.Get("phases"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	structured, _ := strconv.ParseBool(q.Get("structured"))
	name := strings.TrimSpace(q.Get("name"))

	var arc *artifact.ZipArchive
	if structured {
		arc, err = h.archives.CreateStructuredZip(r.Context(), projectID, name)
	} else {
		arc, err = h.archives.CreateProjectZip(r.Context(), projectID, name, phases)
	}
	if err != nil {
		if errors.Is(err, archive.ErrNoFiles) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("build archive failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
		http.Error(w, "failed to build archive", http.StatusInternalServerError)
		return
	}
	listing, err := h.archives.GenerateZipStructure(arc)
	if err != nil {
		h.logger.Error("flatten archive failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
		http.Error(w, "failed to build archive", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := archive.Pack(&buf, listing, arc.CreatedAt); err != nil {
		h.logger.Error("pack archive failed", slog.String("project_id", projectID), slog.String("error", err.Error()))
		http.Error(w, "failed to build archive", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", zipFilename(arc.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if arc.ExpiresAt != nil {
		w.Header().Set("Expires", arc.ExpiresAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parsePhases(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid phase %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func zipFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == '"' || r < 0x20:
			return '-'
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if name == "" {
		name = "archive"
	}
	return name + ".zip"
}

// HealthHandler reports liveness and, when a pinger is set, database reachability.
func HealthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
