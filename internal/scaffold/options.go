package scaffold

import (
	"errors"
	"fmt"
	"strings"

	"wizard/internal/artifact"
	"wizard/internal/util/jsonutil"
)

// ErrNotStructure is returned for manifests that do not describe a project
// structure.
var ErrNotStructure = errors.New("manifest is not a project structure")

// Options drive which parts of the monorepo skeleton are rendered.
type Options struct {
	ProjectName    string
	TechStack      []string
	HasAdminPanel  bool
	HasLandingPage bool
	MonorepoTool   string // turborepo | nx | npm-workspaces
	PackageManager string // npm | pnpm | yarn
}

func (o Options) normalized() Options {
	out := o
	out.ProjectName = strings.TrimSpace(out.ProjectName)
	out.MonorepoTool = strings.ToLower(strings.TrimSpace(out.MonorepoTool))
	if out.MonorepoTool == "" {
		out.MonorepoTool = artifact.MonorepoNpmWorkspaces
	}
	out.PackageManager = strings.ToLower(strings.TrimSpace(out.PackageManager))
	switch out.PackageManager {
	case "pnpm", "yarn":
	default:
		out.PackageManager = "npm"
	}
	return out
}

func (o Options) hasTech(name string) bool {
	for _, t := range o.TechStack {
		if strings.EqualFold(strings.TrimSpace(t), name) {
			return true
		}
	}
	return false
}

// OptionsFromManifest decodes the extractor's structure manifest. The returned
// string is the masterplan text the manifest was derived from.
func OptionsFromManifest(raw []byte) (Options, string, error) {
	var m artifact.StructureManifest
	if err := jsonutil.UnmarshalFlex(raw, &m); err != nil {
		return Options{}, "", fmt.Errorf("decode structure manifest: %w", err)
	}
	if !m.IsProjectStructure {
		return Options{}, "", fmt.Errorf("decode structure manifest: %w", ErrNotStructure)
	}
	return Options{
		ProjectName:    m.ProjectName,
		TechStack:      m.TechStack,
		HasAdminPanel:  m.HasAdminPanel,
		HasLandingPage: m.HasLandingPage,
		MonorepoTool:   m.MonorepoTool,
		PackageManager: m.PackageManager,
	}, m.Masterplan, nil
}

// Pending marks a part of the skeleton the generator knows about but does not
// render yet, so callers can tell "nothing to generate" from "not built".
type Pending struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

// Result is the output of one Generate call.
type Result struct {
	Files   []artifact.GeneratedFile
	Pending []Pending
	Info    ProjectInfo
}
