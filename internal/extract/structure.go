package extract

import (
	"regexp"
	"strings"

	"wizard/internal/artifact"
	"wizard/internal/util/jsonutil"
)

// StructureIndicatorThreshold is how many distinct indicators make a response
// a project structure.
const StructureIndicatorThreshold = 3

// DefaultProjectName is used when no name can be sniffed from the response.
const DefaultProjectName = "my-project"

var structureIndicators = []struct {
	Key   string
	Token string
}{
	{"monorepo", "monorepo"},
	{"apps", "apps/"},
	{"packages", "packages/"},
	{"turbo", "turbo"},
	{"workspace", "workspace"},
	{"projectStructure", "project structure"},
	{"estructura", "estructura"},
	{"carpetas", "carpetas"},
}

// knownTechnologies is the allow-list matched against responses. Each entry is
// reported under its canonical name when any alias is present.
var knownTechnologies = []struct {
	Name    string
	Aliases []string
}{
	{"Next.js", []string{"next.js", "nextjs"}},
	{"React", []string{"react"}},
	{"Vue", []string{"vue"}},
	{"Nuxt", []string{"nuxt"}},
	{"Svelte", []string{"svelte"}},
	{"Angular", []string{"angular"}},
	{"Vite", []string{"vite"}},
	{"TypeScript", []string{"typescript"}},
	{"Tailwind", []string{"tailwind"}},
	{"Supabase", []string{"supabase"}},
	{"PostgreSQL", []string{"postgresql", "postgres"}},
	{"Prisma", []string{"prisma"}},
	{"Node.js", []string{"node.js", "nodejs"}},
	{"Express", []string{"express"}},
	{"NestJS", []string{"nestjs"}},
	{"GraphQL", []string{"graphql"}},
	{"Redis", []string{"redis"}},
	{"Docker", []string{"docker"}},
	{"Stripe", []string{"stripe"}},
	{"Vercel", []string{"vercel"}},
}

var (
	reFirstH1        = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t#]*$`)
	reProjectLabel   = regexp.MustCompile(`(?im)^[ \t*_-]*(?:proyecto|project)[ \t*_]*:[ \t*_]*(.+?)[ \t*_]*$`)
	reNxWord         = regexp.MustCompile(`(?i)\bnx\b`)
	reAdminIndicator = regexp.MustCompile(`(?i)\badmin(?:istra\w*)?\b|panel de administraci`)
)

// structureIndicatorFlags reports which indicator classes are present.
func structureIndicatorFlags(text string) map[string]bool {
	lower := strings.ToLower(text)
	flags := make(map[string]bool, len(structureIndicators))
	for _, ind := range structureIndicators {
		flags[ind.Key] = strings.Contains(lower, ind.Token)
	}
	return flags
}

// IsProjectStructure applies the structure-likelihood heuristic.
func IsProjectStructure(text string) bool {
	n := 0
	for _, present := range structureIndicatorFlags(text) {
		if present {
			n++
		}
	}
	return n >= StructureIndicatorThreshold
}

// DetectTechStack returns the allow-listed technologies mentioned in text, in
// allow-list order.
func DetectTechStack(text string) []string {
	lower := strings.ToLower(text)
	out := make([]string, 0, 8)
	for _, tech := range knownTechnologies {
		for _, alias := range tech.Aliases {
			if strings.Contains(lower, alias) {
				out = append(out, tech.Name)
				break
			}
		}
	}
	return out
}

// GuessMonorepoTool picks turborepo, nx or npm workspaces.
func GuessMonorepoTool(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "turborepo"), strings.Contains(lower, "turbo"):
		return artifact.MonorepoTurborepo
	case reNxWord.MatchString(text):
		return artifact.MonorepoNx
	default:
		return artifact.MonorepoNpmWorkspaces
	}
}

func guessPackageManager(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "pnpm"):
		return "pnpm"
	case strings.Contains(lower, "yarn"):
		return "yarn"
	default:
		return "npm"
	}
}

// ProjectName sniffs a project name from the first H1 heading or a
// "proyecto:"/"project:" label.
func ProjectName(text string) string {
	if m := reFirstH1.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	if m := reProjectLabel.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	return DefaultProjectName
}

// BuildStructureManifest renders the manifest candidate for a structure response.
func BuildStructureManifest(text string) (artifact.ExtractedFileContent, error) {
	lower := strings.ToLower(text)
	manifest := artifact.StructureManifest{
		IsProjectStructure: true,
		ProjectName:        ProjectName(text),
		TechStack:          DetectTechStack(text),
		MonorepoTool:       GuessMonorepoTool(text),
		PackageManager:     guessPackageManager(text),
		HasAdminPanel:      reAdminIndicator.MatchString(text),
		HasLandingPage:     strings.Contains(lower, "landing"),
		Indicators:         structureIndicatorFlags(text),
		Masterplan:         text,
	}
	raw, err := jsonutil.MarshalIndentNoEscape(manifest, "  ")
	if err != nil {
		return artifact.ExtractedFileContent{}, err
	}
	return artifact.ExtractedFileContent{
		Filename:   artifact.StructureManifestFilename,
		Content:    string(raw),
		Type:       artifact.FileTypeProjectStructure,
		Confidence: 0.9,
		Method:     artifact.MethodAIAnalysis,
		Metadata: map[string]any{
			artifact.FlagProjectStructure:          true,
			artifact.FlagRequiresSpecialProcessing: true,
		},
	}, nil
}
