package artifact

// StructureManifestFilename is the synthetic candidate emitted when a response
// describes a full project scaffold.
const StructureManifestFilename = "project-structure-manifest.json"

// Monorepo tool guesses.
const (
	MonorepoTurborepo     = "turborepo"
	MonorepoNx            = "nx"
	MonorepoNpmWorkspaces = "npm-workspaces"
)

// StructureManifest is the JSON body of the structure manifest candidate. The
// file generator decodes it into scaffold options.
type StructureManifest struct {
	IsProjectStructure bool            `json:"isProjectStructure"`
	ProjectName        string          `json:"projectName"`
	TechStack          []string        `json:"techStack"`
	MonorepoTool       string          `json:"monorepoTool"`
	PackageManager     string          `json:"packageManager,omitempty"`
	HasAdminPanel      bool            `json:"hasAdminPanel,omitempty"`
	HasLandingPage     bool            `json:"hasLandingPage,omitempty"`
	Indicators         map[string]bool `json:"indicators"`
	Masterplan         string          `json:"masterplan,omitempty"`
}
