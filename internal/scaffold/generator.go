// Package scaffold expands a detected project structure into a monorepo
// skeleton rendered from an embedded template bank.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"wizard/internal/artifact"
	"wizard/internal/util/jsonutil"
)

// StructurePhase is the wizard phase scaffold files belong to.
const StructurePhase = 4

// ExternalDocsDir holds governance docs that live beside, not inside, the repo.
const ExternalDocsDir = "../project-docs"

const (
	excerptLength = 200
	generatorName = "structure-generator"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("scaffold").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"table": func(entity string) string { return strings.ToLower(entity) + "s" },
}).ParseFS(templateFS, "templates/*.tmpl"))

// UIComponents is the fixed component set of the shared ui package.
var UIComponents = []string{"Button", "Input", "Modal", "Card", "Layout"}

var unsupportedFrameworks = []string{"Vue", "Nuxt", "Svelte", "Angular"}

const (
	frameworkNext = "next"
	frameworkVite = "vite"
)

type appSpec struct {
	Name      string
	Title     string
	Package   string
	Framework string
	Port      int
}

type renderData struct {
	Info       ProjectInfo
	Opts       Options
	Excerpt    string
	Supabase   bool
	RunCmd     string
	App        appSpec
	Component  string
	Components []string
}

// Generator renders scaffolds. The zero value is not usable; call NewGenerator.
type Generator struct {
	enricher Enricher
	newID    func() string
	now      func() time.Time
}

type Option func(*Generator)

func WithEnricher(e Enricher) Option {
	return func(g *Generator) {
		if e != nil {
			g.enricher = e
		}
	}
}

func WithIDFunc(f func() string) Option {
	return func(g *Generator) {
		if f != nil {
			g.newID = f
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

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		enricher: KeywordEnricher{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the skeleton for one masterplan. Output is a pure function
// of its inputs apart from file ids and timestamps.
func (g *Generator) Generate(masterplan, projectID string, opts Options) (Result, error) {
	o := opts.normalized()
	info := g.enricher.Enrich(masterplan, o)
	r := &renderer{
		gen:       g,
		projectID: projectID,
		createdAt: g.now().UTC(),
		data: renderData{
			Info:     info,
			Opts:     o,
			Excerpt:  excerpt(masterplan),
			Supabase: o.hasTech("Supabase"),
			RunCmd:   runCmd(o.PackageManager),
		},
	}
	for _, step := range []func() error{r.root, r.apps, r.packages, r.database, r.docs} {
		if err := step(); err != nil {
			return Result{}, err
		}
	}
	return Result{Files: r.files, Pending: r.pending, Info: info}, nil
}

type renderer struct {
	gen       *Generator
	projectID string
	createdAt time.Time
	data      renderData
	files     []artifact.GeneratedFile
	pending   []Pending
}

func (r *renderer) add(relPath, content, tmpl string) {
	f := artifact.GeneratedFile{
		ID:        r.gen.newID(),
		Name:      path.Base(relPath),
		Path:      relPath,
		Content:   content,
		Type:      fileTypeFor(relPath),
		Size:      int64(len(content)),
		ProjectID: r.projectID,
		Phase:     StructurePhase,
		CreatedAt: r.createdAt,
	}
	f.SetMeta(artifact.MetaGeneratedBy, generatorName)
	f.SetMeta(artifact.MetaTemplate, tmpl)
	f.SetMeta(artifact.MetaExtractionMethod, string(artifact.MethodTemplateFill))
	r.files = append(r.files, f)
}

func (r *renderer) template(relPath, name string, data renderData) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", relPath, err)
	}
	r.add(relPath, buf.String(), name)
	return nil
}

func (r *renderer) json(relPath string, v any) error {
	raw, err := jsonutil.MarshalIndentNoEscape(v, "  ")
	if err != nil {
		return fmt.Errorf("render %s: %w", relPath, err)
	}
	r.add(relPath, string(raw)+"\n", "json:"+path.Base(relPath))
	return nil
}

func (r *renderer) root() error {
	o := r.data.Opts
	dev := map[string]string{
		"eslint":     "^8.57.0",
		"prettier":   "^3.3.0",
		"typescript": "^5.4.0",
	}
	switch o.MonorepoTool {
	case artifact.MonorepoTurborepo:
		dev["turbo"] = "^2.0.0"
	case artifact.MonorepoNx:
		dev["nx"] = "^19.0.0"
	}
	manifest := packageManifest{
		Name:            r.data.Info.Slug,
		Version:         "0.1.0",
		Private:         true,
		Workspaces:      []string{"apps/*", "packages/*"},
		Scripts:         rootScripts(o),
		DevDependencies: dev,
	}
	if err := r.json("package.json", manifest); err != nil {
		return err
	}
	switch o.MonorepoTool {
	case artifact.MonorepoTurborepo:
		if err := r.json("turbo.json", turboConfig()); err != nil {
			return err
		}
	case artifact.MonorepoNx:
		if err := r.json("nx.json", nxConfig()); err != nil {
			return err
		}
	}
	if o.PackageManager == "pnpm" {
		if err := r.template("pnpm-workspace.yaml", "pnpm-workspace.yaml.tmpl", r.data); err != nil {
			return err
		}
	}
	if err := r.template(".gitignore", "gitignore.tmpl", r.data); err != nil {
		return err
	}
	return r.template("README.md", "readme.md.tmpl", r.data)
}

func (r *renderer) apps() error {
	o := r.data.Opts
	specs := []appSpec{{Name: "web", Title: "Web App", Port: 3000}}
	if o.HasAdminPanel {
		specs = append(specs, appSpec{Name: "admin", Title: "Admin Panel", Port: 3001})
	}
	if o.HasLandingPage {
		specs = append(specs, appSpec{Name: "landing", Title: "Landing Page", Port: 3002})
	}
	framework, unsupported := frontendFramework(o)
	for _, app := range specs {
		app.Package = r.scoped(app.Name)
		app.Framework = framework
		if err := r.app(app, unsupported); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) app(app appSpec, unsupported string) error {
	dir := "apps/" + app.Name
	data := r.data
	data.App = app

	if err := r.json(dir+"/package.json", r.appManifest(app)); err != nil {
		return err
	}
	if err := r.json(dir+"/tsconfig.json", appTSConfig(app.Framework)); err != nil {
		return err
	}

	switch app.Framework {
	case frameworkNext:
		for _, f := range []struct{ path, tmpl string }{
			{dir + "/next.config.js", "next.config.js.tmpl"},
			{dir + "/app/layout.tsx", "next_layout.tsx.tmpl"},
			{dir + "/app/page.tsx", "next_page.tsx.tmpl"},
		} {
			if err := r.template(f.path, f.tmpl, data); err != nil {
				return err
			}
		}
		if err := r.components(dir+"/components", data); err != nil {
			return err
		}
	case frameworkVite:
		for _, f := range []struct{ path, tmpl string }{
			{dir + "/vite.config.ts", "vite.config.ts.tmpl"},
			{dir + "/index.html", "vite_index.html.tmpl"},
			{dir + "/src/main.tsx", "vite_main.tsx.tmpl"},
			{dir + "/src/App.tsx", "vite_app.tsx.tmpl"},
		} {
			if err := r.template(f.path, f.tmpl, data); err != nil {
				return err
			}
		}
		if err := r.components(dir+"/src/components", data); err != nil {
			return err
		}
	default:
		reason := "no frontend framework named in the tech stack"
		if unsupported != "" {
			reason = fmt.Sprintf("framework %s has no templates", unsupported)
		}
		r.pending = append(r.pending, Pending{Section: dir + "/pages", Reason: reason})
	}

	if len(r.data.Info.Features) > 0 {
		r.pending = append(r.pending, Pending{
			Section: dir + "/features",
			Reason:  "feature scaffolding not generated: " + strings.Join(r.data.Info.Features, ", "),
		})
	}
	return nil
}

func (r *renderer) components(dir string, data renderData) error {
	for _, name := range []string{"Header", "Footer"} {
		data.Component = name
		if err := r.template(dir+"/"+name+".tsx", "app_component.tsx.tmpl", data); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) packages() error {
	data := r.data
	data.Components = UIComponents

	if err := r.json("packages/ui/package.json", r.libraryManifest("ui", map[string]string{"react": "^18.3.0"})); err != nil {
		return err
	}
	for _, c := range UIComponents {
		data.Component = c
		if err := r.template("packages/ui/src/"+c+".tsx", "ui_component.tsx.tmpl", data); err != nil {
			return err
		}
	}
	if err := r.template("packages/ui/src/index.ts", "ui_index.ts.tmpl", data); err != nil {
		return err
	}

	if err := r.json("packages/utils/package.json", r.libraryManifest("utils", nil)); err != nil {
		return err
	}
	if err := r.template("packages/utils/src/index.ts", "utils_index.ts.tmpl", data); err != nil {
		return err
	}

	configManifest := r.libraryManifest("config", nil)
	configManifest.Main = "eslint-preset.js"
	configManifest.Types = ""
	if err := r.json("packages/config/package.json", configManifest); err != nil {
		return err
	}
	if err := r.json("packages/config/tsconfig.base.json", baseTSConfig()); err != nil {
		return err
	}
	if err := r.template("packages/config/eslint-preset.js", "config_eslint.js.tmpl", data); err != nil {
		return err
	}

	if err := r.json("packages/types/package.json", r.libraryManifest("types", nil)); err != nil {
		return err
	}
	return r.template("packages/types/src/index.ts", "types_index.ts.tmpl", data)
}

// database emits Supabase stubs only when Supabase is part of the stack.
func (r *renderer) database() error {
	if !r.data.Supabase {
		return nil
	}
	if err := r.template("supabase/migrations/0001_initial_schema.sql", "schema.sql.tmpl", r.data); err != nil {
		return err
	}
	return r.template("supabase/migrations/0002_rls_policies.sql", "rls.sql.tmpl", r.data)
}

func (r *renderer) docs() error {
	for _, d := range []struct{ name, tmpl string }{
		{"MASTER_CONFIG.md", "master_config.md.tmpl"},
		{"PRD.md", "prd.md.tmpl"},
		{"BACKLOG.md", "backlog.md.tmpl"},
		{"STATUS_LOG.md", "status_log.md.tmpl"},
	} {
		if err := r.template(ExternalDocsDir+"/"+d.name, d.tmpl, r.data); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) scoped(name string) string {
	return "@" + r.data.Info.Slug + "/" + name
}

// workspaceRef is how internal packages reference each other.
func (r *renderer) workspaceRef() string {
	if r.data.Opts.PackageManager == "pnpm" {
		return "workspace:*"
	}
	return "*"
}

func (r *renderer) appManifest(app appSpec) packageManifest {
	ref := r.workspaceRef()
	m := packageManifest{
		Name:    app.Package,
		Version: "0.1.0",
		Private: true,
		Dependencies: map[string]string{
			r.scoped("ui"):    ref,
			r.scoped("utils"): ref,
			r.scoped("types"): ref,
			"react":           "^18.3.0",
			"react-dom":       "^18.3.0",
		},
		DevDependencies: map[string]string{
			r.scoped("config"): ref,
			"@types/react":     "^18.3.0",
			"typescript":       "^5.4.0",
		},
	}
	port := fmt.Sprint(app.Port)
	switch app.Framework {
	case frameworkNext:
		m.Dependencies["next"] = "^14.2.0"
		m.Scripts = map[string]string{
			"dev":   "next dev -p " + port,
			"build": "next build",
			"start": "next start -p " + port,
			"lint":  "next lint",
		}
	case frameworkVite:
		m.DevDependencies["vite"] = "^5.3.0"
		m.DevDependencies["@vitejs/plugin-react"] = "^4.3.0"
		m.Scripts = map[string]string{
			"dev":     "vite --port " + port,
			"build":   "tsc && vite build",
			"preview": "vite preview",
		}
	}
	return m
}

func (r *renderer) libraryManifest(name string, peers map[string]string) packageManifest {
	return packageManifest{
		Name:             r.scoped(name),
		Version:          "0.1.0",
		Private:          true,
		Main:             "src/index.ts",
		Types:            "src/index.ts",
		PeerDependencies: peers,
		DevDependencies:  map[string]string{"typescript": "^5.4.0"},
	}
}

type packageManifest struct {
	Name             string            `json:"name"`
	Version          string            `json:"version"`
	Private          bool              `json:"private"`
	Workspaces       []string          `json:"workspaces,omitempty"`
	Main             string            `json:"main,omitempty"`
	Types            string            `json:"types,omitempty"`
	Scripts          map[string]string `json:"scripts,omitempty"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	PeerDependencies map[string]string `json:"peerDependencies,omitempty"`
	DevDependencies  map[string]string `json:"devDependencies,omitempty"`
}

func rootScripts(o Options) map[string]string {
	tasks := []string{"build", "dev", "lint", "test"}
	scripts := make(map[string]string, len(tasks)+1)
	for _, task := range tasks {
		switch {
		case o.MonorepoTool == artifact.MonorepoTurborepo:
			scripts[task] = "turbo run " + task
		case o.MonorepoTool == artifact.MonorepoNx:
			scripts[task] = "nx run-many -t " + task
		case o.PackageManager == "pnpm":
			scripts[task] = "pnpm -r " + task
		case o.PackageManager == "yarn":
			scripts[task] = "yarn workspaces foreach -A run " + task
		default:
			scripts[task] = "npm run " + task + " --workspaces --if-present"
		}
	}
	scripts["format"] = "prettier --write ."
	return scripts
}

type turboTask struct {
	DependsOn  []string `json:"dependsOn,omitempty"`
	Outputs    []string `json:"outputs,omitempty"`
	Cache      *bool    `json:"cache,omitempty"`
	Persistent bool     `json:"persistent,omitempty"`
}

func turboConfig() any {
	noCache := false
	return struct {
		Schema string               `json:"$schema"`
		Tasks  map[string]turboTask `json:"tasks"`
	}{
		Schema: "https://turbo.build/schema.json",
		Tasks: map[string]turboTask{
			"build": {DependsOn: []string{"^build"}, Outputs: []string{".next/**", "!.next/cache/**", "dist/**"}},
			"dev":   {Cache: &noCache, Persistent: true},
			"lint":  {DependsOn: []string{"^lint"}},
			"test":  {DependsOn: []string{"^build"}},
		},
	}
}

func nxConfig() any {
	return struct {
		Schema         string                    `json:"$schema"`
		TargetDefaults map[string]map[string]any `json:"targetDefaults"`
		DefaultBase    string                    `json:"defaultBase"`
	}{
		Schema: "./node_modules/nx/schemas/nx-schema.json",
		TargetDefaults: map[string]map[string]any{
			"build": {"dependsOn": []string{"^build"}, "cache": true},
			"lint":  {"cache": true},
			"test":  {"cache": true},
		},
		DefaultBase: "main",
	}
}

type tsConfig struct {
	Extends         string         `json:"extends,omitempty"`
	CompilerOptions map[string]any `json:"compilerOptions"`
	Include         []string       `json:"include,omitempty"`
	Exclude         []string       `json:"exclude,omitempty"`
}

func baseTSConfig() tsConfig {
	return tsConfig{
		CompilerOptions: map[string]any{
			"target":            "ES2022",
			"lib":               []string{"dom", "dom.iterable", "esnext"},
			"module":            "esnext",
			"moduleResolution":  "bundler",
			"jsx":               "preserve",
			"strict":            true,
			"esModuleInterop":   true,
			"skipLibCheck":      true,
			"isolatedModules":   true,
			"resolveJsonModule": true,
			"noEmit":            true,
		},
	}
}

func appTSConfig(framework string) tsConfig {
	cfg := tsConfig{
		Extends:         "../../packages/config/tsconfig.base.json",
		CompilerOptions: map[string]any{},
		Exclude:         []string{"node_modules"},
	}
	switch framework {
	case frameworkNext:
		cfg.CompilerOptions["plugins"] = []map[string]string{{"name": "next"}}
		cfg.Include = []string{"next-env.d.ts", "**/*.ts", "**/*.tsx"}
	case frameworkVite:
		cfg.CompilerOptions["jsx"] = "react-jsx"
		cfg.Include = []string{"src"}
	default:
		cfg.Include = []string{"**/*.ts", "**/*.tsx"}
	}
	return cfg
}

// frontendFramework returns the template family for the stack and, when the
// stack only names frameworks without templates, the first such name.
func frontendFramework(o Options) (string, string) {
	switch {
	case o.hasTech("Next.js"):
		return frameworkNext, ""
	case o.hasTech("Vite"), o.hasTech("React"):
		return frameworkVite, ""
	}
	for _, name := range unsupportedFrameworks {
		if o.hasTech(name) {
			return "", name
		}
	}
	return "", ""
}

func fileTypeFor(relPath string) artifact.FileType {
	base := path.Base(relPath)
	switch {
	case strings.Contains(base, ".config."), strings.HasPrefix(base, "."):
		return artifact.FileTypeConfiguration
	}
	switch path.Ext(base) {
	case ".json", ".yaml", ".yml":
		return artifact.FileTypeConfiguration
	case ".md":
		return artifact.FileTypeDocumentation
	case ".js":
		return artifact.FileTypeConfiguration
	default:
		return artifact.FileTypeCode
	}
}

func runCmd(pm string) string {
	if pm == "npm" {
		return "npm run"
	}
	return pm
}

// excerpt returns at most excerptLength runes of the masterplan.
func excerpt(masterplan string) string {
	text := strings.TrimSpace(masterplan)
	runes := []rune(text)
	if len(runes) <= excerptLength {
		return text
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "..."
}
