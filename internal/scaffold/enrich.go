package scaffold

import (
	"strings"
)

// ProjectInfo is the record every governance doc and stub is templated from.
type ProjectInfo struct {
	Name       string
	Slug       string
	TechStack  []string
	Features   []string
	Entities   []string
	Confidence float64 // how much the enrichment step trusts Features/Entities
}

// Enricher derives features and entities from a masterplan. Implementations
// are best effort; the pipeline never depends on their accuracy.
type Enricher interface {
	Enrich(masterplan string, opts Options) ProjectInfo
}

// KeywordConfidenceCeiling caps what keyword presence checks may claim.
const KeywordConfidenceCeiling = 0.5

type vocabEntry struct {
	Name     string
	Keywords []string
}

var featureVocab = []vocabEntry{
	{"Authentication", []string{"auth", "login", "autenticaci", "inicio de sesi", "registro"}},
	{"Payments", []string{"payment", "pago", "stripe", "checkout"}},
	{"Dashboard", []string{"dashboard", "panel de control"}},
	{"Notifications", []string{"notification", "notificaci"}},
	{"Search", []string{"search", "búsqueda", "busqueda"}},
	{"Chat", []string{"chat", "mensajer"}},
	{"Reports", []string{"report", "analytics", "analítica"}},
	{"File uploads", []string{"upload", "subida de archivos"}},
}

var entityVocab = []vocabEntry{
	{"User", []string{"user", "usuario", "cliente", "customer"}},
	{"Project", []string{"project", "proyecto"}},
	{"Task", []string{"task", "tarea"}},
	{"Product", []string{"product", "producto"}},
	{"Order", []string{"order", "pedido", "orden"}},
	{"Payment", []string{"payment", "pago"}},
	{"Message", []string{"message", "mensaje"}},
	{"Appointment", []string{"appointment", "cita", "reserva"}},
}

// KeywordEnricher is substring matching against a fixed vocabulary.
type KeywordEnricher struct{}

func (KeywordEnricher) Enrich(masterplan string, opts Options) ProjectInfo {
	lower := strings.ToLower(masterplan)
	features := matchVocab(lower, featureVocab)
	entities := matchVocab(lower, entityVocab)
	hits := len(features) + len(entities)
	if len(entities) == 0 {
		entities = []string{"User"}
	}
	confidence := 0.1 * float64(hits)
	if confidence > KeywordConfidenceCeiling {
		confidence = KeywordConfidenceCeiling
	}
	name := strings.TrimSpace(opts.ProjectName)
	if name == "" {
		name = "my-project"
	}
	return ProjectInfo{
		Name:       name,
		Slug:       packageSlug(name),
		TechStack:  append([]string(nil), opts.TechStack...),
		Features:   features,
		Entities:   entities,
		Confidence: confidence,
	}
}

func matchVocab(lower string, vocab []vocabEntry) []string {
	out := make([]string, 0, len(vocab))
	for _, v := range vocab {
		for _, kw := range v.Keywords {
			if strings.Contains(lower, kw) {
				out = append(out, v.Name)
				break
			}
		}
	}
	return out
}

// packageSlug turns a display name into an npm-safe scope name.
func packageSlug(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "app"
	}
	return out
}
