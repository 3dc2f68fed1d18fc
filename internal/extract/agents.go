package extract

import (
	"regexp"
	"strings"

	"wizard/internal/artifact"
)

// Agent identifiers of the wizard, one per phase.
const (
	AgentConsultorVirtual    = "consultor-virtual"
	AgentBusinessAnalyst     = "business-analyst"
	AgentMasterplanArchitect = "masterplan-architect"
	AgentStructureArchitect  = "structure-architect"
	AgentOperationsPlanner   = "operations-planner"
)

// AgentPhase maps each known agent to the wizard phase it runs in.
var AgentPhase = map[string]int{
	AgentConsultorVirtual:    1,
	AgentBusinessAnalyst:     2,
	AgentMasterplanArchitect: 3,
	AgentStructureArchitect:  4,
	AgentOperationsPlanner:   5,
}

// sectionPattern extracts one named section. Start matches the heading line;
// Stop is searched in the text after that line and marks where the section ends.
// A nil Stop keeps everything up to the end of the response.
type sectionPattern struct {
	Name       string
	Filename   string
	Type       artifact.FileType
	Confidence float64
	Start      *regexp.Regexp
	Stop       *regexp.Regexp
}

func (p sectionPattern) extract(text string) (string, bool) {
	loc := p.Start.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	section := text[loc[0]:]
	if p.Stop != nil {
		headEnd := strings.IndexByte(section, '\n')
		if headEnd >= 0 {
			if stop := p.Stop.FindStringIndex(section[headEnd+1:]); stop != nil {
				section = section[:headEnd+1+stop[0]]
			}
		}
	}
	section = Clean(section)
	if section == "" {
		return "", false
	}
	return section, true
}

var (
	// reStopRuleOrFence ends a section at a horizontal rule or a closing fence.
	reStopRuleOrFence = regexp.MustCompile("(?m)^[ \t]*(?:-{3,}|`{3,})[ \t]*$")
	// reStopFence ends a section at a closing fence only.
	reStopFence = regexp.MustCompile("(?m)^[ \t]*`{3,}[ \t]*$")
	// reStopRule ends a section at a horizontal rule only.
	reStopRule = regexp.MustCompile(`(?m)^[ \t]*-{3,}[ \t]*$`)
	// reStopBusinessSection ends a business-analysis section at the next known
	// section heading, a horizontal rule or a closing fence.
	reStopBusinessSection = regexp.MustCompile("(?im)^[ \t]*(?:#{1,3}[ \t]*(?:case overview|business overview|resumen del caso|visi[oó]n general del negocio|logic breakdown|desglose (?:de )?l[oó]gic[oa]|meta[ -]?outline|esquema meta)\\b|-{3,}[ \t]*$|`{3,}[ \t]*$)")
)

var agentPatterns = map[string][]sectionPattern{
	AgentConsultorVirtual: {
		{
			Name:       "conversation_summary",
			Filename:   "conversation_summary.md",
			Type:       artifact.FileTypeConversationSummary,
			Confidence: 0.9,
			Start:      regexp.MustCompile(`(?im)^#{1,2}[ \t]*(?:conversation summary|resumen de (?:la )?conversaci[oó]n)\b.*$`),
			Stop:       reStopRuleOrFence,
		},
	},
	AgentBusinessAnalyst: {
		{
			Name:       "case_overview",
			Filename:   "case_overview.md",
			Type:       artifact.FileTypeBusinessOverview,
			Confidence: 0.85,
			Start:      regexp.MustCompile(`(?im)^#{1,3}[ \t]*(?:case overview|business overview|resumen del caso|visi[oó]n general del negocio)\b.*$`),
			Stop:       reStopBusinessSection,
		},
		{
			Name:       "logic_breakdown",
			Filename:   "logic_breakdown.md",
			Type:       artifact.FileTypeLogicBreakdown,
			Confidence: 0.85,
			Start:      regexp.MustCompile(`(?im)^#{1,3}[ \t]*(?:logic breakdown|desglose (?:de )?l[oó]gic[oa])\b.*$`),
			Stop:       reStopBusinessSection,
		},
		{
			Name:       "meta_outline",
			Filename:   "meta_outline.md",
			Type:       artifact.FileTypeMetaOutline,
			Confidence: 0.85,
			Start:      regexp.MustCompile(`(?im)^#{1,3}[ \t]*(?:meta[ -]?outline|esquema meta)\b.*$`),
			Stop:       reStopBusinessSection,
		},
	},
	AgentMasterplanArchitect: {
		{
			Name:       "masterplan",
			Filename:   "masterplan.md",
			Type:       artifact.FileTypeMasterplan,
			Confidence: 0.9,
			Start:      regexp.MustCompile(`(?im)^#{1,2}[ \t]*(?:master ?plan|plan maestro)\b.*$`),
			Stop:       reStopFence,
		},
	},
	AgentStructureArchitect: {
		{
			Name:       "project_structure",
			Filename:   "project_structure.md",
			Type:       artifact.FileTypeProjectStructure,
			Confidence: 0.85,
			Start:      regexp.MustCompile(`(?im)^#{1,2}[ \t]*(?:project structure|estructura del proyecto)\b.*$`),
			Stop:       reStopRule,
		},
	},
	AgentOperationsPlanner: {
		{
			Name:       "operations_guide",
			Filename:   "operations_guide.md",
			Type:       artifact.FileTypeDocumentation,
			Confidence: 0.85,
			Start:      regexp.MustCompile(`(?im)^#{1,2}[ \t]*(?:operations guide|deployment guide|gu[ií]a de operaciones|gu[ií]a de despliegue)\b.*$`),
			Stop:       reStopRuleOrFence,
		},
	},
}

// structureAgents run the structure-likelihood heuristic after their patterns.
var structureAgents = map[string]bool{
	AgentStructureArchitect: true,
}

// KnownAgent reports whether agentID has a pattern table.
func KnownAgent(agentID string) bool {
	_, ok := agentPatterns[agentID]
	return ok
}
