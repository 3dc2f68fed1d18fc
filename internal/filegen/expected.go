package filegen

import (
	"regexp"

	"wizard/internal/artifact"
	"wizard/internal/extract"
)

// expectedFiles binds the files each agent is asked to produce. Patterns end a
// section at a horizontal rule or the end of the response.
var expectedFiles = map[string][]artifact.ExpectedFile{
	extract.AgentConsultorVirtual: {
		{
			Name:              "conversation_summary.md",
			Type:              artifact.FileTypeConversationSummary,
			Required:          true,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,2}[ \t]*(?:conversation summary|resumen de (?:la )?conversaci[oó]n).*?)(?:\n-{3,}|\z)`),
		},
	},
	extract.AgentBusinessAnalyst: {
		{
			Name:              "case_overview.md",
			Type:              artifact.FileTypeBusinessOverview,
			Required:          true,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,3}[ \t]*(?:case overview|business overview|resumen del caso).*?)(?:\n-{3,}|\z)`),
		},
		{
			Name:              "logic_breakdown.md",
			Type:              artifact.FileTypeLogicBreakdown,
			Required:          true,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,3}[ \t]*(?:logic breakdown|desglose (?:de )?l[oó]gic[oa]).*?)(?:\n-{3,}|\z)`),
		},
		{
			Name:              "meta_outline.md",
			Type:              artifact.FileTypeMetaOutline,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,3}[ \t]*(?:meta[ -]?outline|esquema meta).*?)(?:\n-{3,}|\z)`),
		},
	},
	extract.AgentMasterplanArchitect: {
		{
			Name:              "masterplan.md",
			Type:              artifact.FileTypeMasterplan,
			Required:          true,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,2}[ \t]*(?:master ?plan|plan maestro).*)`),
		},
	},
	extract.AgentStructureArchitect: {
		{
			Name:              "project_structure.md",
			Type:              artifact.FileTypeProjectStructure,
			Required:          true,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,3}[ \t]*(?:project structure|estructura del proyecto).*?)(?:\n-{3,}|\z)`),
		},
	},
	extract.AgentOperationsPlanner: {
		{
			Name:              "operations_guide.md",
			Type:              artifact.FileTypeDocumentation,
			ExtractionPattern: regexp.MustCompile(`(?is)(#{1,3}[ \t]*(?:operations|operaciones|plan de operaciones).*?)(?:\n-{3,}|\z)`),
		},
	},
}

// ExpectedFilesFor returns a copy of the agent's expected-file table.
func ExpectedFilesFor(agentID string) []artifact.ExpectedFile {
	return append([]artifact.ExpectedFile(nil), expectedFiles[agentID]...)
}
