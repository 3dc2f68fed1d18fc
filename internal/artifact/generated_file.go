package artifact

import (
	"fmt"
	"strings"
	"time"
)

// FileType tags what a generated file represents inside the wizard.
type FileType string

const (
	FileTypeConversationSummary FileType = "conversation_summary"
	FileTypeBusinessOverview    FileType = "business_overview"
	FileTypeLogicBreakdown      FileType = "logic_breakdown"
	FileTypeMetaOutline         FileType = "meta_outline"
	FileTypeMasterplan          FileType = "masterplan"
	FileTypeProjectStructure    FileType = "project_structure"
	FileTypeDocumentation       FileType = "documentation"
	FileTypeConfiguration       FileType = "configuration"
	FileTypeCode                FileType = "code"
	FileTypeData                FileType = "data"
	FileTypeAssets              FileType = "assets"
)

var knownFileTypes = map[FileType]struct{}{
	FileTypeConversationSummary: {},
	FileTypeBusinessOverview:    {},
	FileTypeLogicBreakdown:      {},
	FileTypeMetaOutline:         {},
	FileTypeMasterplan:          {},
	FileTypeProjectStructure:    {},
	FileTypeDocumentation:       {},
	FileTypeConfiguration:       {},
	FileTypeCode:                {},
	FileTypeData:                {},
	FileTypeAssets:              {},
}

// ParseFileType accepts only the closed FileType set.
func ParseFileType(raw string) (FileType, error) {
	t := FileType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownFileTypes[t]; !ok {
		return "", fmt.Errorf("unknown file type %q", raw)
	}
	return t, nil
}

// ExtractionMethod records which strategy produced a candidate.
type ExtractionMethod string

const (
	MethodMarkdownBlock ExtractionMethod = "markdown_block"
	MethodPatternMatch  ExtractionMethod = "pattern_match"
	MethodTemplateFill  ExtractionMethod = "template_fill"
	MethodAIAnalysis    ExtractionMethod = "ai_analysis"
)

// Well-known GeneratedFile.Metadata keys.
const (
	MetaSource           = "source"
	MetaProvider         = "provider"
	MetaExtractionMethod = "extraction_method"
	MetaConfidence       = "confidence"
	MetaContentHash      = "content_hash"
	MetaStorageType      = "storage_type"
	MetaCompressed       = "compressed"
	MetaStorageURL       = "storage_url"
	MetaStoragePath      = "storage_path"
	MetaDownloadURL      = "download_url"
	MetaGeneratedBy      = "generated_by"
	MetaTemplate         = "template"
)

// GeneratedFile is a persisted artifact. Size is the byte length of Content at
// generation time and stays authoritative when Content is elided after blob
// placement.
type GeneratedFile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Content   string         `json:"content"`
	Type      FileType       `json:"type"`
	Size      int64          `json:"size"`
	AgentID   string         `json:"agent_id"`
	ProjectID string         `json:"project_id"`
	Phase     int            `json:"phase"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Clone copies f including its metadata map.
func (f GeneratedFile) Clone() GeneratedFile {
	out := f
	if f.Metadata != nil {
		out.Metadata = make(map[string]any, len(f.Metadata))
		for k, v := range f.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// MetaString returns a string metadata value or "".
func (f GeneratedFile) MetaString(key string) string {
	if f.Metadata == nil {
		return ""
	}
	s, _ := f.Metadata[key].(string)
	return s
}

func (f *GeneratedFile) SetMeta(key string, value any) {
	if f.Metadata == nil {
		f.Metadata = make(map[string]any, 8)
	}
	f.Metadata[key] = value
}
