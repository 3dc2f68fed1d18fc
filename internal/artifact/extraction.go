package artifact

import "regexp"

// Metadata flags carried by ExtractedFileContent.
const (
	FlagProjectStructure          = "isProjectStructure"
	FlagRequiresSpecialProcessing = "requiresSpecialProcessing"
)

// ExtractedFileContent is a pre-persistence candidate produced by one parse.
type ExtractedFileContent struct {
	Filename   string           `json:"filename"`
	Content    string           `json:"content"`
	Type       FileType         `json:"type"`
	Confidence float64          `json:"confidence"` // [0,1]
	Method     ExtractionMethod `json:"extraction_method"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
}

// Flag reports whether a boolean metadata flag is set.
func (c ExtractedFileContent) Flag(name string) bool {
	if c.Metadata == nil {
		return false
	}
	v, _ := c.Metadata[name].(bool)
	return v
}

// FileParsingResult aggregates one parse invocation.
type FileParsingResult struct {
	Files      []ExtractedFileContent `json:"files"`
	Patterns   []string               `json:"patterns"`
	Confidence float64                `json:"confidence"`
	Warnings   []string               `json:"warnings,omitempty"`
}

// ExpectedFile lets a caller name files it expects in a response.
// ExtractionPattern may use one capture group to select the file body.
type ExpectedFile struct {
	Name              string
	Type              FileType
	Required          bool
	ExtractionPattern *regexp.Regexp
}
