// Package extract turns free-form LLM responses into typed file candidates.
//
// Parse runs four independent strategies and unions their output:
//  1. markdown/untagged fenced blocks
//  2. per-agent section patterns (plus the structure manifest for structure agents)
//  3. caller-supplied expected files
//  4. typed code blocks (json, yaml, xml, sql, dockerfile)
//
// Overlapping candidates are kept; DedupeByFilename is the explicit post-pass.
package extract

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"wizard/internal/artifact"
)

// Fixed strategy confidences.
const (
	MarkdownBlockConfidence = 0.8
	ExpectedFileConfidence  = 0.7
	TypedBlockConfidence    = 0.6

	LowConfidenceThreshold = 0.7
	patternBonus           = 0.1
	maxPatternBonus        = 0.3
	lookbackWindow         = 200
)

// Warning texts.
const (
	WarnNoFiles       = "No files extracted from response"
	WarnLowConfidence = "Low confidence extraction"
)

var (
	reFileLabel    = regexp.MustCompile(`(?im)^[ \t*_-]*(?:archivo|nombre|file(?:name)?)[ \t*_]*:[ \t*_]*` + "`?" + `([\w./-]+\.[A-Za-z0-9]+)`)
	reHeading      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t#]*$`)
	reMarkdownName = regexp.MustCompile(`([\w-]+\.(?:md|markdown))\b`)
)

type typedBlock struct {
	Type artifact.FileType
	Ext  string
}

var typedBlockLangs = map[string]typedBlock{
	"json":       {artifact.FileTypeConfiguration, "json"},
	"yaml":       {artifact.FileTypeConfiguration, "yaml"},
	"yml":        {artifact.FileTypeConfiguration, "yml"},
	"xml":        {artifact.FileTypeConfiguration, "xml"},
	"sql":        {artifact.FileTypeCode, "sql"},
	"postgres":   {artifact.FileTypeCode, "sql"},
	"dockerfile": {artifact.FileTypeConfiguration, "dockerfile"},
	"docker":     {artifact.FileTypeConfiguration, "dockerfile"},
}

// Parser is stateless; one value can serve concurrent requests.
type Parser struct {
	agents          map[string][]sectionPattern
	structureAgents map[string]bool
}

func NewParser() *Parser {
	return &Parser{
		agents:          agentPatterns,
		structureAgents: structureAgents,
	}
}

// Parse extracts candidates from raw. It performs no I/O.
func (p *Parser) Parse(raw, agentID string, expected []artifact.ExpectedFile) artifact.FileParsingResult {
	var (
		files    []artifact.ExtractedFileContent
		patterns []string
		warnings []string
	)
	blocks := scanFences(raw)

	if found := p.markdownBlocks(raw, blocks); len(found) > 0 {
		files = append(files, found...)
		patterns = append(patterns, "markdown_blocks")
	}

	agentFiles, agentPatternsFired, agentWarnings := p.agentSections(raw, agentID)
	files = append(files, agentFiles...)
	patterns = append(patterns, agentPatternsFired...)
	warnings = append(warnings, agentWarnings...)

	for _, ef := range expected {
		if ef.ExtractionPattern == nil {
			continue
		}
		content, ok := matchExpected(raw, ef.ExtractionPattern)
		if !ok {
			if ef.Required {
				warnings = append(warnings, fmt.Sprintf("Required file %s not found", ef.Name))
			}
			continue
		}
		files = append(files, artifact.ExtractedFileContent{
			Filename:   ef.Name,
			Content:    content,
			Type:       ef.Type,
			Confidence: ExpectedFileConfidence,
			Method:     artifact.MethodPatternMatch,
		})
		patterns = append(patterns, "expected:"+ef.Name)
	}

	typed, typedPatterns := typedBlocks(blocks)
	files = append(files, typed...)
	patterns = append(patterns, typedPatterns...)

	patterns = distinct(patterns)
	confidence := OverallConfidence(files, len(patterns))
	if len(files) == 0 {
		warnings = append(warnings, WarnNoFiles)
	}
	if confidence < LowConfidenceThreshold {
		warnings = append(warnings, fmt.Sprintf("%s (%.2f)", WarnLowConfidence, confidence))
	}
	return artifact.FileParsingResult{
		Files:      files,
		Patterns:   patterns,
		Confidence: confidence,
		Warnings:   warnings,
	}
}

func (p *Parser) markdownBlocks(raw string, blocks []fencedBlock) []artifact.ExtractedFileContent {
	out := make([]artifact.ExtractedFileContent, 0, len(blocks))
	n := 0
	for _, b := range blocks {
		if b.Lang != "" && b.Lang != "markdown" && b.Lang != "md" {
			continue
		}
		content := Clean(b.Body)
		if content == "" {
			continue
		}
		n++
		out = append(out, artifact.ExtractedFileContent{
			Filename:   blockFilename(raw, b, content, n),
			Content:    content,
			Type:       artifact.FileTypeDocumentation,
			Confidence: MarkdownBlockConfidence,
			Method:     artifact.MethodMarkdownBlock,
		})
	}
	return out
}

func (p *Parser) agentSections(raw, agentID string) ([]artifact.ExtractedFileContent, []string, []string) {
	var (
		files    []artifact.ExtractedFileContent
		fired    []string
		warnings []string
	)
	for _, sp := range p.agents[agentID] {
		content, ok := sp.extract(raw)
		if !ok {
			continue
		}
		files = append(files, artifact.ExtractedFileContent{
			Filename:   sp.Filename,
			Content:    content,
			Type:       sp.Type,
			Confidence: sp.Confidence,
			Method:     artifact.MethodPatternMatch,
		})
		fired = append(fired, agentID+":"+sp.Name)
	}
	if p.structureAgents[agentID] && IsProjectStructure(raw) {
		manifest, err := BuildStructureManifest(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("structure manifest: %v", err))
		} else {
			files = append(files, manifest)
			fired = append(fired, "project_structure_detection")
		}
	}
	return files, fired, warnings
}

func matchExpected(raw string, re *regexp.Regexp) (string, bool) {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	body := m[0]
	if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		body = m[1]
	}
	body = Clean(body)
	return body, body != ""
}

func typedBlocks(blocks []fencedBlock) ([]artifact.ExtractedFileContent, []string) {
	var (
		files    []artifact.ExtractedFileContent
		patterns []string
	)
	n := 0
	for _, b := range blocks {
		tb, ok := typedBlockLangs[b.Lang]
		if !ok {
			continue
		}
		content := strings.TrimSpace(b.Body)
		if content == "" {
			continue
		}
		n++
		files = append(files, artifact.ExtractedFileContent{
			Filename:   fmt.Sprintf("extracted_%s_%d.%s", tb.Type, n, tb.Ext),
			Content:    content,
			Type:       tb.Type,
			Confidence: TypedBlockConfidence,
			Method:     artifact.MethodMarkdownBlock,
		})
		patterns = append(patterns, "code_block:"+tb.Ext)
	}
	return files, patterns
}

// blockFilename recovers a name for a markdown block: an explicit label inside
// the block, its first heading, a label or markdown filename in the preceding
// lookback window, then a synthetic name.
func blockFilename(raw string, b fencedBlock, content string, n int) string {
	if m := reFileLabel.FindStringSubmatch(content); m != nil {
		return path.Base(m[1])
	}
	if m := reHeading.FindStringSubmatch(content); m != nil {
		if slug := slugify(m[1]); slug != "" {
			return slug + ".md"
		}
	}
	from := b.Start - lookbackWindow
	if from < 0 {
		from = 0
	}
	window := raw[from:b.Start]
	if all := reFileLabel.FindAllStringSubmatch(window, -1); len(all) > 0 {
		return path.Base(all[len(all)-1][1])
	}
	if all := reMarkdownName.FindAllStringSubmatch(window, -1); len(all) > 0 {
		return all[len(all)-1][1]
	}
	return fmt.Sprintf("extracted_file_%d.md", n)
}

// OverallConfidence averages per-file confidence and adds 0.1 per distinct
// pattern fired, with the bonus capped at 0.3 and the total at 1.0.
func OverallConfidence(files []artifact.ExtractedFileContent, distinctPatterns int) float64 {
	if len(files) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range files {
		sum += f.Confidence
	}
	bonus := patternBonus * float64(distinctPatterns)
	if bonus > maxPatternBonus {
		bonus = maxPatternBonus
	}
	total := sum/float64(len(files)) + bonus
	if total > 1 {
		total = 1
	}
	return total
}

// DedupeByFilename keeps one candidate per filename: the most confident one,
// the earliest on ties. Identical content always collapses. Two different
// markdown blocks that landed on the same name are both kept; the later one
// is renamed with a numeric suffix and a warning records the rename. Order
// follows first appearance.
func DedupeByFilename(res artifact.FileParsingResult) artifact.FileParsingResult {
	index := make(map[string]int, len(res.Files))
	kept := make([]artifact.ExtractedFileContent, 0, len(res.Files))
	warnings := append([]string(nil), res.Warnings...)
	for _, f := range res.Files {
		i, seen := index[f.Filename]
		if !seen {
			index[f.Filename] = len(kept)
			kept = append(kept, f)
			continue
		}
		cur := kept[i]
		if f.Content != cur.Content && f.Method == artifact.MethodMarkdownBlock && cur.Method == artifact.MethodMarkdownBlock {
			renamed := uniqueFilename(f.Filename, index)
			warnings = append(warnings, fmt.Sprintf("Duplicate filename %s renamed to %s", f.Filename, renamed))
			f.Filename = renamed
			index[renamed] = len(kept)
			kept = append(kept, f)
			continue
		}
		if f.Confidence > cur.Confidence {
			kept[i] = f
		}
	}
	out := res
	out.Files = kept
	out.Patterns = append([]string(nil), res.Patterns...)
	out.Warnings = warnings
	return out
}

func uniqueFilename(name string, taken map[string]int) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
