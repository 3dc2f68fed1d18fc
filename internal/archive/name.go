package archive

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"wizard/internal/artifact"
)

// DefaultProjectName is used when no conversation summary names the project.
const DefaultProjectName = "Untitled Project"

var reSummaryTitle = regexp.MustCompile(`(?i)^(?:conversation summary|resumen de (?:la )?conversaci[oó]n)\s*(?:[-:–|]\s*(.*))?$`)

// ProjectName sniffs the project name from the headings of the first
// conversation summary that has one: "# Conversation Summary - Foo" names
// "Foo", otherwise the first other H1 is used.
func ProjectName(files []artifact.GeneratedFile) string {
	for _, f := range files {
		if f.Type != artifact.FileTypeConversationSummary {
			continue
		}
		if name := nameFromHeadings(f.Content); name != "" {
			return name
		}
	}
	return DefaultProjectName
}

func nameFromHeadings(md string) string {
	doc := markdown.Parse([]byte(md), parser.NewWithExtensions(parser.CommonExtensions))
	var titled, firstH1 string
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		h, ok := node.(*ast.Heading)
		if !ok || !entering {
			return ast.GoToNext
		}
		text := strings.TrimSpace(headingText(h))
		if m := reSummaryTitle.FindStringSubmatch(text); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				titled = name
				return ast.Terminate
			}
			return ast.SkipChildren
		}
		if h.Level == 1 && firstH1 == "" {
			firstH1 = text
		}
		return ast.SkipChildren
	})
	if titled != "" {
		return titled
	}
	return firstH1
}

func headingText(h *ast.Heading) string {
	var b strings.Builder
	ast.WalkFunc(h, func(node ast.Node, entering bool) ast.WalkStatus {
		if leaf := node.AsLeaf(); entering && leaf != nil {
			b.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return b.String()
}
