package extract

import "strings"

// fencedBlock is one closed ``` block found in a response.
type fencedBlock struct {
	Lang  string // lower-cased first word of the info string, "" when untagged
	Body  string
	Start int // byte offset of the opening fence line
}

// scanFences walks the text line by line and pairs openers with closers.
// A closer needs at least as many backticks as its opener and nothing else on
// the line, so the closing fence of one block never opens the next one.
// Unterminated blocks are dropped.
func scanFences(text string) []fencedBlock {
	var (
		out      []fencedBlock
		open     bool
		fenceLen int
		cur      fencedBlock
		bodyFrom int
	)
	pos := 0
	for pos <= len(text) {
		end := strings.IndexByte(text[pos:], '\n')
		lineEnd := len(text)
		next := len(text) + 1
		if end >= 0 {
			lineEnd = pos + end
			next = lineEnd + 1
		}
		line := strings.TrimRight(text[pos:lineEnd], "\r")
		trimmed := strings.TrimLeft(line, " \t")
		ticks := countBackticks(trimmed)

		switch {
		case !open && ticks >= 3:
			open = true
			fenceLen = ticks
			info := strings.TrimSpace(trimmed[ticks:])
			lang := ""
			if fields := strings.Fields(info); len(fields) > 0 {
				lang = strings.ToLower(fields[0])
			}
			cur = fencedBlock{Lang: lang, Start: pos}
			bodyFrom = next
		case open && ticks >= fenceLen && strings.TrimSpace(trimmed[ticks:]) == "":
			open = false
			if bodyFrom <= pos {
				cur.Body = text[bodyFrom:pos]
			}
			out = append(out, cur)
		}
		pos = next
	}
	return out
}

func countBackticks(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}
