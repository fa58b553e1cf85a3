package voicecall

import (
	"regexp"
	"strings"
)

// Formatting the tutor model emits reads fine on screen but sounds wrong when
// synthesized, so it is stripped before speech output.
var (
	codeBlockPattern  = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`([^`]*)`")
	boldPattern       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern     = regexp.MustCompile(`\*([^*]+)\*`)
	headingPattern    = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	linkPattern       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	bulletPattern     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanMarkdown strips markdown formatting from text, leaving plain prose.
// Already-plain text passes through unchanged, so applying it twice is the
// same as applying it once.
func CleanMarkdown(text string) string {
	text = codeBlockPattern.ReplaceAllString(text, "")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = bulletPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
