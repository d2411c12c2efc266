package extract

import (
	"regexp"
	"strings"
)

var (
	lineBreaks = regexp.MustCompile(`\r\n|\r|\n`)
	runsOfWS   = regexp.MustCompile(`\s+`)
)

// Normalize flattens extracted text into a single line: every line break
// becomes a space, runs of whitespace collapse to one space, and leading
// and trailing whitespace is trimmed. Chunk offsets stay comparable across
// extraction strategies because they all pass through here.
func Normalize(text string) string {
	text = lineBreaks.ReplaceAllString(text, " ")
	text = runsOfWS.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
