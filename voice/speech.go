package voice

import (
	"regexp"
	"strings"
)

var (
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	blankLinePattern = regexp.MustCompile(`\n\n+`)
)

// OptimizeForSpeech transforms raw response text into a speech-safe string:
// URL-like tokens become the word "link", runs of blank lines collapse to a
// single newline, and emphasis markup is stripped. Pure function.
func OptimizeForSpeech(text string) string {
	text = urlPattern.ReplaceAllString(text, "link")
	text = blankLinePattern.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "**", "")
	return text
}
