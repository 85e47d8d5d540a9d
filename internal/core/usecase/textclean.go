package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	excessSpaces   = regexp.MustCompile(` {2,}`)
	brokenWord     = regexp.MustCompile(`(\w)-\n(\w)`)
	invisibleRunes = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")
	ocrGlyphFixes  = strings.NewReplacer("|", "I")
)

// CleanText normalizes OCR output before detection, translation and classification.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = excessSpaces.ReplaceAllString(text, " ")
	text = ocrGlyphFixes.Replace(text)
	text = brokenWord.ReplaceAllString(text, "$1$2")
	text = norm.NFKC.String(text)
	text = invisibleRunes.Replace(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
