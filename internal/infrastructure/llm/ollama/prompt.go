package ollama

import (
	"strings"
	"unicode/utf8"
)

const maxPromptSnippet = 4000

func buildClassificationPrompt(categories []string, text string) string {
	snippet := text
	if utf8.RuneCountInString(snippet) > maxPromptSnippet {
		snippet = string([]rune(snippet)[:maxPromptSnippet])
	}

	return `You classify documents of Kochi Metro Rail Limited (KMRL).
Pick exactly one category from this list: ` + strings.Join(categories, ", ") + `.
Return a strict JSON object with keys:
category (one of the listed names), confidence (number from 0 to 1), reason (short string).
No markdown, no extra keys.

Document:
` + snippet
}
