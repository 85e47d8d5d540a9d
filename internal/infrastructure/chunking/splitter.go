// Package chunking cuts long text into bounded segments at natural boundaries.
package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts text into segments of at most MaxRunes runes. Joining the segments reproduces the input exactly.
type Splitter struct {
	MaxRunes int
}

func NewSplitter(maxRunes int) *Splitter {
	if maxRunes <= 0 {
		maxRunes = 5000
	}
	return &Splitter{MaxRunes: maxRunes}
}

// boundaries are tried in order; a later one is used only when no earlier one occurs in the window's second half.
var boundaries = []string{"\n\n", "\n", ". ", "? ", "! ", "। ", " "}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var out []string
	for len(runes) > s.MaxRunes {
		cut := s.cutPoint(runes[:s.MaxRunes])
		out = append(out, string(runes[:cut]))
		runes = runes[cut:]
	}
	return append(out, string(runes))
}

func (s *Splitter) cutPoint(window []rune) int {
	str := string(window)
	half := len(str) / 2
	for _, b := range boundaries {
		if idx := strings.LastIndex(str, b); idx >= half {
			return len([]rune(str[:idx+len(b)]))
		}
	}
	for i := len(window) - 1; i >= len(window)/2; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return len(window)
}

// Trim splits a segment into leading whitespace, body and trailing whitespace.
func Trim(segment string) (lead, body, trail string) {
	body = strings.TrimLeftFunc(segment, unicode.IsSpace)
	lead = segment[:len(segment)-len(body)]
	trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
	trail = body[len(trimmed):]
	return lead, trimmed, trail
}
