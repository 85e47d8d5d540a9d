// Package langdetect holds offline language detection used when the vendor detector is unavailable.
package langdetect

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
)

const (
	scriptSampleChars = 5000
	malayalamLow      = '\u0D00'
	malayalamHigh     = '\u0D7F'
	malayalamRatio    = 0.3
)

// ScriptDetector decides between Malayalam and English by the share of Malayalam-block code points.
type ScriptDetector struct{}

func NewScriptDetector() ScriptDetector { return ScriptDetector{} }

func (ScriptDetector) Detect(_ context.Context, text string) (domain.LanguageDetection, error) {
	sample := text
	if utf8.RuneCountInString(sample) > scriptSampleChars {
		sample = string([]rune(sample)[:scriptSampleChars])
	}
	total := utf8.RuneCountInString(strings.TrimSpace(sample))
	if total == 0 {
		return Unknown(), nil
	}

	malayalam := 0
	for _, r := range sample {
		if r >= malayalamLow && r <= malayalamHigh {
			malayalam++
		}
	}
	ratio := float64(malayalam) / float64(total)
	if ratio > malayalamRatio {
		return domain.LanguageDetection{
			LanguageCode:  "ml",
			LanguageName:  domain.LanguageName("ml"),
			Confidence:    min(0.95, 0.5+ratio),
			IsKMRLPrimary: true,
			Method:        "script-heuristic",
		}, nil
	}
	return domain.LanguageDetection{
		LanguageCode:  "en",
		LanguageName:  domain.LanguageName("en"),
		Confidence:    0.95,
		IsKMRLPrimary: true,
		Method:        "script-heuristic",
	}, nil
}

func Unknown() domain.LanguageDetection {
	return domain.LanguageDetection{
		LanguageCode: domain.LanguageUnknown,
		LanguageName: domain.LanguageName(domain.LanguageUnknown),
	}
}

// Fallback asks primary first and falls back to secondary on error.
type Fallback struct {
	primary   ports.LanguageDetector
	secondary ports.LanguageDetector
}

func NewFallback(primary, secondary ports.LanguageDetector) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Detect(ctx context.Context, text string) (domain.LanguageDetection, error) {
	if f.primary != nil {
		det, err := f.primary.Detect(ctx, text)
		if err == nil {
			return det, nil
		}
		if ctx.Err() != nil {
			return domain.LanguageDetection{}, ctx.Err()
		}
		slog.Warn("language_detection_fallback", "error", err)
	}
	return f.secondary.Detect(ctx, text)
}
