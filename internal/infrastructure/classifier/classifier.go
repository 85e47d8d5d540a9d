// Package classifier maps document text onto the KMRL taxonomy.
package classifier

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
)

const (
	vendorMaxChars = 90000
	vendorMinChars = 20
)

// VendorCategorizer returns hierarchical content categories such as "/Law & Government/Legal".
type VendorCategorizer interface {
	Categorize(ctx context.Context, text string) ([]domain.VendorCategory, error)
}

// Classifier tries the vendor categorizer first and falls back to keyword scoring.
type Classifier struct {
	taxonomy domain.Taxonomy
	vendor   VendorCategorizer
	keywords *KeywordClassifier
}

func New(t domain.Taxonomy, vendor VendorCategorizer) *Classifier {
	return &Classifier{
		taxonomy: t,
		vendor:   vendor,
		keywords: NewKeywordClassifier(t),
	}
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.ClassificationResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return domain.ClassificationResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		res := unknownResult(domain.MethodNone)
		res.ProcessingTimeSeconds = time.Since(start).Seconds()
		return res, nil
	}

	trimmed := text
	if utf8.RuneCountInString(trimmed) > vendorMaxChars {
		trimmed = string([]rune(trimmed)[:vendorMaxChars])
	}

	if c.vendor != nil && len(strings.TrimSpace(trimmed)) > vendorMinChars {
		categories, err := c.vendor.Categorize(ctx, trimmed)
		if err == nil {
			res := c.mapVendorCategories(categories, text)
			res.ProcessingTimeSeconds = time.Since(start).Seconds()
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ClassificationResult{}, ctxErr
		}
		slog.Warn("vendor_classification_failed", "error", err)
	}

	res := c.keywords.Classify(trimmed)
	res.ProcessingTimeSeconds = time.Since(start).Seconds()
	return res, nil
}

func (c *Classifier) mapVendorCategories(categories []domain.VendorCategory, text string) domain.ClassificationResult {
	scores := make(map[string]float64, len(c.taxonomy.Categories))
	lower := strings.ToLower(text)
	all := []domain.CategoryScore{}

	for _, vc := range categories {
		if category, ok := c.disambiguate(vc.Name, lower); ok {
			scores[category.name] += vc.Confidence * category.boost
			continue
		}
		for _, m := range c.taxonomy.VendorMappings {
			if !strings.Contains(vc.Name, m.Pattern) {
				continue
			}
			specificity := float64(len(m.Pattern)) / 20.0
			scores[m.Category] += vc.Confidence * (1 + specificity)
			all = append(all, domain.CategoryScore{
				Category:       m.Category,
				Confidence:     vc.Confidence,
				VendorCategory: vc.Name,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })

	best, bestScore := domain.CategoryUnknown, 0.0
	for _, name := range c.taxonomy.CategoryNames() {
		if scores[name] > bestScore {
			best, bestScore = name, scores[name]
		}
	}
	// Boosted sums can exceed 1; confidence is reported on a 0..1 scale.
	if bestScore > 1 {
		bestScore = 1
	}

	vendorCategories := categories
	if vendorCategories == nil {
		vendorCategories = []domain.VendorCategory{}
	}
	return domain.ClassificationResult{
		Category:         best,
		Confidence:       bestScore,
		AllCategories:    all,
		GoogleCategories: vendorCategories,
		Method:           domain.MethodVendorClassifier,
	}
}

type boostedCategory struct {
	name  string
	boost float64
}

// disambiguate resolves an ambiguous vendor category when exactly one candidate's keywords occur in the text.
func (c *Classifier) disambiguate(vendorCategory, lowerText string) (boostedCategory, bool) {
	for _, d := range c.taxonomy.Disambiguations {
		if d.VendorCategory != vendorCategory {
			continue
		}
		var matched []string
		for _, cand := range d.Candidates {
			for _, kw := range cand.Keywords {
				if strings.Contains(lowerText, strings.ToLower(kw)) {
					matched = append(matched, cand.Category)
					break
				}
			}
		}
		if len(matched) == 1 {
			boost := d.Boost
			if boost <= 0 {
				boost = 1
			}
			return boostedCategory{name: matched[0], boost: boost}, true
		}
	}
	return boostedCategory{}, false
}
