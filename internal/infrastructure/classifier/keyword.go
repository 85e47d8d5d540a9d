package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kmrl/documind/internal/core/domain"
)

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

// KeywordClassifier scores categories by whole-word keyword hits weighted by keyword length.
type KeywordClassifier struct {
	categories []string
	patterns   map[string][]keywordPattern
}

func NewKeywordClassifier(t domain.Taxonomy) *KeywordClassifier {
	kc := &KeywordClassifier{
		categories: t.CategoryNames(),
		patterns:   make(map[string][]keywordPattern, len(t.Categories)),
	}
	for _, c := range t.Categories {
		for _, kw := range c.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			kc.patterns[c.Name] = append(kc.patterns[c.Name], keywordPattern{
				keyword: kw,
				re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`),
			})
		}
	}
	return kc
}

func (kc *KeywordClassifier) Classify(text string) domain.ClassificationResult {
	if strings.TrimSpace(text) == "" {
		return unknownResult(domain.MethodNone)
	}
	lower := strings.ToLower(text)

	type scored struct {
		category string
		score    int
		matches  []string
	}
	var hits []scored
	total := 0
	for _, category := range kc.categories {
		s := scored{category: category}
		for _, p := range kc.patterns[category] {
			count := len(p.re.FindAllStringIndex(lower, -1))
			if count == 0 {
				continue
			}
			s.score += len(p.keyword) * count
			s.matches = append(s.matches, fmt.Sprintf("%s (%d)", p.keyword, count))
		}
		if s.score > 0 {
			hits = append(hits, s)
			total += s.score
		}
	}
	if len(hits) == 0 {
		return unknownResult(domain.MethodKeywordFallback)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	all := make([]domain.CategoryScore, 0, len(hits))
	for _, h := range hits {
		all = append(all, domain.CategoryScore{
			Category:        h.category,
			Confidence:      float64(h.score) / float64(total),
			MatchedKeywords: h.matches,
		})
	}
	return domain.ClassificationResult{
		Category:      hits[0].category,
		Confidence:    all[0].Confidence,
		AllCategories: all,
		Method:        domain.MethodKeywordFallback,
	}
}

func unknownResult(method string) domain.ClassificationResult {
	return domain.ClassificationResult{
		Category:      domain.CategoryUnknown,
		Confidence:    0,
		AllCategories: []domain.CategoryScore{},
		Method:        method,
	}
}
