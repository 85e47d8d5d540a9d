package domain

const CategoryUnknown = "Unknown"

const (
	MethodVendorClassifier = "google-cloud-natural-language"
	MethodKeywordFallback  = "keyword-fallback"
	MethodNone             = "none"
	MethodClientFallback   = "client-fallback"
	MethodLLM              = "ollama-llm"
)

const (
	TextSourceOriginal    = "original"
	TextSourceTranslation = "translation"
)

type VendorCategory struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// CategoryScore is one candidate KMRL category with the evidence behind it.
type CategoryScore struct {
	Category        string   `json:"category"`
	Confidence      float64  `json:"confidence"`
	VendorCategory  string   `json:"google_category,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

type ClassificationResult struct {
	Category              string           `json:"category"`
	Confidence            float64          `json:"confidence"`
	AllCategories         []CategoryScore  `json:"all_categories"`
	GoogleCategories      []VendorCategory `json:"google_categories"`
	Method                string           `json:"method"`
	TextSource            string           `json:"text_source,omitempty"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
	Error                 string           `json:"error,omitempty"`
}

// ApplyThreshold downgrades the category to Unknown when confidence is below min.
func (c *ClassificationResult) ApplyThreshold(min float64) {
	if c == nil || min <= 0 {
		return
	}
	if c.Confidence < min {
		c.Category = CategoryUnknown
	}
}

// Taxonomy is the KMRL document category set plus the rules mapping vendor categories onto it.
type Taxonomy struct {
	Categories     []TaxonomyCategory `yaml:"categories" json:"categories"`
	VendorMappings []VendorMapping    `yaml:"vendor_mappings" json:"vendor_mappings"`
	// Ambiguous vendor categories resolved by content keywords.
	Disambiguations []Disambiguation `yaml:"disambiguations" json:"disambiguations"`
}

type TaxonomyCategory struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

type VendorMapping struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	Category string `yaml:"category" json:"category"`
}

type Disambiguation struct {
	VendorCategory string            `yaml:"vendor_category" json:"vendor_category"`
	Boost          float64           `yaml:"boost" json:"boost"`
	Candidates     []DisambiguateKey `yaml:"candidates" json:"candidates"`
}

type DisambiguateKey struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

func (t Taxonomy) CategoryNames() []string {
	out := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		out = append(out, c.Name)
	}
	return out
}

// ClassifyRequest optionally overrides the stored text of a processing record.
type ClassifyRequest struct {
	Text          string  `json:"text"`
	Translation   string  `json:"translation"`
	MinConfidence float64 `json:"min_confidence"`
}
