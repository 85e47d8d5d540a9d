package domain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const LanguageUnknown = "unknown"

// PrimaryLanguages are the KMRL working languages, always listed first.
var PrimaryLanguages = []string{"en", "ml"}

var languageNames = map[string]string{
	"en": "English",
	"ml": "Malayalam",
	"hi": "Hindi",
	"ta": "Tamil",
	"te": "Telugu",
	"kn": "Kannada",
	"gu": "Gujarati",
	"bn": "Bengali",
	"pa": "Punjabi",
	"mr": "Marathi",
	"or": "Odia",
	"as": "Assamese",
	"ur": "Urdu",
	"sa": "Sanskrit",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"ar": "Arabic",
	"ru": "Russian",
	"it": "Italian",
	"pt": "Portuguese",
}

type Language struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	IsKMRLPrimary bool   `json:"is_kmrl_primary"`
}

func NormalizeLanguageCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// LanguageName resolves a display name from the KMRL table, then CLDR, then the code itself.
func LanguageName(code string) string {
	code = NormalizeLanguageCode(code)
	if name, ok := languageNames[code]; ok {
		return name
	}
	if code == "" || code == LanguageUnknown {
		return "Unknown"
	}
	tag, err := language.Parse(code)
	if err == nil {
		if name := display.Tags(language.English).Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

func IsKMRLPrimary(code string) bool {
	code = NormalizeLanguageCode(code)
	for _, p := range PrimaryLanguages {
		if p == code {
			return true
		}
	}
	return false
}

func NewLanguage(code, name string) Language {
	code = NormalizeLanguageCode(code)
	if strings.TrimSpace(name) == "" {
		name = LanguageName(code)
	}
	return Language{Code: code, Name: name, IsKMRLPrimary: IsKMRLPrimary(code)}
}

// SortLanguages moves primary languages to the front and keeps the rest in input order.
func SortLanguages(langs []Language) []Language {
	out := make([]Language, 0, len(langs))
	seen := make(map[string]bool, len(langs))
	for _, p := range PrimaryLanguages {
		for _, l := range langs {
			if l.Code == p && !seen[l.Code] {
				out = append(out, l)
				seen[l.Code] = true
			}
		}
	}
	for _, l := range langs {
		if !seen[l.Code] {
			out = append(out, l)
			seen[l.Code] = true
		}
	}
	return out
}

func FallbackLanguages() []Language {
	out := make([]Language, 0, len(PrimaryLanguages))
	for _, code := range PrimaryLanguages {
		out = append(out, NewLanguage(code, ""))
	}
	return out
}
