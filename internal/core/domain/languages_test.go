package domain

import "testing"

func TestLanguageNameUsesKMRLTableFirst(t *testing.T) {
	if got := LanguageName("ML"); got != "Malayalam" {
		t.Fatalf("expected Malayalam, got %q", got)
	}
	if got := LanguageName("unknown"); got != "Unknown" {
		t.Fatalf("expected Unknown, got %q", got)
	}
	if got := LanguageName("sv"); got != "Swedish" {
		t.Fatalf("expected CLDR name Swedish, got %q", got)
	}
}

func TestSortLanguagesPutsPrimaryFirst(t *testing.T) {
	in := []Language{NewLanguage("fr", ""), NewLanguage("ml", ""), NewLanguage("de", ""), NewLanguage("en", "")}
	out := SortLanguages(in)
	if len(out) != 4 {
		t.Fatalf("expected 4 languages, got %d", len(out))
	}
	if out[0].Code != "en" || out[1].Code != "ml" || out[2].Code != "fr" || out[3].Code != "de" {
		t.Fatalf("unexpected order: %+v", out)
	}
	if !out[0].IsKMRLPrimary || out[2].IsKMRLPrimary {
		t.Fatalf("unexpected primary flags: %+v", out)
	}
}

func TestApplyThresholdDowngradesToUnknown(t *testing.T) {
	res := &ClassificationResult{Category: "Safety circulars", Confidence: 0.3}
	res.ApplyThreshold(0.5)
	if res.Category != CategoryUnknown {
		t.Fatalf("expected Unknown, got %q", res.Category)
	}

	res = &ClassificationResult{Category: "Safety circulars", Confidence: 0.7}
	res.ApplyThreshold(0.5)
	if res.Category != "Safety circulars" {
		t.Fatalf("expected category to be kept, got %q", res.Category)
	}
}

func TestClassificationTextPrefersTranslation(t *testing.T) {
	rec := &ProcessingRecord{Text: "orig", TranslatedText: "translated"}
	text, source := rec.ClassificationText()
	if text != "translated" || source != TextSourceTranslation {
		t.Fatalf("unexpected (%q, %q)", text, source)
	}
	rec.TranslatedText = ""
	text, source = rec.ClassificationText()
	if text != "orig" || source != TextSourceOriginal {
		t.Fatalf("unexpected (%q, %q)", text, source)
	}
}
