package google

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/infrastructure/chunking"
)

const detectSampleChars = 1000

// translateSegmentRunes keeps each q entry under the v2 API's recommended request size.
const translateSegmentRunes = 5000

// Translation wraps the Cloud Translation v2 API for translation, detection and language listing.
type Translation struct {
	client   *Client
	splitter *chunking.Splitter
}

func NewTranslation(client *Client) *Translation {
	return &Translation{client: client, splitter: chunking.NewSplitter(translateSegmentRunes)}
}

// Translate sends long text as several q segments in one request and reassembles them in order,
// keeping the whitespace found at each cut.
func (t *Translation) Translate(ctx context.Context, text, target, source string) (string, error) {
	segments := t.splitter.Split(text)
	type piece struct{ lead, trail string }
	pieces := make([]piece, len(segments))
	q := make([]string, 0, len(segments))
	for i, seg := range segments {
		lead, body, trail := chunking.Trim(seg)
		if body == "" {
			pieces[i] = piece{lead: lead + trail}
			continue
		}
		pieces[i] = piece{lead: lead, trail: trail}
		q = append(q, body)
	}
	if len(q) == 0 {
		return text, nil
	}

	payload := map[string]any{
		"q":      q,
		"target": domain.NormalizeLanguageCode(target),
		"format": "text",
	}
	if src := domain.NormalizeLanguageCode(source); src != "" && src != domain.LanguageUnknown {
		payload["source"] = src
	}

	var resp struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := t.client.postJSON(ctx, t.client.translateURL, "/language/translate/v2", payload, &resp, "translate"); err != nil {
		return "", err
	}
	if len(resp.Data.Translations) != len(q) {
		return "", domain.WrapError(domain.ErrUnprocessable, "translate",
			fmt.Errorf("expected %d translations, got %d", len(q), len(resp.Data.Translations)))
	}

	var b strings.Builder
	next := 0
	for i, seg := range segments {
		_, body, _ := chunking.Trim(seg)
		b.WriteString(pieces[i].lead)
		if body != "" {
			b.WriteString(html.UnescapeString(resp.Data.Translations[next].TranslatedText))
			next++
		}
		b.WriteString(pieces[i].trail)
	}
	return b.String(), nil
}

func (t *Translation) Detect(ctx context.Context, text string) (domain.LanguageDetection, error) {
	sample := truncateRunes(text, detectSampleChars)

	var resp struct {
		Data struct {
			Detections [][]struct {
				Language   string  `json:"language"`
				Confidence float64 `json:"confidence"`
			} `json:"detections"`
		} `json:"data"`
	}
	if err := t.client.postJSON(ctx, t.client.translateURL, "/language/translate/v2/detect", map[string]any{
		"q": []string{sample},
	}, &resp, "detect language"); err != nil {
		return domain.LanguageDetection{}, err
	}
	if len(resp.Data.Detections) == 0 || len(resp.Data.Detections[0]) == 0 {
		return domain.LanguageDetection{}, domain.WrapError(domain.ErrUnprocessable, "detect language", errors.New("no detections returned"))
	}

	best := resp.Data.Detections[0][0]
	for _, d := range resp.Data.Detections[0][1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	code := domain.NormalizeLanguageCode(best.Language)
	if code == "und" {
		code = domain.LanguageUnknown
	}
	return domain.LanguageDetection{
		LanguageCode:  code,
		LanguageName:  domain.LanguageName(code),
		Confidence:    best.Confidence,
		IsKMRLPrimary: domain.IsKMRLPrimary(code),
		Method:        "google-translate",
	}, nil
}

func (t *Translation) SupportedLanguages(ctx context.Context, displayLanguage string) ([]domain.Language, error) {
	if strings.TrimSpace(displayLanguage) == "" {
		displayLanguage = "en"
	}
	var resp struct {
		Data struct {
			Languages []struct {
				Language string `json:"language"`
				Name     string `json:"name"`
			} `json:"languages"`
		} `json:"data"`
	}
	query := url.Values{"target": []string{displayLanguage}}
	if err := t.client.getJSON(ctx, t.client.translateURL, "/language/translate/v2/languages", query, &resp, "list languages"); err != nil {
		return nil, err
	}

	out := make([]domain.Language, 0, len(resp.Data.Languages))
	for _, l := range resp.Data.Languages {
		out = append(out, domain.NewLanguage(l.Language, l.Name))
	}
	return out, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
