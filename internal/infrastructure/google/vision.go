package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
)

// Vision's synchronous files:annotate endpoint accepts at most five pages per request.
const visionPDFBatchPages = 5

type VisionOCR struct {
	client *Client
	hints  []string
}

func NewVisionOCR(client *Client) *VisionOCR {
	return &VisionOCR{client: client, hints: append([]string(nil), domain.PrimaryLanguages...)}
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionImageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type visionImageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features     []visionFeature    `json:"features"`
	ImageContext visionImageContext `json:"imageContext"`
}

type visionAnnotation struct {
	FullTextAnnotation *struct {
		Text  string `json:"text"`
		Pages []struct {
			Confidence float64 `json:"confidence"`
		} `json:"pages"`
	} `json:"fullTextAnnotation"`
	TextAnnotations []struct {
		Description string `json:"description"`
	} `json:"textAnnotations"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func featureType(method domain.OCRMethod) string {
	if method == domain.OCRMethodText {
		return "TEXT_DETECTION"
	}
	return "DOCUMENT_TEXT_DETECTION"
}

func (v *VisionOCR) RecognizeImage(ctx context.Context, image []byte, method domain.OCRMethod) (domain.OCRResult, error) {
	start := time.Now()
	if !method.Valid() {
		method = domain.OCRMethodDocument
	}

	var req visionImageRequest
	req.Image.Content = base64.StdEncoding.EncodeToString(image)
	req.Features = []visionFeature{{Type: featureType(method)}}
	req.ImageContext = visionImageContext{LanguageHints: v.hints}

	var resp struct {
		Responses []visionAnnotation `json:"responses"`
	}
	if err := v.client.postJSON(ctx, v.client.visionURL, "/v1/images:annotate", map[string]any{
		"requests": []visionImageRequest{req},
	}, &resp, "vision annotate image"); err != nil {
		return domain.OCRResult{}, err
	}
	if len(resp.Responses) == 0 {
		return domain.OCRResult{}, domain.WrapError(domain.ErrUnprocessable, "vision annotate image", errors.New("empty response"))
	}

	text, confidence, err := readAnnotation(resp.Responses[0], method)
	if err != nil {
		return domain.OCRResult{}, err
	}
	return domain.OCRResult{
		Text:                  text,
		Confidence:            confidence,
		Method:                string(method),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, nil
}

// RecognizePDF OCRs a PDF in five-page batches and averages the per-page confidence.
func (v *VisionOCR) RecognizePDF(ctx context.Context, data []byte, pageCount int, method domain.OCRMethod) (domain.OCRResult, error) {
	start := time.Now()
	if !method.Valid() {
		method = domain.OCRMethodDocument
	}
	if pageCount <= 0 {
		pageCount = 1
	}
	content := base64.StdEncoding.EncodeToString(data)

	var texts []string
	var confidenceSum float64
	var pagesWithText int

	for first := 1; first <= pageCount; first += visionPDFBatchPages {
		pages := make([]int, 0, visionPDFBatchPages)
		for p := first; p <= pageCount && p < first+visionPDFBatchPages; p++ {
			pages = append(pages, p)
		}

		var resp struct {
			Responses []struct {
				Responses []visionAnnotation `json:"responses"`
			} `json:"responses"`
		}
		payload := map[string]any{
			"requests": []map[string]any{{
				"inputConfig":  map[string]any{"content": content, "mimeType": "application/pdf"},
				"features":     []visionFeature{{Type: featureType(method)}},
				"imageContext": visionImageContext{LanguageHints: v.hints},
				"pages":        pages,
			}},
		}
		if err := v.client.postJSON(ctx, v.client.visionURL, "/v1/files:annotate", payload, &resp, "vision annotate pdf"); err != nil {
			return domain.OCRResult{}, err
		}
		if len(resp.Responses) == 0 {
			continue
		}
		for i, page := range resp.Responses[0].Responses {
			text, confidence, err := readAnnotation(page, method)
			if err != nil {
				return domain.OCRResult{}, fmt.Errorf("page %d: %w", pages[min(i, len(pages)-1)], err)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			texts = append(texts, text)
			confidenceSum += confidence
			pagesWithText++
		}
	}

	var confidence float64
	if pagesWithText > 0 {
		confidence = confidenceSum / float64(pagesWithText)
	}
	return domain.OCRResult{
		Text:                  strings.Join(texts, "\n\n"),
		Confidence:            confidence,
		Method:                "pdf-ocr",
		PageCount:             pageCount,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, nil
}

func readAnnotation(a visionAnnotation, method domain.OCRMethod) (string, float64, error) {
	if a.Error != nil && a.Error.Message != "" {
		return "", 0, domain.WrapError(domain.ErrUnprocessable, "vision annotate", fmt.Errorf("code %d: %s", a.Error.Code, a.Error.Message))
	}
	if method == domain.OCRMethodText {
		if len(a.TextAnnotations) == 0 {
			return "", 0, nil
		}
		return a.TextAnnotations[0].Description, 1.0, nil
	}
	if a.FullTextAnnotation == nil {
		return "", 0, nil
	}
	var confidence float64
	if len(a.FullTextAnnotation.Pages) > 0 {
		confidence = a.FullTextAnnotation.Pages[0].Confidence
	}
	return a.FullTextAnnotation.Text, confidence, nil
}
