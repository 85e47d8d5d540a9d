package google

import (
	"context"

	"github.com/kmrl/documind/internal/core/domain"
)

// NaturalLanguage is the content classification endpoint of the Cloud Natural Language API.
type NaturalLanguage struct {
	client *Client
}

func NewNaturalLanguage(client *Client) *NaturalLanguage {
	return &NaturalLanguage{client: client}
}

func (n *NaturalLanguage) Categorize(ctx context.Context, text string) ([]domain.VendorCategory, error) {
	payload := map[string]any{
		"document": map[string]any{
			"type":    "PLAIN_TEXT",
			"content": text,
		},
		"classificationModelOptions": map[string]any{
			"v2Model": map[string]any{"contentCategoriesVersion": "V2"},
		},
	}

	var resp struct {
		Categories []struct {
			Name       string  `json:"name"`
			Confidence float64 `json:"confidence"`
		} `json:"categories"`
	}
	if err := n.client.postJSON(ctx, n.client.languageURL, "/v1/documents:classifyText", payload, &resp, "classify text"); err != nil {
		return nil, err
	}

	out := make([]domain.VendorCategory, 0, len(resp.Categories))
	for _, c := range resp.Categories {
		out = append(out, domain.VendorCategory{Name: c.Name, Confidence: c.Confidence})
	}
	return out, nil
}
