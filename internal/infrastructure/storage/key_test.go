package storage

import (
	"testing"

	"github.com/kmrl/documind/internal/core/domain"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", " ", "../etc/passwd", "/abs", `a\b`} {
		if err := ValidateKey(key); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("ValidateKey(%q) expected ErrInvalidInput, got %v", key, err)
		}
	}
	if err := ValidateKey("1234_report.pdf"); err != nil {
		t.Fatalf("ValidateKey() error = %v", err)
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("a.pdf"); got != "application/pdf" {
		t.Fatalf("ContentType(pdf) = %q", got)
	}
	if got := ContentType("a.unknownext"); got != "application/octet-stream" {
		t.Fatalf("ContentType(unknown) = %q", got)
	}
}
