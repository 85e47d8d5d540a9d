// Package storage holds helpers shared by the object storage adapters.
package storage

import (
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/kmrl/documind/internal/core/domain"
)

// ValidateKey rejects empty keys and keys that could escape the storage root.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate storage key", errors.New("empty key"))
	case strings.Contains(key, ".."), strings.HasPrefix(key, "/"), strings.ContainsRune(key, '\\'):
		return domain.WrapError(domain.ErrInvalidInput, "validate storage key", errors.New("invalid key "+key))
	}
	return nil
}

func ContentType(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
