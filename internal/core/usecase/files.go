package usecase

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kmrl/documind/internal/core/domain"
)

var kindByExtension = map[string]domain.FileKind{
	".jpg":  domain.FileKindImage,
	".jpeg": domain.FileKindImage,
	".png":  domain.FileKindImage,
	".gif":  domain.FileKindImage,
	".bmp":  domain.FileKindImage,
	".tif":  domain.FileKindImage,
	".tiff": domain.FileKindImage,
	".webp": domain.FileKindImage,
	".pdf":  domain.FileKindPDF,
	".docx": domain.FileKindWord,
	".xlsx": domain.FileKindSpreadsheet,
	".txt":  domain.FileKindText,
}

var kindByContentType = map[string]domain.FileKind{
	"image/jpeg":      domain.FileKindImage,
	"image/png":       domain.FileKindImage,
	"image/gif":       domain.FileKindImage,
	"image/bmp":       domain.FileKindImage,
	"image/tiff":      domain.FileKindImage,
	"image/webp":      domain.FileKindImage,
	"application/pdf": domain.FileKindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.FileKindWord,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       domain.FileKindSpreadsheet,
	"text/plain": domain.FileKindText,
}

// DetectKind resolves the file kind from the extension, then the declared content type.
func DetectKind(filename, contentType string) (domain.FileKind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".doc" || ext == ".xls" {
		return "", domain.WrapError(
			domain.ErrUnsupportedMedia,
			"detect file kind",
			fmt.Errorf("legacy %s files are not supported; save as %sx", ext, ext),
		)
	}
	if kind, ok := kindByExtension[ext]; ok {
		return kind, nil
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if kind, ok := kindByContentType[mediaType]; ok {
		return kind, nil
	}
	return "", domain.WrapError(
		domain.ErrUnsupportedMedia,
		"detect file kind",
		fmt.Errorf("unsupported file %q (%s)", filename, contentType),
	)
}

func validateUpload(upload domain.Upload, maxBytes int64) (domain.FileKind, error) {
	if upload.Size() == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate upload", errors.New("empty file"))
	}
	if maxBytes > 0 && upload.Size() > maxBytes {
		return "", domain.WrapError(
			domain.ErrTooLarge,
			"validate upload",
			fmt.Errorf("file is %d bytes; maximum is %d", upload.Size(), maxBytes),
		)
	}
	return DetectKind(upload.Filename, upload.ContentType)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}

func storageKey(processingID, filename string) string {
	return fmt.Sprintf("%s_%s", processingID, sanitizeFilename(filename))
}
