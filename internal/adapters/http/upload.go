package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kmrl/documind/internal/core/domain"
)

const (
	multipartMemory   = 32 << 20
	multipartOverhead = 1 << 20
)

// readUpload pulls the multipart "file" field fully into memory, bounded by maxBytes.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (domain.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Upload{}, domain.WrapError(domain.ErrTooLarge, "read upload", fmt.Errorf("request exceeds %d bytes", maxBytes))
		}
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	if int64(len(data)) > maxBytes {
		return domain.Upload{}, domain.WrapError(domain.ErrTooLarge, "read upload", fmt.Errorf("file exceeds %d bytes", maxBytes))
	}

	return domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// formBool reads a boolean flag from the form or query string. Missing means false.
func formBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.WrapError(domain.ErrInvalidInput, "parse form", fmt.Errorf("%s must be a boolean", name))
	}
	return v, nil
}

func formFloat(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse form", fmt.Errorf("%s must be a number", name))
	}
	return v, nil
}

type uploadMetadata struct {
	Filename    string `json:"filename"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type,omitempty"`
}

func metadataOf(u domain.Upload) uploadMetadata {
	return uploadMetadata{Filename: u.Filename, FileSize: u.Size(), ContentType: u.ContentType}
}
