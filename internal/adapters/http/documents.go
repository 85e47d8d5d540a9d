package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
)

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r, rt.maxUploadBytes)
	if err != nil {
		rt.writeError(w, r, "process document", err)
		return
	}
	includeTranslation, err := formBool(r, "include_translation")
	if err != nil {
		rt.writeError(w, r, "process document", err)
		return
	}
	includeClassification, err := formBool(r, "include_classification")
	if err != nil {
		rt.writeError(w, r, "process document", err)
		return
	}

	result, err := rt.processor.Process(r.Context(), upload, domain.ProcessOptions{
		OCRMethod:             domain.OCRMethod(strings.TrimSpace(r.FormValue("ocr_method"))),
		TargetLanguage:        strings.TrimSpace(r.FormValue("target_language")),
		IncludeTranslation:    includeTranslation,
		IncludeClassification: includeClassification,
	})
	if err != nil {
		rt.writeError(w, r, "process document", err)
		return
	}

	message := "Document processed successfully"
	if !result.ProcessingInfo.Success || len(result.ProcessingInfo.Errors) > 0 {
		message = "Document processed with errors"
	}
	writeMessage(w, http.StatusOK, message, result)
}

type extractTextResponse struct {
	domain.OCRResult
	Metadata uploadMetadata `json:"metadata"`
}

func (rt *Router) extractText(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r, rt.maxUploadBytes)
	if err != nil {
		rt.writeError(w, r, "extract text", err)
		return
	}
	method := domain.OCRMethod(strings.TrimSpace(r.FormValue("ocr_method")))
	ocr, err := rt.processor.ExtractText(r.Context(), upload, method)
	if err != nil {
		rt.writeError(w, r, "extract text", err)
		return
	}
	writeData(w, http.StatusOK, extractTextResponse{OCRResult: *ocr, Metadata: metadataOf(upload)})
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r, rt.maxUploadBytes)
	if err != nil {
		rt.writeError(w, r, "classify document", err)
		return
	}
	minConfidence, err := formFloat(r, "min_confidence")
	if err != nil {
		rt.writeError(w, r, "classify document", err)
		return
	}
	method := domain.OCRMethod(strings.TrimSpace(r.FormValue("ocr_method")))
	result, err := rt.processor.ClassifyDocument(r.Context(), upload, method, minConfidence)
	if err != nil {
		rt.writeError(w, r, "classify document", err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"filename":                result.ProcessingInfo.Filename,
		"file_size":               result.ProcessingInfo.FileSize,
		"content_type":            upload.ContentType,
		"processing_id":           result.ProcessingInfo.ProcessingID,
		"ocr":                     result.OCR,
		"language_detection":      result.LanguageDetection,
		"classification":          result.Classification,
		"processing_time_seconds": result.ProcessingInfo.ProcessingTimeSeconds,
		"errors":                  result.ProcessingInfo.Errors,
	})
}

func (rt *Router) getProcessing(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("processing_id"))
	if id == "" {
		writeBadRequest(w, "processing id is required")
		return
	}
	rec, err := rt.records.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get processing record", err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

func (rt *Router) downloadOriginal(w http.ResponseWriter, r *http.Request) {
	body, rec, err := rt.originals.OpenOriginal(r.Context(), r.PathValue("processing_id"))
	if err != nil {
		rt.writeError(w, r, "download original", err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(rec.Filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		rt.logger.Warn("download_original_interrupted", "processing_id", rec.ID, "error", err)
	}
}

type classifyProcessingResponse struct {
	ProcessingID   string                       `json:"processing_id"`
	Classification *domain.ClassificationResult `json:"classification"`
	TextSource     string                       `json:"text_source"`
}

func (rt *Router) classifyProcessing(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("processing_id"))

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var req domain.ClassifyRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		rt.rejectJSONBody(w, r, "classify processing", err, "request body must be a JSON object")
		return
	}

	result, err := rt.phases.ClassifyProcessing(r.Context(), id, req)
	if err != nil {
		rt.writeError(w, r, "classify processing", err)
		return
	}
	writeMessage(w, http.StatusOK, "Document classified successfully", classifyProcessingResponse{
		ProcessingID:   id,
		Classification: result,
		TextSource:     result.TextSource,
	})
}

// decodeOptionalJSON accepts an empty body and leaves dst untouched.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// rejectJSONBody answers 413 for bodies cut off by MaxBytesReader and 400 for anything else.
func (rt *Router) rejectJSONBody(w http.ResponseWriter, r *http.Request, op string, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rt.writeError(w, r, op, domain.WrapError(domain.ErrTooLarge, op, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)))
		return
	}
	writeBadRequest(w, message)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000.0
}
