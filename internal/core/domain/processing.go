package domain

import "time"

type OCRMethod string

const (
	OCRMethodDocument OCRMethod = "document"
	OCRMethodText     OCRMethod = "text"
)

func (m OCRMethod) Valid() bool {
	return m == OCRMethodDocument || m == OCRMethodText
}

type FileKind string

const (
	FileKindImage       FileKind = "image"
	FileKindPDF         FileKind = "pdf"
	FileKindWord        FileKind = "word"
	FileKindSpreadsheet FileKind = "spreadsheet"
	FileKindText        FileKind = "text"
)

// Upload is a file received for processing, held in memory for the duration of a request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u Upload) Size() int64 { return int64(len(u.Data)) }

type ProcessOptions struct {
	OCRMethod             OCRMethod
	TargetLanguage        string
	IncludeTranslation    bool
	IncludeClassification bool
}

type OCRResult struct {
	Text                  string  `json:"text"`
	Confidence            float64 `json:"confidence"`
	Method                string  `json:"method"`
	CharacterCount        int     `json:"character_count"`
	WordCount             int     `json:"word_count"`
	PageCount             int     `json:"page_count,omitempty"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	Error                 string  `json:"error,omitempty"`
}

type LanguageDetection struct {
	LanguageCode  string  `json:"language_code"`
	LanguageName  string  `json:"language_name"`
	Confidence    float64 `json:"confidence"`
	IsKMRLPrimary bool    `json:"is_kmrl_primary"`
	Method        string  `json:"method,omitempty"`
	Error         string  `json:"error,omitempty"`
}

type TranslationResult struct {
	OriginalText       string `json:"original_text"`
	TranslatedText     string `json:"translated_text"`
	SourceLanguage     string `json:"source_language"`
	TargetLanguage     string `json:"target_language"`
	SourceLanguageName string `json:"source_language_name"`
	TargetLanguageName string `json:"target_language_name"`
	Skipped            bool   `json:"skipped"`
	Truncated          bool   `json:"truncated,omitempty"`
	Warning            string `json:"warning,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Usable reports whether the translated text can stand in for the original.
func (t *TranslationResult) Usable() bool {
	return t != nil && !t.Skipped && t.Error == "" && t.TranslatedText != ""
}

type ProcessingInfo struct {
	ProcessingID          string    `json:"processing_id"`
	Filename              string    `json:"filename"`
	FileType              string    `json:"file_type"`
	FileKind              FileKind  `json:"file_kind"`
	FileSize              int64     `json:"file_size"`
	UploadTimestamp       time.Time `json:"upload_timestamp"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	StorageKey            string    `json:"storage_key,omitempty"`
	Success               bool      `json:"success"`
	Errors                []string  `json:"errors"`
}

// ProcessingResult is the composed output of one pipeline run. Every sub-result carries its own error.
type ProcessingResult struct {
	OCR               OCRResult             `json:"ocr"`
	LanguageDetection LanguageDetection     `json:"language_detection"`
	Translation       *TranslationResult    `json:"translation"`
	Classification    *ClassificationResult `json:"classification"`
	ProcessingInfo    ProcessingInfo        `json:"processing_info"`
}

type ClassificationStatus string

const (
	ClassificationPending   ClassificationStatus = "pending"
	ClassificationLoading   ClassificationStatus = "loading"
	ClassificationCompleted ClassificationStatus = "completed"
	ClassificationError     ClassificationStatus = "error"
)

// ProcessingRecord is the stored form of a pipeline run, kept so classification can run later
// against the same extracted text.
type ProcessingRecord struct {
	ID                   string                `json:"processing_id"`
	Filename             string                `json:"filename"`
	FileKind             FileKind              `json:"file_kind"`
	Text                 string                `json:"text"`
	TranslatedText       string                `json:"translated_text,omitempty"`
	Result               ProcessingResult      `json:"result"`
	ClassificationStatus ClassificationStatus  `json:"classification_status"`
	Classification       *ClassificationResult `json:"classification,omitempty"`
	ClassificationError  string                `json:"classification_error,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// ClassificationText returns the text phase two should classify and where it came from.
func (r *ProcessingRecord) ClassificationText() (string, string) {
	if r.TranslatedText != "" {
		return r.TranslatedText, TextSourceTranslation
	}
	return r.Text, TextSourceOriginal
}

// ProcessingCompletedEvent is published once a record is stored and awaits classification.
type ProcessingCompletedEvent struct {
	ProcessingID string    `json:"processing_id"`
	CompletedAt  time.Time `json:"completed_at"`
}
