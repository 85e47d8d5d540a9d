package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kmrl/documind/internal/core/domain"
)

type extractorFake struct {
	result domain.OCRResult
	err    error
	calls  int
	kind   domain.FileKind
	method domain.OCRMethod
}

func (f *extractorFake) Extract(_ context.Context, _ domain.Upload, kind domain.FileKind, method domain.OCRMethod) (domain.OCRResult, error) {
	f.calls++
	f.kind = kind
	f.method = method
	if f.err != nil {
		return domain.OCRResult{}, f.err
	}
	return f.result, nil
}

type detectorFake struct {
	det   domain.LanguageDetection
	err   error
	calls int
}

func (f *detectorFake) Detect(context.Context, string) (domain.LanguageDetection, error) {
	f.calls++
	if f.err != nil {
		return domain.LanguageDetection{}, f.err
	}
	return f.det, nil
}

type translatorFake struct {
	out      string
	err      error
	calls    int
	lastText string
	langs    []domain.Language
	langsErr error
}

func (f *translatorFake) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func (f *translatorFake) SupportedLanguages(context.Context, string) ([]domain.Language, error) {
	return f.langs, f.langsErr
}

type classifierFake struct {
	res      domain.ClassificationResult
	err      error
	calls    int
	lastText string
}

func (f *classifierFake) Classify(_ context.Context, text string) (domain.ClassificationResult, error) {
	f.calls++
	f.lastText = text
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	return f.res, nil
}

type statusUpdate struct {
	status domain.ClassificationStatus
	errMsg string
}

type storeFake struct {
	mu        sync.Mutex
	records   map[string]*domain.ProcessingRecord
	saveErr   error
	updateErr error
	updates   []statusUpdate
}

func newStoreFake() *storeFake {
	return &storeFake{records: map[string]*domain.ProcessingRecord{}}
}

func (f *storeFake) Save(_ context.Context, rec *domain.ProcessingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *storeFake) GetByID(_ context.Context, id string) (*domain.ProcessingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get processing record", errors.New(id))
	}
	cp := *rec
	return &cp, nil
}

func (f *storeFake) UpdateClassification(_ context.Context, id string, status domain.ClassificationStatus, cls *domain.ClassificationResult, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{status: status, errMsg: errMessage})
	if f.updateErr != nil {
		return f.updateErr
	}
	rec, ok := f.records[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update classification", errors.New(id))
	}
	rec.ClassificationStatus = status
	rec.Classification = cls
	rec.ClassificationError = errMessage
	return nil
}

type storageFake struct {
	key  string
	body string
	err  error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.key = key
	f.body = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if key != f.key {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", errors.New("key="+key))
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

type publisherFake struct {
	events []domain.ProcessingCompletedEvent
	err    error
}

func (f *publisherFake) PublishProcessingCompleted(_ context.Context, event domain.ProcessingCompletedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}
