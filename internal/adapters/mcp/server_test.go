package mcpadapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kmrl/documind/internal/core/domain"
)

type processorFake struct {
	gotUpload domain.Upload
	gotOpts   domain.ProcessOptions
}

func (f *processorFake) Process(_ context.Context, upload domain.Upload, opts domain.ProcessOptions) (*domain.ProcessingResult, error) {
	f.gotUpload = upload
	f.gotOpts = opts
	return &domain.ProcessingResult{ProcessingInfo: domain.ProcessingInfo{ProcessingID: "proc-0001", Filename: upload.Filename}}, nil
}

func (f *processorFake) ExtractText(context.Context, domain.Upload, domain.OCRMethod) (*domain.OCRResult, error) {
	return nil, errors.New("unused")
}

func (f *processorFake) ClassifyDocument(context.Context, domain.Upload, domain.OCRMethod, float64) (*domain.ProcessingResult, error) {
	return nil, errors.New("unused")
}

type classifierFake struct{}

func (classifierFake) ClassifyText(_ context.Context, text string, _ float64) (*domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text is required"))
	}
	return &domain.ClassificationResult{Category: "Safety", Confidence: 0.8}, nil
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestProcessDocumentReadsLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "circular.txt")
	if err := os.WriteFile(path, []byte("safety circular"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	proc := &processorFake{}
	tools := NewTools(Dependencies{Processor: proc})

	res, err := tools.processDocument(context.Background(), call("process_document", map[string]any{
		"path":                   path,
		"include_classification": true,
	}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure err=%v res=%+v", err, res)
	}
	if proc.gotUpload.Filename != "circular.txt" || string(proc.gotUpload.Data) != "safety circular" || !proc.gotOpts.IncludeClassification {
		t.Fatalf("unexpected call upload=%+v opts=%+v", proc.gotUpload, proc.gotOpts)
	}
	if !strings.Contains(resultText(t, res), "proc-0001") {
		t.Fatalf("result misses processing id")
	}
}

func TestProcessDocumentRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 32)), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	tools := NewTools(Dependencies{Processor: &processorFake{}, MaxUploadBytes: 8})
	res, err := tools.processDocument(context.Background(), call("process_document", map[string]any{"path": path}))
	if err != nil || !res.IsError {
		t.Fatalf("expected tool error, got err=%v res=%+v", err, res)
	}
}

func TestClassifyTextErrorsBecomeToolErrors(t *testing.T) {
	tools := NewTools(Dependencies{Classifier: classifierFake{}})

	res, err := tools.classifyText(context.Background(), call("classify_text", map[string]any{"text": "   "}))
	if err != nil || !res.IsError {
		t.Fatalf("expected tool error, got err=%v res=%+v", err, res)
	}

	res, err = tools.classifyText(context.Background(), call("classify_text", map[string]any{"text": "fire drill"}))
	if err != nil || res.IsError || !strings.Contains(resultText(t, res), "Safety") {
		t.Fatalf("unexpected result err=%v res=%+v", err, res)
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	tools := NewTools(Dependencies{Classifier: classifierFake{}})
	res, err := tools.detectLanguage(context.Background(), call("detect_language", map[string]any{}))
	if err != nil || !res.IsError {
		t.Fatalf("expected tool error for missing text, got err=%v res=%+v", err, res)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("test", NewTools(Dependencies{}))
	if s == nil {
		t.Fatalf("nil server")
	}
}
