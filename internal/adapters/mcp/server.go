// Package mcpadapter exposes the document pipeline as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
)

type Dependencies struct {
	Processor      ports.DocumentProcessor
	Classifier     ports.TextClassificationService
	Languages      ports.LanguageService
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type Tools struct {
	deps Dependencies
}

func NewTools(deps Dependencies) *Tools {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	return &Tools{deps: deps}
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(version string, tools *Tools) *server.MCPServer {
	s := server.NewMCPServer("documind", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("process_document",
		mcp.WithDescription("Run OCR, language detection and optional translation/classification on a local file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document on this machine")),
		mcp.WithString("ocr_method", mcp.Description("document (default) or text")),
		mcp.WithString("target_language", mcp.Description("Translation target, e.g. en")),
		mcp.WithBoolean("include_translation", mcp.Description("Translate the extracted text")),
		mcp.WithBoolean("include_classification", mcp.Description("Classify into a KMRL category")),
	), tools.processDocument)

	s.AddTool(mcp.NewTool("classify_text",
		mcp.WithDescription("Classify text into a KMRL document category"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to classify")),
		mcp.WithNumber("min_confidence", mcp.Description("Categories below this confidence become Unknown")),
	), tools.classifyText)

	s.AddTool(mcp.NewTool("detect_language",
		mcp.WithDescription("Detect the language of a text"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to analyse")),
	), tools.detectLanguage)

	s.AddTool(mcp.NewTool("translate_text",
		mcp.WithDescription("Translate text, typically between Malayalam and English"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to translate")),
		mcp.WithString("target_language", mcp.Description("Target language code, default en")),
		mcp.WithString("source_language", mcp.Description("Source language code; detected when omitted")),
	), tools.translateText)

	return s
}

func (t *Tools) processDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := readLimited(path, t.deps.MaxUploadBytes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.deps.Processor.Process(ctx, domain.Upload{Filename: filepath.Base(path), Data: data}, domain.ProcessOptions{
		OCRMethod:             domain.OCRMethod(req.GetString("ocr_method", "")),
		TargetLanguage:        req.GetString("target_language", ""),
		IncludeTranslation:    req.GetBool("include_translation", false),
		IncludeClassification: req.GetBool("include_classification", false),
	})
	return t.result("process_document", result, err)
}

func (t *Tools) classifyText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.deps.Classifier.ClassifyText(ctx, text, req.GetFloat("min_confidence", 0))
	return t.result("classify_text", result, err)
}

func (t *Tools) detectLanguage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.deps.Languages.DetectLanguage(ctx, text)
	return t.result("detect_language", result, err)
}

func (t *Tools) translateText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.deps.Languages.Translate(ctx, text, req.GetString("target_language", "en"), req.GetString("source_language", ""))
	return t.result("translate_text", result, err)
}

// result turns use-case errors into tool errors; only encoding failures are protocol errors.
func (t *Tools) result(tool string, payload any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		t.deps.Logger.Warn("mcp_tool_failed", "tool", tool, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func readLimited(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, domain.WrapError(domain.ErrTooLarge, "read document", fmt.Errorf("file exceeds %d bytes", maxBytes))
	}
	return data, nil
}
