package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/uploads"
)

type uploadFlags struct {
	ocrMethod      string
	targetLanguage string
	translate      bool
	inlineClassify bool
	classify       bool
	minConfidence  float64
	concurrency    int
	maxFileBytes   int64
	json           bool
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var flags uploadFlags
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents for OCR, translation and classification",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := ctx.client()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("target-language") {
				flags.targetLanguage = cfg.TargetLanguage
			}
			if !cmd.Flags().Changed("min-confidence") {
				flags.minConfidence = cfg.MinConfidence
			}
			return runUpload(cmd, client, flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.ocrMethod, "ocr-method", string(domain.OCRMethodDocument), "OCR method: document or text")
	cmd.Flags().StringVar(&flags.targetLanguage, "target-language", "en", "Translation target language")
	cmd.Flags().BoolVar(&flags.translate, "translate", true, "Translate text that is not in the target language")
	cmd.Flags().BoolVar(&flags.inlineClassify, "inline-classify", false, "Classify during processing")
	cmd.Flags().BoolVar(&flags.classify, "classify", true, "Classify each document after processing")
	cmd.Flags().Float64Var(&flags.minConfidence, "min-confidence", 0, "Categories below this confidence become Unknown")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 3, "Documents processed at once")
	cmd.Flags().Int64Var(&flags.maxFileBytes, "max-file-bytes", 0, "Reject local files larger than this before uploading")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the final upload state as JSON")
	return cmd
}

func runUpload(cmd *cobra.Command, api uploads.API, flags uploadFlags, paths []string) error {
	method := domain.OCRMethod(flags.ocrMethod)
	if !method.Valid() {
		return fmt.Errorf("invalid --ocr-method %q: want document or text", flags.ocrMethod)
	}

	tracker := uploads.NewTracker(api, uploads.Options{
		Process: domain.ProcessOptions{
			OCRMethod:             method,
			TargetLanguage:        flags.targetLanguage,
			IncludeTranslation:    flags.translate,
			IncludeClassification: flags.inlineClassify,
		},
		Classify:      flags.classify,
		MinConfidence: flags.minConfidence,
		Concurrency:   flags.concurrency,
		MaxFileBytes:  flags.maxFileBytes,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, p := range paths {
		tracker.Add(p)
	}

	if !flags.json {
		out := cmd.OutOrStdout()
		colorize := shouldColorize(out)
		var mu sync.Mutex
		last := make(map[string]string)
		unsubscribe := tracker.Subscribe(func(entries []uploads.Entry) {
			mu.Lock()
			defer mu.Unlock()
			for _, e := range entries {
				line := progressLine(e, colorize)
				if last[e.ID] == line {
					continue
				}
				last[e.ID] = line
				fmt.Fprintln(out, line)
			}
		})
		defer unsubscribe()
	}

	if err := tracker.Run(cmd.Context()); err != nil {
		return err
	}

	entries := tracker.Snapshot()
	if flags.json {
		if err := writeJSON(cmd, entries); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), uploadSummary(entries))
	}

	failed := 0
	for _, e := range entries {
		if e.State == uploads.StateError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(entries))
	}
	return nil
}
