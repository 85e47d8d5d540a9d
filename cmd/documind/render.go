package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/uploads"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func stateColor(state uploads.State) string {
	switch state {
	case uploads.StateCompleted:
		return ansiGreen
	case uploads.StateError:
		return ansiRed
	case uploads.StateProcessing:
		return ansiYellow
	default:
		return ansiBlue
	}
}

// progressLine is the one-line status printed whenever an entry changes.
func progressLine(e uploads.Entry, colorize bool) string {
	status := fmt.Sprintf("[%s %3d%%]", strings.ToUpper(string(e.State)), e.Progress)
	if colorize {
		status = stateColor(e.State) + status + ansiReset
	}
	line := fmt.Sprintf("  %-32s %s", truncate(e.Filename, 32), status)
	switch {
	case e.State == uploads.StateError:
		line += " " + e.Error
	case e.ClassificationState == uploads.ClassificationLoading:
		line += " classifying..."
	case e.ClassificationState == uploads.ClassificationError:
		line += " classification failed: " + e.ClassificationError
	case e.Classification != nil:
		line += " " + formatClassification(e.Classification)
	}
	return line
}

func uploadSummary(entries []uploads.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		lang, category, confidence := "-", "-", "-"
		if e.Result != nil && e.Result.LanguageDetection.LanguageName != "" {
			lang = e.Result.LanguageDetection.LanguageName
		}
		if e.Classification != nil {
			category = e.Classification.Category
			confidence = fmt.Sprintf("%.0f%%", e.Classification.Confidence*100)
		}
		status := string(e.State)
		if e.State == uploads.StateError {
			status += ": " + truncate(e.Error, 40)
		} else if e.ClassificationState == uploads.ClassificationError {
			status += " (classification failed)"
		}
		id := e.ProcessingID
		if id == "" {
			id = "-"
		}
		rows = append(rows, []string{e.Filename, status, id, lang, category, confidence})
	}
	return renderTable([]string{"File", "Status", "Processing ID", "Language", "Category", "Confidence"}, rows, 6)
}

func formatClassification(c *domain.ClassificationResult) string {
	return fmt.Sprintf("%s (%.0f%%, %s)", c.Category, c.Confidence*100, c.Method)
}

func classificationTable(c *domain.ClassificationResult) string {
	rows := make([][]string, 0, len(c.AllCategories))
	for _, s := range c.AllCategories {
		rows = append(rows, []string{s.Category, fmt.Sprintf("%.2f", s.Confidence)})
	}
	return renderTable([]string{"Category", "Score"}, rows, 2)
}

func languagesTable(langs []domain.Language) string {
	rows := make([][]string, 0, len(langs))
	for _, l := range langs {
		primary := ""
		if l.IsKMRLPrimary {
			primary = "yes"
		}
		rows = append(rows, []string{l.Code, l.Name, primary})
	}
	return renderTable([]string{"Code", "Name", "KMRL primary"}, rows)
}

func recordTable(rec *domain.ProcessingRecord) string {
	category, classificationStatus := "-", string(rec.ClassificationStatus)
	if rec.Classification != nil {
		category = formatClassification(rec.Classification)
	}
	if rec.ClassificationError != "" {
		classificationStatus += ": " + rec.ClassificationError
	}
	lang := rec.Result.LanguageDetection
	rows := [][]string{
		{"Processing ID", rec.ID},
		{"File", fmt.Sprintf("%s (%s)", rec.Filename, rec.FileKind)},
		{"Language", fmt.Sprintf("%s (%.0f%%)", lang.LanguageName, lang.Confidence*100)},
		{"Characters", fmt.Sprintf("%d", len([]rune(rec.Text)))},
		{"Translated", fmt.Sprintf("%t", rec.TranslatedText != "")},
		{"Classification", classificationStatus},
		{"Category", category},
		{"Created", rec.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	return renderTable([]string{"Field", "Value"}, rows)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
