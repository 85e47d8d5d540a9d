package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kmrl/documind/internal/core/domain"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var (
		id            string
		text          string
		translation   string
		minConfidence float64
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a processed document or a piece of text",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, text = strings.TrimSpace(id), strings.TrimSpace(text)
			if (id == "") == (text == "") {
				return errors.New("exactly one of --id or --text is required")
			}
			client, cfg, err := ctx.client()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-confidence") {
				minConfidence = cfg.MinConfidence
			}

			var result *domain.ClassificationResult
			if id != "" {
				result, err = client.ClassifyProcessing(cmd.Context(), id, domain.ClassifyRequest{
					Translation:   translation,
					MinConfidence: minConfidence,
				})
			} else {
				result, err = client.ClassifyText(cmd.Context(), text, minConfidence)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Category: %s\n", formatClassification(result))
			if result.TextSource != "" {
				fmt.Fprintf(out, "Text source: %s\n", result.TextSource)
			}
			if len(result.AllCategories) > 0 {
				fmt.Fprintln(out, classificationTable(result))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Processing ID returned by upload")
	cmd.Flags().StringVar(&text, "text", "", "Text to classify directly")
	cmd.Flags().StringVar(&translation, "translation", "", "Translated text to classify instead of the stored text")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Categories below this confidence become Unknown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List languages the server can translate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.client()
			if err != nil {
				return err
			}
			langs, err := client.Languages(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, langs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), languagesTable(langs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <processing-id>",
		Short: "Show a stored processing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := ctx.client()
			if err != nil {
				return err
			}
			rec, err := client.GetProcessing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, rec)
			}
			fmt.Fprintln(cmd.OutOrStdout(), recordTable(rec))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}
