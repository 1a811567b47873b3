package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-intake/internal/core/classify"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/extract"
	"github.com/kirillkom/document-intake/internal/core/fields"
	"github.com/kirillkom/document-intake/internal/infrastructure/analyzer/localtext"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file>",
		Short: "Classify one text or PDF file and print its validated fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			analysis, err := localtext.New().Analyze(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			return printClassification(cmd.OutOrStdout(), filepath.Base(args[0]), analysis.Content)
		},
	}
}

type classification struct {
	Filename     string                `json:"filename"`
	DocumentType domain.DocumentType   `json:"document_type"`
	Status       domain.DocumentStatus `json:"status"`
	Fields       map[string]string     `json:"fields"`
	FieldErrors  []string              `json:"field_errors"`
}

func printClassification(w io.Writer, filename, text string) error {
	doc := &domain.Document{Filename: filename, Type: classify.Classify(text)}
	fields.Seed(doc, extract.Extract(doc.Type, text))

	values := make(map[string]string, len(doc.Fields))
	for key, entry := range doc.Fields {
		values[key] = entry.Value
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(classification{
		Filename:     filename,
		DocumentType: doc.Type,
		Status:       doc.Status,
		Fields:       values,
		FieldErrors:  doc.FieldErrors,
	})
}
