package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-intake/internal/bootstrap"
	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/document-intake/internal/observability/logging"
)

type processOptions struct {
	dir      string
	out      string
	ocr      string
	logLevel *string
}

func newProcessCommand(logLevel *string) *cobra.Command {
	opts := processOptions{logLevel: logLevel}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process every file of a directory as one batch and write the workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcess(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory with the documents to process (required)")
	cmd.Flags().StringVar(&opts.out, "out", "", "output workbook path (defaults to <dir>/../intake.xlsx)")
	cmd.Flags().StringVar(&opts.ocr, "ocr", config.OCRProviderLocal, "OCR provider: local or azure (azure reads AZURE_DI_* settings)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runProcess(ctx context.Context, opts processOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	files, err := collectFiles(opts.dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found in %s", opts.dir)
	}
	out := opts.out
	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(opts.dir)), "intake.xlsx")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	storageDir, err := os.MkdirTemp("", "intake-*")
	if err != nil {
		return fmt.Errorf("create scratch storage: %w", err)
	}
	defer os.RemoveAll(storageDir)

	cfg.StoreDriver = config.StoreDriverSQLite
	cfg.SQLitePath = sqlite.MemoryPath
	cfg.QueueDriver = config.QueueDriverInline
	cfg.StoragePath = storageDir
	cfg.OCRProvider = strings.ToLower(opts.ocr)
	// A directory is one batch, whatever its size.
	cfg.BatchMaxFiles = len(files)

	logger := logging.NewJSONLoggerTo(os.Stderr, "intake", *opts.logLevel)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.SubmitUC.Submit(ctx, files)
	if err != nil {
		return err
	}

	workbook, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	summary, err := app.ExportUC.ExportBatch(ctx, report.BatchID, workbook)
	if closeErr := workbook.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return printReport(stdout, out, report, summary)
}

// collectFiles reads the regular, non-hidden files of dir in name order.
func collectFiles(dir string) ([]domain.UploadFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	files := make([]domain.UploadFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		files = append(files, domain.UploadFile{
			Filename: entry.Name(),
			MimeType: mime.TypeByExtension(filepath.Ext(entry.Name())),
			Data:     data,
		})
	}
	return files, nil
}

type processSummary struct {
	Workbook  string                `json:"workbook"`
	BatchID   string                `json:"batch_id"`
	Summary   domain.BatchSummary   `json:"summary"`
	Documents []documentLine        `json:"documents"`
	Failures  []domain.BatchFailure `json:"failures"`
}

type documentLine struct {
	Filename     string                `json:"filename"`
	DocumentType domain.DocumentType   `json:"document_type"`
	Status       domain.DocumentStatus `json:"status"`
	FieldErrors  []string              `json:"field_errors,omitempty"`
}

func printReport(w io.Writer, workbook string, report *domain.BatchReport, summary domain.BatchSummary) error {
	if report == nil {
		return errors.New("empty batch report")
	}
	lines := make([]documentLine, 0, len(report.Documents))
	for _, doc := range report.Documents {
		lines = append(lines, documentLine{
			Filename:     doc.Filename,
			DocumentType: doc.Type,
			Status:       doc.Status,
			FieldErrors:  doc.FieldErrors,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(processSummary{
		Workbook:  workbook,
		BatchID:   report.BatchID,
		Summary:   summary,
		Documents: lines,
		Failures:  report.Failures,
	})
}
