// Package localtext reads text that is already embedded in an upload: UTF-8 text
// files and PDFs with a text layer. Scanned images need the Azure analyzer.
package localtext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const ModelID = "local-text"

var pdfMagic = []byte("%PDF-")

type Analyzer struct{}

func New() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(ctx context.Context, filename string, data []byte) (domain.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return domain.Analysis{}, err
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return a.analyzePDF(filename, data)
	case utf8.Valid(data):
		return domain.Analysis{
			Content:   strings.TrimSpace(string(data)),
			PageCount: 1,
			ModelID:   ModelID,
		}, nil
	default:
		return domain.Analysis{}, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"analyze local text",
			fmt.Errorf("%s has no text layer", filename),
		)
	}
}

func (a *Analyzer) analyzePDF(filename string, data []byte) (analysis domain.Analysis, err error) {
	// The PDF parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = domain.WrapError(domain.ErrUnsupportedFormat, "parse pdf", fmt.Errorf("%s: %v", filename, r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Analysis{}, domain.WrapError(domain.ErrUnsupportedFormat, "parse pdf", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.Analysis{}, domain.WrapError(domain.ErrUnsupportedFormat, "read pdf text", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return domain.Analysis{}, fmt.Errorf("read pdf text: %w", err)
	}
	content := strings.TrimSpace(buf.String())
	if content == "" {
		return domain.Analysis{}, domain.WrapError(
			domain.ErrUnsupportedFormat,
			"read pdf text",
			fmt.Errorf("%s is a scanned pdf without text layer", filename),
		)
	}

	return domain.Analysis{
		Content:   content,
		PageCount: reader.NumPage(),
		ModelID:   ModelID,
	}, nil
}
