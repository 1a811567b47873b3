package ports

import "github.com/kirillkom/document-intake/internal/core/domain"

// DocumentClassifier assigns a document type from OCR text.
type DocumentClassifier interface {
	Classify(text string) domain.DocumentType
}

// FieldExtractor runs the type-specific rule set over OCR text.
type FieldExtractor interface {
	Extract(docType domain.DocumentType, text string) map[string]string
}
