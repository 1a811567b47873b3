package domain

import (
	"sort"
	"time"
)

// DocumentType is the closed set of document kinds the classifier can assign.
type DocumentType string

const (
	TypeIDCard               DocumentType = "cedula"
	TypeInsuranceCertificate DocumentType = "acta_seguro"
	TypeServiceContract      DocumentType = "contrato"
	TypeUnknown              DocumentType = "desconocido"
)

// DocumentTypes lists every type in export order.
var DocumentTypes = []DocumentType{
	TypeIDCard,
	TypeInsuranceCertificate,
	TypeServiceContract,
	TypeUnknown,
}

func ParseDocumentType(raw string) (DocumentType, bool) {
	for _, t := range DocumentTypes {
		if string(t) == raw {
			return t, true
		}
	}
	return TypeUnknown, false
}

// DocumentStatus is the aggregate validation state of a document.
type DocumentStatus string

const (
	StatusNeedsReview DocumentStatus = "needs_review"
	StatusValidated   DocumentStatus = "validated"
)

// ProcessingStage tracks a document through the asynchronous pipeline.
type ProcessingStage string

const (
	StageUploaded   ProcessingStage = "uploaded"
	StageProcessing ProcessingStage = "processing"
	StageReady      ProcessingStage = "ready"
	StageFailed     ProcessingStage = "failed"
)

type FieldEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Document struct {
	ID          string                `json:"id"`
	BatchID     string                `json:"batch_id"`
	Position    int                   `json:"position"`
	Filename    string                `json:"filename"`
	MimeType    string                `json:"mime_type"`
	StoragePath string                `json:"storage_path"`
	RawText     string                `json:"raw_text,omitempty"`
	Type        DocumentType          `json:"document_type"`
	Fields      map[string]FieldEntry `json:"fields"`
	Status      DocumentStatus        `json:"status"`
	FieldErrors []string              `json:"field_errors"`
	Stage       ProcessingStage       `json:"stage"`
	Error       string                `json:"error,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// FieldKeys returns the keys of the field map in lexical order.
func (d *Document) FieldKeys() []string {
	keys := make([]string, 0, len(d.Fields))
	for key := range d.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the stored value for key and whether the key is present.
func (d *Document) Value(key string) (string, bool) {
	entry, ok := d.Fields[key]
	return entry.Value, ok
}
