// Package docrow maps documents to and from the row layout shared by the SQL repositories.
package docrow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// Columns is the select/insert column order expected by Scan.
const Columns = `id, batch_id, position, filename, mime_type, storage_path, raw_text, document_type, fields, status, field_errors, stage, error_message, created_at, updated_at`

type Scanner interface {
	Scan(dest ...any) error
}

// Scan reads one row in Columns order. Errors from the scanner are returned unwrapped
// so callers can match sql.ErrNoRows.
func Scan(row Scanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		docType      string
		status       string
		stage        string
		fieldsRaw    []byte
		errorsRaw    []byte
		errorMessage *string
		createdAt    Time
		updatedAt    Time
	)
	if err := row.Scan(
		&doc.ID, &doc.BatchID, &doc.Position, &doc.Filename, &doc.MimeType, &doc.StoragePath,
		&doc.RawText, &docType, &fieldsRaw, &status, &errorsRaw, &stage, &errorMessage,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	fields, err := DecodeFields(fieldsRaw)
	if err != nil {
		return nil, err
	}
	fieldErrors, err := DecodeErrors(errorsRaw)
	if err != nil {
		return nil, err
	}

	doc.Type = domain.DocumentType(docType)
	doc.Fields = fields
	doc.Status = domain.DocumentStatus(status)
	doc.FieldErrors = fieldErrors
	doc.Stage = domain.ProcessingStage(stage)
	if errorMessage != nil {
		doc.Error = *errorMessage
	}
	doc.CreatedAt = createdAt.Time
	doc.UpdatedAt = updatedAt.Time
	return &doc, nil
}

// EncodeFields stores the field map as a flat {"key": "value"} object.
func EncodeFields(fields map[string]domain.FieldEntry) ([]byte, error) {
	flat := make(map[string]string, len(fields))
	for key, entry := range fields {
		flat[key] = entry.Value
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return raw, nil
}

func DecodeFields(raw []byte) (map[string]domain.FieldEntry, error) {
	fields := make(map[string]domain.FieldEntry)
	if len(raw) == 0 {
		return fields, nil
	}
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	for key, value := range flat {
		fields[key] = domain.FieldEntry{Key: key, Value: value}
	}
	return fields, nil
}

func EncodeErrors(fieldErrors []string) ([]byte, error) {
	if fieldErrors == nil {
		fieldErrors = []string{}
	}
	raw, err := json.Marshal(fieldErrors)
	if err != nil {
		return nil, fmt.Errorf("marshal field errors: %w", err)
	}
	return raw, nil
}

func DecodeErrors(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal field errors: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// Time scans timestamps stored natively or as text.
type Time struct {
	time.Time
}

func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	case int64:
		t.Time = time.Unix(0, v).UTC()
		return nil
	default:
		return fmt.Errorf("scan time: unsupported type %T", src)
	}
}

func (t *Time) parse(value string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognized format %q", value)
}

// FormatTime is the text encoding used where the driver has no native timestamp type.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
